package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func addManagerConn(m *ConnManager, connID, userID string, queue int) *WsConn {
	w := &WsConn{
		ConnID:     connID,
		UserID:     userID,
		Authorized: userID != "",
		Send:       make(chan []byte, queue),
	}
	m.mu.Lock()
	m.byID[connID] = w
	if userID != "" {
		if m.byUser[userID] == nil {
			m.byUser[userID] = make(map[string]*WsConn)
		}
		m.byUser[userID][connID] = w
	}
	m.mu.Unlock()
	return w
}

func TestConnManager_SendToAfterRemove(t *testing.T) {
	m := NewConnManager("gw-1", 4)
	addManagerConn(m, "c1", "alice", 4)

	require.NoError(t, m.SendTo("c1", []byte("hi")))

	w, ok := m.Remove("c1")
	require.True(t, ok)
	require.Equal(t, "alice", w.UserID)

	require.Error(t, m.SendTo("c1", []byte("late")))

	_, ok = m.Remove("c1")
	require.False(t, ok)
}

func TestConnManager_RemoveClosesSendQueue(t *testing.T) {
	m := NewConnManager("gw-1", 4)
	w := addManagerConn(m, "c1", "alice", 4)

	_, ok := m.Remove("c1")
	require.True(t, ok)

	_, open := <-w.Send
	require.False(t, open)
}

// Concurrent senders racing a teardown must never hit a closed queue.
// Run with -race; without the lock held across the channel send this
// panics with "send on closed channel".
func TestConnManager_ConcurrentSendAndRemove(t *testing.T) {
	for i := 0; i < 200; i++ {
		m := NewConnManager("gw-1", 1)
		addManagerConn(m, "c1", "alice", 1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.SendTo("c1", []byte("x"))
				m.BroadcastAll([]byte("y"))
			}
		}()
		go func() {
			defer wg.Done()
			m.Remove("c1")
		}()
		wg.Wait()
	}
}
