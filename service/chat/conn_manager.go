package chat

import (
	"net"
	"sync"
	"time"

	"github.com/Kesh3805/job-portal/tools/errs"
	"github.com/gorilla/websocket"
)

// WsConn is one live transport connection. UserID stays empty until the
// authenticate event arrives. A single user may hold several of these
// (multiple tabs/devices), each with its own send queue consumed by a
// single writer goroutine.
type WsConn struct {
	ConnID     string
	UserID     string
	Authorized bool

	Conn   *websocket.Conn
	Remote net.Addr
	Send   chan []byte

	CreatedAt time.Time
}

// ConnManager indexes live connections by connection id and by user.
// Bind/unbind are set operations: a second tab binding the same user
// never overwrites the first.
type ConnManager struct {
	mu     sync.RWMutex
	byID   map[string]*WsConn
	byUser map[string]map[string]*WsConn

	gwID          string
	sendQueueSize int

	closeOnce sync.Once
}

func NewConnManager(gwID string, sendQueueSize int) *ConnManager {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &ConnManager{
		byID:          make(map[string]*WsConn),
		byUser:        make(map[string]map[string]*WsConn),
		gwID:          gwID,
		sendQueueSize: sendQueueSize,
	}
}

func (m *ConnManager) GwID() string { return m.gwID }

// AddUnauth registers a fresh, not yet authenticated connection.
func (m *ConnManager) AddUnauth(connID string, conn *websocket.Conn) (*WsConn, error) {
	if connID == "" || conn == nil {
		return nil, errs.New("connID/conn empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[connID]; exists {
		return nil, errs.New("connID exists")
	}

	w := &WsConn{
		ConnID:    connID,
		Conn:      conn,
		Remote:    conn.RemoteAddr(),
		Send:      make(chan []byte, m.sendQueueSize),
		CreatedAt: time.Now(),
	}
	m.byID[connID] = w
	return w, nil
}

// BindUser attaches an authenticated identity to the connection.
// Idempotent per connection; rebinding the same user is a no-op.
func (m *ConnManager) BindUser(connID, userID string) error {
	if connID == "" || userID == "" {
		return errs.New("connID/userID empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.byID[connID]
	if !ok {
		return errs.New("connID not found")
	}
	if w.Authorized && w.UserID == userID {
		return nil
	}
	if w.Authorized && w.UserID != userID {
		// rebinding to another identity: detach from the old index
		if mm := m.byUser[w.UserID]; mm != nil {
			delete(mm, connID)
			if len(mm) == 0 {
				delete(m.byUser, w.UserID)
			}
		}
	}

	w.UserID = userID
	w.Authorized = true
	if m.byUser[userID] == nil {
		m.byUser[userID] = make(map[string]*WsConn)
	}
	m.byUser[userID][connID] = w
	return nil
}

// Remove drops the connection from both indexes and closes its send
// queue, reporting whether it was still present. The close happens
// under the write lock: senders hold the read lock across their channel
// send, so a send can never hit an already-closed queue. A second
// remove for the same id is a no-op.
func (m *ConnManager) Remove(connID string) (*WsConn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.byID[connID]
	if !ok {
		return nil, false
	}
	delete(m.byID, connID)

	if w.Authorized && w.UserID != "" {
		if mm := m.byUser[w.UserID]; mm != nil {
			delete(mm, connID)
			if len(mm) == 0 {
				delete(m.byUser, w.UserID)
			}
		}
	}
	close(w.Send)
	return w, true
}

func (m *ConnManager) Get(connID string) (*WsConn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.byID[connID]
	return w, ok
}

// SendTo enqueues a frame for one connection. A full queue drops the
// frame rather than blocking the caller.
func (m *ConnManager) SendTo(connID string, data []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.byID[connID]
	if !ok {
		return errs.New("connID not found")
	}
	select {
	case w.Send <- data:
		return nil
	default:
		return errs.New("send queue full")
	}
}

// BroadcastAll fans a frame out to every authenticated connection. The
// sends are non-blocking and stay under the read lock so Remove cannot
// close a queue mid-send.
func (m *ConnManager) BroadcastAll(data []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.byID {
		if !w.Authorized {
			continue
		}
		select {
		case w.Send <- data:
		default:
		}
	}
}

// Close closes every connection's queue and socket.
func (m *ConnManager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, w := range m.byID {
			close(w.Send)
			_ = w.Conn.Close()
		}
		m.byID = map[string]*WsConn{}
		m.byUser = map[string]map[string]*WsConn{}
	})
}
