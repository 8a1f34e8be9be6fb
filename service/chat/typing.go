package chat

import (
	"sync"
	"time"
)

type typingKey struct {
	ConversationID string
	UserID         string
}

// TypingConf mirrors the conn manager's config style; Clock is
// injectable for tests.
type TypingConf struct {
	StaleAfter time.Duration    // entries older than this are expired (10s)
	SweepEvery time.Duration    // sweep interval (10s)
	Clock      func() time.Time // nil => time.Now
}

func (c *TypingConf) norm() {
	if c.StaleAfter <= 0 {
		c.StaleAfter = 10 * time.Second
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 10 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// TypingTracker tracks (conversation, user) typing signals. Entries that
// are never explicitly stopped expire via the sweep, so a crashed client
// cannot leave a peer staring at a stuck "typing…" indicator.
type TypingTracker struct {
	mu      sync.Mutex
	entries map[typingKey]time.Time

	conf   TypingConf
	onStop func(conversationID, userID string) // synthetic stop broadcast

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTypingTracker starts the sweeper; callers must Close() on teardown.
func NewTypingTracker(conf TypingConf, onStop func(conversationID, userID string)) *TypingTracker {
	conf.norm()
	t := &TypingTracker{
		entries: make(map[typingKey]time.Time),
		conf:    conf,
		onStop:  onStop,
		stopCh:  make(chan struct{}),
	}
	go t.sweeper()
	return t
}

// Start upserts the typing timestamp for (conversation, user).
func (t *TypingTracker) Start(conversationID, userID string) {
	now := t.conf.Clock()
	t.mu.Lock()
	t.entries[typingKey{conversationID, userID}] = now
	t.mu.Unlock()
}

// Stop removes the entry if present. Stopping twice is a no-op the
// second time; the return value says whether an entry was removed.
func (t *TypingTracker) Stop(conversationID, userID string) bool {
	k := typingKey{conversationID, userID}
	t.mu.Lock()
	_, ok := t.entries[k]
	if ok {
		delete(t.entries, k)
	}
	t.mu.Unlock()
	return ok
}

// IsTyping reports whether a non-expired entry exists.
func (t *TypingTracker) IsTyping(conversationID, userID string) bool {
	now := t.conf.Clock()
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.entries[typingKey{conversationID, userID}]
	return ok && now.Sub(ts) <= t.conf.StaleAfter
}

// ClearUser removes every entry of the user (disconnect path) and
// returns the conversation ids that were cleared.
func (t *TypingTracker) ClearUser(userID string) []string {
	t.mu.Lock()
	var convs []string
	for k := range t.entries {
		if k.UserID == userID {
			convs = append(convs, k.ConversationID)
			delete(t.entries, k)
		}
	}
	t.mu.Unlock()
	return convs
}

func (t *TypingTracker) sweeper() {
	ticker := time.NewTicker(t.conf.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.SweepOnce()
		}
	}
}

// SweepOnce expires stale entries and emits one synthetic stop per
// expired entry. Exported so tests can drive it without the ticker.
func (t *TypingTracker) SweepOnce() {
	now := t.conf.Clock()
	var expired []typingKey

	t.mu.Lock()
	for k, ts := range t.entries {
		if now.Sub(ts) > t.conf.StaleAfter {
			delete(t.entries, k)
			expired = append(expired, k)
		}
	}
	t.mu.Unlock()

	if t.onStop == nil {
		return
	}
	for _, k := range expired {
		t.onStop(k.ConversationID, k.UserID)
	}
}

func (t *TypingTracker) Close() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}
