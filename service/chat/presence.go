package chat

import (
	"sync"
)

// PresenceHooks fire on edge transitions only: the first connection a
// user binds, and the last one they lose. Both run synchronously on the
// calling goroutine; hook bodies offload anything slow.
type PresenceHooks struct {
	OnFirstOnline func(userID string)
	OnLastOffline func(userID string)
}

// PresenceRegistry is the in-process source of truth for "is user
// online". A user appears in the index iff it has at least one live
// connection; bind/unbind are atomic set add/remove so two tabs racing
// never lose each other.
type PresenceRegistry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]struct{} // userID -> set of connIDs
	byConn map[string]string              // connID -> userID

	hooks PresenceHooks
}

func NewPresenceRegistry(hooks PresenceHooks) *PresenceRegistry {
	return &PresenceRegistry{
		byUser: make(map[string]map[string]struct{}),
		byConn: make(map[string]string),
		hooks:  hooks,
	}
}

// Bind registers connID under userID. Idempotent per connection. A
// re-bind to a different identity detaches the connection from the old
// user first, so no ghost connection keeps that user online. Returns
// true when this was the user's first live connection.
func (p *PresenceRegistry) Bind(connID, userID string) bool {
	if connID == "" || userID == "" {
		return false
	}
	p.mu.Lock()
	prev, rebind := p.byConn[connID]
	if rebind && prev == userID {
		p.mu.Unlock()
		return false
	}
	lastOfPrev := false
	if rebind {
		if set := p.byUser[prev]; set != nil {
			delete(set, connID)
			if len(set) == 0 {
				delete(p.byUser, prev)
				lastOfPrev = true
			}
		}
	}
	p.byConn[connID] = userID
	set := p.byUser[userID]
	first := len(set) == 0
	if set == nil {
		set = make(map[string]struct{})
		p.byUser[userID] = set
	}
	set[connID] = struct{}{}
	p.mu.Unlock()

	if lastOfPrev && p.hooks.OnLastOffline != nil {
		p.hooks.OnLastOffline(prev)
	}
	if first && p.hooks.OnFirstOnline != nil {
		p.hooks.OnFirstOnline(userID)
	}
	return first
}

// Unbind removes the connection. Returns true when it was the user's
// last live connection. Unknown connIDs are a no-op.
func (p *PresenceRegistry) Unbind(connID string) bool {
	p.mu.Lock()
	userID, ok := p.byConn[connID]
	if !ok {
		p.mu.Unlock()
		return false
	}
	delete(p.byConn, connID)
	last := false
	if set := p.byUser[userID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(p.byUser, userID)
			last = true
		}
	}
	p.mu.Unlock()

	if last && p.hooks.OnLastOffline != nil {
		p.hooks.OnLastOffline(userID)
	}
	return last
}

func (p *PresenceRegistry) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser[userID]) > 0
}

// ActiveUserIDs snapshots who is online, for the connect-time snapshot.
func (p *PresenceRegistry) ActiveUserIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.byUser))
	for u := range p.byUser {
		out = append(out, u)
	}
	return out
}

// RouteTo returns the user's live connection ids (possibly none).
func (p *PresenceRegistry) RouteTo(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.byUser[userID]))
	for c := range p.byUser[userID] {
		out = append(out, c)
	}
	return out
}
