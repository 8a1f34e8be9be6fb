package chat

import (
	"sync"
)

// RoomRegistry groups connections into conversation-scoped broadcast
// groups. A connection may sit in any number of rooms at once; rooms
// vanish when their last member leaves.
type RoomRegistry struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // conversationID -> connIDs
	byConn map[string]map[string]struct{} // connID -> conversationIDs
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join subscribes the connection to the conversation's broadcasts.
// Idempotent.
func (r *RoomRegistry) Join(conversationID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[conversationID] == nil {
		r.rooms[conversationID] = make(map[string]struct{})
	}
	r.rooms[conversationID][connID] = struct{}{}
	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[string]struct{})
	}
	r.byConn[connID][conversationID] = struct{}{}
}

// Leave unsubscribes the connection. Idempotent.
func (r *RoomRegistry) Leave(conversationID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set := r.rooms[conversationID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.rooms, conversationID)
		}
	}
	if set := r.byConn[connID]; set != nil {
		delete(set, conversationID)
		if len(set) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// LeaveAll removes the connection from every room (disconnect path).
func (r *RoomRegistry) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for conversationID := range r.byConn[connID] {
		if set := r.rooms[conversationID]; set != nil {
			delete(set, connID)
			if len(set) == 0 {
				delete(r.rooms, conversationID)
			}
		}
	}
	delete(r.byConn, connID)
}

// Conns snapshots the room's member connection ids.
func (r *RoomRegistry) Conns(conversationID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms[conversationID]))
	for c := range r.rooms[conversationID] {
		out = append(out, c)
	}
	return out
}

// Contains reports room membership for one connection.
func (r *RoomRegistry) Contains(conversationID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[conversationID][connID]
	return ok
}
