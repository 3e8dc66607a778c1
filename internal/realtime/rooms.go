package realtime

import (
	"sync"

	"github.com/samber/lo"
)

// Rooms owns the connection-to-room mapping: which chat each connection is
// currently looking at. A connection is subscribed to at most one room at a
// time; joining another room is a move, not an add. This is independent of
// the durable chat roster and is used only for broadcast targeting and
// notification suppression.
type Rooms struct {
	mu     sync.RWMutex
	byConn map[*Client]string
	byRoom map[string]map[*Client]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		byConn: make(map[*Client]string),
		byRoom: make(map[string]map[*Client]struct{}),
	}
}

// Join sets the connection's active room, atomically replacing any prior
// subscription.
func (r *Rooms) Join(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(c)

	r.byConn[c] = roomID
	set, ok := r.byRoom[roomID]
	if !ok {
		set = make(map[*Client]struct{})
		r.byRoom[roomID] = set
	}
	set[c] = struct{}{}
}

// Leave clears the connection's room. No-op if it never joined one.
func (r *Rooms) Leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c)
}

func (r *Rooms) leaveLocked(c *Client) {
	roomID, ok := r.byConn[c]
	if !ok {
		return
	}
	delete(r.byConn, c)
	if set := r.byRoom[roomID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(r.byRoom, roomID)
		}
	}
}

// Drop removes an entire room, detaching every subscribed connection. Used
// when the backing chat is deleted.
func (r *Rooms) Drop(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.byRoom[roomID] {
		delete(r.byConn, c)
	}
	delete(r.byRoom, roomID)
}

// RoomOf returns the connection's active room, empty if none.
func (r *Rooms) RoomOf(c *Client) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[c]
}

// IsViewing reports whether any of the identity's connections currently has
// roomID as its active room.
func (r *Rooms) IsViewing(identity, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for c := range r.byRoom[roomID] {
		if c.userID == identity {
			return true
		}
	}
	return false
}

// MembersOf returns every connection currently subscribed to the room.
func (r *Rooms) MembersOf(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.byRoom[roomID])
}
