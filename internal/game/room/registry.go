package room

import (
	"errors"
	"fmt"
	"sync"
)

// MaxPlayers is the hard cap on room membership.
const MaxPlayers = 2

// ErrRoomFull is returned by AddPlayer when both slots are taken.
var ErrRoomFull = errors.New("room full")

// Registry owns the room-id-to-room mapping and its lifecycle.
// All methods are safe for concurrent use; every structural mutation
// (creation, membership change, removal) runs inside a single critical
// section so two simultaneous joins can never both take the same slot.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns a snapshot of the room for id, creating a fresh
// Waiting room with no players if none exists. It never fails.
//
// Postcondition: A room for id exists in the registry.
func (g *Registry) GetOrCreate(id string) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getOrCreateLocked(id).snapshot()
}

// Get returns a snapshot of the room for id, without side effects.
//
// Postcondition: Returns (snapshot, true) if found, or (zero, false) otherwise.
func (g *Registry) Get(id string) (Snapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[id]
	if !ok {
		return Snapshot{}, false
	}
	return r.snapshot(), true
}

// Remove deletes the room entry for id. No-op if absent.
//
// Precondition: The caller has verified the room's player sequence is
// empty; the registry does not re-check.
func (g *Registry) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, id)
}

// Count returns the number of rooms currently held.
func (g *Registry) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// AddPlayer admits a connection to the room for roomID, creating the room
// if needed. The new player takes the lowest slot no current member holds,
// with a slot-derived placeholder name. Admitting the second player moves
// the room to Playing.
//
// Precondition: connID must not already be a member of the room.
// Postcondition: Returns the admitted player, the post-join snapshot, and
// whether this join started the match — or ErrRoomFull with no mutation.
// No two members of the room hold the same slot.
func (g *Registry) AddPlayer(roomID, connID string) (Player, Snapshot, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.getOrCreateLocked(roomID)
	if len(r.players) >= MaxPlayers {
		return Player{}, Snapshot{}, false, ErrRoomFull
	}

	slot := r.lowestFreeSlot()
	p := &Player{
		ConnID: connID,
		Slot:   slot,
		Name:   fmt.Sprintf("Player %d", slot),
	}
	r.players = append(r.players, p)

	started := false
	if len(r.players) == MaxPlayers {
		r.state = Playing
		started = true
	}

	return *p, r.snapshot(), started, nil
}

// RemovePlayer removes the member owning connID from the room, matching by
// connection id; the remaining player keeps its slot. A room that loses its
// last member is deleted in the same critical section; a room left with one
// member reverts to Waiting.
//
// Postcondition: Returns the departed slot, the remaining member count, and
// the post-removal snapshot. ok is false when the room does not exist or
// connID was not a member, in which case nothing is mutated.
func (g *Registry) RemovePlayer(roomID, connID string) (int, int, Snapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[roomID]
	if !exists {
		return 0, 0, Snapshot{}, false
	}
	p := r.findPlayer(connID)
	if p == nil {
		return 0, 0, Snapshot{}, false
	}

	kept := r.players[:0]
	for _, m := range r.players {
		if m.ConnID != connID {
			kept = append(kept, m)
		}
	}
	r.players = kept

	if len(r.players) == 0 {
		delete(g.rooms, roomID)
		return p.Slot, 0, Snapshot{GameState: r.state}, true
	}

	r.state = Waiting
	return p.Slot, len(r.players), r.snapshot(), true
}

// SetEnded marks the room's match as over.
//
// Postcondition: Returns (snapshot, true) on success, or (zero, false)
// when the room no longer exists.
func (g *Registry) SetEnded(roomID string) (Snapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return Snapshot{}, false
	}
	r.state = Ended
	return r.snapshot(), true
}

// SetPlayerName updates the display name of the member owning connID.
//
// Postcondition: Returns (snapshot, true) on success, or (zero, false)
// when the room or the member is missing, in which case nothing is mutated.
func (g *Registry) SetPlayerName(roomID, connID, name string) (Snapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return Snapshot{}, false
	}
	p := r.findPlayer(connID)
	if p == nil {
		return Snapshot{}, false
	}
	p.Name = name
	return r.snapshot(), true
}

// SweepEmpty removes rooms holding no players and returns how many were
// removed. Member teardown already deletes emptied rooms inline, so this
// exists as a periodic safety net only.
func (g *Registry) SweepEmpty() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, r := range g.rooms {
		if len(r.players) == 0 {
			delete(g.rooms, id)
			removed++
		}
	}
	return removed
}

// getOrCreateLocked resolves or creates the room entry. Caller holds g.mu.
func (g *Registry) getOrCreateLocked(id string) *Room {
	r, ok := g.rooms[id]
	if !ok {
		r = &Room{id: id, state: Waiting}
		g.rooms[id] = r
	}
	return r
}
