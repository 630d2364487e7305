// Package room implements the in-memory room registry for two-player
// match sessions. A room is created lazily by the first join, holds at
// most two players, and is destroyed the moment it loses its last member.
package room

// State is the lifecycle phase of a room.
type State string

const (
	// Waiting means the room has fewer than two players.
	Waiting State = "waiting"
	// Playing means both slots are occupied and the match is live.
	Playing State = "playing"
	// Ended means a victory event closed the match.
	Ended State = "ended"
)

// Player is a member of a room. JSON tags match the client wire contract.
type Player struct {
	// ConnID is the owning transport connection identifier.
	ConnID string `json:"id"`
	// Slot is the player position, 1 or 2, assigned at join time and
	// never reassigned while the connection holds it.
	Slot int `json:"playerNumber"`
	// Name is the display name, mutable by the owning connection only.
	Name string `json:"name"`
}

// Room is a registry entry. Rooms are only mutated through Registry
// methods; handler code never holds a live *Room.
type Room struct {
	id      string
	state   State
	players []*Player
}

// Snapshot is an immutable copy of a room's broadcastable state.
// Its JSON encoding is the roomUpdate payload sent to clients.
type Snapshot struct {
	Players   []Player `json:"players"`
	GameState State    `json:"gameState"`
}

// snapshot copies the room under the registry lock.
func (r *Room) snapshot() Snapshot {
	players := make([]Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}
	return Snapshot{Players: players, GameState: r.state}
}

// lowestFreeSlot returns the smallest slot no current member holds, so a
// join after a departure backfills the vacancy instead of colliding with
// the survivor's slot.
func (r *Room) lowestFreeSlot() int {
	for s := 1; s <= MaxPlayers; s++ {
		taken := false
		for _, p := range r.players {
			if p.Slot == s {
				taken = true
				break
			}
		}
		if !taken {
			return s
		}
	}
	return len(r.players) + 1
}

func (r *Room) findPlayer(connID string) *Player {
	for _, p := range r.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}
