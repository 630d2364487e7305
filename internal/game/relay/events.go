// Package relay interprets inbound client events, applies room-state
// effects through the registry, and decides what to broadcast and to whom.
// Payloads of gameplay events are forwarded opaquely; the server never
// validates physics, damage, or movement.
package relay

import (
	"encoding/json"

	"github.com/arcadehall/relay/internal/game/room"
)

// Inbound event names — the wire contract with game clients.
const (
	EventJoinRoom         = "joinRoom"
	EventPlayerState      = "playerState"
	EventAttack           = "attack"
	EventUltimate         = "ultimate"
	EventDamage           = "damage"
	EventBulletCreate     = "bulletCreate"
	EventBulletDestroy    = "bulletDestroy"
	EventVictory          = "victory"
	EventUpdatePlayerName = "updatePlayerName"
)

// Outbound event names emitted to clients.
const (
	EventPlayerAssigned     = "playerAssigned"
	EventRoomUpdate         = "roomUpdate"
	EventRoomFull           = "roomFull"
	EventGameStart          = "gameStart"
	EventPlayerStateUpdate  = "playerStateUpdate"
	EventPlayerAttack       = "playerAttack"
	EventPlayerUltimate     = "playerUltimate"
	EventPlayerDamage       = "playerDamage"
	EventGameEnd            = "gameEnd"
	EventPlayerDisconnected = "playerDisconnected"
)

// PlayerAssigned tells a joining client its slot and room.
type PlayerAssigned struct {
	PlayerNumber int    `json:"playerNumber"`
	RoomID       string `json:"roomId"`
}

// RoomUpdate is the full membership broadcast; room.Snapshot already
// carries the players/gameState wire shape.
type RoomUpdate = room.Snapshot

// PlayerStateUpdate wraps a relayed state payload with the sender's slot.
type PlayerStateUpdate struct {
	PlayerNumber int             `json:"playerNumber"`
	State        json.RawMessage `json:"state"`
}

// PlayerAttack wraps a relayed attack payload with the sender's slot.
type PlayerAttack struct {
	PlayerNumber int             `json:"playerNumber"`
	AttackData   json.RawMessage `json:"attackData"`
}

// PlayerUltimate wraps a relayed ultimate payload with the sender's slot.
type PlayerUltimate struct {
	PlayerNumber int             `json:"playerNumber"`
	UltimateData json.RawMessage `json:"ultimateData"`
}

// PlayerDamage wraps a relayed damage payload with the sender's slot.
type PlayerDamage struct {
	PlayerNumber int             `json:"playerNumber"`
	DamageData   json.RawMessage `json:"damageData"`
}

// Victory is the inbound victory payload. Winner is opaque to the server.
type Victory struct {
	Winner json.RawMessage `json:"winner"`
}

// GameEnd announces the match result to the whole room.
type GameEnd struct {
	Winner       json.RawMessage `json:"winner"`
	WinnerNumber int             `json:"winnerNumber"`
}
