package relay

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/arcadehall/relay/internal/game/room"
	"github.com/arcadehall/relay/internal/observability"
)

// Transport is the connection layer consumed by the relay. Implementations
// group connections into named channels (one per room) and deliver events
// as best-effort pushes to already-open connections.
type Transport interface {
	// Send unicasts an event to a single connection.
	Send(connID, event string, payload any)
	// JoinChannel adds a connection to a room's broadcast channel.
	JoinChannel(roomID, connID string)
	// LeaveChannel removes a connection from a room's broadcast channel.
	LeaveChannel(roomID, connID string)
	// Broadcast sends an event to every channel member; excludeConnID is
	// skipped when non-empty.
	Broadcast(roomID, event string, payload any, excludeConnID string)
}

// binding is the (roomID, slot) pair a connection holds after a
// successful join. The Room entry remains the source of truth; the
// connection keeps only this lookup key.
type binding struct {
	roomID string
	slot   int
}

// Relay owns the per-connection event handlers. Handlers are serialized by
// a single mutex so join/leave/victory/name mutations for a room apply in
// arrival order; every handler fails soft — unbound or malformed events
// are dropped, never surfaced as errors or connection termination.
type Relay struct {
	rooms     *room.Registry
	transport Transport
	log       *zap.Logger
	metrics   *observability.Metrics

	mu       sync.Mutex
	bindings map[string]binding // connID → (roomID, slot)
}

// New creates a Relay over the given registry and transport.
//
// Precondition: rooms, transport, logger, and metrics must be non-nil.
func New(rooms *room.Registry, transport Transport, logger *zap.Logger, metrics *observability.Metrics) *Relay {
	return &Relay{
		rooms:     rooms,
		transport: transport,
		log:       logger,
		metrics:   metrics,
		bindings:  make(map[string]binding),
	}
}

// HandleEvent dispatches one inbound client event. Unknown event names are
// dropped.
func (r *Relay) HandleEvent(connID, event string, data json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event {
	case EventJoinRoom:
		r.handleJoin(connID, data)
	case EventPlayerState:
		r.relayTagged(connID, event, EventPlayerStateUpdate, data)
	case EventAttack:
		r.relayTagged(connID, event, EventPlayerAttack, data)
	case EventUltimate:
		r.relayTagged(connID, event, EventPlayerUltimate, data)
	case EventDamage:
		r.relayTagged(connID, event, EventPlayerDamage, data)
	case EventBulletCreate, EventBulletDestroy:
		r.relayRaw(connID, event, data)
	case EventVictory:
		r.handleVictory(connID, data)
	case EventUpdatePlayerName:
		r.handleNameUpdate(connID, data)
	default:
		r.metrics.EventsDropped.WithLabelValues("unknown_event").Inc()
		r.log.Debug("dropping unknown event",
			zap.String("conn_id", connID),
			zap.String("event", event),
		)
	}
}

// HandleDisconnect fires on transport-level connection loss, regardless of
// prior binding. It removes the departed member, tears the room down when
// empty, and otherwise notifies the remaining member.
func (r *Relay) HandleDisconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, bound := r.bindings[connID]
	if !bound {
		return
	}
	delete(r.bindings, connID)
	r.transport.LeaveChannel(b.roomID, connID)

	slot, remaining, snap, ok := r.rooms.RemovePlayer(b.roomID, connID)
	if !ok {
		return
	}

	if remaining == 0 {
		r.log.Info("room deleted",
			zap.String("room_id", b.roomID),
		)
		return
	}

	r.log.Info("player disconnected",
		zap.String("room_id", b.roomID),
		zap.Int("slot", slot),
		zap.Int("remaining", remaining),
	)
	r.transport.Broadcast(b.roomID, EventPlayerDisconnected, slot, "")
	r.transport.Broadcast(b.roomID, EventRoomUpdate, RoomUpdate(snap), "")
}

// handleJoin admits the connection to the requested room, or tells it the
// room is full. A join from an already-bound connection is dropped without
// mutation so the original slot cannot leak.
func (r *Relay) handleJoin(connID string, data json.RawMessage) {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err != nil || roomID == "" {
		r.metrics.EventsDropped.WithLabelValues("bad_join_payload").Inc()
		r.log.Debug("dropping join with bad payload", zap.String("conn_id", connID))
		return
	}

	if b, bound := r.bindings[connID]; bound {
		r.metrics.EventsDropped.WithLabelValues("double_join").Inc()
		r.log.Warn("dropping join from bound connection",
			zap.String("conn_id", connID),
			zap.String("bound_room", b.roomID),
			zap.String("requested_room", roomID),
		)
		return
	}

	p, snap, started, err := r.rooms.AddPlayer(roomID, connID)
	if err != nil {
		r.metrics.JoinsRejected.Inc()
		r.transport.Send(connID, EventRoomFull, struct{}{})
		return
	}

	r.bindings[connID] = binding{roomID: roomID, slot: p.Slot}
	r.transport.JoinChannel(roomID, connID)
	r.metrics.EventsRelayed.WithLabelValues(EventJoinRoom).Inc()

	r.log.Info("player joined",
		zap.String("room_id", roomID),
		zap.Int("slot", p.Slot),
	)

	r.transport.Send(connID, EventPlayerAssigned, PlayerAssigned{PlayerNumber: p.Slot, RoomID: roomID})
	r.transport.Broadcast(roomID, EventRoomUpdate, RoomUpdate(snap), "")

	if started {
		r.log.Info("game started", zap.String("room_id", roomID))
		r.transport.Broadcast(roomID, EventGameStart, struct{}{}, "")
	}
}

// relayTagged forwards a gameplay payload to every other room member,
// wrapped with the sender's slot. Unbound senders are dropped silently.
func (r *Relay) relayTagged(connID, inEvent, outEvent string, data json.RawMessage) {
	b, bound := r.bindings[connID]
	if !bound {
		r.metrics.EventsDropped.WithLabelValues("unbound").Inc()
		return
	}
	r.metrics.EventsRelayed.WithLabelValues(inEvent).Inc()

	var payload any
	switch outEvent {
	case EventPlayerStateUpdate:
		payload = PlayerStateUpdate{PlayerNumber: b.slot, State: data}
	case EventPlayerAttack:
		payload = PlayerAttack{PlayerNumber: b.slot, AttackData: data}
	case EventPlayerUltimate:
		payload = PlayerUltimate{PlayerNumber: b.slot, UltimateData: data}
	case EventPlayerDamage:
		payload = PlayerDamage{PlayerNumber: b.slot, DamageData: data}
	}

	r.transport.Broadcast(b.roomID, outEvent, payload, connID)
}

// relayRaw forwards a bullet payload unchanged to every other room member.
func (r *Relay) relayRaw(connID, event string, data json.RawMessage) {
	b, bound := r.bindings[connID]
	if !bound {
		r.metrics.EventsDropped.WithLabelValues("unbound").Inc()
		return
	}
	r.metrics.EventsRelayed.WithLabelValues(event).Inc()
	r.transport.Broadcast(b.roomID, event, data, connID)
}

// handleVictory ends the match and announces the result to the whole room,
// sender included. A stale victory for a vanished room is dropped.
func (r *Relay) handleVictory(connID string, data json.RawMessage) {
	b, bound := r.bindings[connID]
	if !bound {
		r.metrics.EventsDropped.WithLabelValues("unbound").Inc()
		return
	}

	var v Victory
	_ = json.Unmarshal(data, &v)

	if _, ok := r.rooms.SetEnded(b.roomID); !ok {
		r.metrics.EventsDropped.WithLabelValues("room_gone").Inc()
		return
	}
	r.metrics.EventsRelayed.WithLabelValues(EventVictory).Inc()

	r.log.Info("game ended",
		zap.String("room_id", b.roomID),
		zap.Int("winner_slot", b.slot),
	)
	r.transport.Broadcast(b.roomID, EventGameEnd, GameEnd{Winner: v.Winner, WinnerNumber: b.slot}, "")
}

// handleNameUpdate renames the sender's player and rebroadcasts membership.
func (r *Relay) handleNameUpdate(connID string, data json.RawMessage) {
	b, bound := r.bindings[connID]
	if !bound {
		r.metrics.EventsDropped.WithLabelValues("unbound").Inc()
		return
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		r.metrics.EventsDropped.WithLabelValues("bad_name_payload").Inc()
		return
	}

	snap, ok := r.rooms.SetPlayerName(b.roomID, connID, name)
	if !ok {
		r.metrics.EventsDropped.WithLabelValues("room_gone").Inc()
		return
	}
	r.metrics.EventsRelayed.WithLabelValues(EventUpdatePlayerName).Inc()

	r.transport.Broadcast(b.roomID, EventRoomUpdate, RoomUpdate(snap), "")
}
