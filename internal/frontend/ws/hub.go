package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"github.com/arcadehall/relay/internal/config"
	"github.com/arcadehall/relay/internal/observability"
)

// Handler consumes inbound events and connection-loss notifications.
// Implemented by the session relay.
type Handler interface {
	// HandleEvent processes one inbound client event.
	HandleEvent(connID, event string, data json.RawMessage)
	// HandleDisconnect fires exactly once when a connection is lost.
	HandleDisconnect(connID string)
}

// Hub tracks all live connections and their channel (room) membership,
// and implements the relay's Transport contract. Every send is a
// best-effort push to an already-open connection.
type Hub struct {
	cfg     config.RelayConfig
	log     *zap.Logger
	metrics *observability.Metrics
	handler Handler

	mu       sync.RWMutex
	conns    map[string]*Conn
	channels map[string]map[string]*Conn // roomID → connID → conn
}

// NewHub creates a Hub. Bind must be called before serving connections.
//
// Precondition: logger and metrics must be non-nil.
func NewHub(cfg config.RelayConfig, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		cfg:      cfg,
		log:      logger,
		metrics:  metrics,
		conns:    make(map[string]*Conn),
		channels: make(map[string]map[string]*Conn),
	}
}

// Bind attaches the event handler. The hub is constructed before the
// relay, so the handler arrives after construction.
//
// Precondition: handler must be non-nil; must be called before ServeWS.
func (h *Hub) Bind(handler Handler) {
	h.handler = handler
}

// Send unicasts an event to a single connection. Unknown connections and
// full client buffers drop the frame.
func (h *Hub) Send(connID, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("encoding frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if !c.enqueue(frame) {
		h.log.Debug("dropping frame for slow client",
			zap.String("conn_id", connID),
			zap.String("event", event),
		)
	}
}

// JoinChannel adds a connection to a room's broadcast channel.
func (h *Hub) JoinChannel(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.conns[connID]
	if c == nil {
		return
	}
	if h.channels[roomID] == nil {
		h.channels[roomID] = make(map[string]*Conn)
	}
	h.channels[roomID][connID] = c
}

// LeaveChannel removes a connection from a room's broadcast channel.
func (h *Hub) LeaveChannel(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels[roomID], connID)
	if len(h.channels[roomID]) == 0 {
		delete(h.channels, roomID)
	}
}

// Broadcast sends an event to every member of a room's channel, skipping
// excludeConnID when non-empty.
func (h *Hub) Broadcast(roomID, event string, payload any, excludeConnID string) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("encoding frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID, c := range h.channels[roomID] {
		if connID == excludeConnID {
			continue
		}
		if !c.enqueue(frame) {
			h.log.Debug("dropping frame for slow client",
				zap.String("conn_id", connID),
				zap.String("event", event),
			)
		}
	}
}

// ServeWS upgrades the request to a websocket connection and pumps it
// until the client disconnects.
//
// Precondition: Bind must have been called.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Error("websocket accept", zap.Error(err))
		return
	}

	connID := uuid.NewString()

	h.mu.Lock()
	h.conns[connID] = newConn(connID, sock, h.cfg.SendBuffer)
	c := h.conns[connID]
	h.mu.Unlock()

	h.metrics.ConnectedClients.Inc()
	h.log.Info("client connected",
		zap.String("conn_id", connID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.writeLoop(gCtx, h.cfg.PingInterval)
	})
	g.Go(func() error {
		defer cancel()
		return c.readLoop(gCtx, func(frame []byte) {
			h.dispatch(connID, frame)
		})
	})
	_ = g.Wait()

	h.mu.Lock()
	delete(h.conns, connID)
	h.mu.Unlock()

	h.metrics.ConnectedClients.Dec()
	h.handler.HandleDisconnect(connID)
	_ = sock.Close(websocket.StatusNormalClosure, "bye")

	h.log.Info("client disconnected", zap.String("conn_id", connID))
}

// ConnCount returns the number of live connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// dispatch decodes one inbound frame and hands it to the relay. A panic
// in a handler is logged and swallowed so one bad frame cannot take the
// process down.
func (h *Hub) dispatch(connID string, frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("panic handling event",
				zap.String("conn_id", connID),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
	}()

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		h.metrics.EventsDropped.WithLabelValues("malformed_frame").Inc()
		h.log.Debug("dropping malformed frame", zap.String("conn_id", connID))
		return
	}
	h.handler.HandleEvent(connID, env.Event, env.Data)
}

// encodeFrame marshals an outbound envelope.
func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
