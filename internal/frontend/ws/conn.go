// Package ws provides the websocket transport for the relay: it accepts
// client connections, groups them into per-room broadcast channels, and
// delivers inbound event frames to the session relay.
package ws

import (
	"context"
	"encoding/json"
	"time"

	"nhooyr.io/websocket"
)

// Envelope is the wire frame exchanged with clients: one JSON object per
// websocket text message, in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Conn wraps a websocket connection with a buffered outbound queue so
// broadcasts never block on a slow client.
type Conn struct {
	id   string
	sock *websocket.Conn
	out  chan []byte
}

// newConn wraps an accepted websocket connection.
//
// Precondition: sendBuffer must be >= 1.
func newConn(id string, sock *websocket.Conn, sendBuffer int) *Conn {
	return &Conn{
		id:   id,
		sock: sock,
		out:  make(chan []byte, sendBuffer),
	}
}

// enqueue queues an outbound frame without blocking. Returns false when
// the client's buffer is full and the frame was dropped.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case c.out <- frame:
		return true
	default:
		return false
	}
}

// writeLoop drains outbound frames and sends keepalive pings until the
// context is cancelled or a write fails.
func (c *Conn) writeLoop(ctx context.Context, pingInterval time.Duration) error {
	t := time.NewTicker(pingInterval)
	defer t.Stop()

	for {
		select {
		case frame := <-c.out:
			if err := c.sock.Write(ctx, websocket.MessageText, frame); err != nil {
				return err
			}
		case <-t.C:
			if err := c.sock.Ping(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readLoop delivers raw inbound frames to handle until the connection
// closes. Control frames are handled by the websocket library.
func (c *Conn) readLoop(ctx context.Context, handle func(frame []byte)) error {
	for {
		typ, data, err := c.sock.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			continue
		}
		handle(data)
	}
}
