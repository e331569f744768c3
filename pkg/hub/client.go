package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"chatrelay/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// sendBuffer bounds the per-subscriber queue. A subscriber that falls
	// this far behind is dropped rather than awaited.
	sendBuffer = 256
)

// Client is one push-channel subscriber: an open WebSocket connection plus
// membership in the hub's broadcast set. It is created on connection
// handshake and destroyed on disconnect or send failure.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	closed bool
}

// NewClient wraps an upgraded connection. The client is inert until handed
// to Hub.Register, which starts its read and write pumps.
func NewClient(conn *websocket.Conn, h *Hub, addr string) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
		addr: addr,
	}
}

// QueueEvent serializes the event into the client's send buffer. It is used
// for the connect-time snapshot, before the client is registered, so the
// snapshot is flushed ahead of any subsequent broadcast.
func (c *Client) QueueEvent(evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return fmt.Errorf("send buffer full for %s", c.addr)
	}
}

// readPump drains inbound frames. Subscribers are not expected to send
// anything; inbound payloads are accepted and discarded, reserved for a
// future protocol extension. The pump exists to service control frames and
// to notice disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("subscriber_read_error", "addr", c.addr, "error", err)
			}
			return
		}
	}
}

// writePump drains the send buffer onto the connection and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("subscriber_write_error", "addr", c.addr, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
