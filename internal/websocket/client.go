package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	// Authenticated identity behind this connection.
	UserID uuid.UUID

	// ConnID is the liveness token written into the presence store.
	ConnID string

	// Buffered channel of outbound frames.
	Send chan []byte

	// closed is set by the hub when it drops the connection, before it
	// closes Send. Guarded by Hub.mu.
	closed bool

	// onEvent receives each parsed inbound frame, in submission order.
	onEvent func(*Client, ClientEvent)

	// onPong re-arms the presence TTL while the connection stays live.
	onPong func(*Client)
}

// readPump pumps frames from the websocket connection to the gateway.
// Running events through this single loop is what preserves per-connection
// ordering: a join handled before a subsequent send.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.onPong != nil {
			c.onPong(c)
		}
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
			}
			break
		}

		var event ClientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.Hub.EmitToClient(c, Envelope(EventError, map[string]string{"message": "Malformed event"}))
			continue
		}

		if c.onEvent != nil {
			c.onEvent(c, event)
		}
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
