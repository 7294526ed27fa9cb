package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.
)

// FrameHandler processes one inbound frame from a client session. The
// client's verified identity comes from the session, never the frame.
type FrameHandler func(ctx context.Context, c *Client, frame []byte)

// Client is a middleman between one websocket connection and the gateway.
type Client struct {
	Handle string
	UserID uint64

	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte

	onFrame FrameHandler
	onClose func(c *Client)
}

// NewClient wraps an upgraded connection. Call Run to start the pumps.
func NewClient(gw *Gateway, conn *websocket.Conn, handle string, userID uint64, onFrame FrameHandler, onClose func(c *Client)) *Client {
	return &Client{
		Handle:  handle,
		UserID:  userID,
		gateway: gw,
		conn:    conn,
		send:    make(chan []byte, 256),
		onFrame: onFrame,
		onClose: onClose,
	}
}

// Run attaches the client to the gateway and starts both pumps.
func (c *Client) Run() {
	c.gateway.Attach(c)
	go c.writePump()
	go c.readPump()
}

// readPump pumps frames from the websocket connection to the frame handler.
func (c *Client) readPump() {
	defer func() {
		c.gateway.Detach(c.Handle)
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.onFrame != nil {
			c.onFrame(context.Background(), c, frame)
		}
	}
}

// writePump pumps payloads from the gateway to the websocket connection.
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
				// The gateway closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
