package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"clinic-chat/internal/models"
	"clinic-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Client wraps one websocket connection. All writes go through the
// buffered send channel; the write pump is the only goroutine touching
// the connection for output.
type Client struct {
	id   string
	conn *websocket.Conn

	// mu guards send against the enqueue/close race: fan-outs run on
	// other connections' goroutines and may hold a stale client snapshot
	// after this one closed.
	mu        sync.Mutex
	send      chan []byte
	closed    bool
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// enqueue hands a frame to the write pump without blocking. It reports
// failure when the client is already closed or its buffer is full,
// meaning the client stopped reading; the router drops it either way.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close shuts the send channel; the write pump drains buffered frames,
// sends a close frame and closes the connection. Enqueues after Close
// report failure instead of hitting the closed channel.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump processes inbound frames in order, one handler at a time, so a
// single connection never reorders its own events.
func (c *Client) ReadPump(g *Gateway) {
	defer func() {
		g.HandleDisconnect(context.Background(), c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			logger.Debug("Dropping malformed frame from %s: %v", c.id, err)
			continue
		}

		g.Dispatch(context.Background(), c, &env)
	}
}
