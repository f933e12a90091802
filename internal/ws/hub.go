// Package ws delivers real-time notifications to connected clients
// over WebSocket connections, one hub per server process.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/VangaRenuka/SocialConnect/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	sendChannelSize = 256
)

// Message is the envelope for every frame sent to a client.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// UnreadFunc reports the unread notification count for a user.
type UnreadFunc func(userID string) (int64, error)

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

type directMessage struct {
	userID  string
	payload []byte
}

// Hub tracks connected clients by user and routes notification frames
// to them. A user may hold several connections (multiple tabs).
type Hub struct {
	clients map[*client]bool
	byUser  map[string]map[*client]bool

	broadcast  chan []byte
	direct     chan directMessage
	register   chan *client
	unregister chan *client

	mu     sync.RWMutex
	log    *logger.Logger
	unread UnreadFunc

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewHub(log *logger.Logger, ctx context.Context, unread UnreadFunc) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		clients:    make(map[*client]bool),
		byUser:     make(map[string]map[*client]bool),
		broadcast:  make(chan []byte, 256),
		direct:     make(chan directMessage, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		log:        log,
		unread:     unread,
		ctx:        hubCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start runs the hub event loop. Call exactly once, in its own goroutine.
func (h *Hub) Start() {
	defer close(h.done)
	h.log.Info("ws", "notification hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				c.conn.Close()
			}
			h.clients = make(map[*client]bool)
			h.byUser = make(map[string]map[*client]bool)
			h.mu.Unlock()
			h.log.Info("ws", "notification hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			if h.byUser[c.userID] == nil {
				h.byUser[c.userID] = make(map[*client]bool)
			}
			h.byUser[c.userID][c] = true
			h.mu.Unlock()
			h.log.Debug("ws", fmt.Sprintf("client registered user=%s total=%d", c.userID, len(h.clients)))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				delete(h.byUser[c.userID], c)
				if len(h.byUser[c.userID]) == 0 {
					delete(h.byUser, c.userID)
				}
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.direct:
			h.mu.RLock()
			for c := range h.byUser[msg.userID] {
				h.deliver(c, msg.payload)
			}
			h.mu.RUnlock()

		case payload := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				h.deliver(c, payload)
			}
			h.mu.RUnlock()
		}
	}
}

// deliver queues a payload without blocking; a client whose buffer is
// full is dropped so it cannot stall the loop.
func (h *Hub) deliver(c *client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		go func(slow *client) {
			h.detach(slow)
			slow.conn.Close()
		}(c)
	}
}

// detach hands a client back to the event loop, or gives up when the
// hub has already stopped; Stop drains the clients map itself, so a
// late unregister must not block its sender forever.
func (h *Hub) detach(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Stop cancels the hub and waits for the event loop to drain.
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToUser delivers a typed message to every connection of one user.
func (h *Hub) SendToUser(userID, msgType string, data interface{}) error {
	payload, err := marshal(msgType, data)
	if err != nil {
		h.log.Error("ws", "failed to marshal message", err)
		return err
	}
	select {
	case h.direct <- directMessage{userID: userID, payload: payload}:
		return nil
	case <-time.After(time.Second):
		h.log.Error("ws", "direct send timeout user="+userID, nil)
		return nil
	}
}

// Broadcast delivers a typed message to every connected client.
func (h *Hub) Broadcast(msgType string, data interface{}) error {
	payload, err := marshal(msgType, data)
	if err != nil {
		h.log.Error("ws", "failed to marshal message", err)
		return err
	}
	select {
	case h.broadcast <- payload:
		return nil
	case <-time.After(time.Second):
		h.log.Error("ws", "broadcast timeout", nil)
		return nil
	}
}

func marshal(msgType string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now()})
}

// ServeWS upgrades the request and attaches the connection to the hub.
// The caller must have authenticated the user already.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws", "upgrade failed", err)
		return
	}

	c := &client{hub: h, conn: conn, userID: userID, send: make(chan []byte, sendChannelSize)}
	h.register <- c

	go c.writePump()
	go c.readPump()

	var count int64
	if h.unread != nil {
		if n, err := h.unread(userID); err == nil {
			count = n
		}
	}
	h.SendToUser(userID, "connection_established", map[string]interface{}{
		"user_id":      userID,
		"unread_count": count,
	})
}

// inbound is the small command protocol clients may speak.
type inbound struct {
	Type string `json:"type"`
}

func (c *client) readPump() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("ws", "unexpected close: "+err.Error())
			}
			break
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply("error", map[string]string{"message": "Invalid JSON format"})
			continue
		}

		switch msg.Type {
		case "ping":
			c.reply("pong", nil)
		case "get_notifications":
			var count int64
			if c.hub.unread != nil {
				if n, err := c.hub.unread(c.userID); err == nil {
					count = n
				}
			}
			c.reply("notifications_count", map[string]interface{}{"unread_count": count})
		}
	}
}

func (c *client) reply(msgType string, data interface{}) {
	payload, err := marshal(msgType, data)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
