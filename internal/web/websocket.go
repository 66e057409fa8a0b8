// internal/web/websocket.go
package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"infradash/internal/database"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type connectionRecorder interface {
	RecordWebSocketConnection(delta int)
}

// Hub fans store changes out to connected websocket clients.
type Hub struct {
	mu       sync.Mutex
	clients  map[*WSClient]bool
	recorder connectionRecorder
	closed   bool
}

type WSClient struct {
	conn *websocket.Conn
	send chan WSMessage
	hub  *Hub
}

// NewHub returns an empty hub. recorder may be nil.
func NewHub(recorder connectionRecorder) *Hub {
	return &Hub{clients: make(map[*WSClient]bool), recorder: recorder}
}

// Publish is a database change hook.
func (h *Hub) Publish(ch database.Change) {
	h.broadcast(WSMessage{Type: "change", Data: ch})
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
	h.closed = true
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade websocket")
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WSMessage, 256),
		hub:  s.hub,
	}
	client.send <- WSMessage{Type: "hello", Data: gin.H{"time": time.Now()}}
	if !s.hub.register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(client *WSClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = true
	if h.recorder != nil {
		h.recorder.RecordWebSocketConnection(1)
	}
	return true
}

func (h *Hub) unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *WSClient) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	close(client.send)
	if h.recorder != nil {
		h.recorder.RecordWebSocketConnection(-1)
	}
}

// broadcast drops clients whose send buffer is full.
func (h *Hub) broadcast(message WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.removeLocked(client)
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
