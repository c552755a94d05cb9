package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 30 * time.Second
	maxReadSize = 16384
	sendBuffer  = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS layer and the session token
	},
}

// Client is one WebSocket connection watching a session.
type Client struct {
	conn      *websocket.Conn
	playerID  string
	sessionID string
	send      chan []byte
	stop      context.CancelFunc // stops the computer opponent, if any
}

func (c *Client) key() string { return c.sessionID + ":" + c.playerID }

// Hub maintains the set of active clients and their session rooms.
type Hub struct {
	clients    map[string]*Client            // session:player -> Client
	rooms      map[string]map[string]*Client // sessionID -> playerID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// BroadcastToSession sends a message to every connection watching a session.
func (h *Hub) BroadcastToSession(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[sessionID] {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] send buffer full for player %s in session %s, dropping message", client.playerID, sessionID)
		}
	}
}

// RoomSize returns the number of connections watching a session.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Message is the envelope of every client message.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for player %s: %v", c.playerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for player %s: %v", c.playerID, err)
				return
			}
		}
	}
}

// sendJSON queues a message for this connection only. Connections that were replaced or
// unregistered are skipped, their send channel is closed.
func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	GameHub.mu.RLock()
	defer GameHub.mu.RUnlock()
	if GameHub.clients[c.key()] != c {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] send buffer full for player %s, dropping message", c.playerID)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
