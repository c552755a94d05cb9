package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/minigames/internal/game"
)

// PlayerIDKey is the gin context key the auth middleware stores the player id under.
const PlayerIDKey = "player_id"

// GameHub is the single hub for all sessions.
var GameHub *Hub

func init() {
	GameHub = NewHub()
	go runGameHub(GameHub)
}

// HandleWebSocket upgrades GET /sessions/:id/ws for the session's owner.
func HandleWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	playerID := c.GetString(PlayerIDKey)
	if playerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing player"})
		return
	}
	if game.Manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "game manager not ready"})
		return
	}

	if _, err := game.Manager.GetSessionFor(c.Request.Context(), sessionID, playerID); err != nil {
		switch {
		case errors.Is(err, game.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, game.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:      conn,
		playerID:  playerID,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}

	GameHub.register <- client

	go client.writePump()
	go client.readPump()
}

func runGameHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, exists := h.clients[client.key()]; exists {
				log.Printf("[WS] Player %s reconnecting to %s - closing old connection", client.playerID, client.sessionID)
				old.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"), time.Now().Add(time.Second))
				old.conn.Close()
				if old.stop != nil {
					old.stop()
				}
				close(old.send)
			}
			h.clients[client.key()] = client
			if _, exists := h.rooms[client.sessionID]; !exists {
				h.rooms[client.sessionID] = make(map[string]*Client)
			}
			h.rooms[client.sessionID][client.playerID] = client
			h.mu.Unlock()

			log.Printf("[WS] Player %s connected to session %s", client.playerID, client.sessionID)
			client.onConnect(h)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.key()]; ok && cur == client {
				delete(h.clients, client.key())
				if room, exists := h.rooms[client.sessionID]; exists {
					delete(room, client.playerID)
					if len(room) == 0 {
						delete(h.rooms, client.sessionID)
					}
				}
				if client.stop != nil {
					client.stop()
				}
				close(client.send)
				log.Printf("[WS] Player %s disconnected from session %s", client.playerID, client.sessionID)
			}
			h.mu.Unlock()
		}
	}
}

// onConnect sends the current state and, for pairs games, starts the computer opponent.
func (c *Client) onConnect(h *Hub) {
	v, err := game.Manager.View(context.Background(), c.sessionID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendJSON(map[string]interface{}{"type": "session_state", "session": v})

	if v.Kind == game.KindPairs && !v.Finished {
		c.startComputer(h)
	}
}

// startComputer runs the computer opponent for this client, replacing any earlier run.
func (c *Client) startComputer(h *Hub) {
	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	if cur, ok := h.clients[c.key()]; !ok || cur != c {
		h.mu.Unlock()
		cancel()
		return
	}
	if c.stop != nil {
		c.stop()
	}
	c.stop = cancel
	h.mu.Unlock()

	go game.Manager.RunComputer(ctx, c.sessionID, 0, func(out *game.Outcome) {
		h.BroadcastToSession(c.sessionID, map[string]interface{}{"type": "computer_pick", "outcome": out})
		if out.Completed {
			h.broadcastFinished(c.sessionID)
		}
	})
}

func (c *Client) readPump() {
	defer func() {
		GameHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxReadSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for player %s: %v", c.playerID, err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage maps a client message onto a session gesture.
func (c *Client) handleMessage(msg Message) {
	ctx := context.Background()

	if msg.Type == "get_state" {
		v, err := game.Manager.View(ctx, c.sessionID)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendJSON(map[string]interface{}{"type": "session_state", "session": v})
		return
	}

	var g game.Gesture
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &g); err != nil {
			c.sendError("Invalid " + msg.Type + " data")
			return
		}
	}
	g.Type = game.GestureType(msg.Type)
	if g.Type == game.GestureComputerPick {
		c.sendError("Unknown message type")
		return
	}

	out, err := game.Manager.Apply(ctx, c.sessionID, g)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	GameHub.BroadcastToSession(c.sessionID, map[string]interface{}{"type": "gesture_result", "player": c.playerID, "outcome": out})
	if out.Completed {
		GameHub.broadcastFinished(c.sessionID)
	}
	// a restarted pairs game needs its opponent back
	if g.Type == game.GestureStart || g.Type == game.GestureReset {
		if s, err := game.Manager.GetSession(ctx, c.sessionID); err == nil && s.Kind == game.KindPairs {
			c.startComputer(GameHub)
		}
	}
}

func (h *Hub) broadcastFinished(sessionID string) {
	v, err := game.Manager.View(context.Background(), sessionID)
	if err != nil {
		return
	}
	h.BroadcastToSession(sessionID, map[string]interface{}{"type": "session_finished", "session": v})
}
