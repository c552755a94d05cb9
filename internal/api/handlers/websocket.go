package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigames/internal/ws"
)

// HandleSessionWebSocket handles real-time gestures for a session
func HandleSessionWebSocket() gin.HandlerFunc {
	return ws.HandleWebSocket
}
