package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/minigames/internal/config"
	"github.com/playmatatu/minigames/internal/ws"
)

var errInvalidToken = errors.New("invalid token")

type playerClaims struct {
	PlayerID string `json:"player_id"`
	jwt.RegisteredClaims
}

// IssuePlayerToken signs a token for playerID that expires after cfg.TokenExpiryHours.
func IssuePlayerToken(cfg *config.Config, playerID string) (string, time.Time, error) {
	exp := time.Now().Add(time.Duration(cfg.TokenExpiryHours) * time.Hour)
	claims := playerClaims{
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	return signed, exp, err
}

// ParsePlayerToken validates a signed token and returns its player id.
func ParsePlayerToken(cfg *config.Config, token string) (string, error) {
	claims := &playerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid || claims.PlayerID == "" {
		return "", errInvalidToken
	}
	return claims.PlayerID, nil
}

// GuestLogin creates a guest player and returns a token for it
func GuestLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DisplayName string `json:"display_name"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.BindJSON(&req); err != nil {
				return
			}
		}
		name := strings.TrimSpace(req.DisplayName)
		if name == "" {
			name = "Guest"
		}

		id := uuid.NewString()
		if db != nil {
			_, err := db.ExecContext(c.Request.Context(), `
				INSERT INTO players (id, display_name) VALUES ($1, $2)
				ON CONFLICT (id) DO UPDATE SET last_seen_at = NOW()
			`, id, name)
			if err != nil {
				log.Printf("[DB] Failed to create guest player: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
		}

		token, exp, err := IssuePlayerToken(cfg, id)
		if err != nil {
			log.Printf("Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_at": exp.Unix(),
			"player":     gin.H{"id": id, "display_name": name},
		})
	}
}

// AuthMiddleware validates the bearer JWT and sets player_id in context. WebSocket clients
// cannot set headers, so a token query parameter is accepted too.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		id, err := ParsePlayerToken(cfg, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ws.PlayerIDKey, id)
		c.Next()
	}
}
