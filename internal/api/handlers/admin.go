package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/minigames/internal/admin"
	"github.com/playmatatu/minigames/internal/levels"
	"github.com/playmatatu/minigames/internal/tangram"
)

const (
	adminPhoneKey = "admin_phone"
	adminRolesKey = "admin_roles"
)

// AdminMiddleware authenticates operators with the X-Admin-Phone and X-Admin-Token headers.
func AdminMiddleware(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin requires a database"})
			return
		}
		phone := strings.TrimSpace(c.GetHeader("X-Admin-Phone"))
		token := c.GetHeader("X-Admin-Token")
		if phone == "" || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin credentials required"})
			return
		}

		acct, err := admin.ValidateAdminPhoneAndToken(db, phone, token, c.ClientIP())
		if err != nil {
			admin.LogAdminAction(db, phone, c.ClientIP(), c.FullPath(), "authenticate", nil, false)
			if errors.Is(err, admin.ErrIPNotAllowed) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin credentials"})
			return
		}

		c.Set(adminPhoneKey, acct.Phone)
		c.Set(adminRolesKey, []string(acct.Roles))
		c.Next()
	}
}

// RequireAdminRole rejects admins whose account lacks role. The "*" role grants everything.
func RequireAdminRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, _ := c.Get(adminRolesKey)
		list, _ := roles.([]string)
		for _, r := range list {
			if r == role || r == "*" {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing role " + role})
	}
}

// UpsertLevel validates a level definition and makes it playable
func UpsertLevel(db *sqlx.DB, cat *levels.Catalogue) gin.HandlerFunc {
	return func(c *gin.Context) {
		phone := c.GetString(adminPhoneKey)

		var l tangram.Level
		if err := c.ShouldBindJSON(&l); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid level body"})
			return
		}

		if err := cat.Save(c.Request.Context(), l); err != nil {
			log.Printf("[ADMIN] Failed to save level %d: %v", l.ID, err)
			admin.LogAdminAction(db, phone, c.ClientIP(), c.FullPath(), "upsert_level", map[string]interface{}{"level_id": l.ID, "error": err.Error()}, false)
			respondError(c, err)
			return
		}

		admin.LogAdminAction(db, phone, c.ClientIP(), c.FullPath(), "upsert_level", map[string]interface{}{"level_id": l.ID, "name": l.Name}, true)
		c.JSON(http.StatusOK, gin.H{"level": l})
	}
}

// DisableLevel removes a level from the catalogue
func DisableLevel(db *sqlx.DB, cat *levels.Catalogue) gin.HandlerFunc {
	return func(c *gin.Context) {
		phone := c.GetString(adminPhoneKey)
		id, ok := paramInt(c, "id")
		if !ok {
			return
		}

		if err := cat.Remove(c.Request.Context(), id); err != nil {
			admin.LogAdminAction(db, phone, c.ClientIP(), c.FullPath(), "disable_level", map[string]interface{}{"level_id": id}, false)
			respondError(c, err)
			return
		}

		admin.LogAdminAction(db, phone, c.ClientIP(), c.FullPath(), "disable_level", map[string]interface{}{"level_id": id}, true)
		c.JSON(http.StatusOK, gin.H{"disabled": id})
	}
}
