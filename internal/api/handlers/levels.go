package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigames/internal/game"
	"github.com/playmatatu/minigames/internal/levels"
)

// ListLevels returns every playable level
func ListLevels(cat *levels.Catalogue) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"levels": cat.List()})
	}
}

// GetLevel returns one level
func GetLevel(cat *levels.Catalogue) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramInt(c, "id")
		if !ok {
			return
		}
		l, err := cat.Get(id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"level": l})
	}
}

// GetLevelRuns returns the fastest recorded completions of a level
func GetLevelRuns(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramInt(c, "id")
		if !ok {
			return
		}
		if _, err := gm.Catalogue().Get(id); err != nil {
			respondError(c, err)
			return
		}
		runs, err := gm.BestRuns(c.Request.Context(), id, queryLimit(c, 10, 100))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}
