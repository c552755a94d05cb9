package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigames/internal/game"
	"github.com/playmatatu/minigames/internal/levels"
	"github.com/playmatatu/minigames/internal/pairs"
	"github.com/playmatatu/minigames/internal/quiz"
	"github.com/playmatatu/minigames/internal/tangram"
	"github.com/playmatatu/minigames/internal/ws"
)

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrSessionNotFound),
		errors.Is(err, levels.ErrLevelNotFound),
		errors.Is(err, tangram.ErrUnknownPiece),
		errors.Is(err, pairs.ErrUnknownBall),
		errors.Is(err, quiz.ErrUnknownChoice):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, tangram.ErrNotPlaying),
		errors.Is(err, tangram.ErrPieceLocked),
		errors.Is(err, pairs.ErrGameOver),
		errors.Is(err, pairs.ErrPaused),
		errors.Is(err, pairs.ErrBallTaken),
		errors.Is(err, pairs.ErrNoPair),
		errors.Is(err, quiz.ErrGameOver),
		errors.Is(err, quiz.ErrPaused):
		return http.StatusConflict
	case errors.Is(err, game.ErrWrongGame),
		errors.Is(err, game.ErrUnknownGesture),
		errors.Is(err, game.ErrUnknownGame),
		errors.Is(err, tangram.ErrInvalidLevel),
		errors.Is(err, pairs.ErrUnknownSide),
		errors.Is(err, quiz.ErrUnknownOperation),
		errors.Is(err, quiz.ErrUnknownNumberType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

// paramInt reads an integer path parameter, answering 400 when it is malformed.
func paramInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func queryLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func playerID(c *gin.Context) string {
	return c.GetString(ws.PlayerIDKey)
}
