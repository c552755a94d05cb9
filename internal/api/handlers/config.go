package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigames/internal/config"
	"github.com/playmatatu/minigames/internal/pairs"
	"github.com/playmatatu/minigames/internal/quiz"
	"github.com/playmatatu/minigames/internal/tangram"
)

// GetConfig returns the settings the frontend needs to drive a session
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"idle_pause_seconds":     int(cfg.IdlePause() / time.Second),
			"computer_pick_delay_ms": cfg.ComputerPickDelay().Milliseconds(),
			"snap_distance":          tangram.DistanceThreshold,
			"snap_rotation":          tangram.RotationThreshold,
			"pairs_winning_score":    pairs.DefaultWinningScore,
			"pairs_ball_count":       pairs.DefaultBallCount,
			"quiz_question_count":    quiz.DefaultQuestionCount,
		})
	}
}
