package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigames/internal/game"
	"github.com/playmatatu/minigames/internal/pairs"
	"github.com/playmatatu/minigames/internal/quiz"
	"github.com/playmatatu/minigames/internal/tangram"
	"github.com/playmatatu/minigames/internal/ws"
)

// CreateSession starts a tangram, pairs or quiz session for the authenticated player
func CreateSession(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Game              string `json:"game" binding:"required"`
			LevelID           int    `json:"level_id"`
			UnlockedPlacement bool   `json:"unlocked_placement"`
			WinningScore      int    `json:"winning_score"`
			Operation         string `json:"operation"`
			NumberType        string `json:"number_type"`
			Questions         int    `json:"questions"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game is required"})
			return
		}

		var (
			v   game.View
			err error
		)
		switch game.Kind(req.Game) {
		case game.KindTangram:
			var opts []tangram.Option
			if req.UnlockedPlacement {
				opts = append(opts, tangram.WithUnlockedPlacement())
			}
			v, err = gm.CreateTangram(c.Request.Context(), playerID(c), req.LevelID, opts...)
		case game.KindPairs:
			var opts []pairs.Option
			if req.WinningScore > 0 {
				opts = append(opts, pairs.WithWinningScore(req.WinningScore))
			}
			v, err = gm.CreatePairs(c.Request.Context(), playerID(c), opts...)
		case game.KindQuiz:
			v, err = createQuiz(c, gm, req.Operation, req.NumberType, req.Questions)
		default:
			err = fmt.Errorf("%w: %q", game.ErrUnknownGame, req.Game)
		}
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("X-Session-ID", v.ID)
		c.JSON(http.StatusCreated, gin.H{"session": v})
	}
}

func createQuiz(c *gin.Context, gm *game.GameManager, operation, numberType string, questions int) (game.View, error) {
	op, err := quiz.ParseOperation(operation)
	if err != nil {
		return game.View{}, err
	}
	nt, err := quiz.ParseNumberType(numberType)
	if err != nil {
		return game.View{}, err
	}
	return gm.CreateQuiz(c.Request.Context(), playerID(c), quiz.WithOperation(op), quiz.WithNumberType(nt), quiz.WithQuestionCount(questions))
}

// GetSession returns the session view for its owner
func GetSession(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := gm.GetSessionFor(c.Request.Context(), id, playerID(c)); err != nil {
			respondError(c, err)
			return
		}
		v, err := gm.View(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": v})
	}
}

// EndSession drops the session and its snapshot
func EndSession(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := gm.GetSessionFor(c.Request.Context(), id, playerID(c)); err != nil {
			respondError(c, err)
			return
		}
		if err := gm.EndSession(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ended": true})
	}
}

// ApplyGesture applies a raw gesture body, the same shape WebSocket clients send.
func ApplyGesture(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var g game.Gesture
		if err := c.ShouldBindJSON(&g); err != nil || g.Type == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gesture type is required"})
			return
		}
		applyGesture(c, gm, g)
	}
}

// ReleasePiece drops a piece where it is and reports whether it snapped
func ReleasePiece(gm *game.GameManager) gin.HandlerFunc {
	return pieceGesture(gm, game.GestureRelease)
}

// FlipPiece mirrors a piece and re-evaluates it in place
func FlipPiece(gm *game.GameManager) gin.HandlerFunc {
	return pieceGesture(gm, game.GestureFlip)
}

func pieceGesture(gm *game.GameManager, t game.GestureType) gin.HandlerFunc {
	return func(c *gin.Context) {
		piece, ok := paramInt(c, "piece")
		if !ok {
			return
		}
		applyGesture(c, gm, game.Gesture{Type: t, PieceID: piece})
	}
}

// SetPiecePose moves and rotates a piece. With release set the piece is dropped at the new
// pose and evaluated.
func SetPiecePose(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		piece, ok := paramInt(c, "piece")
		if !ok {
			return
		}
		var req struct {
			X        *float64 `json:"x" binding:"required"`
			Y        *float64 `json:"y" binding:"required"`
			Rotation float64  `json:"rotation"`
			Release  bool     `json:"release"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "x and y are required"})
			return
		}

		if req.Release {
			applyGesture(c, gm, game.Gesture{Type: game.GesturePlace, PieceID: piece, X: *req.X, Y: *req.Y, Rotation: req.Rotation})
			return
		}
		id := c.Param("id")
		if _, err := gm.GetSessionFor(c.Request.Context(), id, playerID(c)); err != nil {
			respondError(c, err)
			return
		}
		if _, err := gm.Apply(c.Request.Context(), id, game.Gesture{Type: game.GestureMove, PieceID: piece, X: *req.X, Y: *req.Y}); err != nil {
			respondError(c, err)
			return
		}
		out, err := gm.Apply(c.Request.Context(), id, game.Gesture{Type: game.GestureRotate, PieceID: piece, Rotation: req.Rotation})
		if err != nil {
			respondError(c, err)
			return
		}
		broadcastOutcome(id, playerID(c), out)
		c.JSON(http.StatusOK, gin.H{"outcome": out})
	}
}

// SelectBall selects or deselects a ball for the human side of a pairs game
func SelectBall(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ball, ok := paramInt(c, "ball")
		if !ok {
			return
		}
		applyGesture(c, gm, game.Gesture{Type: game.GestureSelectBall, BallID: ball})
	}
}

// AnswerQuestion kicks the ball at one of the goals of the current quiz question
func AnswerQuestion(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Choice *int `json:"choice" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "choice is required"})
			return
		}
		applyGesture(c, gm, game.Gesture{Type: game.GestureAnswer, Choice: *req.Choice})
	}
}

func applyGesture(c *gin.Context, gm *game.GameManager, g game.Gesture) {
	id := c.Param("id")
	if _, err := gm.GetSessionFor(c.Request.Context(), id, playerID(c)); err != nil {
		respondError(c, err)
		return
	}
	out, err := gm.Apply(c.Request.Context(), id, g)
	if err != nil {
		respondError(c, err)
		return
	}
	broadcastOutcome(id, playerID(c), out)
	c.JSON(http.StatusOK, gin.H{"outcome": out})
}

// broadcastOutcome keeps WebSocket watchers of the session in step with HTTP gestures.
func broadcastOutcome(sessionID, player string, out *game.Outcome) {
	if ws.GameHub.RoomSize(sessionID) == 0 {
		return
	}
	ws.GameHub.BroadcastToSession(sessionID, map[string]interface{}{"type": "gesture_result", "player": player, "outcome": out})
}
