package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/minigames/internal/api/handlers"
	"github.com/playmatatu/minigames/internal/config"
	"github.com/playmatatu/minigames/internal/game"
	"github.com/playmatatu/minigames/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, cfg *config.Config, gm *game.GameManager) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/config", handlers.GetConfig(cfg))
		v1.POST("/auth/guest", handlers.GuestLogin(db, cfg))

		lv := v1.Group("/levels")
		{
			lv.GET("", handlers.ListLevels(gm.Catalogue()))
			lv.GET("/:id", handlers.GetLevel(gm.Catalogue()))
			lv.GET("/:id/runs", handlers.GetLevelRuns(gm))
		}

		sessions := v1.Group("/sessions", handlers.AuthMiddleware(cfg))
		{
			sessions.POST("", handlers.CreateSession(gm))
			sessions.GET("/:id", handlers.GetSession(gm))
			sessions.DELETE("/:id", handlers.EndSession(gm))
			sessions.POST("/:id/gestures", handlers.ApplyGesture(gm))
			sessions.PUT("/:id/pieces/:piece", handlers.SetPiecePose(gm))
			sessions.POST("/:id/pieces/:piece/release", handlers.ReleasePiece(gm))
			sessions.POST("/:id/pieces/:piece/flip", handlers.FlipPiece(gm))
			sessions.POST("/:id/balls/:ball/select", handlers.SelectBall(gm))
			sessions.POST("/:id/answer", handlers.AnswerQuestion(gm))
			sessions.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleSessionWebSocket())
		}

		adm := v1.Group("/admin", handlers.AdminMiddleware(db))
		{
			adm.POST("/levels", handlers.RequireAdminRole("levels"), handlers.UpsertLevel(db, gm.Catalogue()))
			adm.DELETE("/levels/:id", handlers.RequireAdminRole("levels"), handlers.DisableLevel(db, gm.Catalogue()))
			adm.GET("/config", handlers.RequireAdminRole("config"), handlers.GetAdminRuntimeConfig(db))
			adm.PUT("/config/:key", handlers.RequireAdminRole("config"), handlers.UpdateAdminRuntimeConfig(db, cfg))
			adm.GET("/audit", handlers.GetAdminAuditLogs(db))
		}
	}
}
