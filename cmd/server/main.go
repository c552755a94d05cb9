package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/playmatatu/minigames/internal/admin"
	"github.com/playmatatu/minigames/internal/api"
	"github.com/playmatatu/minigames/internal/config"
	"github.com/playmatatu/minigames/internal/database"
	"github.com/playmatatu/minigames/internal/game"
	"github.com/playmatatu/minigames/internal/levels"
	"github.com/playmatatu/minigames/internal/middleware"
	"github.com/playmatatu/minigames/internal/migrations"
	"github.com/playmatatu/minigames/internal/redis"
	"github.com/playmatatu/minigames/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		log.Println("Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, migrations.DefaultDir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Operator overrides stored in runtime_config win over env values.
	if err := admin.ApplyRuntimeConfig(db, cfg); err != nil {
		log.Printf("[CONFIG] Runtime config not applied: %v", err)
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	catalogue, err := levels.Load(ctx, cfg.LevelPackPath, levels.NewStore(db))
	if err != nil {
		log.Fatalf("Failed to load levels: %v", err)
	}

	game.InitializeManager(db, rdb, cfg, catalogue)

	ws.SetRedisClient(rdb)
	ws.StartEventSubscriber(ctx)

	game.StartIdleWorker(ctx, game.Manager, rdb, cfg)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	metrics := middleware.NewPrometheusMiddleware("minigames", prometheus.DefaultRegisterer)
	router.Use(metrics.Handler())
	metrics.RegisterMetricsEndpoint(router)

	api.SetupRoutes(router, db, cfg, game.Manager)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting minigames server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
