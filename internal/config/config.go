package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config is shared by pointer. The session settings can be changed at runtime by Update, so
// other goroutines read them through the accessor methods.
type Config struct {
	mu sync.RWMutex

	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Sessions
	SessionTTLMinutes     int
	IdlePauseSeconds      int
	IdleWorkerPollSeconds int
	ComputerPickDelayMS   int

	// Levels
	LevelPackPath string

	// Security
	JWTSecret        string
	TokenExpiryHours int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/minigames?sslmode=disable"),
		MigrateOnStart: getEnv("MIGRATE_ON_START", "false") == "true",

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Sessions
		SessionTTLMinutes:     getEnvInt("SESSION_TTL_MINUTES", 60),
		IdlePauseSeconds:      getEnvInt("IDLE_PAUSE_SECONDS", 90),
		IdleWorkerPollSeconds: getEnvInt("IDLE_WORKER_POLL_SECONDS", 5),
		ComputerPickDelayMS:   getEnvInt("COMPUTER_PICK_DELAY_MS", 2000),

		// Levels
		LevelPackPath: getEnv("LEVEL_PACK_PATH", ""),

		// Security
		JWTSecret:        getEnv("JWT_SECRET", "change-me-in-production"),
		TokenExpiryHours: getEnvInt("TOKEN_EXPIRY_HOURS", 24),
	}
}

// Update runs fn with the write lock held.
func (c *Config) Update(fn func(c *Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// SessionTTL is how long an untouched session snapshot is kept.
func (c *Config) SessionTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// IdlePause is how long a session may sit without gestures before it is paused.
func (c *Config) IdlePause() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.IdlePauseSeconds) * time.Second
}

func (c *Config) IdleWorkerPoll() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.IdleWorkerPollSeconds) * time.Second
}

func (c *Config) ComputerPickDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.ComputerPickDelayMS) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
