package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key names shared by the session manager, idle worker and WebSocket layer.
const (
	IdleSetKey     = "session_idle"
	EventsChannel  = "session_events"
	lastActivePref = "last_active:"
	snapshotPref   = "session:"
)

// SnapshotKey is where a session's JSON snapshot lives.
func SnapshotKey(sessionID string) string { return snapshotPref + sessionID + ":state" }

// LastActiveKey holds the unix time of a session's latest gesture.
func LastActiveKey(sessionID string) string { return lastActivePref + sessionID }

// Connect establishes a connection to Redis
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
