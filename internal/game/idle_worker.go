package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/playmatatu/minigames/internal/config"
	rkeys "github.com/playmatatu/minigames/internal/redis"
	"github.com/redis/go-redis/v9"
)

// IdleEvent is published on the session events channel when the idle worker acts.
type IdleEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	IdleSecs  int64  `json:"idle_seconds"`
}

const EventSessionPaused = "session_paused"

// StartIdleWorker polls the idle sorted set and pauses sessions nobody has touched for
// IdlePauseSeconds.
func StartIdleWorker(ctx context.Context, gm *GameManager, rdb *redis.Client, cfg *config.Config) {
	if gm == nil || rdb == nil || cfg == nil {
		log.Println("[IDLE] Redis or config missing; idle worker not started")
		return
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(cfg.IdleWorkerPoll())
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				gm.processIdle(ctx, rdb, time.Now())
			}
		}
	}()
}

// processIdle handles every session whose idle deadline is at or before now and returns how
// many were paused.
func (gm *GameManager) processIdle(ctx context.Context, rdb *redis.Client, now time.Time) int {
	members, err := rdb.ZRangeByScore(ctx, rkeys.IdleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle sessions: %v", err)
		return 0
	}

	paused := 0
	for _, id := range members {
		// another worker may have claimed it
		if removed, _ := rdb.ZRem(ctx, rkeys.IdleSetKey, id).Result(); removed == 0 {
			continue
		}
		last, _ := rdb.Get(ctx, rkeys.LastActiveKey(id)).Result()
		lastTs, _ := strconv.ParseInt(last, 10, 64)
		idle := now.Unix() - lastTs
		if idle < int64(gm.config.IdlePause()/time.Second) {
			continue
		}

		ok, err := gm.PauseIdle(ctx, id)
		if err != nil {
			log.Printf("[IDLE] skipping session %s: %v", id, err)
			continue
		}
		if !ok {
			continue
		}
		paused++

		b, _ := json.Marshal(IdleEvent{Type: EventSessionPaused, SessionID: id, Reason: "idle", IdleSecs: idle})
		if n, err := rdb.Publish(ctx, rkeys.EventsChannel, b).Result(); err != nil {
			log.Printf("[IDLE] publish pause failed: session=%s err=%v", id, err)
		} else {
			log.Printf("[IDLE] published pause: session=%s subscribers=%d idle=%ds", id, n, idle)
		}
	}
	return paused
}
