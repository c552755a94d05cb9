package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playmatatu/minigames/internal/game"
	rkeys "github.com/playmatatu/minigames/internal/redis"
	"github.com/redis/go-redis/v9"
)

var rdbClient *redis.Client

func SetRedisClient(r *redis.Client) {
	rdbClient = r
}

// StartEventSubscriber relays session events published by the idle worker to the
// connections watching each session.
func StartEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, rkeys.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", rkeys.EventsChannel)
		for msg := range ch {
			relayEvent(GameHub, []byte(msg.Payload))
		}
	}()
}

func relayEvent(h *Hub, payload []byte) {
	var ev game.IdleEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("[WS] invalid event payload: %v", err)
		return
	}

	switch ev.Type {
	case game.EventSessionPaused:
		if h.RoomSize(ev.SessionID) == 0 {
			log.Printf("[WS] no room for session %s; pause will not be broadcast", ev.SessionID)
			return
		}
		h.BroadcastToSession(ev.SessionID, map[string]interface{}{
			"type":         "session_paused",
			"reason":       ev.Reason,
			"idle_seconds": ev.IdleSecs,
		})
	default:
		log.Printf("[WS] unknown event type: %s", ev.Type)
	}
}
