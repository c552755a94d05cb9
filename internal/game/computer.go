package game

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/playmatatu/minigames/internal/pairs"
)

// RunComputer plays the right side of a pairs session every delay until ctx is cancelled or
// the game ends. Each resolved pick is passed to onPick.
func (gm *GameManager) RunComputer(ctx context.Context, id string, delay time.Duration, onPick func(*Outcome)) {
	if delay <= 0 {
		delay = gm.config.ComputerPickDelay()
	}
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out, err := gm.Apply(ctx, id, Gesture{Type: GestureComputerPick})
			switch {
			case err == nil:
				if onPick != nil {
					onPick(out)
				}
				if out.Completed {
					return
				}
			case errors.Is(err, pairs.ErrPaused), errors.Is(err, pairs.ErrNoPair):
				// wait for the next tick
			case errors.Is(err, pairs.ErrGameOver):
				return
			default:
				log.Printf("[SESSION] computer stopped for %s: %v", id, err)
				return
			}
		}
	}
}
