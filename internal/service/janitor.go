package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper drops idle in-memory state and reports how many entries went.
type Sweeper interface {
	Sweep() int
}

// RunSweepers calls every sweeper once per interval until ctx is done.
func RunSweepers(ctx context.Context, interval time.Duration, logger zerolog.Logger, sweepers ...Sweeper) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := 0
			for _, s := range sweepers {
				evicted += s.Sweep()
			}
			if evicted > 0 {
				logger.Debug().Int("evicted", evicted).Msg("idle state swept")
			}
		}
	}
}
