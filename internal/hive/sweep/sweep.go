// Package sweep expires lapsed claims in the background.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper removes expired entries and reports how many were removed.
type Sweeper interface {
	SweepExpired() int
}

// Start periodically sweeps expired claims. It blocks until the context is
// cancelled.
func Start(ctx context.Context, s Sweeper, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepExpired(); n > 0 {
				log.Debug().Int("expired", n).Msg("swept expired claims")
			}
		}
	}
}
