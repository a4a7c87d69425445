package store

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes expired entries from a durable backend.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// StartSweeper runs a background goroutine that periodically sweeps expired
// rows until ctx is done. The returned channel is closed once the goroutine
// has exited.
func StartSweeper(ctx context.Context, s Sweeper, interval time.Duration, logger *slog.Logger) <-chan struct{} {
	if logger == nil {
		logger = slog.Default()
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		logger.Info("session sweeper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				deleted, err := s.Sweep(ctx)
				if err != nil {
					logger.Warn("session sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					logger.Info("session sweep removed expired entries", "count", deleted)
				}
			case <-ctx.Done():
				logger.Info("session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}
