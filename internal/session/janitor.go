package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultJanitorInterval is how often idle sessions are swept.
const DefaultJanitorInterval = 5 * time.Minute

// SweepCallback runs after each sweep, for cleanup that lives outside the store.
type SweepCallback func(ctx context.Context, now time.Time)

// StartJanitor runs a background goroutine that periodically removes idle
// sessions. It stops when ctx is done.
func StartJanitor(ctx context.Context, store Store, interval time.Duration, onSweep SweepCallback) {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session janitor started", "interval", interval)

		for {
			select {
			case now := <-ticker.C:
				sweep(ctx, store, now, onSweep)
			case <-ctx.Done():
				slog.Info("Session janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, store Store, now time.Time, onSweep SweepCallback) {
	removed := store.Sweep(now)
	if removed > 0 {
		slog.Info("Session janitor expired sessions", "count", removed, "live", store.Len())
	}
	if onSweep != nil {
		onSweep(ctx, now)
	}
}
