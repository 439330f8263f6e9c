package service

import (
	"context"
	"log/slog"
	"time"

	"tenant-auth-core/internal/model"
)

// ExpiredTokenCleaner deletes action tokens that expired before cutoff.
type ExpiredTokenCleaner interface {
	CleanExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartCleanupTicker purges action tokens older than their expiry plus
// model.ActionTokenRetention every interval until ctx is cancelled. It runs
// once immediately to clear leftovers from a previous run.
func StartCleanupTicker(ctx context.Context, cleaner ExpiredTokenCleaner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cleanExpired(ctx, cleaner, time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cleanExpired(ctx, cleaner, now)
		}
	}
}

func cleanExpired(ctx context.Context, cleaner ExpiredTokenCleaner, now time.Time) {
	removed, err := cleaner.CleanExpired(ctx, now.Add(-model.ActionTokenRetention))
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("action token cleanup failed", "error", err)
		}
		return
	}
	if removed > 0 {
		slog.Info("expired action tokens removed", "count", removed)
	}
}
