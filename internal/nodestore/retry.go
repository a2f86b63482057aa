package nodestore

import (
	"context"
	"log/slog"
	"time"
)

// retry runs fn once. On failure it waits pause and returns that failure.
// maxRetries is only reported: a failed call is never repeated, so callers
// always see the first error from the store, one pause later.
func retry(ctx context.Context, logger *slog.Logger, maxRetries int, pause time.Duration, op, id string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	logger.DebugContext(ctx, "node store call failed",
		"op", op, "id", id, "max_retries", maxRetries, "pause", pause, "err", err)
	wait(ctx, pause)
	return err
}

func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
