package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// Sweeper expires stale items as of now and reports how many changed.
type Sweeper interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// StartExpirySweep runs sweeper every interval until done is closed.
func StartExpirySweep(sweeper Sweeper, interval, timeout time.Duration, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				RunOnce(sweeper, timeout)
			case <-done:
				return
			}
		}
	}()
	slog.Info("expiry sweep scheduled", "interval", interval)
}

// RunOnce performs one bounded sweep. Failures are logged and reported, never fatal.
func RunOnce(sweeper Sweeper, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	expired, err := sweeper.ExpireStale(ctx, time.Now())
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
		sentry.CaptureException(err)
		return
	}
	if expired > 0 {
		slog.Info("expiry sweep completed", "expired", expired)
	}
}
