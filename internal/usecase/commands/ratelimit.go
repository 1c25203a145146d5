package commands

import (
	"context"
	"log/slog"
	"time"

	"renovecare/internal/domain/ratelimit"
	"renovecare/internal/infra/db"
	"renovecare/internal/pkg/clock"
	"renovecare/internal/pkg/errs"
)

var ErrRateLimited = errs.New("rate limit exceeded")

// RateLimiter enforces fixed-window attempt ceilings across the user, IP and
// device dimensions of a call. Any single exhausted dimension blocks the
// call; dimensions absent from the identity are skipped.
type RateLimiter struct {
	db     db.DBTX
	repo   RateLimitRepository
	window time.Duration
	clock  clock.Clock
	logger *slog.Logger
}

func NewRateLimiter(dbtx db.DBTX, repo RateLimitRepository, window time.Duration, clk clock.Clock, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{db: dbtx, repo: repo, window: window, clock: clk, logger: logger}
}

// Allow checks every present dimension against its threshold and, when all
// pass, records one attempt on each. Recording failures are logged and the
// call proceeds; availability is preferred over strict enforcement when the
// counter store misbehaves.
func (l *RateLimiter) Allow(ctx context.Context, identity ratelimit.Identity, endpoint string, maxAttempts int) error {
	dims := identity.Dimensions()
	if len(dims) == 0 {
		return nil
	}

	thresholds := ratelimit.NewThresholds(maxAttempts)
	windowStart := ratelimit.WindowStart(l.clock.Now(), l.window)

	for _, d := range dims {
		attempts, err := l.repo.PeekAttempts(ctx, l.db, d.Dimension, d.Value, endpoint, windowStart)
		if err != nil {
			l.logger.Warn("rate limit check failed, allowing call",
				slog.String("dimension", string(d.Dimension)),
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()))
			continue
		}
		if attempts >= int64(thresholds.For(d.Dimension)) {
			return errs.Mark(
				errs.New("limit reached on dimension "+string(d.Dimension)),
				ErrRateLimited)
		}
	}

	for _, d := range dims {
		if err := l.repo.RecordAttempt(ctx, l.db, d.Dimension, d.Value, endpoint, windowStart); err != nil {
			l.logger.Warn("rate limit record failed, allowing call",
				slog.String("dimension", string(d.Dimension)),
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()))
		}
	}
	return nil
}
