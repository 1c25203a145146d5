package repository

import (
	"context"
	"time"

	"renovecare/internal/domain/ratelimit"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/pkg/pgconv"
)

type RateLimitRepository struct{}

func NewRateLimitRepository() *RateLimitRepository {
	return &RateLimitRepository{}
}

const selectAttemptsSQL = `
SELECT attempts FROM rate_limits
WHERE identity_dimension = $1 AND identity_value = $2
  AND endpoint = $3 AND window_start = $4`

// PeekAttempts reads the counter for one (dimension, value, endpoint,
// window) bucket. A missing row means zero attempts.
func (r *RateLimitRepository) PeekAttempts(ctx context.Context, dbtx db.DBTX, dimension ratelimit.Dimension, value, endpoint string, windowStart time.Time) (int64, error) {
	var attempts int64
	err := dbtx.QueryRow(ctx, selectAttemptsSQL, string(dimension), value, endpoint, windowStart).Scan(&attempts)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return 0, nil
		}
		return 0, infra.WrapRepoErr("failed to read rate limit counter", err)
	}
	return attempts, nil
}

const upsertAttemptSQL = `
INSERT INTO rate_limits (identity_dimension, identity_value, endpoint, window_start, attempts)
VALUES ($1, $2, $3, $4, 1)
ON CONFLICT (identity_dimension, identity_value, endpoint, window_start)
DO UPDATE SET attempts = rate_limits.attempts + 1`

// RecordAttempt is an atomic increment-or-insert; concurrent callers in the
// same bucket never lose counts to a read-modify-write race.
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, dbtx db.DBTX, dimension ratelimit.Dimension, value, endpoint string, windowStart time.Time) error {
	_, err := dbtx.Exec(ctx, upsertAttemptSQL, string(dimension), value, endpoint, windowStart)
	if err != nil {
		return infra.WrapRepoErr("failed to record rate limit attempt", err)
	}
	return nil
}
