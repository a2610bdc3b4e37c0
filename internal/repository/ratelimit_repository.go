package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/signup-activation/internal/model"
)

// RateLimitRepo keeps fixed-window counters in the rate_limits table.  It is
// the fallback backend when Redis is not configured.
type RateLimitRepo struct{ DB *sql.DB }

func NewRateLimitRepo(db *sql.DB) *RateLimitRepo { return &RateLimitRepo{DB: db} }

// hitSQL is the whole admission decision in one upsert.  Assignments run
// left to right, so request_count is computed against the old window_start.
// A denied hit leaves the row unchanged, which MySQL reports as zero rows
// affected (1 = inserted, 2 = updated).
const hitSQL = `INSERT INTO rate_limits (source_address, endpoint, request_count, window_start)
VALUES (?, ?, 1, ?)
ON DUPLICATE KEY UPDATE
  request_count = IF(window_start <= ?, 1, IF(request_count < ?, request_count + 1, request_count)),
  window_start  = IF(window_start <= ?, ?, window_start)`

// Hit counts one request for the key and reports whether it was admitted.
// The returned counter is read back after the upsert and is informational;
// the decision itself comes from the upsert alone.
func (r *RateLimitRepo) Hit(ctx context.Context, source, endpoint string, policy model.RateLimitPolicy, now time.Time) (model.RateLimitCounter, bool, error) {
	policy = policy.Normalize()
	now = now.UTC()
	cutoff := now.Add(-policy.Window)

	res, err := r.DB.ExecContext(ctx, hitSQL,
		source, endpoint, now,
		cutoff, policy.Ceiling,
		cutoff, now)
	if err != nil {
		return model.RateLimitCounter{}, false, fmt.Errorf("rate limit upsert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.RateLimitCounter{}, false, fmt.Errorf("rate limit upsert: %w", err)
	}
	allowed := n > 0

	counter := model.RateLimitCounter{SourceAddress: source, Endpoint: endpoint, WindowStart: now}
	err = r.DB.QueryRowContext(ctx,
		"SELECT request_count, window_start FROM rate_limits WHERE source_address = ? AND endpoint = ?",
		source, endpoint).Scan(&counter.RequestCount, &counter.WindowStart)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		// The decision stands; only the header values degrade.
		counter.RequestCount = policy.Ceiling
		if allowed {
			counter.RequestCount = 1
		}
	}
	return counter, allowed, nil
}

// PurgeStale deletes counters whose window started before cutoff.  Counters
// are re-derived from window_start on every hit, so this only reclaims space.
func (r *RateLimitRepo) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM rate_limits WHERE window_start < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge rate limits: %w", err)
	}
	return res.RowsAffected()
}
