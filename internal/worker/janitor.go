// Package worker runs background maintenance next to the HTTP server.
package worker

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
)

// CounterPurger deletes rate-limit counters whose window began before cutoff.
type CounterPurger interface {
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// RateLimitJanitor deletes rate-limit counters whose window ended long ago.
// The limiter resets windows by itself, so this only keeps the table small.
type RateLimitJanitor struct {
	Store     CounterPurger
	Retention time.Duration
	Interval  time.Duration
	Log       *log.Logger
	Now       func() time.Time
}

func NewRateLimitJanitor(store CounterPurger, retention, interval time.Duration, logger *log.Logger) *RateLimitJanitor {
	return &RateLimitJanitor{Store: store, Retention: retention, Interval: interval, Log: logger, Now: time.Now}
}

// Run purges every Interval until ctx is done.
func (j *RateLimitJanitor) Run(ctx context.Context) {
	if j.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				j.Log.Warnj(log.JSON{"event": "ratelimit_purge_failed", "error": err.Error()})
			}
		}
	}
}

// RunOnce removes counters older than Retention and returns how many went.
func (j *RateLimitJanitor) RunOnce(ctx context.Context) (int64, error) {
	now := time.Now()
	if j.Now != nil {
		now = j.Now()
	}
	cutoff := now.UTC().Add(-j.Retention)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := j.Store.PurgeStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.Log.Infoj(log.JSON{"event": "ratelimit_purged", "removed": n, "cutoff": cutoff})
	}
	return n, nil
}
