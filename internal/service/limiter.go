package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/signup-activation/internal/model"
)

// CounterStore is the persistence behind the rate limiter.  Hit must be a
// single atomic operation per key.
type CounterStore interface {
	Hit(ctx context.Context, source, endpoint string, policy model.RateLimitPolicy, now time.Time) (model.RateLimitCounter, bool, error)
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Limiter applies fixed-window admission per (source, endpoint).
//
// Fixed windows let a client send up to twice the ceiling across a window
// boundary (end of one window, start of the next).  That looseness is
// accepted; this is not a sliding window.
//
// When the store fails the request is admitted and the error logged: keeping
// signup available matters more than strict throttling.
type Limiter struct {
	Store   CounterStore
	Log     *log.Logger
	Timeout time.Duration
	Now     func() time.Time
}

func NewLimiter(store CounterStore, logger *log.Logger, timeout time.Duration) *Limiter {
	return &Limiter{Store: store, Log: logger, Timeout: timeout, Now: time.Now}
}

// Admit counts one request and reports whether it may proceed.
func (l *Limiter) Admit(ctx context.Context, source, endpoint string, policy model.RateLimitPolicy) model.RateLimitDecision {
	policy = policy.Normalize()
	now := l.now()
	if source == "" {
		source = "unknown"
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	counter, allowed, err := l.Store.Hit(ctx, source, endpoint, policy, now)
	if err != nil {
		if l.Log != nil {
			l.Log.Errorj(log.JSON{
				"event":    "ratelimit_store_error",
				"ip":       source,
				"endpoint": endpoint,
				"error":    err.Error(),
			})
		}
		return model.RateLimitDecision{
			Allowed:    true,
			Limit:      policy.Ceiling,
			Remaining:  policy.Ceiling,
			ResetAt:    now.Add(policy.Window),
			FailedOpen: true,
		}
	}

	remaining := policy.Ceiling - counter.RequestCount
	if remaining < 0 || !allowed {
		remaining = 0
	}
	windowStart := counter.WindowStart
	if windowStart.IsZero() {
		windowStart = now
	}
	return model.RateLimitDecision{
		Allowed:   allowed,
		Limit:     policy.Ceiling,
		Remaining: remaining,
		ResetAt:   windowStart.Add(policy.Window),
	}
}

func (l *Limiter) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}
