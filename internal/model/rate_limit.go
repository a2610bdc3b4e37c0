package model

import "time"

// Endpoint identities used as the second half of a rate-limit key.
const (
	EndpointSignup     = "signup"
	EndpointActivation = "activation"
)

// RateLimitPolicy is the ceiling of requests admitted per fixed window.
type RateLimitPolicy struct {
	Ceiling int
	Window  time.Duration
}

// Normalize clamps a policy to sane minimums.
func (p RateLimitPolicy) Normalize() RateLimitPolicy {
	if p.Ceiling < 1 {
		p.Ceiling = 1
	}
	if p.Window <= 0 {
		p.Window = time.Second
	}
	return p
}

// RateLimitCounter mirrors a row of the `rate_limits` table (or the Redis hash
// holding the same fields).  A counter whose WindowStart is older than the
// policy window is logically reset on the next hit.
type RateLimitCounter struct {
	SourceAddress string
	Endpoint      string
	RequestCount  int
	WindowStart   time.Time
}

// RateLimitDecision is the outcome of one admission check.
type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	FailedOpen bool // store error; request admitted without counting
}
