package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/signup-activation/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiterFixedWindow(t *testing.T) {
	clock := &fakeClock{now: signupNow}
	l := NewLimiter(newMemCounters(), quietLogger(), time.Second)
	l.Now = clock.Now
	policy := model.RateLimitPolicy{Ceiling: 5, Window: time.Hour}

	for i := 1; i <= 5; i++ {
		d := l.Admit(context.Background(), "203.0.113.1", model.EndpointSignup, policy)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 5-i, d.Remaining)
		assert.Equal(t, signupNow.Add(time.Hour), d.ResetAt)
		clock.Advance(time.Minute)
	}

	d := l.Admit(context.Background(), "203.0.113.1", model.EndpointSignup, policy)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 5, d.Limit)

	// other endpoints and sources have their own counters
	assert.True(t, l.Admit(context.Background(), "203.0.113.1", model.EndpointActivation, policy).Allowed)
	assert.True(t, l.Admit(context.Background(), "203.0.113.2", model.EndpointSignup, policy).Allowed)

	clock.Advance(time.Hour)
	d = l.Admit(context.Background(), "203.0.113.1", model.EndpointSignup, policy)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)
}

func TestLimiterFailsOpen(t *testing.T) {
	store := newMemCounters()
	store.err = errStoreDown
	l := NewLimiter(store, quietLogger(), time.Second)
	policy := model.RateLimitPolicy{Ceiling: 1, Window: time.Minute}

	for i := 0; i < 3; i++ {
		d := l.Admit(context.Background(), "203.0.113.1", model.EndpointSignup, policy)
		assert.True(t, d.Allowed)
		assert.True(t, d.FailedOpen)
	}
}

func TestLimiterEmptySourceSharesUnknownBucket(t *testing.T) {
	store := newMemCounters()
	l := NewLimiter(store, quietLogger(), 0)
	policy := model.RateLimitPolicy{Ceiling: 1, Window: time.Minute}

	assert.True(t, l.Admit(context.Background(), "", model.EndpointSignup, policy).Allowed)
	assert.False(t, l.Admit(context.Background(), "unknown", model.EndpointSignup, policy).Allowed)
}
