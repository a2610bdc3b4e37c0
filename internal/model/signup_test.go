package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignupState(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Hour)

	pending := Signup{ExpiresAt: now.Add(time.Hour)}
	expired := Signup{ExpiresAt: now.Add(-time.Second)}
	activated := Signup{ExpiresAt: now.Add(time.Hour), UsedAt: &used}

	assert.Equal(t, StatePending, pending.State(now))
	assert.True(t, pending.Activatable(now))

	assert.Equal(t, StateExpired, expired.State(now))
	assert.True(t, expired.Expired(now))
	assert.False(t, expired.Activatable(now))

	assert.Equal(t, StateActivated, activated.State(now))
	assert.False(t, activated.Activatable(now))
}

func TestSignupActivatableAtExactExpiry(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s := Signup{ExpiresAt: now}
	assert.False(t, s.Activatable(now))
	assert.True(t, s.Expired(now))
}

func TestSignupStateAgreesWithActivatable(t *testing.T) {
	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	used := created.Add(time.Hour)
	for _, s := range []Signup{
		{CreatedAt: created, ExpiresAt: created.Add(SignupTTL)},
		{CreatedAt: created, ExpiresAt: created.Add(SignupTTL), UsedAt: &used},
	} {
		for _, at := range []time.Duration{0, time.Hour, SignupTTL - time.Nanosecond, SignupTTL, 2 * SignupTTL} {
			now := created.Add(at)
			assert.Equal(t, s.Activatable(now), s.State(now) == StatePending, "at %s", at)
		}
	}

	// activation is permanent, even past the expiry
	activated := Signup{ExpiresAt: created.Add(SignupTTL), UsedAt: &used}
	assert.Equal(t, StateActivated, activated.State(created.Add(2*SignupTTL)))
}

func TestNormalizeMigrationType(t *testing.T) {
	assert.Equal(t, MigrationEnhance, NormalizeMigrationType("enhance"))
	assert.Equal(t, MigrationFull, NormalizeMigrationType("full"))
	assert.Equal(t, MigrationFresh, NormalizeMigrationType("quickbooks"))
	assert.Equal(t, MigrationFresh, NormalizeMigrationType(""))
}

func TestRateLimitPolicyNormalize(t *testing.T) {
	p := RateLimitPolicy{}.Normalize()
	assert.Equal(t, 1, p.Ceiling)
	assert.Equal(t, time.Second, p.Window)
}
