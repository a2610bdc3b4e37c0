package model

import "time"

// SignupTTL is how long an activation link stays valid after signup.  It is
// fixed at creation and never extended.
const SignupTTL = 24 * time.Hour

// Migration types offered on the signup form.  Anything else is stored as
// MigrationFresh.
const (
	MigrationFresh   = "fresh"
	MigrationEnhance = "enhance"
	MigrationFull    = "full"
)

// Signup states.  Only ACTIVATED is backed by a stored value (used_at); the
// other two are derived from the clock.
const (
	StatePending   = "PENDING"
	StateActivated = "ACTIVATED"
	StateExpired   = "EXPIRED"
)

// SignupAttributes are the values captured from the signup form.  They are
// immutable once the row is written.
type SignupAttributes struct {
	Email         string
	FirstName     string
	LastName      string
	CompanyName   string
	CompanySize   string
	MigrationType string
	Phone         *string
}

// Signup mirrors a row of the `signups` table.  The raw activation token is
// never stored; TokenHash is the durable lookup key.
// ExpiresAt is always CreatedAt + SignupTTL, and UsedAt is set once on
// activation and never cleared.
type Signup struct {
	SignupAttributes
	ID            string     // signups.id
	TokenHash     string     // signups.token_hash
	SourceAddress string     // signups.source_address
	CreatedAt     time.Time  // signups.created_at
	ExpiresAt     time.Time  // signups.expires_at
	UsedAt        *time.Time // signups.used_at (nullable)
}

// Expired reports whether the expiry has been reached.  A record whose
// ExpiresAt equals now is already expired.
func (s Signup) Expired(now time.Time) bool { return !s.ExpiresAt.After(now) }

// Activatable reports whether the record is unused and unexpired. It is
// the predicate both the pending-per-email check and activation rely on.
func (s Signup) Activatable(now time.Time) bool {
	return s.UsedAt == nil && !s.Expired(now)
}

// State derives the lifecycle state at the given instant.
func (s Signup) State(now time.Time) string {
	switch {
	case s.Activatable(now):
		return StatePending
	case s.UsedAt != nil:
		return StateActivated
	default:
		return StateExpired
	}
}

// NormalizeMigrationType maps unknown values to MigrationFresh.
func NormalizeMigrationType(v string) string {
	switch v {
	case MigrationFresh, MigrationEnhance, MigrationFull:
		return v
	}
	return MigrationFresh
}
