package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/signup-activation/internal/model"
	"github.com/iliyamo/signup-activation/internal/utils"
)

// seedSignup stores a pending signup created at createdAt and returns its raw token.
func seedSignup(t *testing.T, store *memStore, email string, createdAt time.Time) (string, string) {
	t.Helper()
	raw, hash, err := utils.NewTokenGenerator().Issue()
	require.NoError(t, err)
	id, err := store.Create(context.Background(), model.SignupAttributes{
		Email:         email,
		FirstName:     "Grace",
		LastName:      "Hopper",
		CompanyName:   "Navy",
		CompanySize:   "1000+",
		MigrationType: model.MigrationFull,
	}, hash, "198.51.100.7", createdAt)
	require.NoError(t, err)
	return id, raw
}

func newActivationServiceForTest(store SignupStore, now time.Time) *ActivationService {
	svc := NewActivationService(store, quietLogger(), time.Second)
	svc.Now = func() time.Time { return now }
	return svc
}

func TestActivateSuccess(t *testing.T) {
	store := newMemStore()
	id, raw := seedSignup(t, store, "grace@example.com", signupNow)
	svc := newActivationServiceForTest(store, signupNow.Add(time.Hour))

	rec, err := svc.Activate(context.Background(), raw, "198.51.100.7")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "grace@example.com", rec.Email)
	assert.Empty(t, rec.TokenHash)
	require.NotNil(t, rec.UsedAt)
	assert.Equal(t, signupNow.Add(time.Hour), *rec.UsedAt)

	stored := store.get(id)
	require.NotNil(t, stored.UsedAt)
	assert.Equal(t, model.StateActivated, stored.State(signupNow.Add(2*time.Hour)))
}

func TestActivateTwiceReportsAlreadyUsed(t *testing.T) {
	store := newMemStore()
	_, raw := seedSignup(t, store, "grace@example.com", signupNow)
	svc := newActivationServiceForTest(store, signupNow.Add(time.Minute))

	_, err := svc.Activate(context.Background(), raw, "198.51.100.7")
	require.NoError(t, err)
	_, err = svc.Activate(context.Background(), raw, "198.51.100.7")
	assert.Equal(t, CodeAlreadyUsed, CodeOf(err))
}

func TestActivateRejectsMalformedTokenWithoutStoreAccess(t *testing.T) {
	store := newMemStore()
	store.findErr = errStoreDown
	svc := newActivationServiceForTest(store, signupNow)

	for _, raw := range []string{
		"abc",
		strings.Repeat("A", 64),
		strings.Repeat("g", 64),
		strings.Repeat("a", 63),
		strings.Repeat("a", 65),
	} {
		_, err := svc.Activate(context.Background(), raw, "198.51.100.7")
		assert.Equal(t, CodeInvalidFormat, CodeOf(err), raw)
	}

	_, err := svc.Activate(context.Background(), "", "198.51.100.7")
	assert.Equal(t, CodeInvalidFormat, CodeOf(err))
}

func TestActivateUnknownToken(t *testing.T) {
	svc := newActivationServiceForTest(newMemStore(), signupNow)
	_, err := svc.Activate(context.Background(), strings.Repeat("0", 64), "198.51.100.7")
	assert.Equal(t, CodeInvalidOrExpired, CodeOf(err))
}

func TestActivateExpired(t *testing.T) {
	store := newMemStore()
	id, raw := seedSignup(t, store, "grace@example.com", signupNow)

	svc := newActivationServiceForTest(store, signupNow.Add(model.SignupTTL))
	_, err := svc.Activate(context.Background(), raw, "198.51.100.7")
	assert.Equal(t, CodeExpired, CodeOf(err))
	assert.Nil(t, store.get(id).UsedAt)

	svc.Now = func() time.Time { return signupNow.Add(model.SignupTTL - time.Millisecond) }
	_, err = svc.Activate(context.Background(), raw, "198.51.100.7")
	assert.NoError(t, err)
}

func TestActivateUsedAndExpiredReportsAlreadyUsed(t *testing.T) {
	store := newMemStore()
	_, raw := seedSignup(t, store, "grace@example.com", signupNow)

	_, err := newActivationServiceForTest(store, signupNow.Add(time.Hour)).Activate(context.Background(), raw, "198.51.100.7")
	require.NoError(t, err)

	_, err = newActivationServiceForTest(store, signupNow.Add(2*model.SignupTTL)).Activate(context.Background(), raw, "198.51.100.7")
	assert.Equal(t, CodeAlreadyUsed, CodeOf(err))
}

func TestActivateStoreUnavailable(t *testing.T) {
	store := newMemStore()
	_, raw := seedSignup(t, store, "grace@example.com", signupNow)
	svc := newActivationServiceForTest(store, signupNow.Add(time.Minute))

	store.markErr = errStoreDown
	_, err := svc.Activate(context.Background(), raw, "198.51.100.7")
	assert.Equal(t, CodeStoreUnavailable, CodeOf(err))
	assert.ErrorIs(t, err, errStoreDown)

	store.markErr = nil
	store.findErr = errStoreDown
	_, err = svc.Activate(context.Background(), raw, "198.51.100.7")
	assert.Equal(t, CodeStoreUnavailable, CodeOf(err))
}

func TestActivateConcurrentCallersExactlyOneWins(t *testing.T) {
	store := newMemStore()
	id, raw := seedSignup(t, store, "grace@example.com", signupNow)
	svc := newActivationServiceForTest(store, signupNow.Add(time.Minute))

	const callers = 32
	var (
		wg      sync.WaitGroup
		wins    atomic.Int32
		already atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Activate(context.Background(), raw, "198.51.100.7")
			switch CodeOf(err) {
			case "":
				wins.Add(1)
			case CodeAlreadyUsed:
				already.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, callers-1, already.Load())
	assert.NotNil(t, store.get(id).UsedAt)
}

func TestSignupThenActivateAllowsNewSignup(t *testing.T) {
	store := newMemStore()
	signups := newSignupServiceForTest(store, &recordingNotifier{})
	res, err := signups.Signup(context.Background(), validRequest(), "198.51.100.7")
	require.NoError(t, err)

	_, err = newActivationServiceForTest(store, signupNow.Add(time.Minute)).Activate(context.Background(), res.Token, "198.51.100.7")
	require.NoError(t, err)

	_, err = signups.Signup(context.Background(), validRequest(), "198.51.100.7")
	assert.NoError(t, err)
}
