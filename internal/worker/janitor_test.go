package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type purgeRecorder struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int64
	err     error
}

func (p *purgeRecorder) PurgeStale(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.n, p.err
}

func (p *purgeRecorder) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func quiet() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func TestRunOnceUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	store := &purgeRecorder{n: 4}
	j := NewRateLimitJanitor(store, 2*time.Hour, time.Minute, quiet())
	j.Now = func() time.Time { return now }

	n, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, now.Add(-2*time.Hour), store.cutoffs[0])
}

func TestRunOnceReturnsStoreError(t *testing.T) {
	store := &purgeRecorder{err: errors.New("deadlock")}
	j := NewRateLimitJanitor(store, time.Hour, time.Minute, quiet())
	_, err := j.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	store := &purgeRecorder{}
	j := NewRateLimitJanitor(store, time.Hour, 5*time.Millisecond, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
