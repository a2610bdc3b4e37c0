package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/signup-activation/internal/model"
	"github.com/iliyamo/signup-activation/internal/notifier"
	"github.com/iliyamo/signup-activation/internal/repository"
)

var errStoreDown = errors.New("connection refused")

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

// memStore mirrors the MySQL store's guarantees with a mutex.
type memStore struct {
	mu       sync.Mutex
	rows     map[string]*model.Signup
	seq      int
	createFn func() error
	findErr  error
	markErr  error
}

func newMemStore() *memStore { return &memStore{rows: map[string]*model.Signup{}} }

func (m *memStore) Create(_ context.Context, attrs model.SignupAttributes, tokenHash, source string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFn != nil {
		if err := m.createFn(); err != nil {
			return "", err
		}
	}
	for _, r := range m.rows {
		if r.TokenHash == tokenHash {
			return "", repository.ErrDuplicateToken
		}
		if r.Email == attrs.Email && r.Activatable(now) {
			return "", repository.ErrDuplicatePending
		}
	}
	m.seq++
	id := fmt.Sprintf("signup-%d", m.seq)
	m.rows[id] = &model.Signup{
		SignupAttributes: attrs,
		ID:               id,
		TokenHash:        tokenHash,
		SourceAddress:    source,
		CreatedAt:        now,
		ExpiresAt:        now.Add(model.SignupTTL),
	}
	return id, nil
}

func (m *memStore) FindByTokenHash(_ context.Context, hash string) (model.Signup, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return model.Signup{}, false, m.findErr
	}
	for _, r := range m.rows {
		if r.TokenHash == hash {
			return *r, true, nil
		}
	}
	return model.Signup{}, false, nil
}

func (m *memStore) MarkUsed(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return false, m.markErr
	}
	r, ok := m.rows[id]
	if !ok || r.UsedAt != nil {
		return false, nil
	}
	r.UsedAt = &at
	return true, nil
}

func (m *memStore) get(id string) model.Signup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifier.Notification
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg notifier.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

type failingIssuer struct{}

func (failingIssuer) Issue() (string, string, error) { return "", "", errors.New("entropy source unavailable") }

// fixedIssuer hands out the listed tokens in order.
type fixedIssuer struct {
	mu    sync.Mutex
	pairs [][2]string
}

func (f *fixedIssuer) Issue() (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pairs[0]
	if len(f.pairs) > 1 {
		f.pairs = f.pairs[1:]
	}
	return p[0], p[1], nil
}

// memCounters is an in-memory fixed window store.
type memCounters struct {
	mu   sync.Mutex
	rows map[string]*model.RateLimitCounter
	err  error
}

func newMemCounters() *memCounters { return &memCounters{rows: map[string]*model.RateLimitCounter{}} }

func (m *memCounters) Hit(_ context.Context, source, endpoint string, p model.RateLimitPolicy, now time.Time) (model.RateLimitCounter, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.RateLimitCounter{}, false, m.err
	}
	key := source + "|" + endpoint
	c, ok := m.rows[key]
	if !ok || !c.WindowStart.Add(p.Window).After(now) {
		c = &model.RateLimitCounter{SourceAddress: source, Endpoint: endpoint, RequestCount: 1, WindowStart: now}
		m.rows[key] = c
		return *c, true, nil
	}
	if c.RequestCount < p.Ceiling {
		c.RequestCount++
		return *c, true, nil
	}
	return *c, false, nil
}

func (m *memCounters) PurgeStale(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, c := range m.rows {
		if c.WindowStart.Before(cutoff) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}
