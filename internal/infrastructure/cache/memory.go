package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerdesk/backend/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

// slot is one idempotency key; body stays nil while the request is in flight
type slot struct {
	body    []byte
	expires time.Time
}

// MemoryStore keeps idempotency keys in process memory. Keys are not shared
// between instances, so it suits single-node deployments and tests.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]slot
	clock shared.Clock

	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// MemoryOption tunes a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock replaces the wall clock used for expiry
func WithClock(c shared.Clock) MemoryOption {
	return func(s *MemoryStore) { s.clock = c }
}

// WithSweepInterval sets how often expired keys are purged
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewMemoryStore starts a store with a background sweeper; Close stops it.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		slots:    make(map[string]slot),
		clock:    shared.SystemClock{},
		interval: defaultSweepInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop()
	return s
}

// live returns the unexpired slot for key. Callers hold mu.
func (s *MemoryStore) live(key string) (slot, bool) {
	sl, ok := s.slots[key]
	if !ok || !s.clock.Now().Before(sl.expires) {
		return slot{}, false
	}
	return sl, true
}

func (s *MemoryStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.live(key); held {
		return false, nil
	}
	s.slots[key] = slot{expires: s.clock.Now().Add(ttl)}
	return true, nil
}

// Complete keeps a private copy of body so later writes by the caller do not leak in
func (s *MemoryStore) Complete(_ context.Context, key string, body []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = slot{
		body:    append([]byte(nil), body...),
		expires: s.clock.Now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.live(key)
	return sl.body, ok, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.slots, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. It may be called more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

// Len counts stored keys, expired ones included until the next sweep
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func (s *MemoryStore) sweepLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for key, sl := range s.slots {
		if !now.Before(sl.expires) {
			delete(s.slots, key)
		}
	}
}

var _ shared.IdempotencyStore = (*MemoryStore)(nil)
