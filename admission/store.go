package admission

import (
	"context"
	"sync"
	"time"
)

// Store persists per-node usage timestamps across runs. Implementations are
// keyed by node name; the gate owns the cooldown arithmetic unless the store
// also implements Acquirer.
type Store interface {
	// LastUsed returns the most recent recorded usage for the named node
	// and whether any record exists.
	LastUsed(ctx context.Context, name string) (time.Time, bool, error)

	// Record stores t as the latest usage for the named node.
	Record(ctx context.Context, name string, t time.Time) error
}

// Acquirer is implemented by stores that can make the admission decision
// atomically, closing the read-then-write race between concurrent runs
// sharing the same backend. The gate prefers Acquire over LastUsed/Record
// when available.
type Acquirer interface {
	Acquire(ctx context.Context, name string, period time.Duration) (Decision, error)
}

// MemoryStore is an in-process store for single-binary deployments and
// tests. The single mutex makes Acquire atomic.
type MemoryStore struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock injects the clock used by Acquire. Tests use this to step
// through cooldown windows deterministically.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		used: map[string]time.Time{},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// LastUsed implements Store.
func (s *MemoryStore) LastUsed(_ context.Context, name string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.used[name]

	return t, ok, nil
}

// Record implements Store.
func (s *MemoryStore) Record(_ context.Context, name string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.used[name] = t

	return nil
}

// Acquire implements Acquirer: check and record happen under one lock, so
// exactly one of two concurrent callers inside the window is admitted.
func (s *MemoryStore) Acquire(_ context.Context, name string, period time.Duration) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.used[name]; ok {
		if elapsed := now.Sub(last); elapsed < period {
			return Decision{Allowed: false, RetryAfter: period - elapsed}, nil
		}
	}

	s.used[name] = now

	return Decision{Allowed: true}, nil
}
