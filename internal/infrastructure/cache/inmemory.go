package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryStore implements Store with a map. Suitable for single-instance
// deployments and tests; entries are not shared across processes.
type InMemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    bool
}

// InMemoryOption configures an InMemoryStore
type InMemoryOption func(*InMemoryStore)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemoryStore creates a store and starts its cleanup goroutine
func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// Get implements Store
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, ErrClosed
	}
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set implements Store. A non-positive ttl stores nothing.
func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if ttl <= 0 {
		delete(s.entries, key)
		return nil
	}
	s.entries[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Len returns the number of stored entries, expired or not
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine and drops all entries
func (s *InMemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		s.entries = make(map[string]entry)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stopChan:
			return
		}
	}
}

func (s *InMemoryStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

var _ Store = (*InMemoryStore)(nil)
