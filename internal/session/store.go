package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store is an in-memory map of per-initiator state with lazy TTL expiry.
// An entry whose deadline has passed is absent for every read and is purged
// on the access that observes it.
type Store[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     Clock
	locks   *KeyedMutex
	logger  *zap.Logger
	name    string

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStore creates a store whose entries live for ttl after being put
func NewStore[V any](name string, ttl time.Duration, now Clock, logger *zap.Logger) *Store[V] {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     now,
		locks:   NewKeyedMutex(),
		logger:  logger,
		name:    name,
		stopCh:  make(chan struct{}),
	}
}

// TTL returns the lifetime given to new entries
func (s *Store[V]) TTL() time.Duration {
	return s.ttl
}

// Now returns the store's notion of the current time
func (s *Store[V]) Now() time.Time {
	return s.now()
}

// Get returns the live value for key
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		s.logger.Debug("Session expired on access",
			zap.String("store", s.name),
			zap.String("key", key))
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key with a fresh TTL, replacing any previous entry
func (s *Store[V]) Put(key string, value V) {
	s.PutUntil(key, value, s.now().Add(s.ttl))
}

// PutUntil stores value under key with an explicit deadline
func (s *Store[V]) PutUntil(key string, value V, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// Update replaces the value of a live entry and keeps its deadline.
// It returns false when no live entry exists.
func (s *Store[V]) Update(key string, value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return false
	}
	e.value = value
	s.entries[key] = e
	return true
}

// Delete removes key and reports whether a live entry was present
func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	return s.now().Before(e.expiresAt)
}

// Len returns the number of stored entries, expired ones included
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Lock serializes work on one key. The returned func releases it.
func (s *Store[V]) Lock(key string) func() {
	return s.locks.Lock(key)
}

// Sweep purges every expired entry and returns how many were removed
func (s *Store[V]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweeper purges expired entries every freq until Stop is called.
// Expiry is already enforced on access; the sweep only bounds memory.
func (s *Store[V]) StartSweeper(freq time.Duration) {
	if freq <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(freq)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("Swept expired sessions",
						zap.String("store", s.name),
						zap.Int("expired_count", n))
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop stops the background sweeper
func (s *Store[V]) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}
