package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/posbridge/backend/internal/domain/possync"
)

// dedupEntry represents a stored event ID with expiration
type dedupEntry struct {
	expiresAt time.Time
}

// InMemoryEventDedupStore implements EventDedupStore using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryEventDedupStore struct {
	mu        sync.RWMutex
	entries   map[string]dedupEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryEventDedupStore creates a new in-memory dedup store
// It starts a background goroutine to clean up expired entries
func NewInMemoryEventDedupStore() *InMemoryEventDedupStore {
	store := &InMemoryEventDedupStore{
		entries:  make(map[string]dedupEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// MarkProcessed marks a webhook event as processed with a TTL
// Returns true if the event was newly marked, false on a redelivery
func (s *InMemoryEventDedupStore) MarkProcessed(ctx context.Context, provider possync.ProviderCode, eventID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("%s:%s", provider, eventID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists {
		if time.Now().Before(e.expiresAt) {
			return false, nil // Already processed
		}
		// Entry exists but expired, will be overwritten
	}

	s.entries[key] = dedupEntry{
		expiresAt: time.Now().Add(ttl),
	}

	return true, nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryEventDedupStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryEventDedupStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryEventDedupStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryEventDedupStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryEventDedupStore implements EventDedupStore
var _ possync.EventDedupStore = (*InMemoryEventDedupStore)(nil)
