package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/posbridge/backend/internal/domain/possync"
)

// lockEntry represents a held run lock with expiration
type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryRunLockManager implements RunLockManager using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryRunLockManager struct {
	mu    sync.Mutex
	locks map[string]lockEntry
}

// NewInMemoryRunLockManager creates a new in-memory run lock manager
func NewInMemoryRunLockManager() *InMemoryRunLockManager {
	return &InMemoryRunLockManager{
		locks: make(map[string]lockEntry),
	}
}

// Acquire claims the run lock for a tenant/provider pair. Returns
// ErrSyncInProgress when another run holds an unexpired lock.
func (m *InMemoryRunLockManager) Acquire(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, ttl time.Duration) (string, error) {
	key := lockKey(tenantID, provider)

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, exists := m.locks[key]; exists && time.Now().Before(e.expiresAt) {
		return "", possync.ErrSyncInProgress
	}

	token := uuid.NewString()
	m.locks[key] = lockEntry{
		token:     token,
		expiresAt: time.Now().Add(ttl),
	}
	return token, nil
}

// Release frees the lock if the caller still holds it. A stale token is a
// no-op so an expired-and-reclaimed lock is never dropped by its previous
// owner.
func (m *InMemoryRunLockManager) Release(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, token string) error {
	key := lockKey(tenantID, provider)

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, exists := m.locks[key]; exists && e.token == token {
		delete(m.locks, key)
	}
	return nil
}

func lockKey(tenantID uuid.UUID, provider possync.ProviderCode) string {
	return fmt.Sprintf("%s:%s", tenantID, provider)
}

// Ensure InMemoryRunLockManager implements RunLockManager
var _ possync.RunLockManager = (*InMemoryRunLockManager)(nil)
