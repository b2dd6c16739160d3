package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/posbridge/backend/internal/domain/possync"
)

// releaseScript deletes the lock key only when the caller still owns it, so
// a run that outlived its TTL cannot drop a lock another run has taken over.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLockManager implements RunLockManager using Redis
// This is the preferred lock backend for multi-instance deployments:
// SETNX gives atomic acquisition and the TTL bounds crashed runs
type RedisRunLockManager struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRunLockManager creates a run lock manager on an existing Redis client
func NewRedisRunLockManager(client *redis.Client, keyPrefix string) *RedisRunLockManager {
	if keyPrefix == "" {
		keyPrefix = "sync:runlock:"
	}
	return &RedisRunLockManager{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire claims the run lock for a tenant/provider pair. Returns
// ErrSyncInProgress when another run currently holds it.
func (m *RedisRunLockManager) Acquire(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	acquired, err := m.client.SetNX(ctx, m.key(tenantID, provider), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		return "", possync.ErrSyncInProgress
	}
	return token, nil
}

// Release frees the lock if the caller still holds it
func (m *RedisRunLockManager) Release(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, token string) error {
	if err := releaseScript.Run(ctx, m.client, []string{m.key(tenantID, provider)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

func (m *RedisRunLockManager) key(tenantID uuid.UUID, provider possync.ProviderCode) string {
	return fmt.Sprintf("%s%s:%s", m.keyPrefix, tenantID, provider)
}

// Ensure RedisRunLockManager implements RunLockManager
var _ possync.RunLockManager = (*RedisRunLockManager)(nil)
