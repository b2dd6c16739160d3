package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/posbridge/backend/internal/domain/possync"
)

// RedisEventDedupStore implements EventDedupStore using Redis
// This is suitable for distributed deployments where multiple instances
// receive webhook deliveries for the same tenant
type RedisEventDedupStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisEventDedupStore creates a dedup store on an existing Redis client
func NewRedisEventDedupStore(client *redis.Client, keyPrefix string) *RedisEventDedupStore {
	if keyPrefix == "" {
		keyPrefix = "webhook:dedup:"
	}
	return &RedisEventDedupStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed marks a webhook event as processed with a TTL
// Returns true if the event was newly marked, false on a redelivery
// Uses SETNX (SET if Not eXists) for atomic operation
func (s *RedisEventDedupStore) MarkProcessed(ctx context.Context, provider possync.ProviderCode, eventID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("%s%s:%s", s.keyPrefix, provider, eventID)

	first, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark webhook event as processed: %w", err)
	}

	return first, nil
}

// Ensure RedisEventDedupStore implements EventDedupStore
var _ possync.EventDedupStore = (*RedisEventDedupStore)(nil)
