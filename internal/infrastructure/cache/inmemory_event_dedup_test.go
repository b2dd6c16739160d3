package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posbridge/backend/internal/domain/possync"
)

func TestInMemoryEventDedupStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryEventDedupStore()
	defer store.Close()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, possync.ProviderCodeSquare, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	// Redelivery of the same event is not first.
	again, err := store.MarkProcessed(ctx, possync.ProviderCodeSquare, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	// Same event ID from another provider is independent.
	other, err := store.MarkProcessed(ctx, possync.ProviderCodeClover, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, other)
}

func TestInMemoryEventDedupStore_ExpiredEntryIsFirstAgain(t *testing.T) {
	store := NewInMemoryEventDedupStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, possync.ProviderCodeSquare, "evt-1", -time.Second)
	require.NoError(t, err)

	first, err := store.MarkProcessed(ctx, possync.ProviderCodeSquare, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestInMemoryEventDedupStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryEventDedupStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
