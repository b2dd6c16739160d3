package possync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// RunLockManager Port
// ---------------------------------------------------------------------------

// RunLockManager serializes sync runs per (tenant, provider) pair. At most one
// run holds the lock at a time; a second trigger for the same pair fails with
// ErrSyncInProgress instead of queueing. Locks carry a TTL so a crashed run
// cannot wedge the pair forever.
type RunLockManager interface {
	// Acquire takes the lock for the pair, returning ErrSyncInProgress when
	// another run already holds it. The returned token must be passed to
	// Release.
	Acquire(ctx context.Context, tenantID uuid.UUID, provider ProviderCode, ttl time.Duration) (token string, err error)

	// Release frees the lock if token still owns it. Releasing an expired or
	// stolen lock is a no-op.
	Release(ctx context.Context, tenantID uuid.UUID, provider ProviderCode, token string) error
}
