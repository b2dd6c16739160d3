package possync

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// LocalCatalog Port
// ---------------------------------------------------------------------------

// LocalItem is one platform-side catalog item together with its identity.
// A soft-deleted item carries a Product whose DeletedAt is set, so deletions
// keep their timestamp for conflict resolution.
type LocalItem struct {
	// ID is the local item identifier
	ID uuid.UUID
	// Product is the canonical state, nil when deleted
	Product *CanonicalProduct
}

// LocalCatalog is the platform-side catalog and inventory the engine
// reconciles against. The engine reads and writes through this port only and
// never reaches into platform tables directly.
type LocalCatalog interface {
	// ListItems returns all items for a tenant, including soft-deleted ones
	// so deletions can propagate.
	ListItems(ctx context.Context, tenantID uuid.UUID) ([]LocalItem, error)

	// GetItems returns the items with the given IDs. Missing IDs are simply
	// absent from the result.
	GetItems(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]LocalItem, error)

	// UpsertItem creates or updates an item with the given canonical state.
	// When id is uuid.Nil a new item is created and its ID returned.
	UpsertItem(ctx context.Context, tenantID, id uuid.UUID, product CanonicalProduct) (uuid.UUID, error)

	// DeleteItem soft-deletes an item. Deleting an already-deleted item is a
	// no-op.
	DeleteItem(ctx context.Context, tenantID, id uuid.UUID) error

	// SetQuantity sets the stock quantity of an item
	SetQuantity(ctx context.Context, tenantID, id uuid.UUID, qty decimal.Decimal) error
}
