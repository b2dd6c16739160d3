package possync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ProductMapping Entity
// ---------------------------------------------------------------------------

// ProductMapping associates one local item with one provider-native object,
// per tenant and provider. The mapping is unique in both directions: a
// provider object maps to at most one local item and vice versa. A mapping is
// created the first time an item is reconciled in either direction and is
// never silently re-created for an already-mapped pair.
type ProductMapping struct {
	// ID is the unique identifier of this mapping
	ID uuid.UUID
	// TenantID is the tenant this mapping belongs to
	TenantID uuid.UUID
	// Provider identifies the POS provider
	Provider ProviderCode
	// LocalItemID is the internal item identifier
	LocalItemID uuid.UUID
	// ProviderObjectID is the object ID on the provider
	ProviderObjectID string
	// ProviderPriced marks items whose pricing is owned by the provider
	ProviderPriced bool
	// LastReconciledAt is when this mapping was last reconciled
	LastReconciledAt *time.Time
	// CreatedAt is when this mapping was created
	CreatedAt time.Time
	// UpdatedAt is when this mapping was last updated
	UpdatedAt time.Time
}

// NewProductMapping creates a new product mapping
func NewProductMapping(tenantID uuid.UUID, provider ProviderCode, localItemID uuid.UUID, providerObjectID string) (*ProductMapping, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProviderCode
	}
	if localItemID == uuid.Nil {
		return nil, ErrInvalidItemID
	}
	if providerObjectID == "" {
		return nil, ErrInvalidProviderObjectID
	}

	now := time.Now()
	return &ProductMapping{
		ID:               uuid.New(),
		TenantID:         tenantID,
		Provider:         provider,
		LocalItemID:      localItemID,
		ProviderObjectID: providerObjectID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Validate validates the product mapping
func (m *ProductMapping) Validate() error {
	if m.TenantID == uuid.Nil {
		return ErrInvalidTenantID
	}
	if !m.Provider.IsValid() {
		return ErrInvalidProviderCode
	}
	if m.LocalItemID == uuid.Nil {
		return ErrInvalidItemID
	}
	if m.ProviderObjectID == "" {
		return ErrInvalidProviderObjectID
	}
	return nil
}

// RecordReconciled stamps the time of the last reconciliation
func (m *ProductMapping) RecordReconciled(at time.Time) {
	m.LastReconciledAt = &at
	m.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// ProductMappingRepository Port
// ---------------------------------------------------------------------------

// ProductMappingFilter defines filter criteria for listing mappings
type ProductMappingFilter struct {
	// Provider filters by provider (optional)
	Provider *ProviderCode
	// LocalItemIDs filters by local item IDs (optional)
	LocalItemIDs []uuid.UUID
	// Page number (1-indexed)
	Page int
	// Page size
	PageSize int
}

// ProductMappingRepository persists product mappings. Implementations enforce
// the two uniqueness invariants and return ErrMappingConflict when an upsert
// would bind a provider object or a local item that is already mapped to a
// different counterpart.
type ProductMappingRepository interface {
	// Upsert idempotently creates the mapping for its (tenant, provider,
	// local item, provider object) pair. Re-upserting the identical pair is a
	// no-op; binding either side to a different counterpart fails with
	// ErrMappingConflict.
	Upsert(ctx context.Context, mapping *ProductMapping) error

	// Save updates an existing mapping
	Save(ctx context.Context, mapping *ProductMapping) error

	// FindByLocalItem finds the mapping for a local item
	FindByLocalItem(ctx context.Context, tenantID uuid.UUID, provider ProviderCode, localItemID uuid.UUID) (*ProductMapping, error)

	// FindByProviderObject finds the mapping for a provider object
	FindByProviderObject(ctx context.Context, tenantID uuid.UUID, provider ProviderCode, providerObjectID string) (*ProductMapping, error)

	// FindAll lists mappings for a tenant with optional filters
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ProductMappingFilter) ([]ProductMapping, error)

	// FindForSync returns all mappings to reconcile for a pair. When scopeIDs
	// is non-empty the result is restricted to those local item IDs
	// (incremental sync); otherwise all mappings for the pair are returned.
	FindForSync(ctx context.Context, tenantID uuid.UUID, provider ProviderCode, scopeIDs []uuid.UUID) ([]ProductMapping, error)

	// Delete deletes a mapping
	Delete(ctx context.Context, id uuid.UUID) error
}
