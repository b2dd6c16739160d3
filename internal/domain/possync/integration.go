package possync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Integration Entity
// ---------------------------------------------------------------------------

// Integration represents one connection between a tenant and a POS provider.
// Exactly one integration exists per (tenant, provider) pair; the pair is
// unique by construction and by database constraint. The credential itself is
// owned by the external token service — only an opaque reference is stored.
type Integration struct {
	// ID is the unique identifier of this integration
	ID uuid.UUID
	// TenantID is the tenant this integration belongs to
	TenantID uuid.UUID
	// Provider identifies the POS provider
	Provider ProviderCode
	// CredentialRef is the opaque reference held by the token service
	CredentialRef string
	// IsActive indicates whether syncing is enabled for this pair.
	// Deactivated on disconnect or token revocation.
	IsActive bool
	// LastSyncedAt is when the last sync run finished, nil if never synced
	LastSyncedAt *time.Time
	// CreatedAt is when this integration was created
	CreatedAt time.Time
	// UpdatedAt is when this integration was last updated
	UpdatedAt time.Time
}

// NewIntegration creates a new active integration
func NewIntegration(tenantID uuid.UUID, provider ProviderCode, credentialRef string) (*Integration, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProviderCode
	}
	if credentialRef == "" {
		return nil, ErrCredentialUnavailable
	}

	now := time.Now()
	return &Integration{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Provider:      provider,
		CredentialRef: credentialRef,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Activate re-enables syncing for this integration
func (i *Integration) Activate() {
	i.IsActive = true
	i.UpdatedAt = time.Now()
}

// Deactivate disables syncing, e.g. on disconnect or token revocation
func (i *Integration) Deactivate() {
	i.IsActive = false
	i.UpdatedAt = time.Now()
}

// RecordSynced stamps the completion time of a sync run
func (i *Integration) RecordSynced(at time.Time) {
	i.LastSyncedAt = &at
	i.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// IntegrationRepository Port
// ---------------------------------------------------------------------------

// IntegrationRepository persists integrations.
type IntegrationRepository interface {
	// Save creates or updates an integration. Creating a second integration
	// for an existing (tenant, provider) pair fails with
	// ErrIntegrationAlreadyExists.
	Save(ctx context.Context, integration *Integration) error

	// FindByTenantAndProvider finds the integration for a pair
	FindByTenantAndProvider(ctx context.Context, tenantID uuid.UUID, provider ProviderCode) (*Integration, error)

	// FindActive returns all active integrations, across tenants, for the
	// periodic sync scheduler.
	FindActive(ctx context.Context) ([]Integration, error)

	// FindByTenant returns all integrations for a tenant
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]Integration, error)
}
