package possync

import (
	"context"

	"github.com/google/uuid"

	"github.com/posbridge/backend/internal/domain/possync"
)

// ---------------------------------------------------------------------------
// MappingQueryService
// ---------------------------------------------------------------------------

// MappingQueryService serves read access to product mappings. Mappings are
// written only by the sync pipeline; this surface exists for operators
// inspecting how local items bind to provider objects.
type MappingQueryService struct {
	mappings possync.ProductMappingRepository
}

// NewMappingQueryService creates a new mapping query service
func NewMappingQueryService(mappings possync.ProductMappingRepository) *MappingQueryService {
	return &MappingQueryService{mappings: mappings}
}

// ListMappings returns mappings for a tenant with optional filters
func (s *MappingQueryService) ListMappings(ctx context.Context, tenantID uuid.UUID, filter possync.ProductMappingFilter) ([]possync.ProductMapping, error) {
	return s.mappings.FindAll(ctx, tenantID, filter)
}

// GetByLocalItem returns the mapping binding a local item to a provider object
func (s *MappingQueryService) GetByLocalItem(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, localItemID uuid.UUID) (*possync.ProductMapping, error) {
	return s.mappings.FindByLocalItem(ctx, tenantID, provider, localItemID)
}
