package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/persistence/models"
)

// GormIntegrationRepository implements possync.IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// Save creates or updates an integration. The (tenant, provider) pair is
// unique; creating a second row for the same pair fails.
func (r *GormIntegrationRepository) Save(ctx context.Context, integ *possync.Integration) error {
	var model models.IntegrationModel
	model.FromDomain(integ)
	err := r.db.WithContext(ctx).Save(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return possync.ErrIntegrationAlreadyExists
	}
	return err
}

// FindByTenantAndProvider finds the integration for a tenant/provider pair
func (r *GormIntegrationRepository) FindByTenantAndProvider(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode) (*possync.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ?", tenantID, provider).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, possync.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive lists all active integrations across tenants
func (r *GormIntegrationRepository) FindActive(ctx context.Context) ([]possync.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}
	return toDomainIntegrations(integrationModels), nil
}

// FindByTenant lists all integrations for a tenant
func (r *GormIntegrationRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]possync.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("provider ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}
	return toDomainIntegrations(integrationModels), nil
}

func toDomainIntegrations(integrationModels []models.IntegrationModel) []possync.Integration {
	integrations := make([]possync.Integration, len(integrationModels))
	for i, model := range integrationModels {
		integrations[i] = *model.ToDomain()
	}
	return integrations
}

// Ensure GormIntegrationRepository implements IntegrationRepository
var _ possync.IntegrationRepository = (*GormIntegrationRepository)(nil)
