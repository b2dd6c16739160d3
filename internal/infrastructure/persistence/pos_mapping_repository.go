package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/persistence/models"
)

// GormPosMappingRepository implements possync.ProductMappingRepository using GORM
type GormPosMappingRepository struct {
	db *gorm.DB
}

// NewGormPosMappingRepository creates a new GormPosMappingRepository
func NewGormPosMappingRepository(db *gorm.DB) *GormPosMappingRepository {
	return &GormPosMappingRepository{db: db}
}

// Upsert idempotently creates the mapping. Both uniqueness directions are
// checked inside a transaction; the unique indexes back the check against
// concurrent writers.
func (r *GormPosMappingRepository) Upsert(ctx context.Context, mapping *possync.ProductMapping) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var byLocal models.PosMappingModel
		err := tx.Where("tenant_id = ? AND provider = ? AND local_item_id = ?",
			mapping.TenantID, mapping.Provider, mapping.LocalItemID).
			First(&byLocal).Error
		switch {
		case err == nil:
			if byLocal.ProviderObjectID == mapping.ProviderObjectID {
				mapping.ID = byLocal.ID
				return nil
			}
			return possync.ErrMappingConflict
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		var byRemote models.PosMappingModel
		err = tx.Where("tenant_id = ? AND provider = ? AND provider_object_id = ?",
			mapping.TenantID, mapping.Provider, mapping.ProviderObjectID).
			First(&byRemote).Error
		switch {
		case err == nil:
			return possync.ErrMappingConflict
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		var model models.PosMappingModel
		model.FromDomain(mapping)
		return tx.Create(&model).Error
	})
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return possync.ErrMappingConflict
	}
	return err
}

// Save updates an existing mapping
func (r *GormPosMappingRepository) Save(ctx context.Context, mapping *possync.ProductMapping) error {
	var model models.PosMappingModel
	model.FromDomain(mapping)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByLocalItem finds the mapping for a local item
func (r *GormPosMappingRepository) FindByLocalItem(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, localItemID uuid.UUID) (*possync.ProductMapping, error) {
	var model models.PosMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND local_item_id = ?", tenantID, provider, localItemID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, possync.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProviderObject finds the mapping for a provider object
func (r *GormPosMappingRepository) FindByProviderObject(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, providerObjectID string) (*possync.ProductMapping, error) {
	var model models.PosMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND provider_object_id = ?", tenantID, provider, providerObjectID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, possync.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists mappings for a tenant with optional filters
func (r *GormPosMappingRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter possync.ProductMappingFilter) ([]possync.ProductMapping, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PosMappingModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.Provider != nil && filter.Provider.IsValid() {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if len(filter.LocalItemIDs) > 0 {
		query = query.Where("local_item_id IN ?", filter.LocalItemIDs)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var mappingModels []models.PosMappingModel
	if err := query.Order("created_at DESC").Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]possync.ProductMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// FindForSync returns the mappings to reconcile for a tenant/provider pair,
// restricted to scopeIDs when non-empty.
func (r *GormPosMappingRepository) FindForSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, scopeIDs []uuid.UUID) ([]possync.ProductMapping, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ?", tenantID, provider)

	if len(scopeIDs) > 0 {
		query = query.Where("local_item_id IN ?", scopeIDs)
	}

	var mappingModels []models.PosMappingModel
	if err := query.Order("created_at ASC").Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]possync.ProductMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// Delete deletes a mapping
func (r *GormPosMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PosMappingModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return possync.ErrMappingNotFound
	}
	return nil
}

// Ensure GormPosMappingRepository implements ProductMappingRepository
var _ possync.ProductMappingRepository = (*GormPosMappingRepository)(nil)
