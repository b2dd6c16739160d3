package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/persistence/models"
)

// GormStockLevelRepository implements possync.StockLevelRepository using GORM
type GormStockLevelRepository struct {
	db *gorm.DB
}

// NewGormStockLevelRepository creates a new GormStockLevelRepository
func NewGormStockLevelRepository(db *gorm.DB) *GormStockLevelRepository {
	return &GormStockLevelRepository{db: db}
}

// Save creates or updates a stock level row
func (r *GormStockLevelRepository) Save(ctx context.Context, level *possync.StockLevel) error {
	var model models.StockLevelModel
	model.FromDomain(level)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByMappingAndLocation finds the stock level for a mapping at a location
func (r *GormStockLevelRepository) FindByMappingAndLocation(ctx context.Context, tenantID, mappingID uuid.UUID, locationID string) (*possync.StockLevel, error) {
	var model models.StockLevelModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND mapping_id = ? AND location_id = ?", tenantID, mappingID, locationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, possync.ErrStockLevelNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByMappings lists stock levels for a set of mappings
func (r *GormStockLevelRepository) FindByMappings(ctx context.Context, tenantID uuid.UUID, mappingIDs []uuid.UUID) ([]possync.StockLevel, error) {
	if len(mappingIDs) == 0 {
		return []possync.StockLevel{}, nil
	}

	var levelModels []models.StockLevelModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND mapping_id IN ?", tenantID, mappingIDs).
		Find(&levelModels).Error; err != nil {
		return nil, err
	}

	levels := make([]possync.StockLevel, len(levelModels))
	for i, model := range levelModels {
		levels[i] = *model.ToDomain()
	}
	return levels, nil
}

// Ensure GormStockLevelRepository implements StockLevelRepository
var _ possync.StockLevelRepository = (*GormStockLevelRepository)(nil)
