package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/persistence/models"
)

// GormLocalCatalog implements possync.LocalCatalog using GORM. Soft-deleted
// items stay visible through this port so deletions can propagate to
// providers; DeletedAt on the canonical product carries the tombstone.
type GormLocalCatalog struct {
	db *gorm.DB
}

// NewGormLocalCatalog creates a new GormLocalCatalog
func NewGormLocalCatalog(db *gorm.DB) *GormLocalCatalog {
	return &GormLocalCatalog{db: db}
}

// ListItems lists all catalog items for a tenant, tombstones included
func (c *GormLocalCatalog) ListItems(ctx context.Context, tenantID uuid.UUID) ([]possync.LocalItem, error) {
	var itemModels []models.LocalItemModel
	if err := c.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}
	return toLocalItems(itemModels), nil
}

// GetItems fetches specific catalog items by ID. Unknown IDs are skipped.
func (c *GormLocalCatalog) GetItems(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]possync.LocalItem, error) {
	if len(ids) == 0 {
		return []possync.LocalItem{}, nil
	}

	var itemModels []models.LocalItemModel
	if err := c.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&itemModels).Error; err != nil {
		return nil, err
	}
	return toLocalItems(itemModels), nil
}

// UpsertItem creates or updates a catalog item. Passing uuid.Nil creates a
// new item and returns its generated ID.
func (c *GormLocalCatalog) UpsertItem(ctx context.Context, tenantID, id uuid.UUID, product possync.CanonicalProduct) (uuid.UUID, error) {
	now := time.Now()

	if id == uuid.Nil {
		model := models.LocalItemModel{
			ID:        uuid.New(),
			TenantID:  tenantID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		model.FromProduct(&product)
		if err := c.db.WithContext(ctx).Create(&model).Error; err != nil {
			return uuid.Nil, err
		}
		return model.ID, nil
	}

	var model models.LocalItemModel
	err := c.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		model = models.LocalItemModel{
			ID:        id,
			TenantID:  tenantID,
			CreatedAt: now,
		}
	case err != nil:
		return uuid.Nil, err
	}

	model.FromProduct(&product)
	model.UpdatedAt = now
	if err := c.db.WithContext(ctx).Save(&model).Error; err != nil {
		return uuid.Nil, err
	}
	return model.ID, nil
}

// DeleteItem soft-deletes a catalog item, leaving a tombstone
func (c *GormLocalCatalog) DeleteItem(ctx context.Context, tenantID, id uuid.UUID) error {
	now := time.Now()
	result := c.db.WithContext(ctx).
		Model(&models.LocalItemModel{}).
		Where("tenant_id = ? AND id = ? AND deleted_at IS NULL", tenantID, id).
		Updates(map[string]any{
			"deleted_at":    now,
			"last_modified": now,
			"updated_at":    now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return possync.ErrInvalidItemID
	}
	return nil
}

// SetQuantity updates an item's stock quantity without touching
// last_modified, so quantity reconciliation never wins catalog conflicts.
func (c *GormLocalCatalog) SetQuantity(ctx context.Context, tenantID, id uuid.UUID, qty decimal.Decimal) error {
	result := c.db.WithContext(ctx).
		Model(&models.LocalItemModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]any{
			"stock_quantity": qty,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return possync.ErrInvalidItemID
	}
	return nil
}

func toLocalItems(itemModels []models.LocalItemModel) []possync.LocalItem {
	items := make([]possync.LocalItem, len(itemModels))
	for i, model := range itemModels {
		items[i] = model.ToDomain()
	}
	return items
}

// Ensure GormLocalCatalog implements LocalCatalog
var _ possync.LocalCatalog = (*GormLocalCatalog)(nil)
