package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements possync.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Create persists a new running log
func (r *GormSyncLogRepository) Create(ctx context.Context, log *possync.SyncLog) error {
	var model models.SyncLogModel
	model.FromDomain(log)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update persists changes to an existing log
func (r *GormSyncLogRepository) Update(ctx context.Context, log *possync.SyncLog) error {
	var model models.SyncLogModel
	model.FromDomain(log)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds a log by ID within a tenant
func (r *GormSyncLogRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*possync.SyncLog, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, possync.ErrSyncLogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists logs for a tenant, newest first, with optional filters
func (r *GormSyncLogRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter possync.SyncLogFilter) ([]possync.SyncLog, int64, error) {
	var total int64
	countQuery := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.SyncLogModel{}).Where("tenant_id = ?", tenantID),
		filter,
	)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.SyncLogModel{}).Where("tenant_id = ?", tenantID),
		filter,
	).Order("started_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var logModels []models.SyncLogModel
	if err := query.Find(&logModels).Error; err != nil {
		return nil, 0, err
	}

	logs := make([]possync.SyncLog, len(logModels))
	for i, model := range logModels {
		logs[i] = *model.ToDomain()
	}
	return logs, total, nil
}

func (r *GormSyncLogRepository) applyFilter(query *gorm.DB, filter possync.SyncLogFilter) *gorm.DB {
	if filter.Provider != nil && filter.Provider.IsValid() {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if filter.Status != nil && filter.Status.IsValid() {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Trigger != nil && filter.Trigger.IsValid() {
		query = query.Where("trigger_kind = ?", *filter.Trigger)
	}
	if filter.Since != nil {
		query = query.Where("started_at >= ?", *filter.Since)
	}
	return query
}

// Ensure GormSyncLogRepository implements SyncLogRepository
var _ possync.SyncLogRepository = (*GormSyncLogRepository)(nil)
