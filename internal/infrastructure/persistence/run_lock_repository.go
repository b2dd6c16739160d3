package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/persistence/models"
)

// GormRunLockManager implements possync.RunLockManager on a database table.
// It is the fallback when Redis is not configured. One row per held
// (tenant, provider) pair; expired rows are reclaimed on the next acquire.
type GormRunLockManager struct {
	db *gorm.DB
}

// NewGormRunLockManager creates a new GormRunLockManager
func NewGormRunLockManager(db *gorm.DB) *GormRunLockManager {
	return &GormRunLockManager{db: db}
}

// Acquire claims the run lock for a tenant/provider pair. Returns
// ErrSyncInProgress when another run holds an unexpired lock.
func (m *GormRunLockManager) Acquire(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	now := time.Now()

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SyncRunLockModel
		err := tx.Where("tenant_id = ? AND provider = ?", tenantID, provider).
			First(&existing).Error
		switch {
		case err == nil:
			if existing.ExpiresAt.After(now) {
				return possync.ErrSyncInProgress
			}
			// Expired lock from a crashed run; take it over.
			result := tx.Model(&models.SyncRunLockModel{}).
				Where("tenant_id = ? AND provider = ? AND token = ?", tenantID, provider, existing.Token).
				Updates(map[string]any{
					"token":      token,
					"expires_at": now.Add(ttl),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return possync.ErrSyncInProgress
			}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		lock := models.SyncRunLockModel{
			TenantID:  tenantID,
			Provider:  provider,
			Token:     token,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}
		return tx.Create(&lock).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", possync.ErrSyncInProgress
		}
		return "", err
	}
	return token, nil
}

// Release frees the lock if the caller still holds it. Releasing with a
// stale token is a no-op so an expired-and-reclaimed lock is never dropped
// by its previous owner.
func (m *GormRunLockManager) Release(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, token string) error {
	return m.db.WithContext(ctx).
		Delete(&models.SyncRunLockModel{}, "tenant_id = ? AND provider = ? AND token = ?", tenantID, provider, token).
		Error
}

// Ensure GormRunLockManager implements RunLockManager
var _ possync.RunLockManager = (*GormRunLockManager)(nil)
