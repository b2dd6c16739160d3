package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/posbridge/backend/internal/domain/possync"
)

// setupIntegrationTestDB creates an in-memory SQLite database for testing
func setupIntegrationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE pos_integrations (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			credential_ref TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			last_synced_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(tenant_id, provider)
		)
	`).Error
	require.NoError(t, err)

	return db
}

func TestGormIntegrationRepository_SaveAndFind(t *testing.T) {
	db := setupIntegrationTestDB(t)
	repo := NewGormIntegrationRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	integ, err := possync.NewIntegration(tenantID, possync.ProviderCodeSquare, "cred-ref-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, integ))

	retrieved, err := repo.FindByTenantAndProvider(ctx, tenantID, possync.ProviderCodeSquare)
	require.NoError(t, err)
	assert.Equal(t, integ.ID, retrieved.ID)
	assert.Equal(t, "cred-ref-1", retrieved.CredentialRef)
	assert.True(t, retrieved.IsActive)
}

func TestGormIntegrationRepository_UpdateInPlace(t *testing.T) {
	db := setupIntegrationTestDB(t)
	repo := NewGormIntegrationRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	integ, err := possync.NewIntegration(tenantID, possync.ProviderCodeSquare, "cred-ref-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, integ))

	integ.Deactivate()
	integ.RecordSynced(time.Now())
	require.NoError(t, repo.Save(ctx, integ))

	retrieved, err := repo.FindByTenantAndProvider(ctx, tenantID, possync.ProviderCodeSquare)
	require.NoError(t, err)
	assert.False(t, retrieved.IsActive)
	require.NotNil(t, retrieved.LastSyncedAt)
}

func TestGormIntegrationRepository_NotFound(t *testing.T) {
	db := setupIntegrationTestDB(t)
	repo := NewGormIntegrationRepository(db)
	ctx := context.Background()

	_, err := repo.FindByTenantAndProvider(ctx, uuid.New(), possync.ProviderCodeSquare)
	assert.ErrorIs(t, err, possync.ErrIntegrationNotFound)
}

func TestGormIntegrationRepository_FindActive(t *testing.T) {
	db := setupIntegrationTestDB(t)
	repo := NewGormIntegrationRepository(db)
	ctx := context.Background()

	active, err := possync.NewIntegration(uuid.New(), possync.ProviderCodeSquare, "cred-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, active))

	inactive, err := possync.NewIntegration(uuid.New(), possync.ProviderCodeSquare, "cred-2")
	require.NoError(t, err)
	inactive.Deactivate()
	require.NoError(t, repo.Save(ctx, inactive))

	found, err := repo.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, active.ID, found[0].ID)
}

func TestGormIntegrationRepository_FindByTenant(t *testing.T) {
	db := setupIntegrationTestDB(t)
	repo := NewGormIntegrationRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	square, err := possync.NewIntegration(tenantID, possync.ProviderCodeSquare, "cred-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, square))

	clover, err := possync.NewIntegration(tenantID, possync.ProviderCodeClover, "cred-2")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, clover))

	other, err := possync.NewIntegration(uuid.New(), possync.ProviderCodeSquare, "cred-3")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, other))

	found, err := repo.FindByTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
