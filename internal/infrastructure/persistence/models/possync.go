package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/posbridge/backend/internal/domain/possync"
)

// IntegrationModel is the persistence model for the Integration domain entity.
type IntegrationModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_integration_tenant_provider,priority:1"`
	Provider      possync.ProviderCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_integration_tenant_provider,priority:2"`
	CredentialRef string               `gorm:"type:varchar(255);not null"`
	IsActive      bool                 `gorm:"not null;default:true;index"`
	LastSyncedAt  *time.Time           `gorm:""`
	CreatedAt     time.Time            `gorm:"not null"`
	UpdatedAt     time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "pos_integrations"
}

// ToDomain converts the persistence model to a domain Integration entity.
func (m *IntegrationModel) ToDomain() *possync.Integration {
	return &possync.Integration{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Provider:      m.Provider,
		CredentialRef: m.CredentialRef,
		IsActive:      m.IsActive,
		LastSyncedAt:  m.LastSyncedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Integration entity.
func (m *IntegrationModel) FromDomain(i *possync.Integration) {
	m.ID = i.ID
	m.TenantID = i.TenantID
	m.Provider = i.Provider
	m.CredentialRef = i.CredentialRef
	m.IsActive = i.IsActive
	m.LastSyncedAt = i.LastSyncedAt
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// PosMappingModel is the persistence model for the ProductMapping domain
// entity. Both uniqueness directions are enforced at the schema level.
type PosMappingModel struct {
	ID               uuid.UUID            `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_pos_mapping_local,priority:1;uniqueIndex:idx_pos_mapping_remote,priority:1"`
	Provider         possync.ProviderCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_pos_mapping_local,priority:2;uniqueIndex:idx_pos_mapping_remote,priority:2"`
	LocalItemID      uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_pos_mapping_local,priority:3"`
	ProviderObjectID string               `gorm:"type:varchar(128);not null;uniqueIndex:idx_pos_mapping_remote,priority:3"`
	ProviderPriced   bool                 `gorm:"not null;default:false"`
	LastReconciledAt *time.Time           `gorm:""`
	CreatedAt        time.Time            `gorm:"not null"`
	UpdatedAt        time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PosMappingModel) TableName() string {
	return "pos_product_mappings"
}

// ToDomain converts the persistence model to a domain ProductMapping entity.
func (m *PosMappingModel) ToDomain() *possync.ProductMapping {
	return &possync.ProductMapping{
		ID:               m.ID,
		TenantID:         m.TenantID,
		Provider:         m.Provider,
		LocalItemID:      m.LocalItemID,
		ProviderObjectID: m.ProviderObjectID,
		ProviderPriced:   m.ProviderPriced,
		LastReconciledAt: m.LastReconciledAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ProductMapping entity.
func (m *PosMappingModel) FromDomain(pm *possync.ProductMapping) {
	m.ID = pm.ID
	m.TenantID = pm.TenantID
	m.Provider = pm.Provider
	m.LocalItemID = pm.LocalItemID
	m.ProviderObjectID = pm.ProviderObjectID
	m.ProviderPriced = pm.ProviderPriced
	m.LastReconciledAt = pm.LastReconciledAt
	m.CreatedAt = pm.CreatedAt
	m.UpdatedAt = pm.UpdatedAt
}

// StockLevelModel is the persistence model for the StockLevel domain entity.
type StockLevelModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MappingID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_level_mapping_location,priority:1"`
	LocationID  string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_stock_level_mapping_location,priority:2"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Baseline    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	HasBaseline bool            `gorm:"not null;default:false"`
	BaselineAt  *time.Time      `gorm:""`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLevelModel) TableName() string {
	return "pos_stock_levels"
}

// ToDomain converts the persistence model to a domain StockLevel entity.
func (m *StockLevelModel) ToDomain() *possync.StockLevel {
	return &possync.StockLevel{
		ID:          m.ID,
		TenantID:    m.TenantID,
		MappingID:   m.MappingID,
		LocationID:  m.LocationID,
		Quantity:    m.Quantity,
		Baseline:    m.Baseline,
		HasBaseline: m.HasBaseline,
		BaselineAt:  m.BaselineAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain StockLevel entity.
func (m *StockLevelModel) FromDomain(s *possync.StockLevel) {
	m.ID = s.ID
	m.TenantID = s.TenantID
	m.MappingID = s.MappingID
	m.LocationID = s.LocationID
	m.Quantity = s.Quantity
	m.Baseline = s.Baseline
	m.HasBaseline = s.HasBaseline
	m.BaselineAt = s.BaselineAt
	m.UpdatedAt = s.UpdatedAt
}

// SyncLogModel is the persistence model for the SyncLog aggregate. Item
// errors are stored as a JSON document alongside the counters.
type SyncLogModel struct {
	ID                uuid.UUID            `gorm:"type:uuid;primary_key"`
	TenantID          uuid.UUID            `gorm:"type:uuid;not null;index:idx_sync_log_tenant_started,priority:1"`
	Provider          possync.ProviderCode `gorm:"type:varchar(20);not null;index"`
	Trigger           possync.TriggerKind  `gorm:"type:varchar(20);not null;column:trigger_kind"`
	Status            possync.SyncStatus   `gorm:"type:varchar(30);not null;index"`
	ItemsExamined     int                  `gorm:"not null;default:0"`
	ItemsPushed       int                  `gorm:"not null;default:0"`
	ItemsPulled       int                  `gorm:"not null;default:0"`
	ConflictsResolved int                  `gorm:"not null;default:0"`
	ItemsFailed       int                  `gorm:"not null;default:0"`
	ItemsSkipped      int                  `gorm:"not null;default:0"`
	ItemErrorsJSON    string               `gorm:"type:jsonb;column:item_errors"`
	FailureReason     string               `gorm:"type:text"`
	StartedAt         time.Time            `gorm:"not null;index:idx_sync_log_tenant_started,priority:2,sort:desc"`
	FinishedAt        *time.Time           `gorm:""`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "pos_sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLog aggregate.
func (m *SyncLogModel) ToDomain() *possync.SyncLog {
	log := &possync.SyncLog{
		ID:       m.ID,
		TenantID: m.TenantID,
		Provider: m.Provider,
		Trigger:  m.Trigger,
		Status:   m.Status,
		Counts: possync.SyncCounts{
			ItemsExamined:     m.ItemsExamined,
			ItemsPushed:       m.ItemsPushed,
			ItemsPulled:       m.ItemsPulled,
			ConflictsResolved: m.ConflictsResolved,
			ItemsFailed:       m.ItemsFailed,
			ItemsSkipped:      m.ItemsSkipped,
		},
		FailureReason: m.FailureReason,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
	}

	if m.ItemErrorsJSON != "" {
		var itemErrors []possync.ItemError
		if err := json.Unmarshal([]byte(m.ItemErrorsJSON), &itemErrors); err == nil {
			log.ItemErrors = itemErrors
		}
	}

	return log
}

// FromDomain populates the persistence model from a domain SyncLog aggregate.
func (m *SyncLogModel) FromDomain(l *possync.SyncLog) {
	m.ID = l.ID
	m.TenantID = l.TenantID
	m.Provider = l.Provider
	m.Trigger = l.Trigger
	m.Status = l.Status
	m.ItemsExamined = l.Counts.ItemsExamined
	m.ItemsPushed = l.Counts.ItemsPushed
	m.ItemsPulled = l.Counts.ItemsPulled
	m.ConflictsResolved = l.Counts.ConflictsResolved
	m.ItemsFailed = l.Counts.ItemsFailed
	m.ItemsSkipped = l.Counts.ItemsSkipped
	m.FailureReason = l.FailureReason
	m.StartedAt = l.StartedAt
	m.FinishedAt = l.FinishedAt

	if len(l.ItemErrors) > 0 {
		if jsonBytes, err := json.Marshal(l.ItemErrors); err == nil {
			m.ItemErrorsJSON = string(jsonBytes)
		}
	} else {
		m.ItemErrorsJSON = "[]"
	}
}

// LocalItemModel is the persistence model for platform catalog items. The
// sync engine reads and writes these through the LocalCatalog port.
type LocalItemModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_local_item_tenant,priority:1"`
	Name           string          `gorm:"type:varchar(255);not null"`
	Description    string          `gorm:"type:text"`
	UnitPrice      int64           `gorm:"not null"`
	SalePrice      *int64          `gorm:""`
	SKU            string          `gorm:"type:varchar(100)"`
	StockQuantity  decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	ProviderPriced bool            `gorm:"not null;default:false"`
	LastModified   time.Time       `gorm:"not null"`
	DeletedAt      *time.Time      `gorm:"index"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LocalItemModel) TableName() string {
	return "local_catalog_items"
}

// ToDomain converts the persistence model to a LocalItem.
func (m *LocalItemModel) ToDomain() possync.LocalItem {
	return possync.LocalItem{
		ID: m.ID,
		Product: &possync.CanonicalProduct{
			Name:           m.Name,
			Description:    m.Description,
			UnitPrice:      m.UnitPrice,
			SalePrice:      m.SalePrice,
			SKU:            m.SKU,
			StockQuantity:  m.StockQuantity,
			LastModified:   m.LastModified,
			Source:         possync.SourcePlatform,
			ProviderPriced: m.ProviderPriced,
			DeletedAt:      m.DeletedAt,
		},
	}
}

// FromProduct populates the persistence model from canonical product state.
func (m *LocalItemModel) FromProduct(p *possync.CanonicalProduct) {
	m.Name = p.Name
	m.Description = p.Description
	m.UnitPrice = p.UnitPrice
	m.SalePrice = p.SalePrice
	m.SKU = p.SKU
	m.StockQuantity = p.StockQuantity
	m.ProviderPriced = p.ProviderPriced
	m.LastModified = p.LastModified
	m.DeletedAt = p.DeletedAt
}

// SyncRunLockModel backs the database RunLockManager. One row per held
// (tenant, provider) pair; expiry makes crashed runs recoverable.
type SyncRunLockModel struct {
	TenantID  uuid.UUID            `gorm:"type:uuid;primary_key"`
	Provider  possync.ProviderCode `gorm:"type:varchar(20);primary_key"`
	Token     string               `gorm:"type:varchar(64);not null"`
	ExpiresAt time.Time            `gorm:"not null;index"`
	CreatedAt time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncRunLockModel) TableName() string {
	return "pos_sync_run_locks"
}
