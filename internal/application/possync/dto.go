package possync

import (
	"time"

	"github.com/posbridge/backend/internal/domain/possync"
)

// ---------------------------------------------------------------------------
// View DTOs
// ---------------------------------------------------------------------------

// SyncLogView is the external representation of a sync run
type SyncLogView struct {
	ID            string               `json:"id"`
	Provider      string               `json:"provider"`
	Trigger       string               `json:"trigger"`
	Status        string               `json:"status"`
	Counts        possync.SyncCounts   `json:"counts"`
	ItemErrors    []possync.ItemError  `json:"item_errors,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    *time.Time           `json:"finished_at,omitempty"`
	DurationMS    int64                `json:"duration_ms"`
}

// NewSyncLogView converts a sync log to its view
func NewSyncLogView(log *possync.SyncLog) SyncLogView {
	return SyncLogView{
		ID:            log.ID.String(),
		Provider:      string(log.Provider),
		Trigger:       string(log.Trigger),
		Status:        string(log.Status),
		Counts:        log.Counts,
		ItemErrors:    log.ItemErrors,
		FailureReason: log.FailureReason,
		StartedAt:     log.StartedAt,
		FinishedAt:    log.FinishedAt,
		DurationMS:    log.Duration().Milliseconds(),
	}
}

// IntegrationView is the external representation of an integration
type IntegrationView struct {
	ID           string     `json:"id"`
	Provider     string     `json:"provider"`
	ProviderName string     `json:"provider_name"`
	IsActive     bool       `json:"is_active"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewIntegrationView converts an integration to its view
func NewIntegrationView(integ *possync.Integration) IntegrationView {
	return IntegrationView{
		ID:           integ.ID.String(),
		Provider:     string(integ.Provider),
		ProviderName: integ.Provider.DisplayName(),
		IsActive:     integ.IsActive,
		LastSyncedAt: integ.LastSyncedAt,
		CreatedAt:    integ.CreatedAt,
	}
}

// ProductMappingView is the external representation of a product mapping
type ProductMappingView struct {
	ID               string     `json:"id"`
	Provider         string     `json:"provider"`
	LocalItemID      string     `json:"local_item_id"`
	ProviderObjectID string     `json:"provider_object_id"`
	ProviderPriced   bool       `json:"provider_priced"`
	LastReconciledAt *time.Time `json:"last_reconciled_at,omitempty"`
}

// NewProductMappingView converts a mapping to its view
func NewProductMappingView(m *possync.ProductMapping) ProductMappingView {
	return ProductMappingView{
		ID:               m.ID.String(),
		Provider:         string(m.Provider),
		LocalItemID:      m.LocalItemID.String(),
		ProviderObjectID: m.ProviderObjectID,
		ProviderPriced:   m.ProviderPriced,
		LastReconciledAt: m.LastReconciledAt,
	}
}
