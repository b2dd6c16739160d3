package possync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncLog Aggregate
// ---------------------------------------------------------------------------

// TriggerKind identifies what started a sync run
type TriggerKind string

const (
	// TriggerFull is a full reconciliation over the whole catalog
	TriggerFull TriggerKind = "full"
	// TriggerIncremental is a scoped reconciliation, usually webhook driven
	TriggerIncremental TriggerKind = "incremental"
)

// IsValid checks if the trigger kind is valid
func (t TriggerKind) IsValid() bool {
	return t == TriggerFull || t == TriggerIncremental
}

// SyncStatus represents the lifecycle state of a sync run
type SyncStatus string

const (
	// SyncStatusRunning means the run is in progress
	SyncStatusRunning SyncStatus = "running"
	// SyncStatusCompleted means every item reconciled cleanly
	SyncStatusCompleted SyncStatus = "completed"
	// SyncStatusCompletedWithErrors means the run finished but some items failed
	SyncStatusCompletedWithErrors SyncStatus = "completed_with_errors"
	// SyncStatusFailed means the run aborted before finishing
	SyncStatusFailed SyncStatus = "failed"
)

// IsValid checks if the sync status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusRunning, SyncStatusCompleted, SyncStatusCompletedWithErrors, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// SyncPhase names the part of the pipeline an item error occurred in
type SyncPhase string

const (
	// PhaseCatalog is the catalog reconciliation phase
	PhaseCatalog SyncPhase = "catalog"
	// PhaseInventory is the inventory reconciliation phase
	PhaseInventory SyncPhase = "inventory"
)

// ItemError records one item that failed during a run. The run keeps going
// past item errors; only run-level failures abort it.
type ItemError struct {
	// Phase is the pipeline phase the error occurred in
	Phase SyncPhase `json:"phase"`
	// LocalItemID is the local item, if known
	LocalItemID *uuid.UUID `json:"local_item_id,omitempty"`
	// ProviderObjectID is the provider object, if known
	ProviderObjectID string `json:"provider_object_id,omitempty"`
	// Message is a human-readable description
	Message string `json:"message"`
	// OccurredAt is when the error occurred
	OccurredAt time.Time `json:"occurred_at"`
}

// SyncCounts aggregates per-run item statistics
type SyncCounts struct {
	// ItemsExamined is the number of items looked at
	ItemsExamined int `json:"items_examined"`
	// ItemsPushed is the number of items written to the provider
	ItemsPushed int `json:"items_pushed"`
	// ItemsPulled is the number of items written locally from the provider
	ItemsPulled int `json:"items_pulled"`
	// ConflictsResolved is the number of field conflicts resolved
	ConflictsResolved int `json:"conflicts_resolved"`
	// ItemsFailed is the number of items that could not be reconciled
	ItemsFailed int `json:"items_failed"`
	// ItemsSkipped is the number of items not attempted (deadline, caps)
	ItemsSkipped int `json:"items_skipped"`
}

// SyncLog is the audit record of one sync run. One log is created when the
// run starts and finalized exactly once when it ends, in every outcome
// including panics and deadline aborts.
type SyncLog struct {
	// ID is the unique identifier of this run
	ID uuid.UUID
	// TenantID is the tenant the run belongs to
	TenantID uuid.UUID
	// Provider identifies the POS provider
	Provider ProviderCode
	// Trigger is what started the run
	Trigger TriggerKind
	// Status is the lifecycle state
	Status SyncStatus
	// Counts aggregates item statistics
	Counts SyncCounts
	// ItemErrors lists items that failed during the run
	ItemErrors []ItemError
	// FailureReason is set when Status is failed
	FailureReason string
	// StartedAt is when the run started
	StartedAt time.Time
	// FinishedAt is when the run ended
	FinishedAt *time.Time
}

// NewSyncLog creates a running sync log
func NewSyncLog(tenantID uuid.UUID, provider ProviderCode, trigger TriggerKind) (*SyncLog, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProviderCode
	}
	if !trigger.IsValid() {
		return nil, ErrInvalidTriggerKind
	}

	return &SyncLog{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Provider:  provider,
		Trigger:   trigger,
		Status:    SyncStatusRunning,
		StartedAt: time.Now(),
	}, nil
}

// RecordItemError appends an item-level error and bumps the failure count
func (l *SyncLog) RecordItemError(e ItemError) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	l.ItemErrors = append(l.ItemErrors, e)
	l.Counts.ItemsFailed++
}

// Complete finalizes the run. The terminal status is derived from the
// counts: completed when every item reconciled cleanly, failed when items
// failed and nothing was written on either side, completed_with_errors for
// every other partial outcome.
func (l *SyncLog) Complete() {
	now := time.Now()
	l.FinishedAt = &now
	switch {
	case l.Counts.ItemsFailed == 0 && l.Counts.ItemsSkipped == 0:
		l.Status = SyncStatusCompleted
	case l.Counts.ItemsFailed > 0 && l.Counts.ItemsPushed == 0 && l.Counts.ItemsPulled == 0:
		l.Status = SyncStatusFailed
	default:
		l.Status = SyncStatusCompletedWithErrors
	}
}

// Fail finalizes the run as aborted with a run-level reason
func (l *SyncLog) Fail(reason string) {
	now := time.Now()
	l.FinishedAt = &now
	l.Status = SyncStatusFailed
	l.FailureReason = reason
}

// IsFinalized reports whether the run has reached a terminal status
func (l *SyncLog) IsFinalized() bool {
	return l.Status != SyncStatusRunning
}

// Duration returns how long the run took, or time since start if running
func (l *SyncLog) Duration() time.Duration {
	if l.FinishedAt != nil {
		return l.FinishedAt.Sub(l.StartedAt)
	}
	return time.Since(l.StartedAt)
}

// ---------------------------------------------------------------------------
// SyncLogRepository Port
// ---------------------------------------------------------------------------

// SyncLogFilter defines filter criteria for querying sync logs
type SyncLogFilter struct {
	// Provider filters by provider (optional)
	Provider *ProviderCode
	// Status filters by status (optional)
	Status *SyncStatus
	// Trigger filters by trigger kind (optional)
	Trigger *TriggerKind
	// Since filters runs started at or after this time (optional)
	Since *time.Time
	// Page number (1-indexed)
	Page int
	// Page size
	PageSize int
}

// SyncLogRepository persists sync run audit records
type SyncLogRepository interface {
	// Create persists a new running log
	Create(ctx context.Context, log *SyncLog) error

	// Update persists changes to an existing log
	Update(ctx context.Context, log *SyncLog) error

	// FindByID finds a log by ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SyncLog, error)

	// FindAll lists logs for a tenant, newest first, with optional filters
	FindAll(ctx context.Context, tenantID uuid.UUID, filter SyncLogFilter) ([]SyncLog, int64, error)
}
