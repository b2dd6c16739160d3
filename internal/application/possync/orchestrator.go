package possync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/telemetry"
)

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

// OrchestratorOptions tunes run behavior
type OrchestratorOptions struct {
	// RunDeadline bounds one sync run end to end. Zero means no deadline.
	RunDeadline time.Duration
	// LockTTL bounds how long a crashed run can hold the pair lock
	LockTTL time.Duration
}

func (o *OrchestratorOptions) withDefaults() {
	if o.LockTTL <= 0 {
		o.LockTTL = 30 * time.Minute
	}
}

// Orchestrator owns the lifecycle of a sync run: precondition checks, the
// per-pair run lock, the audit log, and the fixed catalog-before-inventory
// phase ordering. At most one run per (tenant, provider) pair executes at a
// time; a colliding trigger fails fast with ErrSyncInProgress.
type Orchestrator struct {
	integrations possync.IntegrationRepository
	syncLogs     possync.SyncLogRepository
	locks        possync.RunLockManager
	registry     possync.ProviderRegistry
	catalog      *CatalogSyncer
	inventory    *InventorySyncer
	logger       *zap.Logger
	opts         OrchestratorOptions
	metrics      *telemetry.SyncMetrics
}

// NewOrchestrator creates a new sync orchestrator
func NewOrchestrator(
	integrations possync.IntegrationRepository,
	syncLogs possync.SyncLogRepository,
	locks possync.RunLockManager,
	registry possync.ProviderRegistry,
	catalog *CatalogSyncer,
	inventory *InventorySyncer,
	logger *zap.Logger,
	opts OrchestratorOptions,
) *Orchestrator {
	opts.withDefaults()
	return &Orchestrator{
		integrations: integrations,
		syncLogs:     syncLogs,
		locks:        locks,
		registry:     registry,
		catalog:      catalog,
		inventory:    inventory,
		logger:       logger,
		opts:         opts,
	}
}

// SetMetrics sets the sync metrics collector
func (o *Orchestrator) SetMetrics(m *telemetry.SyncMetrics) {
	o.metrics = m
}

// TriggerFullSync starts a full reconciliation in the background and returns
// its sync log immediately. The lock is acquired and the log created before
// returning, so a second trigger for the same pair observes ErrSyncInProgress
// right away.
func (o *Orchestrator) TriggerFullSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode) (*possync.SyncLog, error) {
	log, run, err := o.start(ctx, tenantID, provider, possync.TriggerFull, nil)
	if err != nil {
		return nil, err
	}
	go run(context.WithoutCancel(ctx))
	return log, nil
}

// TriggerIncrementalSync starts a scoped reconciliation in the background
func (o *Orchestrator) TriggerIncrementalSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, scope []uuid.UUID) (*possync.SyncLog, error) {
	log, run, err := o.start(ctx, tenantID, provider, possync.TriggerIncremental, scope)
	if err != nil {
		return nil, err
	}
	go run(context.WithoutCancel(ctx))
	return log, nil
}

// RunSync executes a run synchronously and returns its finalized log
func (o *Orchestrator) RunSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, trigger possync.TriggerKind, scope []uuid.UUID) (*possync.SyncLog, error) {
	log, run, err := o.start(ctx, tenantID, provider, trigger, scope)
	if err != nil {
		return nil, err
	}
	run(ctx)
	return log, nil
}

// start validates preconditions, claims the pair lock and creates the running
// log. On success it returns the log plus the run body; the caller decides
// whether to run it inline or in a goroutine. The run body owns releasing the
// lock and finalizing the log on every path.
func (o *Orchestrator) start(
	ctx context.Context,
	tenantID uuid.UUID,
	provider possync.ProviderCode,
	trigger possync.TriggerKind,
	scope []uuid.UUID,
) (*possync.SyncLog, func(context.Context), error) {
	integ, err := o.integrations.FindByTenantAndProvider(ctx, tenantID, provider)
	if err != nil {
		return nil, nil, err
	}
	if !integ.IsActive {
		return nil, nil, possync.ErrIntegrationInactive
	}

	adapter, err := o.registry.GetAdapter(provider)
	if err != nil {
		return nil, nil, err
	}

	token, err := o.locks.Acquire(ctx, tenantID, provider, o.opts.LockTTL)
	if err != nil {
		return nil, nil, err
	}

	log, err := possync.NewSyncLog(tenantID, provider, trigger)
	if err != nil {
		o.releaseLock(ctx, tenantID, provider, token)
		return nil, nil, err
	}
	if err := o.syncLogs.Create(ctx, log); err != nil {
		o.releaseLock(ctx, tenantID, provider, token)
		return nil, nil, fmt.Errorf("create sync log: %w", err)
	}

	run := func(runCtx context.Context) {
		defer o.releaseLock(context.WithoutCancel(runCtx), tenantID, provider, token)
		o.execute(runCtx, integ, adapter, log, scope)
	}
	return log, run, nil
}

// execute runs both phases and finalizes the log exactly once, panics and
// deadline aborts included.
func (o *Orchestrator) execute(
	ctx context.Context,
	integ *possync.Integration,
	adapter possync.ProviderAdapter,
	log *possync.SyncLog,
	scope []uuid.UUID,
) {
	if o.opts.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunDeadline)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("sync run panicked",
				zap.String("sync_log_id", log.ID.String()),
				zap.Any("panic", r),
			)
			log.Fail(fmt.Sprintf("panic: %v", r))
		}
		if !log.IsFinalized() {
			log.Complete()
		}
		// Finalization must survive run-context cancellation.
		updateCtx := context.WithoutCancel(ctx)
		if err := o.syncLogs.Update(updateCtx, log); err != nil {
			o.logger.Error("sync log finalization failed",
				zap.String("sync_log_id", log.ID.String()),
				zap.Error(err),
			)
		}
		if o.metrics != nil {
			o.metrics.RecordRun(updateCtx, log.TenantID, string(log.Provider), string(log.Trigger), string(log.Status), log.Duration())
			o.metrics.RecordItems(updateCtx, log.TenantID, string(log.Provider), "pushed", log.Counts.ItemsPushed)
			o.metrics.RecordItems(updateCtx, log.TenantID, string(log.Provider), "pulled", log.Counts.ItemsPulled)
			o.metrics.RecordItems(updateCtx, log.TenantID, string(log.Provider), "failed", log.Counts.ItemsFailed)
		}
	}()

	o.logger.Info("sync run started",
		zap.String("sync_log_id", log.ID.String()),
		zap.String("tenant_id", log.TenantID.String()),
		zap.String("provider", string(log.Provider)),
		zap.String("trigger", string(log.Trigger)),
		zap.Int("scope_size", len(scope)),
	)

	// Catalog first: inventory reconciles per mapping, and mappings are only
	// current after the catalog phase ran. A fatal catalog failure skips
	// inventory entirely; applied changes stay applied, each item update is
	// independently idempotent.
	catRes, err := o.catalog.Sync(ctx, log.TenantID, adapter, scope)
	if catRes != nil {
		foldCatalog(log, catRes)
	}
	if err != nil {
		log.Fail(fmt.Sprintf("catalog phase: %v", err))
		o.logger.Error("sync run aborted in catalog phase",
			zap.String("sync_log_id", log.ID.String()),
			zap.Error(err),
		)
		return
	}

	invRes, err := o.inventory.Sync(ctx, log.TenantID, adapter, scope)
	if invRes != nil {
		foldInventory(log, invRes)
	}
	if err != nil {
		log.Fail(fmt.Sprintf("inventory phase: %v", err))
		o.logger.Error("sync run aborted in inventory phase",
			zap.String("sync_log_id", log.ID.String()),
			zap.Error(err),
		)
		return
	}

	log.Complete()

	integ.RecordSynced(time.Now())
	if err := o.integrations.Save(context.WithoutCancel(ctx), integ); err != nil {
		o.logger.Warn("recording last-synced time failed",
			zap.String("tenant_id", integ.TenantID.String()),
			zap.Error(err),
		)
	}

	o.logger.Info("sync run finished",
		zap.String("sync_log_id", log.ID.String()),
		zap.String("status", string(log.Status)),
		zap.Int("items_examined", log.Counts.ItemsExamined),
		zap.Int("items_pushed", log.Counts.ItemsPushed),
		zap.Int("items_pulled", log.Counts.ItemsPulled),
		zap.Int("items_failed", log.Counts.ItemsFailed),
		zap.Duration("duration", log.Duration()),
	)
}

func (o *Orchestrator) releaseLock(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, token string) {
	if err := o.locks.Release(ctx, tenantID, provider, token); err != nil {
		o.logger.Error("run lock release failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("provider", string(provider)),
			zap.Error(err),
		)
	}
}

func foldCatalog(log *possync.SyncLog, res *CatalogSyncResult) {
	log.Counts.ItemsExamined += res.ItemsExamined
	log.Counts.ItemsPushed += res.ItemsPushed
	log.Counts.ItemsPulled += res.ItemsPulled
	log.Counts.ConflictsResolved += res.ConflictsResolved
	log.Counts.ItemsSkipped += res.ItemsSkipped
	for _, e := range res.Errors {
		log.RecordItemError(e)
	}
}

func foldInventory(log *possync.SyncLog, res *InventorySyncResult) {
	log.Counts.ItemsExamined += res.ItemsExamined
	log.Counts.ItemsPushed += res.ItemsPushed
	log.Counts.ItemsPulled += res.ItemsPulled
	log.Counts.ConflictsResolved += res.ConflictsResolved
	log.Counts.ItemsSkipped += res.ItemsSkipped
	for _, e := range res.Errors {
		log.RecordItemError(e)
	}
}
