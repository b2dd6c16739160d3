package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posbridge/backend/internal/domain/possync"
)

// SyncRunner starts a full reconciliation run and blocks until it finishes
type SyncRunner interface {
	RunSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, trigger possync.TriggerKind, scope []uuid.UUID) (*possync.SyncLog, error)
}

// FullSyncSchedulerConfig holds configuration for the periodic full-sync
// scheduler
type FullSyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// Interval is how often every active integration gets a full pass
	Interval time.Duration
	// Jitter is the maximum random delay added before each tick's work, so
	// multiple instances do not sweep at the same moment
	Jitter time.Duration
}

// DefaultFullSyncSchedulerConfig returns default configuration
func DefaultFullSyncSchedulerConfig() FullSyncSchedulerConfig {
	return FullSyncSchedulerConfig{
		Enabled:  true,
		Interval: 6 * time.Hour,
		Jitter:   5 * time.Minute,
	}
}

// Validate validates the configuration
func (c *FullSyncSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.Jitter < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// FullSyncScheduler periodically sweeps all active integrations and runs a
// full reconciliation pass for each. Webhook-driven incremental syncs handle
// the fast path; this catches drift from missed deliveries.
type FullSyncScheduler struct {
	config       FullSyncSchedulerConfig
	integrations possync.IntegrationRepository
	runner       SyncRunner
	logger       *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewFullSyncScheduler creates a new full-sync scheduler
func NewFullSyncScheduler(config FullSyncSchedulerConfig, integrations possync.IntegrationRepository, runner SyncRunner, logger *zap.Logger) (*FullSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &FullSyncScheduler{
		config:       config,
		integrations: integrations,
		runner:       runner,
		logger:       logger,
	}, nil
}

// Start starts the scheduler loop
func (s *FullSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Full sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("jitter", s.config.Jitter),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *FullSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Full sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Full sync scheduler stop timed out")
		return ctx.Err()
	}
}

// loop ticks at the configured interval and sweeps active integrations
func (s *FullSyncScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.sleepJitter(ctx) {
				return
			}
			s.sweep(ctx)
		}
	}
}

// sweep runs one full pass over every active integration, sequentially. One
// integration failing never stops the others.
func (s *FullSyncScheduler) sweep(ctx context.Context) {
	integrations, err := s.integrations.FindActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list active integrations for scheduled sync", zap.Error(err))
		return
	}

	for _, integ := range integrations {
		if ctx.Err() != nil {
			return
		}

		log, err := s.runner.RunSync(ctx, integ.TenantID, integ.Provider, possync.TriggerFull, nil)
		switch {
		case errors.Is(err, possync.ErrSyncInProgress):
			// Another trigger beat us to it; the running pass covers us.
			s.logger.Debug("Scheduled sync skipped, run already in progress",
				zap.String("tenant_id", integ.TenantID.String()),
				zap.String("provider", string(integ.Provider)),
			)
		case err != nil:
			s.logger.Error("Scheduled sync failed to start",
				zap.String("tenant_id", integ.TenantID.String()),
				zap.String("provider", string(integ.Provider)),
				zap.Error(err),
			)
		default:
			s.logger.Info("Scheduled sync finished",
				zap.String("tenant_id", integ.TenantID.String()),
				zap.String("provider", string(integ.Provider)),
				zap.String("sync_log_id", log.ID.String()),
				zap.String("status", string(log.Status)),
			)
		}
	}
}

// sleepJitter waits a random fraction of the configured jitter. Returns
// false when the context ended during the wait.
func (s *FullSyncScheduler) sleepJitter(ctx context.Context) bool {
	if s.config.Jitter <= 0 {
		return true
	}
	delay := time.Duration(rand.Int63n(int64(s.config.Jitter)))
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}
