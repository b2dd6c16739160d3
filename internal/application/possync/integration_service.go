package possync

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posbridge/backend/internal/domain/possync"
)

// ---------------------------------------------------------------------------
// IntegrationService
// ---------------------------------------------------------------------------

// IntegrationService manages provider integration lifecycle. Credential
// issuance lives in the external token service; this service only tracks the
// reference and the active switch.
type IntegrationService struct {
	integrations possync.IntegrationRepository
	registry     possync.ProviderRegistry
	logger       *zap.Logger
}

// NewIntegrationService creates a new integration service
func NewIntegrationService(
	integrations possync.IntegrationRepository,
	registry possync.ProviderRegistry,
	logger *zap.Logger,
) *IntegrationService {
	return &IntegrationService{
		integrations: integrations,
		registry:     registry,
		logger:       logger,
	}
}

// Register creates an integration for a tenant/provider pair
func (s *IntegrationService) Register(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, credentialRef string) (*possync.Integration, error) {
	if _, err := s.registry.GetAdapter(provider); err != nil {
		return nil, err
	}

	integ, err := possync.NewIntegration(tenantID, provider, credentialRef)
	if err != nil {
		return nil, err
	}
	if err := s.integrations.Save(ctx, integ); err != nil {
		return nil, err
	}

	s.logger.Info("integration registered",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", string(provider)),
	)
	return integ, nil
}

// List returns all integrations for a tenant
func (s *IntegrationService) List(ctx context.Context, tenantID uuid.UUID) ([]possync.Integration, error) {
	return s.integrations.FindByTenant(ctx, tenantID)
}

// Activate enables syncing for a pair
func (s *IntegrationService) Activate(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode) (*possync.Integration, error) {
	return s.setActive(ctx, tenantID, provider, true)
}

// Deactivate disables syncing for a pair. Running syncs finish; new triggers
// are rejected.
func (s *IntegrationService) Deactivate(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode) (*possync.Integration, error) {
	return s.setActive(ctx, tenantID, provider, false)
}

func (s *IntegrationService) setActive(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, active bool) (*possync.Integration, error) {
	integ, err := s.integrations.FindByTenantAndProvider(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	if active {
		integ.Activate()
	} else {
		integ.Deactivate()
	}
	if err := s.integrations.Save(ctx, integ); err != nil {
		return nil, err
	}
	return integ, nil
}

// ---------------------------------------------------------------------------
// SyncLogQueryService
// ---------------------------------------------------------------------------

// SyncLogQueryService serves read access to sync run audit records
type SyncLogQueryService struct {
	syncLogs possync.SyncLogRepository
}

// NewSyncLogQueryService creates a new sync log query service
func NewSyncLogQueryService(syncLogs possync.SyncLogRepository) *SyncLogQueryService {
	return &SyncLogQueryService{syncLogs: syncLogs}
}

// GetLog returns one run by ID
func (s *SyncLogQueryService) GetLog(ctx context.Context, tenantID, id uuid.UUID) (*possync.SyncLog, error) {
	return s.syncLogs.FindByID(ctx, tenantID, id)
}

// ListLogs returns runs for a tenant, newest first
func (s *SyncLogQueryService) ListLogs(ctx context.Context, tenantID uuid.UUID, filter possync.SyncLogFilter) ([]possync.SyncLog, int64, error) {
	return s.syncLogs.FindAll(ctx, tenantID, filter)
}
