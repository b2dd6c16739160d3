package possync

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/telemetry"
)

// ---------------------------------------------------------------------------
// WebhookService
// ---------------------------------------------------------------------------

// WebhookOutcome tells the handler how a webhook was handled. Every accepted
// delivery is acked to the provider; the outcome is for logging and tests.
type WebhookOutcome string

const (
	// OutcomeSyncTriggered means an incremental run was started
	OutcomeSyncTriggered WebhookOutcome = "sync_triggered"
	// OutcomeDuplicate means the event was already processed
	OutcomeDuplicate WebhookOutcome = "duplicate"
	// OutcomeIgnored means the event kind is not acted on
	OutcomeIgnored WebhookOutcome = "ignored"
	// OutcomeSyncBusy means a run was already in progress for the pair
	OutcomeSyncBusy WebhookOutcome = "sync_busy"
)

// WebhookService verifies, dedups and dispatches provider webhook
// notifications. A verified catalog or inventory event triggers an
// incremental sync scoped to the touched objects. Redeliveries of an already
// processed event are acked without another run.
type WebhookService struct {
	integrations possync.IntegrationRepository
	credentials  possync.CredentialService
	mappings     possync.ProductMappingRepository
	dedup        possync.EventDedupStore
	registry     possync.ProviderRegistry
	orchestrator *Orchestrator
	logger       *zap.Logger
	dedupTTL     time.Duration
	metrics      *telemetry.SyncMetrics
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	integrations possync.IntegrationRepository,
	credentials possync.CredentialService,
	mappings possync.ProductMappingRepository,
	dedup possync.EventDedupStore,
	registry possync.ProviderRegistry,
	orchestrator *Orchestrator,
	logger *zap.Logger,
	dedupTTL time.Duration,
) *WebhookService {
	if dedupTTL <= 0 {
		dedupTTL = 24 * time.Hour
	}
	return &WebhookService{
		integrations: integrations,
		credentials:  credentials,
		mappings:     mappings,
		dedup:        dedup,
		registry:     registry,
		orchestrator: orchestrator,
		logger:       logger,
		dedupTTL:     dedupTTL,
	}
}

// SetMetrics sets the sync metrics collector
func (s *WebhookService) SetMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// Process handles one raw webhook delivery. signature is the value of the
// provider's signature header. The error is nil for every delivery the
// provider should consider delivered, including duplicates and ignored kinds.
func (s *WebhookService) Process(
	ctx context.Context,
	tenantID uuid.UUID,
	provider possync.ProviderCode,
	payload []byte,
	signature string,
) (WebhookOutcome, error) {
	outcome, err := s.process(ctx, tenantID, provider, payload, signature)
	if s.metrics != nil {
		label := string(outcome)
		if err != nil {
			label = "rejected"
		}
		s.metrics.RecordWebhook(ctx, string(provider), label)
	}
	return outcome, err
}

func (s *WebhookService) process(
	ctx context.Context,
	tenantID uuid.UUID,
	provider possync.ProviderCode,
	payload []byte,
	signature string,
) (WebhookOutcome, error) {
	integ, err := s.integrations.FindByTenantAndProvider(ctx, tenantID, provider)
	if err != nil {
		return "", err
	}
	if !integ.IsActive {
		return "", possync.ErrIntegrationInactive
	}

	secret, err := s.credentials.WebhookSecret(ctx, tenantID, provider)
	if err != nil {
		return "", err
	}
	if !VerifySignature(payload, signature, secret) {
		return "", possync.ErrInvalidSignature
	}

	adapter, err := s.registry.GetAdapter(provider)
	if err != nil {
		return "", err
	}
	decoder, ok := adapter.(possync.WebhookDecoder)
	if !ok {
		s.logger.Warn("provider adapter cannot decode webhooks",
			zap.String("provider", string(provider)),
		)
		return OutcomeIgnored, nil
	}

	event, err := decoder.DecodeWebhookEvent(payload)
	if err != nil {
		return "", err
	}
	if event.Kind == possync.EventUnknown {
		return OutcomeIgnored, nil
	}

	first, err := s.dedup.MarkProcessed(ctx, provider, event.EventID, s.dedupTTL)
	if err != nil {
		return "", err
	}
	if !first {
		s.logger.Debug("duplicate webhook delivery acked",
			zap.String("provider", string(provider)),
			zap.String("event_id", event.EventID),
		)
		return OutcomeDuplicate, nil
	}

	scope := s.resolveScope(ctx, tenantID, provider, event.ProviderObjectIDs)

	_, err = s.orchestrator.TriggerIncrementalSync(ctx, tenantID, provider, scope)
	if err != nil {
		if errors.Is(err, possync.ErrSyncInProgress) {
			// The running pass picks the change up or the next full sync
			// does. The delivery is still acked: the provider must not
			// redeliver what we have already recorded.
			s.logger.Info("webhook collided with a running sync",
				zap.String("provider", string(provider)),
				zap.String("event_id", event.EventID),
			)
			return OutcomeSyncBusy, nil
		}
		return "", err
	}

	return OutcomeSyncTriggered, nil
}

// resolveScope translates the event's provider object IDs into local item IDs
// for a scoped run. Objects without mappings widen the scope to nil: the run
// then sees the whole catalog and can import them.
func (s *WebhookService) resolveScope(
	ctx context.Context,
	tenantID uuid.UUID,
	provider possync.ProviderCode,
	objectIDs []string,
) []uuid.UUID {
	if len(objectIDs) == 0 {
		return nil
	}
	scope := make([]uuid.UUID, 0, len(objectIDs))
	for _, objectID := range objectIDs {
		mapping, err := s.mappings.FindByProviderObject(ctx, tenantID, provider, objectID)
		if err != nil {
			if errors.Is(err, possync.ErrMappingNotFound) {
				return nil
			}
			s.logger.Warn("scope resolution failed, widening to full pass",
				zap.String("provider_object_id", objectID),
				zap.Error(err),
			)
			return nil
		}
		scope = append(scope, mapping.LocalItemID)
	}
	return scope
}

// ---------------------------------------------------------------------------
// Signature Verification
// ---------------------------------------------------------------------------

// VerifySignature checks an HMAC-SHA256 payload signature in constant time.
// Providers differ in encoding, so both hex and base64 digests are accepted.
func VerifySignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sum := mac.Sum(nil)

	if decoded, err := hex.DecodeString(signature); err == nil {
		if hmac.Equal(decoded, sum) {
			return true
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(signature); err == nil {
		if hmac.Equal(decoded, sum) {
			return true
		}
	}
	return false
}

// SignPayload produces the hex HMAC-SHA256 signature for a payload. Shared
// with tests and local tooling that emit synthetic webhooks.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
