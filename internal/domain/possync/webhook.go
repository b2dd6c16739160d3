package possync

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Webhook Events
// ---------------------------------------------------------------------------

// WebhookEventKind classifies a provider webhook notification
type WebhookEventKind string

const (
	// EventCatalogUpdated means provider catalog objects changed
	EventCatalogUpdated WebhookEventKind = "catalog_updated"
	// EventInventoryUpdated means provider stock counts changed
	EventInventoryUpdated WebhookEventKind = "inventory_updated"
	// EventUnknown is any notification kind the engine does not act on
	EventUnknown WebhookEventKind = "unknown"
)

// WebhookEvent is a provider notification normalized across providers. The
// EventID is provider-assigned and stable across redeliveries, which is what
// makes dedup possible.
type WebhookEvent struct {
	// Provider is the sending provider
	Provider ProviderCode
	// EventID is the provider-assigned event identifier
	EventID string
	// Kind is the normalized event classification
	Kind WebhookEventKind
	// ProviderObjectIDs lists the affected provider objects, when known
	ProviderObjectIDs []string
	// OccurredAt is the provider-reported event time
	OccurredAt time.Time
}

// WebhookDecoder turns a provider's raw webhook payload into a normalized
// event. Provider adapters implement this alongside ProviderAdapter.
type WebhookDecoder interface {
	// DecodeWebhookEvent parses the raw payload. Unknown notification kinds
	// decode to Kind == EventUnknown rather than an error.
	DecodeWebhookEvent(payload []byte) (*WebhookEvent, error)
}

// EventDedupStore remembers processed webhook event IDs so provider
// redeliveries do not trigger duplicate syncs. Entries expire after ttl.
type EventDedupStore interface {
	// MarkProcessed records the event and reports whether this was the first
	// delivery.
	MarkProcessed(ctx context.Context, provider ProviderCode, eventID string, ttl time.Duration) (first bool, err error)
}
