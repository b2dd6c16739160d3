package possync

import (
	"context"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ProviderCode
// ---------------------------------------------------------------------------

// ProviderCode identifies a point-of-sale provider.
type ProviderCode string

const (
	// ProviderCodeSquare represents Square POS
	ProviderCodeSquare ProviderCode = "SQUARE"
	// ProviderCodeClover represents Clover POS
	ProviderCodeClover ProviderCode = "CLOVER"
	// ProviderCodeLightspeed represents Lightspeed Retail
	ProviderCodeLightspeed ProviderCode = "LIGHTSPEED"
	// ProviderCodeToast represents Toast POS
	ProviderCodeToast ProviderCode = "TOAST"
)

// IsValid returns true if the provider code is valid
func (c ProviderCode) IsValid() bool {
	switch c {
	case ProviderCodeSquare, ProviderCodeClover, ProviderCodeLightspeed, ProviderCodeToast:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderCode
func (c ProviderCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the provider
func (c ProviderCode) DisplayName() string {
	switch c {
	case ProviderCodeSquare:
		return "Square"
	case ProviderCodeClover:
		return "Clover"
	case ProviderCodeLightspeed:
		return "Lightspeed Retail"
	case ProviderCodeToast:
		return "Toast"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Provider capability description
// ---------------------------------------------------------------------------

// ProviderLimits describes the provider-declared API limits consumed by the
// rate-limited batch executor as configuration. Adapters report their own
// limits; nothing is hard-coded per provider anywhere else in the engine.
type ProviderLimits struct {
	// MaxBatchSize is the maximum number of operations per batch request.
	MaxBatchSize int
	// RequestsPerMinute is the request ceiling for the provider API.
	RequestsPerMinute int
	// PageSize is the preferred catalog/inventory page size.
	PageSize int
}

// ---------------------------------------------------------------------------
// ProviderAdapter Port
// ---------------------------------------------------------------------------

// RemoteObject is one provider catalog object translated into the canonical
// shape, together with its provider-native identifier.
type RemoteObject struct {
	// ProviderObjectID is the object ID on the provider.
	ProviderObjectID string
	// Product is the canonical translation of the provider object.
	Product CanonicalProduct
}

// CatalogPage is one page of a provider catalog listing.
type CatalogPage struct {
	Objects []RemoteObject
	// NextPageToken is empty when this is the last page.
	NextPageToken string
}

// ProviderAdapter is the port through which the engine talks to one POS
// provider. The engine never touches a provider's wire protocol directly;
// concrete adapters live in the infrastructure layer and translate
// provider-native objects to and from the canonical records.
type ProviderAdapter interface {
	// Code returns the provider code this adapter handles
	Code() ProviderCode

	// Limits returns the provider-declared API limits
	Limits() ProviderLimits

	// FetchCatalog returns one page of the provider catalog. An empty
	// pageToken requests the first page.
	FetchCatalog(ctx context.Context, tenantID uuid.UUID, pageToken string) (*CatalogPage, error)

	// PushCatalogBatch submits catalog create/update/delete operations.
	// Returns one result per operation; a non-nil error indicates the whole
	// call failed before any operation was applied.
	PushCatalogBatch(ctx context.Context, tenantID uuid.UUID, ops []Operation) ([]OperationResult, error)

	// FetchInventory returns current counts for the given provider location
	// IDs. An empty slice requests all locations.
	FetchInventory(ctx context.Context, tenantID uuid.UUID, locationIDs []string) ([]CanonicalStockCount, error)

	// PushInventoryBatch submits inventory set/adjust operations.
	PushInventoryBatch(ctx context.Context, tenantID uuid.UUID, ops []Operation) ([]OperationResult, error)
}

// ProviderRegistry provides access to configured provider adapters.
type ProviderRegistry interface {
	// GetAdapter returns the adapter for the given provider code
	GetAdapter(code ProviderCode) (ProviderAdapter, error)

	// ListAdapters returns all registered adapters
	ListAdapters() []ProviderAdapter
}

// ---------------------------------------------------------------------------
// CredentialService Port
// ---------------------------------------------------------------------------

// CredentialService supplies valid, auto-refreshed provider credentials.
// Token issuance and refresh are owned by an external token service; the
// engine only consumes the result. A failure is reported as
// ErrCredentialUnavailable and is fatal for the run.
type CredentialService interface {
	// GetValidToken returns a non-expired access token for the pair.
	GetValidToken(ctx context.Context, tenantID uuid.UUID, provider ProviderCode) (string, error)

	// WebhookSecret returns the credential-derived secret used to verify
	// inbound webhook signatures for the pair.
	WebhookSecret(ctx context.Context, tenantID uuid.UUID, provider ProviderCode) (string, error)
}
