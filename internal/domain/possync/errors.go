package possync

import "errors"

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

var (
	// Fatal run errors: abort the remainder of the run.

	// ErrCredentialUnavailable indicates the external token service could not
	// supply a valid credential. Never retried within a run.
	ErrCredentialUnavailable = errors.New("possync: credential unavailable")
	// ErrProviderUnreachable indicates the provider API could not be reached.
	// Retried by the batch executor; fatal once the retry budget is exhausted.
	ErrProviderUnreachable = errors.New("possync: provider unreachable")

	// Transient errors: retried transparently by the batch executor.

	// ErrRateLimited indicates the provider returned a rate-limit response.
	ErrRateLimited = errors.New("possync: provider rate limited")

	// Per-item errors: recorded in the sync log, never abort the run.

	// ErrValidationRejected indicates the provider rejected an operation as
	// invalid. Non-retryable.
	ErrValidationRejected = errors.New("possync: operation rejected by provider validation")
	// ErrMappingConflict indicates a provider object is already mapped to a
	// different local item (or vice versa). Aborts the affected item only.
	ErrMappingConflict = errors.New("possync: provider object already mapped to another item")

	// Trigger errors: reject the trigger, not a run failure.

	// ErrSyncInProgress indicates another run already holds the run lock for
	// the same (tenant, provider) pair.
	ErrSyncInProgress = errors.New("possync: sync already in progress for tenant and provider")
	// ErrIntegrationInactive indicates no active integration exists for the
	// (tenant, provider) pair.
	ErrIntegrationInactive = errors.New("possync: integration is not active")

	// Lookup / validation errors.

	ErrIntegrationNotFound      = errors.New("possync: integration not found")
	ErrIntegrationAlreadyExists = errors.New("possync: integration already exists for tenant and provider")
	ErrMappingNotFound          = errors.New("possync: product mapping not found")
	ErrStockLevelNotFound       = errors.New("possync: stock level not found")
	ErrSyncLogNotFound          = errors.New("possync: sync log not found")
	ErrInvalidTenantID          = errors.New("possync: invalid tenant ID")
	ErrInvalidItemID            = errors.New("possync: invalid local item ID")
	ErrInvalidProviderCode      = errors.New("possync: invalid provider code")
	ErrInvalidProviderObjectID  = errors.New("possync: invalid provider object ID")
	ErrInvalidSignature         = errors.New("possync: invalid webhook signature")
	ErrInvalidTriggerKind       = errors.New("possync: invalid trigger kind")
)

// IsFatal reports whether err aborts the remainder of a sync run, as opposed
// to per-item errors which are recorded and skipped.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCredentialUnavailable) || errors.Is(err, ErrProviderUnreachable)
}

// IsTransient reports whether err is worth retrying with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnreachable)
}
