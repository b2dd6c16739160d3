package possync

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Batch Operations
// ---------------------------------------------------------------------------

// OperationKind identifies what a single batch operation does on the provider
type OperationKind string

const (
	// OpCreateObject creates a new provider catalog object
	OpCreateObject OperationKind = "create_object"
	// OpUpdateObject updates an existing provider catalog object
	OpUpdateObject OperationKind = "update_object"
	// OpDeleteObject deletes a provider catalog object
	OpDeleteObject OperationKind = "delete_object"
	// OpSetStock sets the stock count for an object at a location
	OpSetStock OperationKind = "set_stock"
)

// Operation is one unit of work in a batch push to a provider. Exactly one of
// the payload fields is set, matching Kind.
type Operation struct {
	// Kind is what this operation does
	Kind OperationKind
	// LocalItemID is the local item this operation belongs to, if known
	LocalItemID uuid.UUID
	// ProviderObjectID targets an existing provider object (update/delete/stock)
	ProviderObjectID string
	// Product carries the desired catalog state (create/update)
	Product *CanonicalProduct
	// LocationID targets a location (set_stock)
	LocationID string
	// Quantity is the desired stock count (set_stock)
	Quantity decimal.Decimal
}

// OperationStatus is the outcome of one operation in a batch
type OperationStatus string

const (
	// OpStatusSucceeded means the provider accepted the operation
	OpStatusSucceeded OperationStatus = "succeeded"
	// OpStatusFailed means the provider rejected the operation
	OpStatusFailed OperationStatus = "failed"
	// OpStatusNotAttempted means the operation was never sent (deadline, abort)
	OpStatusNotAttempted OperationStatus = "not_attempted"
)

// OperationResult is the per-operation outcome of a batch push. Results are
// returned in the same order as the submitted operations.
type OperationResult struct {
	// Operation is the operation this result belongs to
	Operation Operation
	// Status is the outcome
	Status OperationStatus
	// ProviderObjectID is the ID assigned by the provider for creates
	ProviderObjectID string
	// Err carries the failure when Status is failed
	Err error
}

// Succeeded reports whether the operation was accepted by the provider
func (r OperationResult) Succeeded() bool {
	return r.Status == OpStatusSucceeded
}
