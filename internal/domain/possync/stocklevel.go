package possync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// StockLevel Entity
// ---------------------------------------------------------------------------

// StockLevel tracks the quantity of one mapped item at one provider location,
// together with the baseline recorded at the end of the previous sync run. The
// baseline is what allows concurrent local and remote movements to be merged
// additively instead of one side clobbering the other.
type StockLevel struct {
	// ID is the unique identifier of this stock level
	ID uuid.UUID
	// TenantID is the tenant this stock level belongs to
	TenantID uuid.UUID
	// MappingID references the product mapping
	MappingID uuid.UUID
	// LocationID is the provider location identifier
	LocationID string
	// Quantity is the current local quantity
	Quantity decimal.Decimal
	// Baseline is the agreed quantity recorded at the end of the last sync
	Baseline decimal.Decimal
	// HasBaseline reports whether a baseline from a previous run exists
	HasBaseline bool
	// BaselineAt is when the baseline was recorded
	BaselineAt *time.Time
	// UpdatedAt is when this stock level was last updated
	UpdatedAt time.Time
}

// NewStockLevel creates a stock level with no baseline yet
func NewStockLevel(tenantID, mappingID uuid.UUID, locationID string, quantity decimal.Decimal) (*StockLevel, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if mappingID == uuid.Nil {
		return nil, ErrInvalidItemID
	}

	return &StockLevel{
		ID:         uuid.New(),
		TenantID:   tenantID,
		MappingID:  mappingID,
		LocationID: locationID,
		Quantity:   quantity,
		UpdatedAt:  time.Now(),
	}, nil
}

// CommitBaseline records qty as the new agreed baseline after a successful
// reconciliation of this level.
func (s *StockLevel) CommitBaseline(qty decimal.Decimal, at time.Time) {
	s.Quantity = qty
	s.Baseline = qty
	s.HasBaseline = true
	s.BaselineAt = &at
	s.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// Quantity Merge
// ---------------------------------------------------------------------------

// QuantityMerge is the outcome of merging a local and a remote quantity
// against a shared baseline.
type QuantityMerge struct {
	// Merged is the quantity both sides should converge to
	Merged decimal.Decimal
	// Additive reports whether both deltas were applied on top of the baseline
	Additive bool
	// RemoteDelta is the remote movement since the baseline
	RemoteDelta decimal.Decimal
	// LocalDelta is the local movement since the baseline
	LocalDelta decimal.Decimal
}

// MergeQuantities merges concurrent stock movements. When a baseline from the
// previous run exists and both sides moved in the same direction (or one side
// did not move), the deltas are additive: merged = baseline + remoteDelta +
// localDelta. Two sales of the same item on both sides both reduce stock
// rather than one overwriting the other. When the deltas point in opposite
// directions, or no baseline exists (first sync, restored data), the remote
// count wins because the provider's physical count is authoritative.
func MergeQuantities(baseline decimal.Decimal, hasBaseline bool, local, remote decimal.Decimal) QuantityMerge {
	if !hasBaseline {
		return QuantityMerge{Merged: remote}
	}

	localDelta := local.Sub(baseline)
	remoteDelta := remote.Sub(baseline)

	merge := QuantityMerge{RemoteDelta: remoteDelta, LocalDelta: localDelta}

	sameDirection := localDelta.IsZero() || remoteDelta.IsZero() ||
		localDelta.Sign() == remoteDelta.Sign()
	if sameDirection {
		merge.Merged = baseline.Add(remoteDelta).Add(localDelta)
		merge.Additive = true
		return merge
	}

	merge.Merged = remote
	return merge
}

// ---------------------------------------------------------------------------
// StockLevelRepository Port
// ---------------------------------------------------------------------------

// StockLevelRepository persists stock levels and their baselines
type StockLevelRepository interface {
	// Save creates or updates a stock level
	Save(ctx context.Context, level *StockLevel) error

	// FindByMappingAndLocation finds the stock level for a mapping at a location
	FindByMappingAndLocation(ctx context.Context, tenantID, mappingID uuid.UUID, locationID string) (*StockLevel, error)

	// FindByMappings returns all stock levels for the given mappings
	FindByMappings(ctx context.Context, tenantID uuid.UUID, mappingIDs []uuid.UUID) ([]StockLevel, error)
}
