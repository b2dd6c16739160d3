package possync

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// SourceOfTruth
// ---------------------------------------------------------------------------

// SourceOfTruth tags which side last authored a canonical record.
type SourceOfTruth string

const (
	// SourcePlatform indicates the inventory platform authored the record
	SourcePlatform SourceOfTruth = "PLATFORM"
	// SourceProvider indicates the POS provider authored the record
	SourceProvider SourceOfTruth = "PROVIDER"
)

// IsValid returns true if the source tag is valid
func (s SourceOfTruth) IsValid() bool {
	return s == SourcePlatform || s == SourceProvider
}

// String returns the string representation of SourceOfTruth
func (s SourceOfTruth) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// CanonicalProduct
// ---------------------------------------------------------------------------

// CanonicalProduct is the provider-agnostic product shape exchanged between
// the engine and provider adapters. Prices are integer minor currency units
// (cents); a nil SalePrice means the product has no sale price.
type CanonicalProduct struct {
	// Name is the product display name
	Name string
	// Description is the product description
	Description string
	// UnitPrice is the list price in minor currency units
	UnitPrice int64
	// SalePrice is the optional sale price in minor currency units.
	// When present it must be strictly less than UnitPrice.
	SalePrice *int64
	// SKU is the stock keeping unit code
	SKU string
	// StockQuantity is the aggregate on-hand quantity
	StockQuantity decimal.Decimal
	// LastModified is when either side last changed the record
	LastModified time.Time
	// Source tags which side authored this version of the record
	Source SourceOfTruth
	// ProviderPriced marks variable/non-priced provider items: imported with
	// a nil sale price and never overwritten by a platform-set sale price.
	ProviderPriced bool
	// DeletedAt is the deletion tombstone, nil for live records
	DeletedAt *time.Time
}

// IsDeleted returns true if the record carries a deletion tombstone
func (p *CanonicalProduct) IsDeleted() bool {
	return p.DeletedAt != nil
}

// HasSalePrice returns true if a sale price is set
func (p *CanonicalProduct) HasSalePrice() bool {
	return p.SalePrice != nil
}

// Normalize enforces internal consistency: a sale price that is not strictly
// below the unit price is invalid and is cleared rather than rejected. It
// reports whether anything was changed.
func (p *CanonicalProduct) Normalize() bool {
	if p.SalePrice != nil && *p.SalePrice >= p.UnitPrice {
		p.SalePrice = nil
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// CanonicalStockCount
// ---------------------------------------------------------------------------

// CanonicalStockCount is one provider-reported stock count for one object at
// one location. Locations are independent; the engine never aggregates them.
type CanonicalStockCount struct {
	// ProviderObjectID is the object ID on the provider
	ProviderObjectID string
	// LocationID is the provider location identifier
	LocationID string
	// Quantity is the counted quantity
	Quantity decimal.Decimal
	// AsOf is when the provider recorded the count
	AsOf time.Time
}
