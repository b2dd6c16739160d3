package possync

import "time"

// ---------------------------------------------------------------------------
// Conflict Resolution
// ---------------------------------------------------------------------------

// Winner names which side a resolved field or product came from
type Winner string

const (
	// WinnerLocal means the platform copy won
	WinnerLocal Winner = "local"
	// WinnerRemote means the provider copy won
	WinnerRemote Winner = "remote"
	// WinnerNone means the sides already agreed
	WinnerNone Winner = "none"
)

// ProductField names a canonical product field for conflict records
type ProductField string

const (
	FieldName          ProductField = "name"
	FieldDescription   ProductField = "description"
	FieldUnitPrice     ProductField = "unit_price"
	FieldSalePrice     ProductField = "sale_price"
	FieldSKU           ProductField = "sku"
	FieldStockQuantity ProductField = "stock_quantity"
	FieldDeleted       ProductField = "deleted"
)

// ConflictRecord documents one field-level resolution for the sync log
type ConflictRecord struct {
	// Field is the field that diverged
	Field ProductField
	// Winner is the side the resolved value came from
	Winner Winner
}

// Resolution is the outcome of resolving one local/remote product pair
type Resolution struct {
	// Merged is the product state both sides should converge to
	Merged CanonicalProduct
	// Deleted means the item should be removed on both sides
	Deleted bool
	// Conflicts lists every field that diverged and how it was resolved
	Conflicts []ConflictRecord
	// PushLocal means the merged state differs from the remote copy
	PushLocal bool
	// PushRemote means the merged state differs from the local copy
	PushRemote bool
}

// ResolveProduct merges a local and a remote copy of one mapped item. Both
// pointers may be nil, meaning the item is absent on that side. The function
// is pure: it inspects only its arguments and returns the same resolution for
// the same inputs.
//
// Policy:
//   - Absence wins when the deletion is newer than the survivor's last
//     modification; otherwise the surviving copy is recreated.
//   - Fields owned by the provider (pricing on provider-priced items, stock
//     counts) take the remote value regardless of timestamps.
//   - An optional field present on one side and absent on the other takes
//     the present value, timestamps notwithstanding.
//   - All other fields take the copy with the later modification timestamp;
//     on an exact tie the remote copy wins for determinism.
//   - A sale price at or above the unit price is invalid and is cleared on
//     the merged result.
func ResolveProduct(local, remote *CanonicalProduct, providerPriced bool) Resolution {
	switch {
	case local == nil && remote == nil:
		return Resolution{Deleted: true}
	case local == nil:
		return resolveAbsence(remote, WinnerRemote)
	case remote == nil:
		return resolveAbsence(local, WinnerLocal)
	}

	if local.IsDeleted() || remote.IsDeleted() {
		return resolveDeletion(local, remote)
	}

	res := Resolution{Merged: *local}
	remoteWinsField := func(field ProductField) {
		res.Conflicts = append(res.Conflicts, ConflictRecord{Field: field, Winner: WinnerRemote})
		res.PushLocal = true
	}
	localWinsField := func(field ProductField) {
		res.Conflicts = append(res.Conflicts, ConflictRecord{Field: field, Winner: WinnerLocal})
		res.PushRemote = true
	}

	// Timestamp rule for regular fields: later modification wins, remote on
	// an exact tie.
	remoteNewer := !local.LastModified.After(remote.LastModified)

	pick := func(field ProductField, equal bool, takeRemote func()) {
		if equal {
			return
		}
		if remoteNewer {
			takeRemote()
			remoteWinsField(field)
			return
		}
		localWinsField(field)
	}

	pick(FieldName, local.Name == remote.Name, func() { res.Merged.Name = remote.Name })
	pick(FieldDescription, local.Description == remote.Description, func() { res.Merged.Description = remote.Description })
	pick(FieldSKU, local.SKU == remote.SKU, func() { res.Merged.SKU = remote.SKU })

	if providerPriced {
		// Pricing owned by the provider ignores timestamps entirely.
		if local.UnitPrice != remote.UnitPrice {
			res.Merged.UnitPrice = remote.UnitPrice
			remoteWinsField(FieldUnitPrice)
		}
		if !salePriceEqual(local.SalePrice, remote.SalePrice) {
			res.Merged.SalePrice = remote.SalePrice
			remoteWinsField(FieldSalePrice)
		}
	} else {
		pick(FieldUnitPrice, local.UnitPrice == remote.UnitPrice, func() { res.Merged.UnitPrice = remote.UnitPrice })

		// A present sale price beats an absent one unconditionally; timestamps
		// only break ties between two present values.
		switch {
		case local.SalePrice == nil && remote.SalePrice != nil:
			res.Merged.SalePrice = remote.SalePrice
			remoteWinsField(FieldSalePrice)
		case local.SalePrice != nil && remote.SalePrice == nil:
			localWinsField(FieldSalePrice)
		default:
			pick(FieldSalePrice, salePriceEqual(local.SalePrice, remote.SalePrice), func() { res.Merged.SalePrice = remote.SalePrice })
		}
	}

	if res.Merged.Normalize() {
		res.Conflicts = append(res.Conflicts, ConflictRecord{Field: FieldSalePrice, Winner: WinnerNone})
		res.PushLocal = true
		res.PushRemote = true
	}

	if remoteNewer {
		res.Merged.LastModified = remote.LastModified
	}
	return res
}

// resolveAbsence handles an item present on exactly one side. With no
// deletion marker on record the item is treated as never propagated and the
// surviving copy is created on the other side.
func resolveAbsence(survivor *CanonicalProduct, side Winner) Resolution {
	res := Resolution{Merged: *survivor}
	if survivor.IsDeleted() {
		res.Deleted = true
		return res
	}
	if side == WinnerRemote {
		res.PushLocal = true
	} else {
		res.PushRemote = true
	}
	return res
}

// resolveDeletion handles a tombstone on at least one side. The deletion wins
// only when it is newer than the other side's last modification; a stale
// tombstone loses and the item is resurrected from the surviving copy.
func resolveDeletion(local, remote *CanonicalProduct) Resolution {
	deleted, survivor := local, remote
	survivorSide := WinnerRemote
	if remote.IsDeleted() {
		deleted, survivor = remote, local
		survivorSide = WinnerLocal
	}

	if survivor.IsDeleted() {
		return Resolution{Deleted: true, Conflicts: []ConflictRecord{{Field: FieldDeleted, Winner: WinnerNone}}}
	}

	deletedAt := deletionTime(deleted)
	if deletedAt.After(survivor.LastModified) {
		return Resolution{
			Deleted:    true,
			Conflicts:  []ConflictRecord{{Field: FieldDeleted, Winner: otherSide(survivorSide)}},
			PushLocal:  survivorSide == WinnerLocal,
			PushRemote: survivorSide == WinnerRemote,
		}
	}

	res := Resolution{
		Merged:    *survivor,
		Conflicts: []ConflictRecord{{Field: FieldDeleted, Winner: survivorSide}},
	}
	if survivorSide == WinnerLocal {
		res.PushRemote = true
	} else {
		res.PushLocal = true
	}
	return res
}

func deletionTime(p *CanonicalProduct) time.Time {
	if p.DeletedAt != nil {
		return *p.DeletedAt
	}
	return p.LastModified
}

func otherSide(w Winner) Winner {
	if w == WinnerLocal {
		return WinnerRemote
	}
	return WinnerLocal
}

func salePriceEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
