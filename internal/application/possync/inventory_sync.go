package possync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/posbridge/backend/internal/domain/possync"
)

// ---------------------------------------------------------------------------
// InventorySyncer
// ---------------------------------------------------------------------------

// InventorySyncResult aggregates the outcome of one inventory reconciliation
type InventorySyncResult struct {
	ItemsExamined     int
	ItemsPushed       int
	ItemsPulled       int
	ConflictsResolved int
	ItemsSkipped      int
	Errors            []possync.ItemError
}

// InventorySyncer reconciles stock counts for mapped items. Concurrent
// movements on both sides are merged additively against the baseline from the
// previous run; when the sides disagree on direction the provider's physical
// count wins. Inventory always runs after catalog, so every mapping it sees
// is current.
type InventorySyncer struct {
	mappings possync.ProductMappingRepository
	levels   possync.StockLevelRepository
	local    possync.LocalCatalog
	executor *BatchExecutor
	logger   *zap.Logger
}

// NewInventorySyncer creates a new inventory syncer
func NewInventorySyncer(
	mappings possync.ProductMappingRepository,
	levels possync.StockLevelRepository,
	local possync.LocalCatalog,
	executor *BatchExecutor,
	logger *zap.Logger,
) *InventorySyncer {
	return &InventorySyncer{
		mappings: mappings,
		levels:   levels,
		local:    local,
		executor: executor,
		logger:   logger,
	}
}

// Sync reconciles stock for one tenant/provider pair, optionally scoped to
// specific local items.
func (s *InventorySyncer) Sync(
	ctx context.Context,
	tenantID uuid.UUID,
	adapter possync.ProviderAdapter,
	scope []uuid.UUID,
) (*InventorySyncResult, error) {
	provider := adapter.Code()

	mappingList, err := s.mappings.FindForSync(ctx, tenantID, provider, scope)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}
	if len(mappingList) == 0 {
		return &InventorySyncResult{}, nil
	}

	mappingByObjectID := make(map[string]*possync.ProductMapping, len(mappingList))
	mappingIDs := make([]uuid.UUID, 0, len(mappingList))
	for i := range mappingList {
		mappingByObjectID[mappingList[i].ProviderObjectID] = &mappingList[i]
		mappingIDs = append(mappingIDs, mappingList[i].ID)
	}

	remoteCounts, err := adapter.FetchInventory(ctx, tenantID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch remote inventory: %w", err)
	}

	levels, err := s.levels.FindByMappings(ctx, tenantID, mappingIDs)
	if err != nil {
		return nil, fmt.Errorf("load stock levels: %w", err)
	}
	levelByKey := make(map[string]*possync.StockLevel, len(levels))
	for i := range levels {
		levelByKey[levelKey(levels[i].MappingID, levels[i].LocationID)] = &levels[i]
	}

	localByItem, err := s.localQuantities(ctx, tenantID, mappingList)
	if err != nil {
		return nil, fmt.Errorf("read local quantities: %w", err)
	}

	result := &InventorySyncResult{}
	var pushOps []possync.Operation
	type pendingCommit struct {
		level  *possync.StockLevel
		itemID uuid.UUID
	}
	pendingByIndex := make(map[int]pendingCommit)

	for _, count := range remoteCounts {
		mapping, ok := mappingByObjectID[count.ProviderObjectID]
		if !ok {
			continue // unmapped object, catalog pass did not admit it
		}
		result.ItemsExamined++

		localQty, hasLocal := localByItem[mapping.LocalItemID]
		if !hasLocal {
			// Item vanished locally mid-run; catalog pass owns that case.
			result.ItemsSkipped++
			continue
		}

		level := levelByKey[levelKey(mapping.ID, count.LocationID)]
		if level == nil {
			level, err = possync.NewStockLevel(tenantID, mapping.ID, count.LocationID, localQty)
			if err != nil {
				result.Errors = append(result.Errors, itemError(possync.PhaseInventory, &mapping.LocalItemID, count.ProviderObjectID, err))
				continue
			}
		}

		merge := possync.MergeQuantities(level.Baseline, level.HasBaseline, localQty, count.Quantity)
		if merge.Additive && !merge.LocalDelta.IsZero() && !merge.RemoteDelta.IsZero() {
			result.ConflictsResolved++
		}

		// The local side converges immediately; the remote side converges
		// through the batch push below.
		if !merge.Merged.Equal(localQty) {
			if err := s.local.SetQuantity(ctx, tenantID, mapping.LocalItemID, merge.Merged); err != nil {
				result.Errors = append(result.Errors, itemError(possync.PhaseInventory, &mapping.LocalItemID, count.ProviderObjectID, err))
				continue
			}
			result.ItemsPulled++
		}

		if !merge.Merged.Equal(count.Quantity) {
			pendingByIndex[len(pushOps)] = pendingCommit{level: level, itemID: mapping.LocalItemID}
			pushOps = append(pushOps, possync.Operation{
				Kind:             possync.OpSetStock,
				LocalItemID:      mapping.LocalItemID,
				ProviderObjectID: count.ProviderObjectID,
				LocationID:       count.LocationID,
				Quantity:         merge.Merged,
			})
			continue
		}

		// Remote already agrees; commit the baseline now.
		level.CommitBaseline(merge.Merged, time.Now())
		if err := s.levels.Save(ctx, level); err != nil {
			result.Errors = append(result.Errors, itemError(possync.PhaseInventory, &mapping.LocalItemID, count.ProviderObjectID, err))
		}
	}

	pushResults, pushErr := s.executor.Execute(ctx, adapter.Limits(), pushOps, func(ctx context.Context, ops []possync.Operation) ([]possync.OperationResult, error) {
		return adapter.PushInventoryBatch(ctx, tenantID, ops)
	})

	for i, pr := range pushResults {
		op := pr.Operation
		switch pr.Status {
		case possync.OpStatusSucceeded:
			result.ItemsPushed++
			pending, ok := pendingByIndex[i]
			if !ok {
				continue
			}
			// Baseline moves only after both sides hold the merged count.
			pending.level.CommitBaseline(op.Quantity, time.Now())
			if err := s.levels.Save(ctx, pending.level); err != nil {
				result.Errors = append(result.Errors, itemError(possync.PhaseInventory, &pending.itemID, op.ProviderObjectID, err))
			}
		case possync.OpStatusFailed:
			localID := op.LocalItemID
			result.Errors = append(result.Errors, itemError(possync.PhaseInventory, &localID, op.ProviderObjectID, pr.Err))
		case possync.OpStatusNotAttempted:
			result.ItemsSkipped++
		}
	}

	if pushErr != nil {
		return result, fmt.Errorf("push inventory batch: %w", pushErr)
	}
	return result, nil
}

// localQuantities reads the current local stock quantity per mapped item
func (s *InventorySyncer) localQuantities(
	ctx context.Context,
	tenantID uuid.UUID,
	mappings []possync.ProductMapping,
) (map[uuid.UUID]decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(mappings))
	for i := range mappings {
		ids = append(ids, mappings[i].LocalItemID)
	}
	items, err := s.local.GetItems(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]decimal.Decimal, len(items))
	for i := range items {
		if items[i].Product == nil || items[i].Product.IsDeleted() {
			continue
		}
		out[items[i].ID] = items[i].Product.StockQuantity
	}
	return out, nil
}

func levelKey(mappingID uuid.UUID, locationID string) string {
	return mappingID.String() + "|" + locationID
}
