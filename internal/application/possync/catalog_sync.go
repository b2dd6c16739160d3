package possync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/posbridge/backend/internal/domain/possync"
)

// ---------------------------------------------------------------------------
// CatalogSyncer
// ---------------------------------------------------------------------------

// CatalogSyncResult aggregates the outcome of one catalog reconciliation pass
type CatalogSyncResult struct {
	ItemsExamined     int
	ItemsPushed       int
	ItemsPulled       int
	ConflictsResolved int
	ItemsSkipped      int
	Errors            []possync.ItemError
}

// CatalogSyncer reconciles the local catalog with one provider's catalog in
// both directions. Items mapped on both sides are merged field by field;
// items present on only one side are propagated to the other, creating the
// mapping once the counterpart confirmably exists.
type CatalogSyncer struct {
	mappings possync.ProductMappingRepository
	local    possync.LocalCatalog
	executor *BatchExecutor
	logger   *zap.Logger
}

// NewCatalogSyncer creates a new catalog syncer
func NewCatalogSyncer(
	mappings possync.ProductMappingRepository,
	local possync.LocalCatalog,
	executor *BatchExecutor,
	logger *zap.Logger,
) *CatalogSyncer {
	return &CatalogSyncer{
		mappings: mappings,
		local:    local,
		executor: executor,
		logger:   logger,
	}
}

// Sync reconciles the catalogs of one tenant/provider pair. A non-empty scope
// restricts the pass to those local item IDs (incremental sync). Item-level
// failures are collected in the result; only failures that invalidate the
// whole pass (catalog fetch, local read) return an error.
func (s *CatalogSyncer) Sync(
	ctx context.Context,
	tenantID uuid.UUID,
	adapter possync.ProviderAdapter,
	scope []uuid.UUID,
) (*CatalogSyncResult, error) {
	provider := adapter.Code()

	// Fetch both sides in parallel. Either side failing aborts the pass:
	// reconciling against a partial view would propagate phantom deletions.
	var (
		remoteObjects []possync.RemoteObject
		localItems    []possync.LocalItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		objs, err := fetchFullCatalog(gctx, adapter, tenantID)
		if err != nil {
			return fmt.Errorf("fetch remote catalog: %w", err)
		}
		remoteObjects = objs
		return nil
	})
	g.Go(func() error {
		items, err := s.fetchLocalItems(gctx, tenantID, scope)
		if err != nil {
			return fmt.Errorf("read local catalog: %w", err)
		}
		localItems = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mappingList, err := s.mappings.FindForSync(ctx, tenantID, provider, scope)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}

	remoteByID := make(map[string]*possync.RemoteObject, len(remoteObjects))
	for i := range remoteObjects {
		remoteByID[remoteObjects[i].ProviderObjectID] = &remoteObjects[i]
	}
	localByID := make(map[uuid.UUID]*possync.LocalItem, len(localItems))
	for i := range localItems {
		localByID[localItems[i].ID] = &localItems[i]
	}

	result := &CatalogSyncResult{}
	var remoteOps []possync.Operation
	mappedLocal := make(map[uuid.UUID]bool, len(mappingList))
	mappedRemote := make(map[string]bool, len(mappingList))

	// Pass 1: items mapped on both sides.
	for i := range mappingList {
		mapping := &mappingList[i]
		mappedLocal[mapping.LocalItemID] = true
		mappedRemote[mapping.ProviderObjectID] = true
		result.ItemsExamined++

		var localProduct, remoteProduct *possync.CanonicalProduct
		if item, ok := localByID[mapping.LocalItemID]; ok {
			localProduct = item.Product
		}
		if obj, ok := remoteByID[mapping.ProviderObjectID]; ok {
			remoteProduct = &obj.Product
		}

		res := possync.ResolveProduct(localProduct, remoteProduct, mapping.ProviderPriced)
		result.ConflictsResolved += len(res.Conflicts)

		ops, err := s.applyResolution(ctx, tenantID, mapping, res, remoteProduct != nil)
		if err != nil {
			result.Errors = append(result.Errors, itemError(possync.PhaseCatalog, &mapping.LocalItemID, mapping.ProviderObjectID, err))
			continue
		}
		remoteOps = append(remoteOps, ops...)
		if res.PushLocal {
			result.ItemsPulled++
		}
	}

	// Pass 2: local items with no mapping become remote creates. The mapping
	// is created only once the provider confirms the object, below.
	for i := range localItems {
		item := &localItems[i]
		if mappedLocal[item.ID] || item.Product == nil || item.Product.IsDeleted() {
			continue
		}
		result.ItemsExamined++
		remoteOps = append(remoteOps, possync.Operation{
			Kind:        possync.OpCreateObject,
			LocalItemID: item.ID,
			Product:     item.Product,
		})
	}

	// Pass 3: remote objects with no mapping are imported. The repository
	// check keeps a scoped pass from re-importing objects whose mappings
	// simply fell outside the scope.
	for i := range remoteObjects {
		obj := &remoteObjects[i]
		if mappedRemote[obj.ProviderObjectID] || obj.Product.IsDeleted() {
			continue
		}
		if len(scope) > 0 {
			if _, err := s.mappings.FindByProviderObject(ctx, tenantID, provider, obj.ProviderObjectID); err == nil {
				continue
			} else if !errors.Is(err, possync.ErrMappingNotFound) {
				result.Errors = append(result.Errors, itemError(possync.PhaseCatalog, nil, obj.ProviderObjectID, err))
				continue
			}
		}
		result.ItemsExamined++
		if err := s.importRemoteObject(ctx, tenantID, provider, obj); err != nil {
			result.Errors = append(result.Errors, itemError(possync.PhaseCatalog, nil, obj.ProviderObjectID, err))
			continue
		}
		result.ItemsPulled++
	}

	// Push the accumulated remote writes under the provider's limits.
	pushResults, pushErr := s.executor.Execute(ctx, adapter.Limits(), remoteOps, func(ctx context.Context, ops []possync.Operation) ([]possync.OperationResult, error) {
		return adapter.PushCatalogBatch(ctx, tenantID, ops)
	})
	s.consumePushResults(ctx, tenantID, provider, pushResults, result)
	if pushErr != nil {
		// Fatal push error: the partial result still carries what happened,
		// the error aborts the run.
		return result, fmt.Errorf("push catalog batch: %w", pushErr)
	}

	return result, nil
}

// applyResolution applies the local half of a resolution and returns the
// remote operations for its other half.
func (s *CatalogSyncer) applyResolution(
	ctx context.Context,
	tenantID uuid.UUID,
	mapping *possync.ProductMapping,
	res possync.Resolution,
	remoteExists bool,
) ([]possync.Operation, error) {
	if res.Deleted {
		if err := s.local.DeleteItem(ctx, tenantID, mapping.LocalItemID); err != nil {
			return nil, err
		}
		// The pair is gone; the mapping goes with it.
		if err := s.mappings.Delete(ctx, mapping.ID); err != nil {
			return nil, err
		}
		if res.PushRemote && remoteExists {
			return []possync.Operation{{
				Kind:             possync.OpDeleteObject,
				LocalItemID:      mapping.LocalItemID,
				ProviderObjectID: mapping.ProviderObjectID,
			}}, nil
		}
		return nil, nil
	}

	if res.PushLocal {
		if _, err := s.local.UpsertItem(ctx, tenantID, mapping.LocalItemID, res.Merged); err != nil {
			return nil, err
		}
	}

	var ops []possync.Operation
	if res.PushRemote {
		kind := possync.OpUpdateObject
		if !remoteExists {
			kind = possync.OpCreateObject
		}
		op := possync.Operation{
			Kind:        kind,
			LocalItemID: mapping.LocalItemID,
			Product:     &res.Merged,
		}
		if remoteExists {
			op.ProviderObjectID = mapping.ProviderObjectID
		}
		ops = append(ops, op)
	}

	mapping.RecordReconciled(time.Now())
	if err := s.mappings.Save(ctx, mapping); err != nil {
		return nil, err
	}
	return ops, nil
}

// importRemoteObject creates a local item for an unmapped provider object and
// records the mapping. Provider-originated items keep provider pricing
// authority.
func (s *CatalogSyncer) importRemoteObject(
	ctx context.Context,
	tenantID uuid.UUID,
	provider possync.ProviderCode,
	obj *possync.RemoteObject,
) error {
	product := obj.Product
	product.Normalize()

	localID, err := s.local.UpsertItem(ctx, tenantID, uuid.Nil, product)
	if err != nil {
		return err
	}

	mapping, err := possync.NewProductMapping(tenantID, provider, localID, obj.ProviderObjectID)
	if err != nil {
		return err
	}
	mapping.ProviderPriced = obj.Product.ProviderPriced
	return s.mappings.Upsert(ctx, mapping)
}

// consumePushResults folds the executor's per-operation outcomes into the
// pass result. Confirmed creates produce their mapping here and nowhere
// earlier, so a failed create leaves no dangling mapping behind.
func (s *CatalogSyncer) consumePushResults(
	ctx context.Context,
	tenantID uuid.UUID,
	provider possync.ProviderCode,
	pushResults []possync.OperationResult,
	result *CatalogSyncResult,
) {
	for _, pr := range pushResults {
		op := pr.Operation
		switch pr.Status {
		case possync.OpStatusSucceeded:
			result.ItemsPushed++
			if op.Kind != possync.OpCreateObject {
				continue
			}
			err := s.recordConfirmedCreate(ctx, tenantID, provider, op.LocalItemID, pr.ProviderObjectID)
			if err != nil {
				s.logger.Error("mapping creation after confirmed remote create failed",
					zap.String("tenant_id", tenantID.String()),
					zap.String("local_item_id", op.LocalItemID.String()),
					zap.String("provider_object_id", pr.ProviderObjectID),
					zap.Error(err),
				)
				result.Errors = append(result.Errors, itemError(possync.PhaseCatalog, &op.LocalItemID, pr.ProviderObjectID, err))
			}
		case possync.OpStatusFailed:
			localID := op.LocalItemID
			result.Errors = append(result.Errors, itemError(possync.PhaseCatalog, &localID, op.ProviderObjectID, pr.Err))
		case possync.OpStatusNotAttempted:
			result.ItemsSkipped++
		}
	}
}

// recordConfirmedCreate binds a local item to the provider object the create
// call just returned. A resurrected item keeps its mapping row and only gets
// the new object ID.
func (s *CatalogSyncer) recordConfirmedCreate(
	ctx context.Context,
	tenantID uuid.UUID,
	provider possync.ProviderCode,
	localItemID uuid.UUID,
	providerObjectID string,
) error {
	existing, err := s.mappings.FindByLocalItem(ctx, tenantID, provider, localItemID)
	switch {
	case err == nil:
		existing.ProviderObjectID = providerObjectID
		existing.RecordReconciled(time.Now())
		return s.mappings.Save(ctx, existing)
	case errors.Is(err, possync.ErrMappingNotFound):
		mapping, err := possync.NewProductMapping(tenantID, provider, localItemID, providerObjectID)
		if err != nil {
			return err
		}
		return s.mappings.Upsert(ctx, mapping)
	default:
		return err
	}
}

// fetchLocalItems reads the whole catalog or just the scoped items
func (s *CatalogSyncer) fetchLocalItems(ctx context.Context, tenantID uuid.UUID, scope []uuid.UUID) ([]possync.LocalItem, error) {
	if len(scope) == 0 {
		return s.local.ListItems(ctx, tenantID)
	}
	return s.local.GetItems(ctx, tenantID, scope)
}

// fetchFullCatalog pages through the provider catalog until exhausted
func fetchFullCatalog(ctx context.Context, adapter possync.ProviderAdapter, tenantID uuid.UUID) ([]possync.RemoteObject, error) {
	var objects []possync.RemoteObject
	pageToken := ""
	for {
		page, err := adapter.FetchCatalog(ctx, tenantID, pageToken)
		if err != nil {
			return nil, err
		}
		objects = append(objects, page.Objects...)
		if page.NextPageToken == "" {
			return objects, nil
		}
		pageToken = page.NextPageToken
	}
}

func itemError(phase possync.SyncPhase, localID *uuid.UUID, providerObjectID string, err error) possync.ItemError {
	msg := "unknown failure"
	if err != nil {
		msg = err.Error()
	}
	return possync.ItemError{
		Phase:            phase,
		LocalItemID:      localID,
		ProviderObjectID: providerObjectID,
		Message:          msg,
		OccurredAt:       time.Now(),
	}
}
