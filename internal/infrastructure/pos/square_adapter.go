package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/config"
)

// maxResponseSize is the maximum allowed response size from the Square API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// squareAPIVersion pins the Connect API version this adapter was written against
const squareAPIVersion = "2024-06-04"

// salePriceAttribute is the catalog custom attribute carrying the optional
// sale price in minor units
const salePriceAttribute = "sale_price"

// SquareAdapter implements ProviderAdapter for the Square Connect v2 API
type SquareAdapter struct {
	config      config.SquareConfig
	credentials possync.CredentialService
	httpClient  *http.Client
}

// NewSquareAdapter creates a new Square adapter
func NewSquareAdapter(cfg config.SquareConfig, credentials possync.CredentialService) *SquareAdapter {
	return &SquareAdapter{
		config:      cfg,
		credentials: credentials,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Code returns the provider code this adapter handles
func (a *SquareAdapter) Code() possync.ProviderCode {
	return possync.ProviderCodeSquare
}

// Limits returns the batch and rate constraints of the Square API
func (a *SquareAdapter) Limits() possync.ProviderLimits {
	return possync.ProviderLimits{
		MaxBatchSize:      200,
		RequestsPerMinute: 300,
		PageSize:          100,
	}
}

// ---------------------------------------------------------------------------
// Catalog Operations
// ---------------------------------------------------------------------------

// FetchCatalog fetches one page of catalog items, deleted objects included
func (a *SquareAdapter) FetchCatalog(ctx context.Context, tenantID uuid.UUID, pageToken string) (*possync.CatalogPage, error) {
	path := "/v2/catalog/list?types=ITEM&include_deleted_objects=true"
	if pageToken != "" {
		path += "&cursor=" + pageToken
	}

	var resp SquareListCatalogResponse
	if err := a.doRequest(ctx, tenantID, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if err := firstError(resp.Errors); err != nil {
		return nil, err
	}

	page := &possync.CatalogPage{
		Objects:       make([]possync.RemoteObject, 0, len(resp.Objects)),
		NextPageToken: resp.Cursor,
	}
	for i := range resp.Objects {
		obj := &resp.Objects[i]
		if obj.Type != "ITEM" {
			continue
		}
		page.Objects = append(page.Objects, possync.RemoteObject{
			ProviderObjectID: obj.ID,
			Product:          catalogObjectToProduct(obj),
		})
	}
	return page, nil
}

// PushCatalogBatch sends one chunk of catalog operations. Upserts and deletes
// go through separate Square endpoints; results are reassembled in input
// order.
func (a *SquareAdapter) PushCatalogBatch(ctx context.Context, tenantID uuid.UUID, ops []possync.Operation) ([]possync.OperationResult, error) {
	var upserts, deletes []int
	for i, op := range ops {
		switch op.Kind {
		case possync.OpDeleteObject:
			deletes = append(deletes, i)
		default:
			upserts = append(upserts, i)
		}
	}

	results := make([]possync.OperationResult, len(ops))

	if len(upserts) > 0 {
		if err := a.pushUpserts(ctx, tenantID, ops, upserts, results); err != nil {
			return nil, err
		}
	}
	if len(deletes) > 0 {
		if err := a.pushDeletes(ctx, tenantID, ops, deletes, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (a *SquareAdapter) pushUpserts(ctx context.Context, tenantID uuid.UUID, ops []possync.Operation, indexes []int, results []possync.OperationResult) error {
	objects := make([]SquareCatalogObject, 0, len(indexes))
	clientIDs := make(map[string]int, len(indexes))
	for _, i := range indexes {
		obj := productToCatalogObject(&ops[i])
		objects = append(objects, obj)
		clientIDs[obj.ID] = i
	}

	req := SquareBatchUpsertRequest{
		IdempotencyKey: uuid.NewString(),
		Batches:        []SquareObjectBatch{{Objects: objects}},
	}

	var resp SquareBatchUpsertResponse
	if err := a.doRequest(ctx, tenantID, http.MethodPost, "/v2/catalog/batch-upsert", req, &resp); err != nil {
		return err
	}
	if err := firstError(resp.Errors); err != nil {
		return err
	}

	// Creates come back with server-assigned IDs keyed by the temporary
	// client object ID.
	serverIDs := make(map[string]string, len(resp.IDMappings))
	for _, m := range resp.IDMappings {
		serverIDs[m.ClientObjectID] = m.ObjectID
	}

	for clientID, i := range clientIDs {
		results[i] = possync.OperationResult{
			Operation:        ops[i],
			Status:           possync.OpStatusSucceeded,
			ProviderObjectID: ops[i].ProviderObjectID,
		}
		if serverID, ok := serverIDs[clientID]; ok {
			results[i].ProviderObjectID = serverID
		}
	}
	return nil
}

func (a *SquareAdapter) pushDeletes(ctx context.Context, tenantID uuid.UUID, ops []possync.Operation, indexes []int, results []possync.OperationResult) error {
	req := SquareBatchDeleteRequest{
		ObjectIDs: make([]string, 0, len(indexes)),
	}
	for _, i := range indexes {
		req.ObjectIDs = append(req.ObjectIDs, ops[i].ProviderObjectID)
	}

	var resp SquareBatchDeleteResponse
	if err := a.doRequest(ctx, tenantID, http.MethodPost, "/v2/catalog/batch-delete", req, &resp); err != nil {
		return err
	}
	if err := firstError(resp.Errors); err != nil {
		return err
	}

	// Square omits already-deleted objects from deleted_object_ids; both
	// cases mean the object is gone.
	for _, i := range indexes {
		results[i] = possync.OperationResult{
			Operation:        ops[i],
			Status:           possync.OpStatusSucceeded,
			ProviderObjectID: ops[i].ProviderObjectID,
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Inventory Operations
// ---------------------------------------------------------------------------

// FetchInventory fetches current stock counts, following the cursor until
// exhausted. Empty locationIDs means all locations.
func (a *SquareAdapter) FetchInventory(ctx context.Context, tenantID uuid.UUID, locationIDs []string) ([]possync.CanonicalStockCount, error) {
	var counts []possync.CanonicalStockCount
	cursor := ""

	for {
		req := SquareBatchRetrieveCountsRequest{
			LocationIDs: locationIDs,
			Cursor:      cursor,
		}
		var resp SquareBatchRetrieveCountsResponse
		if err := a.doRequest(ctx, tenantID, http.MethodPost, "/v2/inventory/counts/batch-retrieve", req, &resp); err != nil {
			return nil, err
		}
		if err := firstError(resp.Errors); err != nil {
			return nil, err
		}

		for _, c := range resp.Counts {
			if c.State != "" && c.State != "IN_STOCK" {
				continue
			}
			count, err := inventoryCountToCanonical(&c)
			if err != nil {
				return nil, err
			}
			counts = append(counts, count)
		}

		if resp.Cursor == "" {
			return counts, nil
		}
		cursor = resp.Cursor
	}
}

// PushInventoryBatch sends one chunk of stock-count operations as physical
// counts
func (a *SquareAdapter) PushInventoryBatch(ctx context.Context, tenantID uuid.UUID, ops []possync.Operation) ([]possync.OperationResult, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	req := SquareBatchChangeInventoryRequest{
		IdempotencyKey: uuid.NewString(),
		Changes:        make([]SquareInventoryChange, 0, len(ops)),
	}
	for _, op := range ops {
		req.Changes = append(req.Changes, SquareInventoryChange{
			Type: "PHYSICAL_COUNT",
			PhysicalCount: &SquarePhysicalCount{
				CatalogObjectID: op.ProviderObjectID,
				LocationID:      op.LocationID,
				State:           "IN_STOCK",
				Quantity:        op.Quantity.String(),
				OccurredAt:      now,
			},
		})
	}

	var resp SquareBatchChangeInventoryResponse
	if err := a.doRequest(ctx, tenantID, http.MethodPost, "/v2/inventory/changes/batch-create", req, &resp); err != nil {
		return nil, err
	}
	if err := firstError(resp.Errors); err != nil {
		return nil, err
	}

	results := make([]possync.OperationResult, len(ops))
	for i, op := range ops {
		results[i] = possync.OperationResult{
			Operation:        op,
			Status:           possync.OpStatusSucceeded,
			ProviderObjectID: op.ProviderObjectID,
		}
	}
	return results, nil
}

// ---------------------------------------------------------------------------
// Webhook Decoding
// ---------------------------------------------------------------------------

// DecodeWebhookEvent parses a Square webhook delivery into a provider-neutral
// event
func (a *SquareAdapter) DecodeWebhookEvent(payload []byte) (*possync.WebhookEvent, error) {
	var envelope SquareWebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("square: failed to parse webhook payload: %w", err)
	}
	if envelope.EventID == "" {
		return nil, fmt.Errorf("square: webhook payload missing event_id")
	}

	event := &possync.WebhookEvent{
		Provider: possync.ProviderCodeSquare,
		EventID:  envelope.EventID,
	}
	if t, err := time.Parse(time.RFC3339, envelope.CreatedAt); err == nil {
		event.OccurredAt = t
	}

	switch envelope.Type {
	case "catalog.version.updated":
		// Square does not name the changed objects; a full reconcile pass
		// picks them up.
		event.Kind = possync.EventCatalogUpdated
	case "inventory.count.updated":
		event.Kind = possync.EventInventoryUpdated
		if envelope.Data != nil && envelope.Data.Object != nil {
			for _, c := range envelope.Data.Object.InventoryCounts {
				event.ProviderObjectIDs = append(event.ProviderObjectIDs, c.CatalogObjectID)
			}
		}
	default:
		event.Kind = possync.EventUnknown
	}
	return event, nil
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// catalogObjectToProduct maps a Square ITEM object onto the canonical product
// shape. The first variation carries SKU and price.
func catalogObjectToProduct(obj *SquareCatalogObject) possync.CanonicalProduct {
	product := possync.CanonicalProduct{
		Source: possync.SourceProvider,
	}
	if t, err := time.Parse(time.RFC3339, obj.UpdatedAt); err == nil {
		product.LastModified = t
	}
	if obj.IsDeleted {
		deletedAt := product.LastModified
		product.DeletedAt = &deletedAt
	}
	if obj.ItemData != nil {
		product.Name = obj.ItemData.Name
		product.Description = obj.ItemData.Description
		if len(obj.ItemData.Variations) > 0 {
			if v := obj.ItemData.Variations[0].ItemVariationData; v != nil {
				product.SKU = v.SKU
				if v.PriceMoney != nil {
					product.UnitPrice = v.PriceMoney.Amount
				}
				product.ProviderPriced = v.PricingType == "VARIABLE_PRICING"
			}
		}
	}
	if attr, ok := obj.CustomAttributeValues[salePriceAttribute]; ok {
		if amount, err := strconv.ParseInt(attr.NumberValue, 10, 64); err == nil {
			product.SalePrice = &amount
		}
	}
	return product
}

// productToCatalogObject builds the upsert payload for a create or update
// operation. Creates use temporary client IDs that Square maps to server IDs
// in the response.
func productToCatalogObject(op *possync.Operation) SquareCatalogObject {
	objectID := op.ProviderObjectID
	variationID := objectID + "-regular"
	if op.Kind == possync.OpCreateObject {
		objectID = "#" + op.LocalItemID.String()
		variationID = objectID + "-regular"
	}

	product := op.Product
	obj := SquareCatalogObject{
		Type: "ITEM",
		ID:   objectID,
		ItemData: &SquareItemData{
			Name:        product.Name,
			Description: product.Description,
			Variations: []SquareCatalogObject{
				{
					Type: "ITEM_VARIATION",
					ID:   variationID,
					ItemVariationData: &SquareItemVariationData{
						ItemID:      objectID,
						Name:        "Regular",
						SKU:         product.SKU,
						PricingType: "FIXED_PRICING",
						PriceMoney: &SquareMoney{
							Amount:   product.UnitPrice,
							Currency: "USD",
						},
					},
				},
			},
		},
	}
	if product.SalePrice != nil {
		obj.CustomAttributeValues = map[string]SquareCustomAttributeValue{
			salePriceAttribute: {
				Name:        salePriceAttribute,
				NumberValue: strconv.FormatInt(*product.SalePrice, 10),
			},
		}
	}
	return obj
}

// inventoryCountToCanonical converts a Square count into the canonical shape
func inventoryCountToCanonical(c *SquareInventoryCount) (possync.CanonicalStockCount, error) {
	qty, err := decimal.NewFromString(c.Quantity)
	if err != nil {
		return possync.CanonicalStockCount{}, fmt.Errorf("square: invalid quantity %q for object %s: %w", c.Quantity, c.CatalogObjectID, err)
	}
	count := possync.CanonicalStockCount{
		ProviderObjectID: c.CatalogObjectID,
		LocationID:       c.LocationID,
		Quantity:         qty,
	}
	if t, err := time.Parse(time.RFC3339, c.CalculatedAt); err == nil {
		count.AsOf = t
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------------

// doRequest performs one authenticated request against the Square API and
// decodes the JSON response into out.
func (a *SquareAdapter) doRequest(ctx context.Context, tenantID uuid.UUID, method, path string, body any, out any) error {
	token, err := a.credentials.GetValidToken(ctx, tenantID, possync.ProviderCodeSquare)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("square: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("square: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Square-Version", squareAPIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", possync.ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("square: failed to read response: %w", err)
	}

	if err := classifyStatus(resp.StatusCode); err != nil {
		return fmt.Errorf("%w: HTTP %d: %s", err, resp.StatusCode, truncate(respBody, 256))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("square: failed to parse response: %w", err)
		}
	}
	return nil
}

// classifyStatus maps HTTP status codes onto the domain error taxonomy
func classifyStatus(status int) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return possync.ErrCredentialUnavailable
	case status == http.StatusTooManyRequests:
		return possync.ErrRateLimited
	case status >= 500:
		return possync.ErrProviderUnreachable
	default:
		return possync.ErrValidationRejected
	}
}

// firstError surfaces the first API-level error in a Square response
func firstError(errs []SquareError) error {
	if len(errs) == 0 {
		return nil
	}
	e := errs[0]
	var kind error
	switch e.Code {
	case "RATE_LIMITED":
		kind = possync.ErrRateLimited
	case "UNAUTHORIZED", "ACCESS_TOKEN_EXPIRED", "ACCESS_TOKEN_REVOKED":
		kind = possync.ErrCredentialUnavailable
	case "SERVICE_UNAVAILABLE", "INTERNAL_SERVER_ERROR", "GATEWAY_TIMEOUT":
		kind = possync.ErrProviderUnreachable
	default:
		kind = possync.ErrValidationRejected
	}
	return fmt.Errorf("%w: %s: %s", kind, e.Code, e.Detail)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Ensure SquareAdapter implements the provider ports
var (
	_ possync.ProviderAdapter = (*SquareAdapter)(nil)
	_ possync.WebhookDecoder  = (*SquareAdapter)(nil)
)
