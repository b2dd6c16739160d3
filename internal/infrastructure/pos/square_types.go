package pos

// Wire types for the Square Connect v2 API. Only the fields the sync engine
// reads are declared.

// SquareError is one error entry in a Square error response
type SquareError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail,omitempty"`
	Field    string `json:"field,omitempty"`
}

// SquareMoney represents a money amount in minor units
type SquareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// SquareCustomAttributeValue is the value side of a catalog custom attribute
type SquareCustomAttributeValue struct {
	Name        string `json:"name,omitempty"`
	StringValue string `json:"string_value,omitempty"`
	NumberValue string `json:"number_value,omitempty"`
}

// SquareItemVariationData carries the sellable variation of an item
type SquareItemVariationData struct {
	ItemID      string       `json:"item_id,omitempty"`
	Name        string       `json:"name,omitempty"`
	SKU         string       `json:"sku,omitempty"`
	PricingType string       `json:"pricing_type,omitempty"`
	PriceMoney  *SquareMoney `json:"price_money,omitempty"`
}

// SquareItemData is the item payload of a catalog object
type SquareItemData struct {
	Name        string                `json:"name,omitempty"`
	Description string                `json:"description,omitempty"`
	Variations  []SquareCatalogObject `json:"variations,omitempty"`
}

// SquareCatalogObject is a node in the Square catalog tree. Items nest their
// variations as child objects of type ITEM_VARIATION.
type SquareCatalogObject struct {
	Type                  string                                `json:"type"`
	ID                    string                                `json:"id"`
	UpdatedAt             string                                `json:"updated_at,omitempty"`
	Version               int64                                 `json:"version,omitempty"`
	IsDeleted             bool                                  `json:"is_deleted,omitempty"`
	ItemData              *SquareItemData                       `json:"item_data,omitempty"`
	ItemVariationData     *SquareItemVariationData              `json:"item_variation_data,omitempty"`
	CustomAttributeValues map[string]SquareCustomAttributeValue `json:"custom_attribute_values,omitempty"`
}

// SquareListCatalogResponse is the response of GET /v2/catalog/list
type SquareListCatalogResponse struct {
	Errors  []SquareError         `json:"errors,omitempty"`
	Cursor  string                `json:"cursor,omitempty"`
	Objects []SquareCatalogObject `json:"objects,omitempty"`
}

// SquareBatchUpsertRequest is the request of POST /v2/catalog/batch-upsert
type SquareBatchUpsertRequest struct {
	IdempotencyKey string              `json:"idempotency_key"`
	Batches        []SquareObjectBatch `json:"batches"`
}

// SquareObjectBatch groups objects in a batch upsert request
type SquareObjectBatch struct {
	Objects []SquareCatalogObject `json:"objects"`
}

// SquareIDMapping maps a client-assigned temporary ID to the server ID
type SquareIDMapping struct {
	ClientObjectID string `json:"client_object_id"`
	ObjectID       string `json:"object_id"`
}

// SquareBatchUpsertResponse is the response of POST /v2/catalog/batch-upsert
type SquareBatchUpsertResponse struct {
	Errors     []SquareError         `json:"errors,omitempty"`
	Objects    []SquareCatalogObject `json:"objects,omitempty"`
	IDMappings []SquareIDMapping     `json:"id_mappings,omitempty"`
}

// SquareBatchDeleteRequest is the request of POST /v2/catalog/batch-delete
type SquareBatchDeleteRequest struct {
	ObjectIDs []string `json:"object_ids"`
}

// SquareBatchDeleteResponse is the response of POST /v2/catalog/batch-delete
type SquareBatchDeleteResponse struct {
	Errors           []SquareError `json:"errors,omitempty"`
	DeletedObjectIDs []string      `json:"deleted_object_ids,omitempty"`
}

// SquareInventoryCount is one (object, location) stock count
type SquareInventoryCount struct {
	CatalogObjectID string `json:"catalog_object_id"`
	LocationID      string `json:"location_id"`
	State           string `json:"state,omitempty"`
	Quantity        string `json:"quantity"`
	CalculatedAt    string `json:"calculated_at,omitempty"`
}

// SquareBatchRetrieveCountsRequest is the request of
// POST /v2/inventory/counts/batch-retrieve
type SquareBatchRetrieveCountsRequest struct {
	CatalogObjectIDs []string `json:"catalog_object_ids,omitempty"`
	LocationIDs      []string `json:"location_ids,omitempty"`
	Cursor           string   `json:"cursor,omitempty"`
}

// SquareBatchRetrieveCountsResponse is the response of
// POST /v2/inventory/counts/batch-retrieve
type SquareBatchRetrieveCountsResponse struct {
	Errors []SquareError          `json:"errors,omitempty"`
	Counts []SquareInventoryCount `json:"counts,omitempty"`
	Cursor string                 `json:"cursor,omitempty"`
}

// SquarePhysicalCount sets the absolute quantity of an object at a location
type SquarePhysicalCount struct {
	CatalogObjectID string `json:"catalog_object_id"`
	LocationID      string `json:"location_id"`
	State           string `json:"state"`
	Quantity        string `json:"quantity"`
	OccurredAt      string `json:"occurred_at"`
}

// SquareInventoryChange wraps one inventory adjustment
type SquareInventoryChange struct {
	Type          string               `json:"type"`
	PhysicalCount *SquarePhysicalCount `json:"physical_count,omitempty"`
}

// SquareBatchChangeInventoryRequest is the request of
// POST /v2/inventory/changes/batch-create
type SquareBatchChangeInventoryRequest struct {
	IdempotencyKey string                  `json:"idempotency_key"`
	Changes        []SquareInventoryChange `json:"changes"`
}

// SquareBatchChangeInventoryResponse is the response of
// POST /v2/inventory/changes/batch-create
type SquareBatchChangeInventoryResponse struct {
	Errors []SquareError          `json:"errors,omitempty"`
	Counts []SquareInventoryCount `json:"counts,omitempty"`
}

// SquareWebhookEnvelope is the top-level webhook delivery payload
type SquareWebhookEnvelope struct {
	MerchantID string             `json:"merchant_id"`
	Type       string             `json:"type"`
	EventID    string             `json:"event_id"`
	CreatedAt  string             `json:"created_at"`
	Data       *SquareWebhookData `json:"data,omitempty"`
}

// SquareWebhookData carries the event-specific object
type SquareWebhookData struct {
	Type   string               `json:"type,omitempty"`
	ID     string               `json:"id,omitempty"`
	Object *SquareWebhookObject `json:"object,omitempty"`
}

// SquareWebhookObject holds the payload variants the engine reacts to
type SquareWebhookObject struct {
	CatalogVersion  *SquareCatalogVersion  `json:"catalog_version,omitempty"`
	InventoryCounts []SquareInventoryCount `json:"inventory_counts,omitempty"`
}

// SquareCatalogVersion is the catalog.version.updated payload
type SquareCatalogVersion struct {
	UpdatedAt string `json:"updated_at"`
}
