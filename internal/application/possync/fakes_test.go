package possync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/posbridge/backend/internal/domain/possync"
)

// ---------------------------------------------------------------------------
// In-memory repositories and ports for engine tests
// ---------------------------------------------------------------------------

type memMappingRepo struct {
	mu       sync.Mutex
	mappings map[uuid.UUID]*possync.ProductMapping
}

func newMemMappingRepo() *memMappingRepo {
	return &memMappingRepo{mappings: make(map[uuid.UUID]*possync.ProductMapping)}
}

func (r *memMappingRepo) Upsert(_ context.Context, m *possync.ProductMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.mappings {
		if existing.TenantID != m.TenantID || existing.Provider != m.Provider {
			continue
		}
		samePair := existing.LocalItemID == m.LocalItemID && existing.ProviderObjectID == m.ProviderObjectID
		if samePair {
			return nil
		}
		if existing.LocalItemID == m.LocalItemID || existing.ProviderObjectID == m.ProviderObjectID {
			return possync.ErrMappingConflict
		}
	}
	cp := *m
	r.mappings[m.ID] = &cp
	return nil
}

func (r *memMappingRepo) Save(_ context.Context, m *possync.ProductMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.mappings[m.ID] = &cp
	return nil
}

func (r *memMappingRepo) FindByLocalItem(_ context.Context, tenantID uuid.UUID, provider possync.ProviderCode, localItemID uuid.UUID) (*possync.ProductMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.mappings {
		if m.TenantID == tenantID && m.Provider == provider && m.LocalItemID == localItemID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, possync.ErrMappingNotFound
}

func (r *memMappingRepo) FindByProviderObject(_ context.Context, tenantID uuid.UUID, provider possync.ProviderCode, providerObjectID string) (*possync.ProductMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.mappings {
		if m.TenantID == tenantID && m.Provider == provider && m.ProviderObjectID == providerObjectID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, possync.ErrMappingNotFound
}

func (r *memMappingRepo) FindAll(_ context.Context, tenantID uuid.UUID, _ possync.ProductMappingFilter) ([]possync.ProductMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []possync.ProductMapping
	for _, m := range r.mappings {
		if m.TenantID == tenantID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memMappingRepo) FindForSync(_ context.Context, tenantID uuid.UUID, provider possync.ProviderCode, scopeIDs []uuid.UUID) ([]possync.ProductMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scoped := make(map[uuid.UUID]bool, len(scopeIDs))
	for _, id := range scopeIDs {
		scoped[id] = true
	}
	var out []possync.ProductMapping
	for _, m := range r.mappings {
		if m.TenantID != tenantID || m.Provider != provider {
			continue
		}
		if len(scopeIDs) > 0 && !scoped[m.LocalItemID] {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *memMappingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, id)
	return nil
}

func (r *memMappingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mappings)
}

type memLocalCatalog struct {
	mu    sync.Mutex
	items map[uuid.UUID]*possync.CanonicalProduct
}

func newMemLocalCatalog() *memLocalCatalog {
	return &memLocalCatalog{items: make(map[uuid.UUID]*possync.CanonicalProduct)}
}

func (c *memLocalCatalog) put(id uuid.UUID, p possync.CanonicalProduct) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = &p
}

func (c *memLocalCatalog) get(id uuid.UUID) *possync.CanonicalProduct {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.items[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (c *memLocalCatalog) ListItems(_ context.Context, _ uuid.UUID) ([]possync.LocalItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]possync.LocalItem, 0, len(c.items))
	for id, p := range c.items {
		cp := *p
		out = append(out, possync.LocalItem{ID: id, Product: &cp})
	}
	return out, nil
}

func (c *memLocalCatalog) GetItems(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]possync.LocalItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []possync.LocalItem
	for _, id := range ids {
		if p, ok := c.items[id]; ok {
			cp := *p
			out = append(out, possync.LocalItem{ID: id, Product: &cp})
		}
	}
	return out, nil
}

func (c *memLocalCatalog) UpsertItem(_ context.Context, _ uuid.UUID, id uuid.UUID, product possync.CanonicalProduct) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == uuid.Nil {
		id = uuid.New()
	}
	cp := product
	c.items[id] = &cp
	return id, nil
}

func (c *memLocalCatalog) DeleteItem(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.items[id]; ok && !p.IsDeleted() {
		now := time.Now()
		p.DeletedAt = &now
	}
	return nil
}

func (c *memLocalCatalog) SetQuantity(_ context.Context, _ uuid.UUID, id uuid.UUID, qty decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.items[id]; ok {
		p.StockQuantity = qty
	}
	return nil
}

type memStockLevelRepo struct {
	mu     sync.Mutex
	levels map[uuid.UUID]*possync.StockLevel
}

func newMemStockLevelRepo() *memStockLevelRepo {
	return &memStockLevelRepo{levels: make(map[uuid.UUID]*possync.StockLevel)}
}

func (r *memStockLevelRepo) Save(_ context.Context, level *possync.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *level
	r.levels[level.ID] = &cp
	return nil
}

func (r *memStockLevelRepo) FindByMappingAndLocation(_ context.Context, tenantID, mappingID uuid.UUID, locationID string) (*possync.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.levels {
		if l.TenantID == tenantID && l.MappingID == mappingID && l.LocationID == locationID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, possync.ErrStockLevelNotFound
}

func (r *memStockLevelRepo) FindByMappings(_ context.Context, tenantID uuid.UUID, mappingIDs []uuid.UUID) ([]possync.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(mappingIDs))
	for _, id := range mappingIDs {
		wanted[id] = true
	}
	var out []possync.StockLevel
	for _, l := range r.levels {
		if l.TenantID == tenantID && wanted[l.MappingID] {
			out = append(out, *l)
		}
	}
	return out, nil
}

type memIntegrationRepo struct {
	mu           sync.Mutex
	integrations map[uuid.UUID]*possync.Integration
}

func newMemIntegrationRepo() *memIntegrationRepo {
	return &memIntegrationRepo{integrations: make(map[uuid.UUID]*possync.Integration)}
}

func (r *memIntegrationRepo) Save(_ context.Context, integ *possync.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.integrations {
		if existing.ID != integ.ID && existing.TenantID == integ.TenantID && existing.Provider == integ.Provider {
			return possync.ErrIntegrationAlreadyExists
		}
	}
	cp := *integ
	r.integrations[integ.ID] = &cp
	return nil
}

func (r *memIntegrationRepo) FindByTenantAndProvider(_ context.Context, tenantID uuid.UUID, provider possync.ProviderCode) (*possync.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.integrations {
		if i.TenantID == tenantID && i.Provider == provider {
			cp := *i
			return &cp, nil
		}
	}
	return nil, possync.ErrIntegrationNotFound
}

func (r *memIntegrationRepo) FindActive(_ context.Context) ([]possync.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []possync.Integration
	for _, i := range r.integrations {
		if i.IsActive {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *memIntegrationRepo) FindByTenant(_ context.Context, tenantID uuid.UUID) ([]possync.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []possync.Integration
	for _, i := range r.integrations {
		if i.TenantID == tenantID {
			out = append(out, *i)
		}
	}
	return out, nil
}

type memSyncLogRepo struct {
	mu   sync.Mutex
	logs map[uuid.UUID]*possync.SyncLog
}

func newMemSyncLogRepo() *memSyncLogRepo {
	return &memSyncLogRepo{logs: make(map[uuid.UUID]*possync.SyncLog)}
}

func (r *memSyncLogRepo) Create(_ context.Context, log *possync.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *log
	r.logs[log.ID] = &cp
	return nil
}

func (r *memSyncLogRepo) Update(_ context.Context, log *possync.SyncLog) error {
	return r.Create(context.Background(), log)
}

func (r *memSyncLogRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*possync.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.logs[id]; ok && l.TenantID == tenantID {
		cp := *l
		return &cp, nil
	}
	return nil, possync.ErrSyncLogNotFound
}

func (r *memSyncLogRepo) FindAll(_ context.Context, tenantID uuid.UUID, _ possync.SyncLogFilter) ([]possync.SyncLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []possync.SyncLog
	for _, l := range r.logs {
		if l.TenantID == tenantID {
			out = append(out, *l)
		}
	}
	return out, int64(len(out)), nil
}

type memRunLock struct {
	mu    sync.Mutex
	locks map[string]string
}

func newMemRunLock() *memRunLock {
	return &memRunLock{locks: make(map[string]string)}
}

func (l *memRunLock) key(tenantID uuid.UUID, provider possync.ProviderCode) string {
	return tenantID.String() + "|" + string(provider)
}

func (l *memRunLock) Acquire(_ context.Context, tenantID uuid.UUID, provider possync.ProviderCode, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(tenantID, provider)
	if _, held := l.locks[k]; held {
		return "", possync.ErrSyncInProgress
	}
	token := uuid.NewString()
	l.locks[k] = token
	return token, nil
}

func (l *memRunLock) Release(_ context.Context, tenantID uuid.UUID, provider possync.ProviderCode, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(tenantID, provider)
	if l.locks[k] == token {
		delete(l.locks, k)
	}
	return nil
}

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDedup() *memDedup {
	return &memDedup{seen: make(map[string]bool)}
}

func (d *memDedup) MarkProcessed(_ context.Context, provider possync.ProviderCode, eventID string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := string(provider) + "|" + eventID
	if d.seen[k] {
		return false, nil
	}
	d.seen[k] = true
	return true, nil
}

// ---------------------------------------------------------------------------
// fakeAdapter
// ---------------------------------------------------------------------------

type fakeAdapter struct {
	mu sync.Mutex

	code      possync.ProviderCode
	limits    possync.ProviderLimits
	catalog   []possync.RemoteObject
	inventory []possync.CanonicalStockCount

	catalogPushes   [][]possync.Operation
	inventoryPushes [][]possync.Operation

	// pushCatalogFn overrides the default accept-everything behavior
	pushCatalogFn   func(ops []possync.Operation) ([]possync.OperationResult, error)
	pushInventoryFn func(ops []possync.Operation) ([]possync.OperationResult, error)

	webhookEvent *possync.WebhookEvent
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		code:   possync.ProviderCodeSquare,
		limits: possync.ProviderLimits{MaxBatchSize: 100, RequestsPerMinute: 0, PageSize: 100},
	}
}

func (a *fakeAdapter) Code() possync.ProviderCode     { return a.code }
func (a *fakeAdapter) Limits() possync.ProviderLimits { return a.limits }

func (a *fakeAdapter) FetchCatalog(_ context.Context, _ uuid.UUID, pageToken string) (*possync.CatalogPage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pageToken != "" {
		return &possync.CatalogPage{}, nil
	}
	return &possync.CatalogPage{Objects: append([]possync.RemoteObject(nil), a.catalog...)}, nil
}

func (a *fakeAdapter) PushCatalogBatch(_ context.Context, _ uuid.UUID, ops []possync.Operation) ([]possync.OperationResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.catalogPushes = append(a.catalogPushes, ops)
	if a.pushCatalogFn != nil {
		return a.pushCatalogFn(ops)
	}
	return acceptAll(ops), nil
}

func (a *fakeAdapter) FetchInventory(_ context.Context, _ uuid.UUID, _ []string) ([]possync.CanonicalStockCount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]possync.CanonicalStockCount(nil), a.inventory...), nil
}

func (a *fakeAdapter) PushInventoryBatch(_ context.Context, _ uuid.UUID, ops []possync.Operation) ([]possync.OperationResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inventoryPushes = append(a.inventoryPushes, ops)
	if a.pushInventoryFn != nil {
		return a.pushInventoryFn(ops)
	}
	return acceptAll(ops), nil
}

func (a *fakeAdapter) DecodeWebhookEvent(_ []byte) (*possync.WebhookEvent, error) {
	if a.webhookEvent != nil {
		cp := *a.webhookEvent
		return &cp, nil
	}
	return &possync.WebhookEvent{Kind: possync.EventUnknown}, nil
}

func acceptAll(ops []possync.Operation) []possync.OperationResult {
	results := make([]possync.OperationResult, len(ops))
	for i, op := range ops {
		results[i] = possync.OperationResult{
			Operation:        op,
			Status:           possync.OpStatusSucceeded,
			ProviderObjectID: op.ProviderObjectID,
		}
		if op.Kind == possync.OpCreateObject {
			results[i].ProviderObjectID = "GEN-" + op.LocalItemID.String()[:8]
		}
	}
	return results
}

type fakeRegistry struct {
	adapter possync.ProviderAdapter
}

func (r *fakeRegistry) GetAdapter(code possync.ProviderCode) (possync.ProviderAdapter, error) {
	if r.adapter != nil && r.adapter.Code() == code {
		return r.adapter, nil
	}
	return nil, possync.ErrInvalidProviderCode
}

func (r *fakeRegistry) ListAdapters() []possync.ProviderAdapter {
	if r.adapter == nil {
		return nil
	}
	return []possync.ProviderAdapter{r.adapter}
}

type fakeCredentials struct {
	token  string
	secret string
	err    error
}

func (c *fakeCredentials) GetValidToken(_ context.Context, _ uuid.UUID, _ possync.ProviderCode) (string, error) {
	return c.token, c.err
}

func (c *fakeCredentials) WebhookSecret(_ context.Context, _ uuid.UUID, _ possync.ProviderCode) (string, error) {
	return c.secret, c.err
}
