package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	possyncapp "github.com/posbridge/backend/internal/application/possync"
	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/interfaces/http/dto"
)

// MockSyncTrigger implements SyncTrigger for testing
type MockSyncTrigger struct {
	mock.Mock
}

func (m *MockSyncTrigger) TriggerFullSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode) (*possync.SyncLog, error) {
	args := m.Called(ctx, tenantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*possync.SyncLog), args.Error(1)
}

func (m *MockSyncTrigger) TriggerIncrementalSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, scope []uuid.UUID) (*possync.SyncLog, error) {
	args := m.Called(ctx, tenantID, provider, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*possync.SyncLog), args.Error(1)
}

// MockSyncLogRepository implements possync.SyncLogRepository for testing
type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) Create(ctx context.Context, log *possync.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSyncLogRepository) Update(ctx context.Context, log *possync.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSyncLogRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*possync.SyncLog, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*possync.SyncLog), args.Error(1)
}

func (m *MockSyncLogRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter possync.SyncLogFilter) ([]possync.SyncLog, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]possync.SyncLog), args.Get(1).(int64), args.Error(2)
}

// MockMappingRepository implements possync.ProductMappingRepository for testing
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) Upsert(ctx context.Context, mapping *possync.ProductMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) Save(ctx context.Context, mapping *possync.ProductMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) FindByLocalItem(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, localItemID uuid.UUID) (*possync.ProductMapping, error) {
	args := m.Called(ctx, tenantID, provider, localItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*possync.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) FindByProviderObject(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, providerObjectID string) (*possync.ProductMapping, error) {
	args := m.Called(ctx, tenantID, provider, providerObjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*possync.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter possync.ProductMappingFilter) ([]possync.ProductMapping, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]possync.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) FindForSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, scopeIDs []uuid.UUID) ([]possync.ProductMapping, error) {
	args := m.Called(ctx, tenantID, provider, scopeIDs)
	return args.Get(0).([]possync.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newSyncTestRouter(trigger SyncTrigger, logRepo possync.SyncLogRepository, mappingRepo possync.ProductMappingRepository) *gin.Engine {
	h := NewSyncHandler(
		trigger,
		possyncapp.NewSyncLogQueryService(logRepo),
		possyncapp.NewMappingQueryService(mappingRepo),
	)

	router := gin.New()
	router.POST("/sync/:provider/full", h.TriggerFull)
	router.POST("/sync/:provider/incremental", h.TriggerIncremental)
	router.GET("/sync/logs", h.ListLogs)
	router.GET("/sync/logs/:id", h.GetLog)
	router.GET("/sync/mappings", h.ListMappings)
	return router
}

func newRunningLog(t *testing.T, tenantID uuid.UUID) *possync.SyncLog {
	t.Helper()
	log, err := possync.NewSyncLog(tenantID, possync.ProviderCodeSquare, possync.TriggerFull)
	require.NoError(t, err)
	return log
}

func TestSyncHandlerTriggerFull(t *testing.T) {
	tenantID := uuid.New()

	t.Run("accepted", func(t *testing.T) {
		trigger := new(MockSyncTrigger)
		log := newRunningLog(t, tenantID)
		trigger.On("TriggerFullSync", mock.Anything, tenantID, possync.ProviderCodeSquare).Return(log, nil)

		router := newSyncTestRouter(trigger, new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sync/square/full", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, log.ID.String(), data["id"])
		assert.Equal(t, "running", data["status"])
		assert.Equal(t, "full", data["trigger"])
		trigger.AssertExpectations(t)
	})

	t.Run("conflict when a run is in progress", func(t *testing.T) {
		trigger := new(MockSyncTrigger)
		trigger.On("TriggerFullSync", mock.Anything, tenantID, possync.ProviderCodeSquare).
			Return(nil, possync.ErrSyncInProgress)

		router := newSyncTestRouter(trigger, new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sync/square/full", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeSyncInProgress, resp.Error.Code)
	})

	t.Run("unprocessable when integration is inactive", func(t *testing.T) {
		trigger := new(MockSyncTrigger)
		trigger.On("TriggerFullSync", mock.Anything, tenantID, possync.ProviderCodeSquare).
			Return(nil, possync.ErrIntegrationInactive)

		router := newSyncTestRouter(trigger, new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sync/square/full", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("not found when integration is missing", func(t *testing.T) {
		trigger := new(MockSyncTrigger)
		trigger.On("TriggerFullSync", mock.Anything, tenantID, possync.ProviderCodeSquare).
			Return(nil, possync.ErrIntegrationNotFound)

		router := newSyncTestRouter(trigger, new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sync/square/full", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad request for unknown provider", func(t *testing.T) {
		trigger := new(MockSyncTrigger)

		router := newSyncTestRouter(trigger, new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sync/vend/full", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		trigger.AssertNotCalled(t, "TriggerFullSync")
	})

	t.Run("bad request without tenant header", func(t *testing.T) {
		trigger := new(MockSyncTrigger)

		router := newSyncTestRouter(trigger, new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sync/square/full", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandlerTriggerIncremental(t *testing.T) {
	tenantID := uuid.New()

	t.Run("scoped run", func(t *testing.T) {
		itemA := uuid.New()
		itemB := uuid.New()
		trigger := new(MockSyncTrigger)
		log := newRunningLog(t, tenantID)
		trigger.On("TriggerIncrementalSync", mock.Anything, tenantID, possync.ProviderCodeSquare, []uuid.UUID{itemA, itemB}).
			Return(log, nil)

		body, _ := json.Marshal(TriggerIncrementalRequest{
			ItemIDs: []string{itemA.String(), itemB.String()},
		})

		router := newSyncTestRouter(trigger, new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sync/square/incremental", bytes.NewReader(body))
		req.Header.Set(TenantIDHeader, tenantID.String())
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		trigger.AssertExpectations(t)
	})

	t.Run("empty body means full scope", func(t *testing.T) {
		trigger := new(MockSyncTrigger)
		log := newRunningLog(t, tenantID)
		trigger.On("TriggerIncrementalSync", mock.Anything, tenantID, possync.ProviderCodeSquare, []uuid.UUID{}).
			Return(log, nil)

		router := newSyncTestRouter(trigger, new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sync/square/incremental", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		trigger.AssertExpectations(t)
	})

	t.Run("bad request for malformed item ID", func(t *testing.T) {
		trigger := new(MockSyncTrigger)

		body := []byte(`{"item_ids": ["not-a-uuid"]}`)
		router := newSyncTestRouter(trigger, new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sync/square/incremental", bytes.NewReader(body))
		req.Header.Set(TenantIDHeader, tenantID.String())
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		trigger.AssertNotCalled(t, "TriggerIncrementalSync")
	})
}

func TestSyncHandlerGetLog(t *testing.T) {
	tenantID := uuid.New()

	t.Run("found", func(t *testing.T) {
		log := newRunningLog(t, tenantID)
		log.Counts.ItemsExamined = 50
		log.Complete()

		logRepo := new(MockSyncLogRepository)
		logRepo.On("FindByID", mock.Anything, tenantID, log.ID).Return(log, nil)

		router := newSyncTestRouter(new(MockSyncTrigger), logRepo, new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/sync/logs/"+log.ID.String(), nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "completed", data["status"])
	})

	t.Run("not found", func(t *testing.T) {
		logRepo := new(MockSyncLogRepository)
		logRepo.On("FindByID", mock.Anything, tenantID, mock.Anything).
			Return(nil, possync.ErrSyncLogNotFound)

		router := newSyncTestRouter(new(MockSyncTrigger), logRepo, new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/sync/logs/"+uuid.NewString(), nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad request for malformed ID", func(t *testing.T) {
		router := newSyncTestRouter(new(MockSyncTrigger), new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/sync/logs/nope", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandlerListLogs(t *testing.T) {
	tenantID := uuid.New()

	t.Run("defaults and meta", func(t *testing.T) {
		logA := newRunningLog(t, tenantID)
		logB := newRunningLog(t, tenantID)
		logB.Complete()

		logRepo := new(MockSyncLogRepository)
		logRepo.On("FindAll", mock.Anything, tenantID, mock.MatchedBy(func(f possync.SyncLogFilter) bool {
			return f.Page == 1 && f.PageSize == 20 && f.Provider == nil
		})).Return([]possync.SyncLog{*logB, *logA}, int64(2), nil)

		router := newSyncTestRouter(new(MockSyncTrigger), logRepo, new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/sync/logs", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(2), resp.Meta.Total)
		assert.Equal(t, 1, resp.Meta.Page)
	})

	t.Run("filters are forwarded", func(t *testing.T) {
		since := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)

		logRepo := new(MockSyncLogRepository)
		logRepo.On("FindAll", mock.Anything, tenantID, mock.MatchedBy(func(f possync.SyncLogFilter) bool {
			return f.Provider != nil && *f.Provider == possync.ProviderCodeSquare &&
				f.Status != nil && *f.Status == possync.SyncStatusFailed &&
				f.Trigger != nil && *f.Trigger == possync.TriggerIncremental &&
				f.Since != nil && f.Since.Equal(since) &&
				f.Page == 2 && f.PageSize == 5
		})).Return([]possync.SyncLog{}, int64(0), nil)

		router := newSyncTestRouter(new(MockSyncTrigger), logRepo, new(MockMappingRepository))
		w := httptest.NewRecorder()
		url := "/sync/logs?provider=square&status=failed&trigger=incremental&page=2&page_size=5&since=" + since.Format(time.RFC3339)
		req := httptest.NewRequest("GET", url, nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		logRepo.AssertExpectations(t)
	})

	t.Run("bad request for invalid status filter", func(t *testing.T) {
		router := newSyncTestRouter(new(MockSyncTrigger), new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/sync/logs?status=bogus", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad request for invalid since filter", func(t *testing.T) {
		router := newSyncTestRouter(new(MockSyncTrigger), new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/sync/logs?since=yesterday", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandlerListMappings(t *testing.T) {
	tenantID := uuid.New()

	t.Run("lists mappings", func(t *testing.T) {
		mapping, err := possync.NewProductMapping(tenantID, possync.ProviderCodeSquare, uuid.New(), "SQ-OBJ-1")
		require.NoError(t, err)

		mappingRepo := new(MockMappingRepository)
		mappingRepo.On("FindAll", mock.Anything, tenantID, mock.MatchedBy(func(f possync.ProductMappingFilter) bool {
			return f.Provider != nil && *f.Provider == possync.ProviderCodeSquare && f.Page == 1 && f.PageSize == 20
		})).Return([]possync.ProductMapping{*mapping}, nil)

		router := newSyncTestRouter(new(MockSyncTrigger), new(MockSyncLogRepository), mappingRepo)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/sync/mappings?provider=square", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		items := resp.Data.([]interface{})
		require.Len(t, items, 1)
		first := items[0].(map[string]interface{})
		assert.Equal(t, "SQ-OBJ-1", first["provider_object_id"])
	})

	t.Run("bad request for unknown provider filter", func(t *testing.T) {
		router := newSyncTestRouter(new(MockSyncTrigger), new(MockSyncLogRepository), new(MockMappingRepository))
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/sync/mappings?provider=vend", nil)
		req.Header.Set(TenantIDHeader, tenantID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
