package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	possyncapp "github.com/posbridge/backend/internal/application/possync"
	"github.com/posbridge/backend/internal/domain/possync"
)

// SyncTrigger starts sync runs. Implemented by the orchestrator; the handler
// only needs the trigger surface.
type SyncTrigger interface {
	TriggerFullSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode) (*possync.SyncLog, error)
	TriggerIncrementalSync(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, scope []uuid.UUID) (*possync.SyncLog, error)
}

// SyncHandler handles sync trigger and sync log query endpoints
type SyncHandler struct {
	BaseHandler
	trigger  SyncTrigger
	logs     *possyncapp.SyncLogQueryService
	mappings *possyncapp.MappingQueryService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(trigger SyncTrigger, logs *possyncapp.SyncLogQueryService, mappings *possyncapp.MappingQueryService) *SyncHandler {
	return &SyncHandler{
		trigger:  trigger,
		logs:     logs,
		mappings: mappings,
	}
}

// TriggerIncrementalRequest represents a request to start a scoped sync run
// @Description Request body for triggering an incremental sync
type TriggerIncrementalRequest struct {
	ItemIDs []string `json:"item_ids" binding:"omitempty,dive,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ListSyncLogsRequest represents sync log list query parameters
// @Description Query parameters for listing sync runs
type ListSyncLogsRequest struct {
	Provider string `form:"provider"`
	Status   string `form:"status"`
	Trigger  string `form:"trigger"`
	Since    string `form:"since"` // RFC3339
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ListMappingsRequest represents mapping list query parameters
// @Description Query parameters for listing product mappings
type ListMappingsRequest struct {
	Provider string `form:"provider"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// TriggerFull godoc
// @Summary      Trigger a full sync
// @Description  Start a full catalog and inventory reconciliation for a provider. The run executes in the background; the returned log can be polled.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        provider path string true "Provider code" Enums(square, clover, lightspeed, toast)
// @Success      202 {object} dto.Response{data=possyncapp.SyncLogView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/{provider}/full [post]
func (h *SyncHandler) TriggerFull(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	provider, err := getProvider(c)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	log, err := h.trigger.TriggerFullSync(c.Request.Context(), tenantID, provider)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	h.Accepted(c, possyncapp.NewSyncLogView(log))
}

// TriggerIncremental godoc
// @Summary      Trigger an incremental sync
// @Description  Start a reconciliation scoped to the given local items. An empty scope reconciles the whole catalog.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        provider path string true "Provider code" Enums(square, clover, lightspeed, toast)
// @Param        request body TriggerIncrementalRequest false "Scope"
// @Success      202 {object} dto.Response{data=possyncapp.SyncLogView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/{provider}/incremental [post]
func (h *SyncHandler) TriggerIncremental(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	provider, err := getProvider(c)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	var req TriggerIncrementalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	scope := make([]uuid.UUID, 0, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid item ID format: "+raw)
			return
		}
		scope = append(scope, id)
	}

	log, err := h.trigger.TriggerIncrementalSync(c.Request.Context(), tenantID, provider, scope)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	h.Accepted(c, possyncapp.NewSyncLogView(log))
}

// ListLogs godoc
// @Summary      List sync runs
// @Description  List sync run audit records for the tenant, newest first
// @Tags         sync
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        provider query string false "Filter by provider"
// @Param        status query string false "Filter by status" Enums(running, completed, completed_with_errors, failed)
// @Param        trigger query string false "Filter by trigger" Enums(full, incremental)
// @Param        since query string false "Runs started at or after (RFC3339)"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]possyncapp.SyncLogView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/logs [get]
func (h *SyncHandler) ListLogs(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ListSyncLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := buildSyncLogFilter(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	logs, total, err := h.logs.ListLogs(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	views := make([]possyncapp.SyncLogView, 0, len(logs))
	for i := range logs {
		views = append(views, possyncapp.NewSyncLogView(&logs[i]))
	}

	h.SuccessWithMeta(c, views, total, filter.Page, filter.PageSize)
}

// GetLog godoc
// @Summary      Get a sync run
// @Description  Retrieve one sync run audit record by ID
// @Tags         sync
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Sync log ID" format(uuid)
// @Success      200 {object} dto.Response{data=possyncapp.SyncLogView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/logs/{id} [get]
func (h *SyncHandler) GetLog(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	logID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sync log ID format")
		return
	}

	log, err := h.logs.GetLog(c.Request.Context(), tenantID, logID)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	h.Success(c, possyncapp.NewSyncLogView(log))
}

// ListMappings godoc
// @Summary      List product mappings
// @Description  List local-item to provider-object bindings for the tenant
// @Tags         sync
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        provider query string false "Filter by provider"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]possyncapp.ProductMappingView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/mappings [get]
func (h *SyncHandler) ListMappings(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ListMappingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := possync.ProductMappingFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if req.Provider != "" {
		provider, err := parseProviderCode(req.Provider)
		if err != nil {
			h.HandleSyncError(c, err)
			return
		}
		filter.Provider = &provider
	}

	mappings, err := h.mappings.ListMappings(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	views := make([]possyncapp.ProductMappingView, 0, len(mappings))
	for i := range mappings {
		views = append(views, possyncapp.NewProductMappingView(&mappings[i]))
	}

	h.Success(c, views)
}

// buildSyncLogFilter translates query parameters into the repository filter
func buildSyncLogFilter(req ListSyncLogsRequest) (possync.SyncLogFilter, error) {
	filter := possync.SyncLogFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	if req.Provider != "" {
		provider, err := parseProviderCode(req.Provider)
		if err != nil {
			return filter, err
		}
		filter.Provider = &provider
	}
	if req.Status != "" {
		status := possync.SyncStatus(req.Status)
		if !status.IsValid() {
			return filter, fmt.Errorf("invalid status filter: %s", req.Status)
		}
		filter.Status = &status
	}
	if req.Trigger != "" {
		trigger := possync.TriggerKind(req.Trigger)
		if !trigger.IsValid() {
			return filter, fmt.Errorf("invalid trigger filter: %s", req.Trigger)
		}
		filter.Trigger = &trigger
	}
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return filter, fmt.Errorf("invalid since filter: %w", err)
		}
		filter.Since = &since
	}
	return filter, nil
}

var _ SyncTrigger = (*possyncapp.Orchestrator)(nil)
