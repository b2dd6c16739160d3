package handler

import (
	"github.com/gin-gonic/gin"

	possyncapp "github.com/posbridge/backend/internal/application/possync"
)

// IntegrationHandler handles provider integration lifecycle endpoints
type IntegrationHandler struct {
	BaseHandler
	integrations *possyncapp.IntegrationService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(integrations *possyncapp.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{integrations: integrations}
}

// RegisterIntegrationRequest represents a request to register an integration
// @Description Request body for registering a provider integration
type RegisterIntegrationRequest struct {
	Provider      string `json:"provider" binding:"required" example:"square"`
	CredentialRef string `json:"credential_ref" binding:"required,min=1,max=200" example:"cred-7f3a"`
}

// Register godoc
// @Summary      Register an integration
// @Description  Register a tenant/provider connection. The OAuth exchange happens in the external token service; only the resulting credential reference is stored here.
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body RegisterIntegrationRequest true "Integration registration request"
// @Success      201 {object} dto.Response{data=possyncapp.IntegrationView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations [post]
func (h *IntegrationHandler) Register(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req RegisterIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	provider, err := parseProviderCode(req.Provider)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	integ, err := h.integrations.Register(c.Request.Context(), tenantID, provider, req.CredentialRef)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	h.Created(c, possyncapp.NewIntegrationView(integ))
}

// List godoc
// @Summary      List integrations
// @Description  List all provider integrations for the tenant
// @Tags         integrations
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Success      200 {object} dto.Response{data=[]possyncapp.IntegrationView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations [get]
func (h *IntegrationHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	integrations, err := h.integrations.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	views := make([]possyncapp.IntegrationView, 0, len(integrations))
	for i := range integrations {
		views = append(views, possyncapp.NewIntegrationView(&integrations[i]))
	}

	h.Success(c, views)
}

// Activate godoc
// @Summary      Activate an integration
// @Description  Re-enable syncing for a tenant/provider pair
// @Tags         integrations
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        provider path string true "Provider code" Enums(square, clover, lightspeed, toast)
// @Success      200 {object} dto.Response{data=possyncapp.IntegrationView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations/{provider}/activate [post]
func (h *IntegrationHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate godoc
// @Summary      Deactivate an integration
// @Description  Disable syncing for a tenant/provider pair. A running sync finishes; new triggers are rejected.
// @Tags         integrations
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        provider path string true "Provider code" Enums(square, clover, lightspeed, toast)
// @Success      200 {object} dto.Response{data=possyncapp.IntegrationView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations/{provider}/deactivate [post]
func (h *IntegrationHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *IntegrationHandler) setActive(c *gin.Context, active bool) {
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

	setter := h.integrations.Deactivate
	if active {
		setter = h.integrations.Activate
	}
	integ, err := setter(c.Request.Context(), tenantID, provider)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	h.Success(c, possyncapp.NewIntegrationView(integ))
}
