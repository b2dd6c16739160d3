package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// TenantIDHeader carries the authenticated tenant, set by the API gateway
const TenantIDHeader = "X-Tenant-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// getTenantID extracts the tenant ID from the gateway header
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantIDStr := c.GetHeader(TenantIDHeader)
	if tenantIDStr == "" {
		return uuid.Nil, errors.New("tenant ID not found in request")
	}
	return uuid.Parse(tenantIDStr)
}

// getProvider parses the provider path parameter
func getProvider(c *gin.Context) (possync.ProviderCode, error) {
	return parseProviderCode(c.Param("provider"))
}

// parseProviderCode parses a provider code. Codes are accepted
// case-insensitively and stored upper-case.
func parseProviderCode(raw string) (possync.ProviderCode, error) {
	code := possync.ProviderCode(strings.ToUpper(raw))
	if !code.IsValid() {
		return "", possync.ErrInvalidProviderCode
	}
	return code, nil
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response for work that continues in the
// background
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	statusCode := dto.GetHTTPStatus(code)
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// TooManyRequests sends a 429 too many requests response
func (h *BaseHandler) TooManyRequests(c *gin.Context, message string) {
	h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := getRequestID(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// HandleSyncError converts sync engine errors to HTTP responses
func (h *BaseHandler) HandleSyncError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, possync.ErrSyncInProgress):
		h.ErrorWithCode(c, dto.ErrCodeSyncInProgress, err.Error())
	case errors.Is(err, possync.ErrIntegrationInactive):
		h.ErrorWithCode(c, dto.ErrCodeIntegrationInactive, err.Error())
	case errors.Is(err, possync.ErrIntegrationNotFound),
		errors.Is(err, possync.ErrSyncLogNotFound),
		errors.Is(err, possync.ErrMappingNotFound),
		errors.Is(err, possync.ErrStockLevelNotFound):
		h.ErrorWithCode(c, dto.ErrCodeNotFound, err.Error())
	case errors.Is(err, possync.ErrIntegrationAlreadyExists):
		h.ErrorWithCode(c, dto.ErrCodeAlreadyExists, err.Error())
	case errors.Is(err, possync.ErrMappingConflict):
		h.ErrorWithCode(c, dto.ErrCodeMappingConflict, err.Error())
	case errors.Is(err, possync.ErrInvalidSignature):
		h.ErrorWithCode(c, dto.ErrCodeInvalidSignature, err.Error())
	case errors.Is(err, possync.ErrInvalidProviderCode),
		errors.Is(err, possync.ErrInvalidTenantID),
		errors.Is(err, possync.ErrInvalidItemID),
		errors.Is(err, possync.ErrInvalidTriggerKind):
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
	case errors.Is(err, possync.ErrRateLimited):
		h.ErrorWithCode(c, dto.ErrCodeRateLimited, err.Error())
	case errors.Is(err, possync.ErrCredentialUnavailable):
		h.ErrorWithCode(c, dto.ErrCodeCredentialUnavailable, err.Error())
	case errors.Is(err, possync.ErrProviderUnreachable):
		h.ErrorWithCode(c, dto.ErrCodeProviderUnavailable, err.Error())
	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}
