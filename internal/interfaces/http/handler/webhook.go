package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	possyncapp "github.com/posbridge/backend/internal/application/possync"
	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/interfaces/http/dto"
)

// SignatureHeader carries the provider's HMAC signature of the raw body
const SignatureHeader = "X-Pos-Signature"

// WebhookProcessor verifies and dispatches one webhook delivery. Implemented
// by the webhook service.
type WebhookProcessor interface {
	Process(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode, payload []byte, signature string) (possyncapp.WebhookOutcome, error)
}

// WebhookHandler handles inbound POS provider webhook deliveries
type WebhookHandler struct {
	BaseHandler
	processor   WebhookProcessor
	logger      *zap.Logger
	maxBodySize int64
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor WebhookProcessor, logger *zap.Logger, maxBodySize int64) *WebhookHandler {
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}
	return &WebhookHandler{
		processor:   processor,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// WebhookAck is the body returned for accepted deliveries
// @Description Acknowledgement of a webhook delivery
type WebhookAck struct {
	Outcome string `json:"outcome"`
}

// Receive godoc
// @Summary      Receive a provider webhook
// @Description  Verify, deduplicate and dispatch one webhook delivery. Accepted deliveries are acked with 200 even when no sync is started; the outcome field says what happened.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Pos-Signature header string true "HMAC-SHA256 signature of the raw body"
// @Param        provider path string true "Provider code" Enums(square, clover, lightspeed, toast)
// @Success      200 {object} dto.Response{data=WebhookAck}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /webhooks/pos/{provider} [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
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

	signature := c.GetHeader(SignatureHeader)
	if signature == "" {
		h.ErrorWithCode(c, dto.ErrCodeInvalidSignature, "Missing signature header")
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)
	payload, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, "Webhook body exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}

	outcome, err := h.processor.Process(c.Request.Context(), tenantID, provider, payload, signature)
	if err != nil {
		h.logger.Warn("webhook rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("provider", string(provider)),
			zap.Error(err),
		)
		h.HandleSyncError(c, err)
		return
	}

	h.logger.Debug("webhook accepted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", string(provider)),
		zap.String("outcome", string(outcome)),
	)
	h.Success(c, WebhookAck{Outcome: string(outcome)})
}

var _ WebhookProcessor = (*possyncapp.WebhookService)(nil)
