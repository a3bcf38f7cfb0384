package payment

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/asoasiko/server/internal/shared/response"
)

// Signature header per provider.
var signatureHeaders = map[string]string{
	"paystack": "X-Paystack-Signature",
	"stripe":   "Stripe-Signature",
}

// WebhookHandler is the unauthenticated reconciliation entry point.
// Deliveries authenticate by signature, not by session.
type WebhookHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service *Service, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: logger}
}

// RegisterRoutes registers the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/payments/webhook/:gateway", h.Handle)
}

// Handle processes one inbound webhook delivery.
//
//	@Summary		Payment webhook
//	@Description	Provider-initiated payment notification, authenticated by signature
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Param			gateway	path		string	true	"Gateway name"
//	@Success		200		{object}	map[string]string
//	@Failure		401		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/payments/webhook/{gateway} [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	gateway := c.Param("gateway")

	// Raw body is required for signature verification
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		response.BadRequest(c, "failed to read body")
		return
	}

	header, ok := signatureHeaders[gateway]
	if !ok {
		response.NotFound(c, "gateway_not_found")
		return
	}
	signature := c.GetHeader(header)

	outcome, err := h.service.HandleWebhook(c.Request.Context(), gateway, payload, signature)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}
