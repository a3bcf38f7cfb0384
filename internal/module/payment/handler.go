package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/asoasiko/server/internal/module/order"
	"github.com/asoasiko/server/internal/module/payment/provider"
	apperrors "github.com/asoasiko/server/internal/shared/errors"
	"github.com/asoasiko/server/internal/shared/response"
	"github.com/asoasiko/server/internal/utils/middleware"
)

// Handler handles payment initialization requests.
type Handler struct {
	service *Service
	limiter gin.HandlerFunc
}

// NewHandler creates a new payment handler. The limiter middleware may be
// nil.
func NewHandler(service *Service, limiter gin.HandlerFunc) *Handler {
	return &Handler{service: service, limiter: limiter}
}

// RegisterRoutes registers payment routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	if h.limiter != nil {
		payments.Use(h.limiter)
	}
	payments.POST("/:gateway", h.Initialize)
}

// Initialize starts a payment on the named gateway. The "crypto" gateway
// is dispatched to the claim flow: it records caller-supplied evidence
// instead of contacting a provider.
//
//	@Summary		Initialize payment
//	@Description	Start a payment for an order on the named gateway
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			gateway	path		string				true	"Gateway name"
//	@Param			request	body		InitializeRequest	true	"Payment request"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		404		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Failure		502		{object}	map[string]string
//	@Router			/payments/{gateway} [post]
func (h *Handler) Initialize(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	gateway := c.Param("gateway")
	if gateway == "crypto" {
		h.recordCryptoClaim(c, userID)
		return
	}

	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Initialize(c.Request.Context(), gateway, userID, req.OrderID)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": result})
}

// recordCryptoClaim stores an unverified on-chain payment claim. A claim
// that cannot be verified yet is acknowledged with 202 and does not touch
// the order.
func (h *Handler) recordCryptoClaim(c *gin.Context, userID uuid.UUID) {
	var req CryptoClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	claim, paid, err := h.service.RecordCryptoClaim(c.Request.Context(), userID, &req)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	status := http.StatusAccepted
	if paid {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"claim": claim})
}

var paymentErrorMappings = []response.ErrorMapping{
	{Err: ErrGatewayNotFound, Status: http.StatusNotFound, Message: "gateway_not_found"},
	{Err: ErrInvalidSignature, Status: http.StatusUnauthorized, Message: "invalid_signature"},
	{Err: ErrMalformedEvent, Status: http.StatusBadRequest, Message: "malformed_event"},
	{Err: ErrAlreadyPaid, Status: http.StatusConflict, Message: "order_already_paid"},
	{Err: ErrClaimExists, Status: http.StatusConflict, Message: "claim_already_recorded"},
	{Err: ErrMissingTxHash, Status: http.StatusBadRequest, Message: "tx_hash_required"},
	{Err: order.ErrOrderNotFound, Status: http.StatusNotFound, Message: "order_not_found"},
	{Err: order.ErrNotOwner, Status: http.StatusForbidden, Message: "forbidden"},
}

func handlePaymentError(c *gin.Context, err error) {
	if response.HandleError(c, err, paymentErrorMappings) {
		return
	}

	var provErr *provider.Error
	if errors.As(err, &provErr) {
		response.Error(c, http.StatusBadGateway, "gateway_unavailable")
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		response.ErrorWithCode(c, appErr.StatusCode, appErr.Code, appErr.Message)
		return
	}

	response.InternalError(c, "")
}
