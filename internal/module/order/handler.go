package order

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/asoasiko/server/internal/shared/response"
	"github.com/asoasiko/server/internal/utils/middleware"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	service *Service
}

// NewHandler creates a new order handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers order routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("/checkout", h.Checkout)
		orders.GET("/my-orders", h.ListMine)
		orders.GET("/all", middleware.RequireStaff(), h.ListAll)
		orders.PUT("/:id/pay", h.ConfirmPayment)
		orders.PUT("/:id/status", middleware.RequireStaff(), h.UpdateStatus)
		orders.PUT("/:id/deliver", middleware.RequireStaff(), h.MarkDelivered)
		orders.POST("/:id/refund", middleware.RequireAdmin(), h.ProcessRefund)
		orders.PUT("/:id/return", h.ReturnAction)
		orders.GET("/:id/invoice", h.Invoice)
	}
}

// Checkout places a new order.
//
//	@Summary		Place an order
//	@Description	Create a new order in the processing state
//	@Tags			Order
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CheckoutRequest	true	"Checkout request"
//	@Success		201		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]string
//	@Failure		401		{object}	map[string]string
//	@Router			/orders/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	order, err := h.service.Checkout(c.Request.Context(), userID, &req)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// ListMine returns the caller's orders.
//
//	@Summary		List my orders
//	@Tags			Order
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page"
//	@Param			page_size	query		int	false	"Page size"
//	@Success		200			{object}	map[string]interface{}
//	@Router			/orders/my-orders [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var p Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	orders, total, err := h.service.ListMine(c.Request.Context(), userID, &p)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   p.Page,
	})
}

// ListAll returns all orders. Staff only.
//
//	@Summary		List all orders
//	@Tags			Order
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page"
//	@Param			page_size	query		int	false	"Page size"
//	@Success		200			{object}	map[string]interface{}
//	@Failure		403			{object}	map[string]string
//	@Router			/orders/all [get]
func (h *Handler) ListAll(c *gin.Context) {
	var p Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	orders, total, err := h.service.ListAll(c.Request.Context(), &p)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   p.Page,
	})
}

// ConfirmPayment marks the caller's order paid from a gateway result the
// client reports after a hosted checkout. Confirming an already paid
// order returns it unchanged.
//
//	@Summary		Confirm payment
//	@Description	Apply a client-reported payment result to the caller's order
//	@Tags			Order
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Order ID"
//	@Param			request	body		ConfirmPaymentRequest	true	"Payment result"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		403		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/orders/{id}/pay [put]
func (h *Handler) ConfirmPayment(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	order, applied, err := h.service.ConfirmPayment(c.Request.Context(), id, userID, &req)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	status := "already_paid"
	if applied {
		status = StatusPaid
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "order": order})
}

// UpdateStatus tags an order's delivery status. Staff only.
//
//	@Summary		Update delivery status
//	@Tags			Order
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Order ID"
//	@Param			request	body		UpdateStatusRequest	true	"New status"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/orders/{id}/status [put]
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// MarkDelivered marks an order delivered. Staff only.
//
//	@Summary		Mark order delivered
//	@Tags			Order
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Order ID"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/orders/{id}/deliver [put]
func (h *Handler) MarkDelivered(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	if err := h.service.MarkDelivered(c.Request.Context(), id); err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": DeliveryStatusDelivered})
}

// ProcessRefund issues a refund on an approved return. Admin only.
//
//	@Summary		Process refund
//	@Tags			Order
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Order ID"
//	@Param			request	body		RefundRequest	true	"Refund request"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/orders/{id}/refund [post]
func (h *Handler) ProcessRefund(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.ProcessRefund(c.Request.Context(), id, req.RefundAmount, req.Reason); err != nil {
		handleOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refunded"})
}

// ReturnAction opens or resolves a return request, dispatched on the
// payload's action field: "request" (owner), "approve"/"reject" (staff).
//
//	@Summary		Return workflow action
//	@Tags			Order
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Order ID"
//	@Param			request	body		ReturnActionRequest	true	"Action"
//	@Success		200		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/orders/{id}/return [put]
func (h *Handler) ReturnAction(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req ReturnActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role := middleware.GetRole(c)
	ctx := c.Request.Context()

	switch req.Action {
	case "request":
		userID := middleware.GetUserID(c)
		if err := h.service.RequestReturn(ctx, id, userID, req.Reason); err != nil {
			handleOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "requested"})

	case "approve", "reject":
		if role != middleware.RoleAdmin && role != middleware.RoleSales {
			response.Forbidden(c, "")
			return
		}
		approve := req.Action == "approve"
		if err := h.service.ResolveReturn(ctx, id, approve, req.Reason); err != nil {
			handleOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": req.Action + "d"})

	default:
		response.BadRequest(c, "unknown action")
	}
}

// Invoice renders the order's invoice document. Owner or staff.
//
//	@Summary		Render invoice
//	@Tags			Order
//	@Produce		html
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Order ID"
//	@Success		200	{string}	string
//	@Failure		404	{object}	map[string]string
//	@Router			/orders/{id}/invoice [get]
func (h *Handler) Invoice(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	role := middleware.GetRole(c)
	staff := role == middleware.RoleAdmin || role == middleware.RoleSales

	if _, err := h.service.GetForCaller(c.Request.Context(), id, middleware.GetUserID(c), staff); err != nil {
		handleOrderError(c, err)
		return
	}

	doc, err := h.service.RenderInvoice(c.Request.Context(), id)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", doc)
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

var orderErrorMappings = []response.ErrorMapping{
	{Err: ErrOrderNotFound, Status: http.StatusNotFound, Message: "order_not_found"},
	{Err: ErrNotOwner, Status: http.StatusForbidden, Message: "forbidden"},
	{Err: ErrEmptyItems, Status: http.StatusBadRequest, Message: "order_items_empty"},
	{Err: ErrInvalidQuantity, Status: http.StatusBadRequest, Message: "invalid_quantity"},
	{Err: ErrNegativeTotal, Status: http.StatusBadRequest, Message: "invalid_total_price"},
	{Err: ErrInvalidPaymentMethod, Status: http.StatusBadRequest, Message: "invalid_payment_method"},
	{Err: ErrEmptyStatus, Status: http.StatusBadRequest, Message: "status_empty"},
	{Err: ErrInvalidRefundAmount, Status: http.StatusBadRequest, Message: "invalid_refund_amount"},
	{Err: ErrRefundExceedsTotal, Status: http.StatusBadRequest, Message: "refund_exceeds_total"},
	{Err: ErrReturnAlreadyRequested, Status: http.StatusConflict, Message: "return_already_requested"},
	{Err: ErrReturnNotRequested, Status: http.StatusConflict, Message: "return_not_requested"},
	{Err: ErrReturnNotApproved, Status: http.StatusConflict, Message: "return_not_approved"},
	{Err: ErrAlreadyRefunded, Status: http.StatusConflict, Message: "already_refunded"},
}

func handleOrderError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, orderErrorMappings)
}
