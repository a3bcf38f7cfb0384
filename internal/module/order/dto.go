package order

// CheckoutItem is one line item in a checkout request.
type CheckoutItem struct {
	ProductRef    string `json:"product_ref" binding:"required"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity" binding:"required"`
	SelectedColor string `json:"selected_color"`
	UnitPrice     int64  `json:"unit_price"`
}

// CheckoutAddress is the shipping address in a checkout request.
type CheckoutAddress struct {
	FullName    string `json:"full_name" binding:"required"`
	Address     string `json:"address" binding:"required"`
	City        string `json:"city" binding:"required"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country" binding:"required"`
	PhoneNumber string `json:"phone_number"`
}

// CheckoutRequest represents a request to place an order.
type CheckoutRequest struct {
	Items           []CheckoutItem  `json:"items"`
	ShippingAddress CheckoutAddress `json:"shipping_address" binding:"required"`
	PaymentMethod   PaymentMethod   `json:"payment_method" binding:"required"`
	TotalPrice      int64           `json:"total_price"`
	Notes           string          `json:"notes"`
}

// ConfirmPaymentRequest carries the gateway result a customer reports
// after completing a hosted checkout.
type ConfirmPaymentRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required"`
	TransactionID string        `json:"transaction_id"`
	Status        string        `json:"status"`
	Currency      string        `json:"currency"`
	ExchangeRate  float64       `json:"exchange_rate"`
}

// UpdateStatusRequest represents a staff request to tag an order's
// delivery status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ReturnActionRequest drives the return workflow. Action "request" opens a
// return (owner); "approve" and "reject" resolve it (staff).
type ReturnActionRequest struct {
	Action string `json:"action" binding:"required,oneof=request approve reject"`
	Reason string `json:"reason"`
}

// RefundRequest represents an admin request to issue a refund.
type RefundRequest struct {
	RefundAmount int64  `json:"refund_amount"`
	Reason       string `json:"reason"`
}

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Normalize applies pagination defaults and bounds.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// Offset returns the offset for database queries.
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}
