package order

import "errors"

// Module errors.
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrNotOwner               = errors.New("order belongs to another user")
	ErrEmptyItems             = errors.New("order must contain at least one item")
	ErrInvalidQuantity        = errors.New("item quantity must be at least 1")
	ErrNegativeTotal          = errors.New("total price cannot be negative")
	ErrInvalidPaymentMethod   = errors.New("unknown payment method")
	ErrEmptyStatus            = errors.New("status cannot be empty")
	ErrReturnAlreadyRequested = errors.New("return already requested")
	ErrReturnNotRequested     = errors.New("no return request on order")
	ErrReturnNotApproved      = errors.New("return has not been approved")
	ErrAlreadyRefunded        = errors.New("refund already processed")
	ErrRefundExceedsTotal     = errors.New("refund amount exceeds order total")
	ErrInvalidRefundAmount    = errors.New("refund amount must be positive")
	ErrInvoiceRefExhausted    = errors.New("could not assign a unique invoice reference")
)
