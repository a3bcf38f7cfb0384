package payment

import "github.com/google/uuid"

// InitializeRequest starts a payment for an order on a chosen gateway.
type InitializeRequest struct {
	OrderID uuid.UUID `json:"order_id" binding:"required"`
}

// CryptoClaimRequest records a caller-supplied on-chain payment claim.
type CryptoClaimRequest struct {
	OrderID  uuid.UUID `json:"order_id" binding:"required"`
	TxHash   string    `json:"tx_hash" binding:"required"`
	Amount   int64     `json:"amount"`
	Currency string    `json:"currency"`
}
