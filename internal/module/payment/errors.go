package payment

import "errors"

// Module errors.
var (
	ErrGatewayNotFound  = errors.New("payment gateway not found")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
	ErrEventExists      = errors.New("webhook event already recorded")
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrClaimExists      = errors.New("transaction hash already claimed")
	ErrMissingTxHash    = errors.New("transaction hash is required")
)
