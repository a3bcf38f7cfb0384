// Package provider contains the payment gateway adapters. Each adapter
// normalizes one provider's request/response shapes behind the Gateway and
// WebhookVerifier interfaces; amounts cross these interfaces in major
// currency units, and each adapter owns its provider's subunit conversion.
package provider

import (
	"context"
	"fmt"
)

// InitRequest is a request to start a payment for an order.
type InitRequest struct {
	Email    string
	Amount   int64 // Major currency units
	Currency string
	OrderRef string
}

// InitResult is what the caller needs to complete payment out-of-band:
// either a hosted-checkout URL (redirect gateways) or a client secret
// (client-confirmed gateways), plus the provider's reference.
type InitResult struct {
	AuthorizationURL string `json:"authorization_url,omitempty"`
	ClientSecret     string `json:"client_secret,omitempty"`
	Reference        string `json:"reference"`
}

// Gateway is the uniform interface to a payment provider.
type Gateway interface {
	Name() string
	InitializePayment(ctx context.Context, req *InitRequest) (*InitResult, error)
}

// Event is a normalized asynchronous payment notification.
type Event struct {
	ID        string
	Type      string
	OrderRef  string
	Reference string // Provider transaction reference
	Amount    int64  // Major currency units
	Currency  string
	Succeeded bool // True only for the provider's "charge succeeded" event
}

// WebhookVerifier authenticates and decodes inbound webhook deliveries.
// VerifySignature must be checked before ParseEvent output is trusted.
type WebhookVerifier interface {
	VerifySignature(payload []byte, signature string) error
	ParseEvent(payload []byte) (*Event, error)
}

// Error marks an upstream provider failure, distinct from internal
// validation failures, so callers can attempt compensating notifications.
type Error struct {
	Gateway string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Gateway, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
