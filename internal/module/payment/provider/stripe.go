package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway is a client-confirmed gateway: the server creates a payment
// intent and hands the client secret to the caller, who completes payment
// out-of-band. Confirmation arrives on the webhook.
type StripeGateway struct {
	webhookSecret string
}

// StripeConfig holds Stripe gateway configuration.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

// NewStripeGateway creates a new Stripe gateway.
func NewStripeGateway(cfg *StripeConfig) *StripeGateway {
	stripe.Key = cfg.APIKey
	return &StripeGateway{
		webhookSecret: cfg.WebhookSecret,
	}
}

// Name returns the gateway name.
func (g *StripeGateway) Name() string {
	return "stripe"
}

// InitializePayment creates a payment intent with the order reference in
// its metadata and returns the client secret.
func (g *StripeGateway) InitializePayment(ctx context.Context, req *InitRequest) (*InitResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount * 100),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"email":     req.Email,
			"order_ref": req.OrderRef,
		},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, &Error{Gateway: g.Name(), Op: "initialize", Err: err}
	}

	return &InitResult{
		ClientSecret: pi.ClientSecret,
		Reference:    pi.ID,
	}, nil
}

// VerifySignature verifies the Stripe-Signature header over the raw body.
func (g *StripeGateway) VerifySignature(payload []byte, signature string) error {
	_, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	return err
}

// ParseEvent decodes a webhook delivery into a normalized Event.
func (g *StripeGateway) ParseEvent(payload []byte) (*Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	out := &Event{
		ID:        event.ID,
		Type:      string(event.Type),
		Succeeded: event.Type == "payment_intent.succeeded",
	}

	if out.Succeeded {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.OrderRef = pi.Metadata["order_ref"]
		out.Reference = pi.ID
		out.Amount = pi.Amount / 100
		out.Currency = string(pi.Currency)
	}

	return out, nil
}
