package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// PaystackGateway is a redirect-based gateway: the server initializes a
// transaction and the customer completes it on the provider's hosted page.
// Outbound calls run through a circuit breaker.
type PaystackGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*InitResult]
}

// PaystackConfig holds Paystack gateway configuration.
type PaystackConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// NewPaystackGateway creates a new Paystack gateway.
func NewPaystackGateway(cfg *PaystackConfig) *PaystackGateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}

	breaker := gobreaker.NewCircuitBreaker[*InitResult](gobreaker.Settings{
		Name:    "paystack",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &PaystackGateway{
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		breaker:   breaker,
	}
}

// Name returns the gateway name.
func (g *PaystackGateway) Name() string {
	return "paystack"
}

type paystackInitRequest struct {
	Email    string            `json:"email"`
	Amount   int64             `json:"amount"` // Smallest currency subunit
	Currency string            `json:"currency,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializePayment starts a hosted-checkout transaction. The provider
// expects the amount in the smallest currency subunit.
func (g *PaystackGateway) InitializePayment(ctx context.Context, req *InitRequest) (*InitResult, error) {
	result, err := g.breaker.Execute(func() (*InitResult, error) {
		return g.initialize(ctx, req)
	})
	if err != nil {
		return nil, &Error{Gateway: g.Name(), Op: "initialize", Err: err}
	}
	return result, nil
}

func (g *PaystackGateway) initialize(ctx context.Context, req *InitRequest) (*InitResult, error) {
	body, err := json.Marshal(paystackInitRequest{
		Email:    req.Email,
		Amount:   req.Amount * 100,
		Currency: req.Currency,
		Metadata: map[string]string{"order_ref": req.OrderRef},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var parsed paystackInitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !parsed.Status {
		return nil, fmt.Errorf("provider rejected initialization: %s", parsed.Message)
	}

	return &InitResult{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		Reference:        parsed.Data.Reference,
	}, nil
}

// VerifySignature checks the HMAC-SHA512 hex signature the provider
// computes over the raw request body.
func (g *PaystackGateway) VerifySignature(payload []byte, signature string) error {
	mac := hmac.New(sha512.New, []byte(g.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New("signature mismatch")
	}
	return nil
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"` // Smallest currency subunit
		Currency  string `json:"currency"`
		Metadata  struct {
			OrderRef string `json:"order_ref"`
		} `json:"metadata"`
	} `json:"data"`
}

// ParseEvent decodes a webhook delivery into a normalized Event.
func (g *PaystackGateway) ParseEvent(payload []byte) (*Event, error) {
	var raw paystackEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	// Deliveries without a numeric id would all collapse to "0" in the
	// dedup store; fall back to the transaction reference.
	eventID := raw.Data.Reference
	if raw.Data.ID != 0 {
		eventID = fmt.Sprintf("%d", raw.Data.ID)
	}

	return &Event{
		ID:        eventID,
		Type:      raw.Event,
		OrderRef:  raw.Data.Metadata.OrderRef,
		Reference: raw.Data.Reference,
		Amount:    raw.Data.Amount / 100,
		Currency:  raw.Data.Currency,
		Succeeded: raw.Event == "charge.success",
	}, nil
}
