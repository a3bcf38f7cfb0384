package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UnverifiedClaim is a caller-supplied assertion that an on-chain payment
// happened. It is evidence, not proof: a claim never confirms an order
// until a ChainVerifier has checked the transaction.
type UnverifiedClaim struct {
	TxHash   string
	OrderRef string
	Email    string
	Amount   int64 // Major currency units
	Currency string
}

// ChainVerifier checks a claimed transaction against the chain.
type ChainVerifier interface {
	VerifyTransaction(ctx context.Context, txHash string) (bool, error)
}

// ExplorerVerifier verifies transactions through a block-explorer HTTP API.
type ExplorerVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// ExplorerConfig holds explorer API configuration.
type ExplorerConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewExplorerVerifier creates a new explorer-backed chain verifier.
func NewExplorerVerifier(cfg *ExplorerConfig) *ExplorerVerifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ExplorerVerifier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type explorerTxResponse struct {
	Status        string `json:"status"`
	Confirmations int    `json:"confirmations"`
}

// VerifyTransaction reports whether the transaction is confirmed on-chain.
// A false return with a nil error means the transaction was found but is
// not (yet) confirmed.
func (v *ExplorerVerifier) VerifyTransaction(ctx context.Context, txHash string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/tx/"+txHash, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, &Error{Gateway: "crypto", Op: "verify", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, &Error{Gateway: "crypto", Op: "verify",
			Err: fmt.Errorf("explorer returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	var parsed explorerTxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	return parsed.Status == "confirmed" && parsed.Confirmations > 0, nil
}
