package payment

import (
	"github.com/asoasiko/server/internal/module/payment/provider"
)

// Registry holds the configured gateways and their webhook verifiers.
type Registry struct {
	gateways  map[string]provider.Gateway
	verifiers map[string]provider.WebhookVerifier
}

// NewRegistry creates an empty gateway registry.
func NewRegistry() *Registry {
	return &Registry{
		gateways:  make(map[string]provider.Gateway),
		verifiers: make(map[string]provider.WebhookVerifier),
	}
}

// Register adds a gateway. Gateways that also implement WebhookVerifier
// are registered for webhook handling under the same name.
func (r *Registry) Register(g provider.Gateway) {
	r.gateways[g.Name()] = g
	if v, ok := g.(provider.WebhookVerifier); ok {
		r.verifiers[g.Name()] = v
	}
}

// Gateway returns the named gateway.
func (r *Registry) Gateway(name string) (provider.Gateway, bool) {
	g, ok := r.gateways[name]
	return g, ok
}

// Verifier returns the named webhook verifier.
func (r *Registry) Verifier(name string) (provider.WebhookVerifier, bool) {
	v, ok := r.verifiers[name]
	return v, ok
}
