package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asoasiko/server/internal/module/payment/provider"
)

type plainGateway struct{ name string }

func (g *plainGateway) Name() string { return g.name }

func (g *plainGateway) InitializePayment(ctx context.Context, req *provider.InitRequest) (*provider.InitResult, error) {
	return &provider.InitResult{}, nil
}

type verifyingGateway struct{ plainGateway }

func (g *verifyingGateway) VerifySignature(payload []byte, signature string) error { return nil }

func (g *verifyingGateway) ParseEvent(payload []byte) (*provider.Event, error) {
	return &provider.Event{}, nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&plainGateway{name: "plain"})
	registry.Register(&verifyingGateway{plainGateway{name: "verifying"}})

	t.Run("looks up registered gateways", func(t *testing.T) {
		_, ok := registry.Gateway("plain")
		assert.True(t, ok)
		_, ok = registry.Gateway("verifying")
		assert.True(t, ok)
		_, ok = registry.Gateway("missing")
		assert.False(t, ok)
	})

	t.Run("only verifier implementers handle webhooks", func(t *testing.T) {
		_, ok := registry.Verifier("verifying")
		assert.True(t, ok)
		_, ok = registry.Verifier("plain")
		assert.False(t, ok)
	})
}
