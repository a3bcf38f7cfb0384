package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/asoasiko/server/internal/module/user"
)

func TestService_RenderInvoice(t *testing.T) {
	orderID := uuid.New()
	ownerID := uuid.New()

	baseOrder := func() *Order {
		return &Order{
			ID:     orderID,
			UserID: ownerID,
			ShippingAddress: ShippingAddress{
				FullName: "Ada Obi",
				Address:  "12 Marina Rd",
				City:     "Lagos",
				Country:  "NG",
			},
			Items: []OrderItem{
				{ProductRef: "prod-1", Name: "Ankara gown", Quantity: 2, UnitPrice: 15000},
			},
			TotalPrice:     30000,
			DeliveryStatus: DeliveryStatusProcessing,
			CreatedAt:      time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		}
	}

	t.Run("paid order shows reference and paid status", func(t *testing.T) {
		repo := new(MockRepository)
		users := new(MockUserRepository)
		svc := newTestService(repo, users, new(MockNotifier))

		paidAt := time.Date(2025, 3, 11, 9, 30, 0, 0, time.UTC)
		ref := "INV-123456-0042"
		ord := baseOrder()
		ord.IsPaid = true
		ord.PaidAt = &paidAt
		ord.InvoiceRef = &ref

		repo.On("GetByID", mock.Anything, orderID).Return(ord, nil)
		users.On("GetByID", mock.Anything, ownerID).Return(&user.User{
			ID: ownerID, Username: "ada", Email: "ada@example.com",
		}, nil)

		html, err := svc.RenderInvoice(context.Background(), orderID)
		assert.NoError(t, err)
		assert.Contains(t, string(html), "INV-123456-0042")
		assert.Contains(t, string(html), "Paid")
		assert.Contains(t, string(html), "11 Mar 2025")
		assert.Contains(t, string(html), "Ankara gown")
		assert.Contains(t, string(html), "ada@example.com")
	})

	t.Run("unpaid order renders with a dash", func(t *testing.T) {
		repo := new(MockRepository)
		users := new(MockUserRepository)
		svc := newTestService(repo, users, new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).Return(baseOrder(), nil)
		users.On("GetByID", mock.Anything, ownerID).Return(nil, user.ErrUserNotFound)

		html, err := svc.RenderInvoice(context.Background(), orderID)
		assert.NoError(t, err)
		assert.Contains(t, string(html), "Invoice —")
		assert.Contains(t, string(html), "Unpaid")
		assert.Contains(t, string(html), "10 Mar 2025")
		// Customer name falls back to the shipping address
		assert.Contains(t, string(html), "Ada Obi")
	})

	t.Run("missing order", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).Return(nil, ErrOrderNotFound)

		_, err := svc.RenderInvoice(context.Background(), orderID)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}
