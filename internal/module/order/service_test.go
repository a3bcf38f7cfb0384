package order

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/asoasiko/server/internal/module/user"
)

// --- Mock implementations ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, order *Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uuid.UUID, p *Pagination) ([]*Order, int64, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) ListAll(ctx context.Context, p *Pagination) ([]*Order, int64, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) MarkPaid(ctx context.Context, id uuid.UUID, method PaymentMethod, result *PaymentResult, invoiceRef string) (bool, error) {
	args := m.Called(ctx, id, method, result, invoiceRef)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) RequestReturn(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockRepository) ResolveReturn(ctx context.Context, id uuid.UUID, approved bool, reason string) error {
	args := m.Called(ctx, id, approved, reason)
	return args.Error(0)
}

func (m *MockRepository) ProcessRefund(ctx context.Context, id uuid.UUID, amount int64, reason string) error {
	args := m.Called(ctx, id, amount, reason)
	return args.Error(0)
}

func (m *MockRepository) SetPaymentNotified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) SetDeliveryNotified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, destination, subject, body string) error {
	args := m.Called(ctx, destination, subject, body)
	return args.Error(0)
}

func newTestService(repo *MockRepository, users *MockUserRepository, notifier *MockNotifier) *Service {
	return NewService(repo, users, notifier, nil, zap.NewNop())
}

func validCheckoutRequest() *CheckoutRequest {
	return &CheckoutRequest{
		Items: []CheckoutItem{
			{ProductRef: "prod-1", Name: "Ankara gown", Quantity: 2, UnitPrice: 15000},
		},
		ShippingAddress: CheckoutAddress{
			FullName:    "Ada Obi",
			Address:     "12 Marina Rd",
			City:        "Lagos",
			Country:     "NG",
			PhoneNumber: "+2348012345678",
		},
		PaymentMethod: PaymentMethodPaystack,
		TotalPrice:    30000,
	}
}

// --- Tests ---

func TestService_Checkout(t *testing.T) {
	userID := uuid.New()

	t.Run("creates order in processing state", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil)

		ord, err := svc.Checkout(context.Background(), userID, validCheckoutRequest())
		assert.NoError(t, err)
		assert.Equal(t, userID, ord.UserID)
		assert.Equal(t, DeliveryStatusProcessing, ord.DeliveryStatus)
		assert.False(t, ord.IsPaid)
		assert.Len(t, ord.Items, 1)
		if assert.Len(t, ord.StatusHistory, 1) {
			assert.Equal(t, DeliveryStatusProcessing, ord.StatusHistory[0].Status)
		}
		repo.AssertExpectations(t)
	})

	t.Run("rejects empty items", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockUserRepository), new(MockNotifier))

		req := validCheckoutRequest()
		req.Items = nil

		_, err := svc.Checkout(context.Background(), userID, req)
		assert.ErrorIs(t, err, ErrEmptyItems)
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockUserRepository), new(MockNotifier))

		req := validCheckoutRequest()
		req.Items[0].Quantity = 0

		_, err := svc.Checkout(context.Background(), userID, req)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("rejects negative total", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockUserRepository), new(MockNotifier))

		req := validCheckoutRequest()
		req.TotalPrice = -1

		_, err := svc.Checkout(context.Background(), userID, req)
		assert.ErrorIs(t, err, ErrNegativeTotal)
	})

	t.Run("rejects unknown payment method", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockUserRepository), new(MockNotifier))

		req := validCheckoutRequest()
		req.PaymentMethod = PaymentMethod("barter")

		_, err := svc.Checkout(context.Background(), userID, req)
		assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	})
}

func TestService_GetForCaller(t *testing.T) {
	ownerID := uuid.New()
	orderID := uuid.New()

	t.Run("owner reads own order", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).Return(&Order{ID: orderID, UserID: ownerID}, nil)

		ord, err := svc.GetForCaller(context.Background(), orderID, ownerID, false)
		assert.NoError(t, err)
		assert.Equal(t, orderID, ord.ID)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).Return(&Order{ID: orderID, UserID: ownerID}, nil)

		_, err := svc.GetForCaller(context.Background(), orderID, uuid.New(), false)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("staff bypasses ownership", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).Return(&Order{ID: orderID, UserID: ownerID}, nil)

		ord, err := svc.GetForCaller(context.Background(), orderID, uuid.New(), true)
		assert.NoError(t, err)
		assert.Equal(t, orderID, ord.ID)
	})
}

func TestService_MarkPaid(t *testing.T) {
	orderID := uuid.New()
	result := &PaymentResult{TransactionID: "txn_1", Status: "success", Amount: 30000}

	t.Run("applies transition", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("MarkPaid", mock.Anything, orderID, PaymentMethodPaystack, result, mock.AnythingOfType("string")).
			Return(true, nil).Once()

		applied, err := svc.MarkPaid(context.Background(), orderID, PaymentMethodPaystack, result)
		assert.NoError(t, err)
		assert.True(t, applied)
		repo.AssertExpectations(t)
	})

	t.Run("already paid is a no-op", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("MarkPaid", mock.Anything, orderID, PaymentMethodStripe, result, mock.AnythingOfType("string")).
			Return(false, nil).Once()

		applied, err := svc.MarkPaid(context.Background(), orderID, PaymentMethodStripe, result)
		assert.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("retries on invoice reference collision", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("MarkPaid", mock.Anything, orderID, PaymentMethodPaystack, result, mock.AnythingOfType("string")).
			Return(false, gorm.ErrDuplicatedKey).Once()
		repo.On("MarkPaid", mock.Anything, orderID, PaymentMethodPaystack, result, mock.AnythingOfType("string")).
			Return(true, nil).Once()

		applied, err := svc.MarkPaid(context.Background(), orderID, PaymentMethodPaystack, result)
		assert.NoError(t, err)
		assert.True(t, applied)
		repo.AssertExpectations(t)
	})

	t.Run("gives up after exhausting references", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("MarkPaid", mock.Anything, orderID, PaymentMethodPaystack, result, mock.AnythingOfType("string")).
			Return(false, gorm.ErrDuplicatedKey).Times(invoiceRefAttempts)

		_, err := svc.MarkPaid(context.Background(), orderID, PaymentMethodPaystack, result)
		assert.ErrorIs(t, err, ErrInvoiceRefExhausted)
	})
}

func TestService_ConfirmPayment(t *testing.T) {
	orderID := uuid.New()
	ownerID := uuid.New()

	confirmRequest := func() *ConfirmPaymentRequest {
		return &ConfirmPaymentRequest{
			PaymentMethod: PaymentMethodPaystack,
			TransactionID: "txn_1",
		}
	}

	t.Run("pays the caller's order", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).
			Return(&Order{ID: orderID, UserID: ownerID}, nil).Once()
		repo.On("MarkPaid", mock.Anything, orderID, PaymentMethodPaystack, mock.MatchedBy(func(r *PaymentResult) bool {
			return r.TransactionID == "txn_1" && r.Status == "success" &&
				r.Currency == "NGN" && r.ExchangeRate == 1
		}), mock.AnythingOfType("string")).Return(true, nil).Once()
		repo.On("GetByID", mock.Anything, orderID).
			Return(&Order{ID: orderID, UserID: ownerID, IsPaid: true}, nil).Once()

		ord, applied, err := svc.ConfirmPayment(context.Background(), orderID, ownerID, confirmRequest())
		assert.NoError(t, err)
		assert.True(t, applied)
		assert.True(t, ord.IsPaid)
		repo.AssertExpectations(t)
	})

	t.Run("confirming a paid order is a no-op", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).
			Return(&Order{ID: orderID, UserID: ownerID, IsPaid: true}, nil)
		repo.On("MarkPaid", mock.Anything, orderID, PaymentMethodPaystack, mock.Anything, mock.AnythingOfType("string")).
			Return(false, nil).Once()

		_, applied, err := svc.ConfirmPayment(context.Background(), orderID, ownerID, confirmRequest())
		assert.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).
			Return(&Order{ID: orderID, UserID: uuid.New()}, nil)

		_, _, err := svc.ConfirmPayment(context.Background(), orderID, ownerID, confirmRequest())
		assert.ErrorIs(t, err, ErrNotOwner)
		repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown payment method", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		req := confirmRequest()
		req.PaymentMethod = "barter"

		_, _, err := svc.ConfirmPayment(context.Background(), orderID, ownerID, req)
		assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	})
}

func TestGenerateInvoiceRef(t *testing.T) {
	pattern := regexp.MustCompile(`^INV-\d{6}-\d{4}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, pattern, GenerateInvoiceRef())
	}
}

func TestService_UpdateStatus(t *testing.T) {
	orderID := uuid.New()

	t.Run("rejects empty status", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockUserRepository), new(MockNotifier))
		err := svc.UpdateStatus(context.Background(), orderID, "")
		assert.ErrorIs(t, err, ErrEmptyStatus)
	})

	t.Run("delegates to repository", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("UpdateStatus", mock.Anything, orderID, "shipped").Return(nil)

		err := svc.UpdateStatus(context.Background(), orderID, "shipped")
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestService_MarkDelivered(t *testing.T) {
	orderID := uuid.New()

	t.Run("sends one sms and records it", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := newTestService(repo, new(MockUserRepository), notifier)

		delivered := &Order{
			ID:              orderID,
			ShippingAddress: ShippingAddress{PhoneNumber: "+2348012345678"},
		}

		repo.On("MarkDelivered", mock.Anything, orderID).Return(nil)
		repo.On("GetByID", mock.Anything, orderID).Return(delivered, nil)
		notifier.On("Send", mock.Anything, "+2348012345678", mock.Anything, mock.Anything).Return(nil)
		repo.On("SetDeliveryNotified", mock.Anything, orderID).Return(nil)

		err := svc.MarkDelivered(context.Background(), orderID)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("skips notification when already notified", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := newTestService(repo, new(MockUserRepository), notifier)

		delivered := &Order{
			ID:              orderID,
			ShippingAddress: ShippingAddress{PhoneNumber: "+2348012345678"},
			Notifications:   Notifications{DeliveryNotified: true},
		}

		repo.On("MarkDelivered", mock.Anything, orderID).Return(nil)
		repo.On("GetByID", mock.Anything, orderID).Return(delivered, nil)

		err := svc.MarkDelivered(context.Background(), orderID)
		assert.NoError(t, err)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("notification failure does not fail delivery", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := newTestService(repo, new(MockUserRepository), notifier)

		delivered := &Order{
			ID:              orderID,
			ShippingAddress: ShippingAddress{PhoneNumber: "+2348012345678"},
		}

		repo.On("MarkDelivered", mock.Anything, orderID).Return(nil)
		repo.On("GetByID", mock.Anything, orderID).Return(delivered, nil)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

		err := svc.MarkDelivered(context.Background(), orderID)
		assert.NoError(t, err)
		repo.AssertNotCalled(t, "SetDeliveryNotified", mock.Anything, mock.Anything)
	})
}

func TestService_RequestReturn(t *testing.T) {
	ownerID := uuid.New()
	orderID := uuid.New()

	t.Run("owner opens return", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).Return(&Order{ID: orderID, UserID: ownerID}, nil)
		repo.On("RequestReturn", mock.Anything, orderID, "wrong size").Return(nil)

		err := svc.RequestReturn(context.Background(), orderID, ownerID, "wrong size")
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).Return(&Order{ID: orderID, UserID: ownerID}, nil)

		err := svc.RequestReturn(context.Background(), orderID, uuid.New(), "wrong size")
		assert.ErrorIs(t, err, ErrNotOwner)
		repo.AssertNotCalled(t, "RequestReturn", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_ProcessRefund(t *testing.T) {
	orderID := uuid.New()

	approvedOrder := func() *Order {
		return &Order{
			ID:         orderID,
			TotalPrice: 30000,
			Return:     ReturnRequest{Requested: true, Approved: true},
		}
	}

	t.Run("refunds approved return", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).Return(approvedOrder(), nil)
		repo.On("ProcessRefund", mock.Anything, orderID, int64(30000), "damaged").Return(nil)

		err := svc.ProcessRefund(context.Background(), orderID, 30000, "damaged")
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockUserRepository), new(MockNotifier))
		err := svc.ProcessRefund(context.Background(), orderID, 0, "")
		assert.ErrorIs(t, err, ErrInvalidRefundAmount)
	})

	t.Run("caps refund at the order total", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		repo.On("GetByID", mock.Anything, orderID).Return(approvedOrder(), nil)

		err := svc.ProcessRefund(context.Background(), orderID, 30001, "")
		assert.ErrorIs(t, err, ErrRefundExceedsTotal)
		repo.AssertNotCalled(t, "ProcessRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires approval", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		ord := approvedOrder()
		ord.Return.Approved = false
		repo.On("GetByID", mock.Anything, orderID).Return(ord, nil)

		err := svc.ProcessRefund(context.Background(), orderID, 1000, "")
		assert.ErrorIs(t, err, ErrReturnNotApproved)
	})

	t.Run("rejects a second refund", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockUserRepository), new(MockNotifier))

		ord := approvedOrder()
		ord.Return.Refunded = true
		repo.On("GetByID", mock.Anything, orderID).Return(ord, nil)

		err := svc.ProcessRefund(context.Background(), orderID, 1000, "")
		assert.ErrorIs(t, err, ErrAlreadyRefunded)
	})
}
