package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/asoasiko/server/internal/module/notification"
	"github.com/asoasiko/server/internal/module/user"
	"github.com/asoasiko/server/internal/utils/metrics"
	"github.com/asoasiko/server/internal/utils/random"
)

// invoiceRefAttempts bounds the retry loop when a generated invoice
// reference collides with an existing one.
const invoiceRefAttempts = 5

// Service implements order lifecycle operations.
type Service struct {
	repo     Repository
	users    user.Repository
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a new order service. The metrics handle may be nil.
func NewService(repo Repository, users user.Repository, notifier notification.Notifier, m *metrics.Metrics, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notification.Noop{}
	}
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Checkout places a new order in the "processing" state.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, req *CheckoutRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}
	if req.TotalPrice < 0 {
		return nil, ErrNegativeTotal
	}
	if !req.PaymentMethod.IsValid() {
		return nil, ErrInvalidPaymentMethod
	}

	now := time.Now()
	order := &Order{
		UserID: userID,
		ShippingAddress: ShippingAddress{
			FullName:    req.ShippingAddress.FullName,
			Address:     req.ShippingAddress.Address,
			City:        req.ShippingAddress.City,
			PostalCode:  req.ShippingAddress.PostalCode,
			Country:     req.ShippingAddress.Country,
			PhoneNumber: req.ShippingAddress.PhoneNumber,
		},
		PaymentMethod:  req.PaymentMethod,
		TotalPrice:     req.TotalPrice,
		DeliveryStatus: DeliveryStatusProcessing,
		Notes:          req.Notes,
		StatusHistory: []StatusEvent{
			{Status: DeliveryStatusProcessing, UpdatedAt: now},
		},
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, OrderItem{
			ProductRef:    item.ProductRef,
			Name:          item.Name,
			Quantity:      item.Quantity,
			SelectedColor: item.SelectedColor,
			UnitPrice:     item.UnitPrice,
		})
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("total_price", order.TotalPrice),
	)
	return order, nil
}

// Get returns an order by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// GetForCaller returns an order, rejecting callers that neither own it nor
// hold a staff role.
func (s *Service) GetForCaller(ctx context.Context, id, callerID uuid.UUID, staff bool) (*Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !staff && order.UserID != callerID {
		return nil, ErrNotOwner
	}
	return order, nil
}

// ListMine returns the caller's orders.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, p *Pagination) ([]*Order, int64, error) {
	p.Normalize()
	return s.repo.ListByUser(ctx, userID, p)
}

// ListAll returns all orders (staff only; enforced at the route).
func (s *Service) ListAll(ctx context.Context, p *Pagination) ([]*Order, int64, error) {
	p.Normalize()
	return s.repo.ListAll(ctx, p)
}

// MarkPaid confirms payment on an order. It is the single entry point for
// every confirmation path (webhook, synchronous confirm, verified crypto
// claim); the repository guard makes a repeated confirmation a no-op.
// Returns whether this call applied the transition.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, method PaymentMethod, result *PaymentResult) (bool, error) {
	for attempt := 0; attempt < invoiceRefAttempts; attempt++ {
		ref := GenerateInvoiceRef()
		applied, err := s.repo.MarkPaid(ctx, id, method, result, ref)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Warn("invoice reference collision, retrying",
				zap.String("order_id", id.String()),
				zap.String("invoice_ref", ref),
			)
			continue
		}
		if err != nil {
			return false, err
		}
		if applied {
			if s.metrics != nil {
				s.metrics.RecordOrderPaid(string(method))
			}
			s.logger.Info("order marked paid",
				zap.String("order_id", id.String()),
				zap.String("method", string(method)),
				zap.String("transaction_id", result.TransactionID),
			)
		}
		return applied, nil
	}
	return false, ErrInvoiceRefExhausted
}

// GenerateInvoiceRef builds an invoice reference of the form
// INV-<last six digits of epoch millis>-<random 0..9999>. Uniqueness is
// enforced by the database; callers retry on collision.
func GenerateInvoiceRef() string {
	return fmt.Sprintf("INV-%06d-%04d", time.Now().UnixMilli()%1_000_000, random.Int(10000))
}

// ConfirmPayment applies a caller-reported payment result to the
// caller's own order. It runs through the same guard as webhook
// confirmation, so a racing webhook and synchronous confirm cannot both
// apply. Returns the refreshed order and whether this call applied the
// transition.
func (s *Service) ConfirmPayment(ctx context.Context, id, callerID uuid.UUID, req *ConfirmPaymentRequest) (*Order, bool, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, false, ErrInvalidPaymentMethod
	}
	if _, err := s.GetForCaller(ctx, id, callerID, false); err != nil {
		return nil, false, err
	}

	status := req.Status
	if status == "" {
		status = "success"
	}
	currency := req.Currency
	if currency == "" {
		currency = "NGN"
	}
	rate := req.ExchangeRate
	if rate == 0 {
		rate = 1
	}

	applied, err := s.MarkPaid(ctx, id, req.PaymentMethod, &PaymentResult{
		TransactionID: req.TransactionID,
		Status:        status,
		PaymentDate:   time.Now(),
		Currency:      currency,
		ExchangeRate:  rate,
	})
	if err != nil {
		return nil, false, err
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, applied, err
	}
	return order, applied, nil
}

// SetPaymentNotified records that the payment notice was sent.
func (s *Service) SetPaymentNotified(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetPaymentNotified(ctx, id)
}

// UpdateStatus tags the order with a free-form delivery status and appends
// a history entry.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if status == "" {
		return ErrEmptyStatus
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// MarkDelivered marks the order delivered and sends a best-effort SMS to
// the customer. Notification failure never rolls back the transition.
func (s *Service) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.MarkDelivered(ctx, id); err != nil {
		return err
	}
	s.notifyDelivered(ctx, id)
	return nil
}

func (s *Service) notifyDelivered(ctx context.Context, id uuid.UUID) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("delivery notice skipped", zap.String("order_id", id.String()), zap.Error(err))
		return
	}
	if order.Notifications.DeliveryNotified {
		return
	}

	phone := order.ShippingAddress.PhoneNumber
	if phone == "" {
		if owner, err := s.users.GetByID(ctx, order.UserID); err == nil {
			phone = owner.PhoneNumber
		}
	}
	if phone == "" {
		return
	}

	body := fmt.Sprintf("Your Aso Asiko order has been delivered. Ref: %s", order.ID)
	if err := s.notifier.Send(ctx, phone, "Order delivered", body); err != nil {
		s.logger.Warn("delivery notice failed", zap.String("order_id", id.String()), zap.Error(err))
		return
	}
	if err := s.repo.SetDeliveryNotified(ctx, id); err != nil {
		s.logger.Warn("could not record delivery notice", zap.String("order_id", id.String()), zap.Error(err))
	}
}

// RequestReturn opens a return request on the order. A second request
// conflicts.
func (s *Service) RequestReturn(ctx context.Context, id, callerID uuid.UUID, reason string) error {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order.UserID != callerID {
		return ErrNotOwner
	}
	return s.repo.RequestReturn(ctx, id, reason)
}

// ResolveReturn approves or rejects a pending return request.
func (s *Service) ResolveReturn(ctx context.Context, id uuid.UUID, approve bool, reason string) error {
	return s.repo.ResolveReturn(ctx, id, approve, reason)
}

// ProcessRefund issues a refund on an approved return. The amount is
// capped at the order total and approval is required.
func (s *Service) ProcessRefund(ctx context.Context, id uuid.UUID, amount int64, reason string) error {
	if amount <= 0 {
		return ErrInvalidRefundAmount
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if amount > order.TotalPrice {
		return ErrRefundExceedsTotal
	}
	if !order.Return.Approved {
		return ErrReturnNotApproved
	}
	if order.Return.Refunded {
		return ErrAlreadyRefunded
	}

	if err := s.repo.ProcessRefund(ctx, id, amount, reason); err != nil {
		return err
	}

	s.logger.Info("refund processed",
		zap.String("order_id", id.String()),
		zap.Int64("amount", amount),
	)
	return nil
}
