package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asoasiko/server/internal/module/notification"
	"github.com/asoasiko/server/internal/module/order"
	"github.com/asoasiko/server/internal/module/payment/provider"
	"github.com/asoasiko/server/internal/module/user"
	"github.com/asoasiko/server/internal/utils/metrics"
)

// OrderService is the slice of the order module the reconciliation
// service needs. MarkPaid is the single idempotency guard shared by every
// confirmation path.
type OrderService interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetForCaller(ctx context.Context, id, callerID uuid.UUID, staff bool) (*order.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, method order.PaymentMethod, result *order.PaymentResult) (bool, error)
	SetPaymentNotified(ctx context.Context, id uuid.UUID) error
}

// WebhookOutcome labels how a webhook delivery was resolved.
type WebhookOutcome string

const (
	OutcomeApplied      WebhookOutcome = "applied"
	OutcomeAlreadyPaid  WebhookOutcome = "already_paid"
	OutcomeDuplicate    WebhookOutcome = "duplicate"
	OutcomeIgnored      WebhookOutcome = "ignored"
	OutcomeUnknownOrder WebhookOutcome = "unknown_order"
)

// Service orchestrates gateways, webhook verification and the order
// aggregate so that each order is paid at most once per gateway event.
type Service struct {
	registry *Registry
	chain    provider.ChainVerifier
	orders   OrderService
	users    user.Repository
	repo     Repository
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	currency string
}

// NewService creates a new payment service. The chain verifier and metrics
// handle may be nil; without a verifier, crypto claims stay pending.
func NewService(
	registry *Registry,
	chain provider.ChainVerifier,
	orders OrderService,
	users user.Repository,
	repo Repository,
	notifier notification.Notifier,
	m *metrics.Metrics,
	currency string,
	logger *zap.Logger,
) *Service {
	if notifier == nil {
		notifier = notification.Noop{}
	}
	if currency == "" {
		currency = "NGN"
	}
	return &Service{
		registry: registry,
		chain:    chain,
		orders:   orders,
		users:    users,
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		currency: currency,
		logger:   logger,
	}
}

// Initialize starts a payment for the caller's order on the named gateway.
// Gateway failures trigger a best-effort customer notification and
// surface as a provider error.
func (s *Service) Initialize(ctx context.Context, gatewayName string, callerID uuid.UUID, orderID uuid.UUID) (*provider.InitResult, error) {
	gateway, ok := s.registry.Gateway(gatewayName)
	if !ok {
		return nil, ErrGatewayNotFound
	}

	ord, err := s.orders.GetForCaller(ctx, orderID, callerID, false)
	if err != nil {
		return nil, err
	}
	if ord.IsPaid {
		return nil, ErrAlreadyPaid
	}

	email := ""
	if owner, err := s.users.GetByID(ctx, ord.UserID); err == nil {
		email = owner.Email
	}

	result, err := gateway.InitializePayment(ctx, &provider.InitRequest{
		Email:    email,
		Amount:   ord.TotalPrice,
		Currency: s.currency,
		OrderRef: ord.ID.String(),
	})
	if err != nil {
		s.recordInit(gatewayName, "gateway_error")
		s.logger.Error("payment initialization failed",
			zap.String("gateway", gatewayName),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		s.notifyInitFailure(ctx, email, ord.ID)
		return nil, err
	}

	s.recordInit(gatewayName, "success")
	return result, nil
}

func (s *Service) notifyInitFailure(ctx context.Context, email string, orderID uuid.UUID) {
	if email == "" {
		return
	}
	body := fmt.Sprintf("We could not start the payment for your order %s. No charge was made; please try again.", orderID)
	if err := s.notifier.Send(ctx, email, "Payment could not be started", body); err != nil {
		s.logger.Warn("payment failure notice not delivered",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

// HandleWebhook processes one webhook delivery. The returned error is nil
// for every acknowledged outcome; a non-nil error after signature
// verification tells the handler to answer 500 so the provider redelivers.
func (s *Service) HandleWebhook(ctx context.Context, gatewayName string, payload []byte, signature string) (WebhookOutcome, error) {
	verifier, ok := s.registry.Verifier(gatewayName)
	if !ok {
		return "", ErrGatewayNotFound
	}

	if err := verifier.VerifySignature(payload, signature); err != nil {
		s.recordWebhook(gatewayName, "unknown", "invalid_signature")
		s.logger.Warn("webhook signature rejected",
			zap.String("gateway", gatewayName),
			zap.Error(err),
		)
		return "", ErrInvalidSignature
	}

	event, err := verifier.ParseEvent(payload)
	if err != nil {
		s.logger.Warn("webhook event unparseable",
			zap.String("gateway", gatewayName),
			zap.Error(err),
		)
		return "", ErrMalformedEvent
	}

	// Delivery bookkeeping. A redelivered event is acknowledged here; if
	// the insert fails for another reason processing continues, since the
	// order-level guard makes a double pass harmless.
	err = s.repo.CreateWebhookEvent(ctx, &WebhookEvent{
		Provider: gatewayName,
		EventID:  event.ID,
		Type:     event.Type,
		OrderRef: event.OrderRef,
		Payload:  string(payload),
	})
	if errors.Is(err, ErrEventExists) {
		s.recordWebhook(gatewayName, event.Type, "duplicate")
		return OutcomeDuplicate, nil
	}
	if err != nil {
		s.logger.Error("webhook event not recorded",
			zap.String("gateway", gatewayName),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}

	if !event.Succeeded {
		s.recordWebhook(gatewayName, event.Type, "ignored")
		s.markProcessed(ctx, gatewayName, event.ID, nil)
		return OutcomeIgnored, nil
	}

	outcome, err := s.applyEvent(ctx, gatewayName, event)
	s.markProcessed(ctx, gatewayName, event.ID, err)
	if err != nil {
		s.recordWebhook(gatewayName, event.Type, "error")
		return "", err
	}
	s.recordWebhook(gatewayName, event.Type, string(outcome))
	return outcome, nil
}

// markProcessed records the processing outcome on the stored delivery.
// Bookkeeping failure never changes the webhook outcome.
func (s *Service) markProcessed(ctx context.Context, gatewayName, eventID string, processErr error) {
	if err := s.repo.MarkWebhookEventProcessed(ctx, gatewayName, eventID, processErr); err != nil {
		s.logger.Warn("webhook event bookkeeping not updated",
			zap.String("gateway", gatewayName),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

func (s *Service) applyEvent(ctx context.Context, gatewayName string, event *provider.Event) (WebhookOutcome, error) {
	orderID, err := uuid.Parse(event.OrderRef)
	if err != nil {
		s.logger.Warn("webhook carries no resolvable order",
			zap.String("gateway", gatewayName),
			zap.String("order_ref", event.OrderRef),
		)
		return OutcomeUnknownOrder, nil
	}

	ord, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		s.logger.Warn("webhook order not found",
			zap.String("gateway", gatewayName),
			zap.String("order_ref", event.OrderRef),
		)
		return OutcomeUnknownOrder, nil
	}
	if err != nil {
		return "", err
	}

	applied, err := s.orders.MarkPaid(ctx, orderID, order.PaymentMethod(gatewayName), &order.PaymentResult{
		TransactionID: event.Reference,
		Status:        "success",
		PaymentDate:   time.Now(),
		Currency:      event.Currency,
		Amount:        event.Amount,
	})
	if err != nil {
		return "", err
	}
	if !applied {
		return OutcomeAlreadyPaid, nil
	}

	s.notifyReceipt(ctx, ord.UserID, orderID)
	return OutcomeApplied, nil
}

// notifyReceipt sends the payment receipt notice once and records it.
func (s *Service) notifyReceipt(ctx context.Context, userID, orderID uuid.UUID) {
	owner, err := s.users.GetByID(ctx, userID)
	if err != nil || owner.Email == "" {
		return
	}

	body := fmt.Sprintf("We received your payment for order %s. Thank you for shopping with Aso Asiko.", orderID)
	if err := s.notifier.Send(ctx, owner.Email, "Payment received", body); err != nil {
		s.logger.Warn("receipt notice not delivered",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.orders.SetPaymentNotified(ctx, orderID); err != nil {
		s.logger.Warn("could not record receipt notice",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

// RecordCryptoClaim stores a claim and, when a chain verifier is
// configured and confirms the transaction, promotes it through the
// mark-paid guard. Returns the stored claim and whether this call paid
// the order.
func (s *Service) RecordCryptoClaim(ctx context.Context, callerID uuid.UUID, req *CryptoClaimRequest) (*CryptoClaim, bool, error) {
	if req.TxHash == "" {
		return nil, false, ErrMissingTxHash
	}

	ord, err := s.orders.GetForCaller(ctx, req.OrderID, callerID, false)
	if err != nil {
		return nil, false, err
	}
	if ord.IsPaid {
		return nil, false, ErrAlreadyPaid
	}

	email := ""
	if owner, err := s.users.GetByID(ctx, ord.UserID); err == nil {
		email = owner.Email
	}

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}
	amount := req.Amount
	if amount == 0 {
		amount = ord.TotalPrice
	}

	claim := &CryptoClaim{
		TxHash:   req.TxHash,
		OrderID:  ord.ID,
		Email:    email,
		Amount:   amount,
		Currency: currency,
		Status:   ClaimStatusPending,
	}
	if err := s.repo.CreateClaim(ctx, claim); err != nil {
		return nil, false, err
	}

	if s.chain == nil {
		return claim, false, nil
	}

	confirmed, err := s.chain.VerifyTransaction(ctx, req.TxHash)
	if err != nil {
		s.logger.Warn("chain verification unavailable, claim stays pending",
			zap.String("tx_hash", req.TxHash),
			zap.Error(err),
		)
		return claim, false, nil
	}
	if !confirmed {
		return claim, false, nil
	}

	applied, err := s.orders.MarkPaid(ctx, ord.ID, order.PaymentMethodCrypto, &order.PaymentResult{
		TransactionID: req.TxHash,
		Status:        "success",
		PaymentDate:   time.Now(),
		Currency:      currency,
		Amount:        amount,
	})
	if err != nil {
		return claim, false, err
	}

	claim.Status = ClaimStatusConfirmed
	if err := s.repo.UpdateClaimStatus(ctx, claim.ID, ClaimStatusConfirmed); err != nil {
		s.logger.Warn("could not update claim status",
			zap.String("claim_id", claim.ID.String()),
			zap.Error(err),
		)
	}

	if applied {
		s.notifyReceipt(ctx, ord.UserID, ord.ID)
	}
	return claim, applied, nil
}

func (s *Service) recordInit(gateway, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPaymentInit(gateway, outcome)
	}
}

func (s *Service) recordWebhook(gateway, event, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(gateway, event, outcome)
	}
}
