package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for order data access. Every mutation
// that must be safe under concurrent confirmation paths is expressed as a
// single conditional update rather than a read-then-write sequence.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, p *Pagination) ([]*Order, int64, error)
	ListAll(ctx context.Context, p *Pagination) ([]*Order, int64, error)

	// MarkPaid flips the order to paid if and only if it is not already
	// paid. Returns false with a nil error when the guard did not apply
	// (the order was already paid); callers treat that as a no-op success.
	// A duplicate invoice reference surfaces as gorm.ErrDuplicatedKey.
	MarkPaid(ctx context.Context, id uuid.UUID, method PaymentMethod, result *PaymentResult, invoiceRef string) (bool, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkDelivered(ctx context.Context, id uuid.UUID) error

	RequestReturn(ctx context.Context, id uuid.UUID, reason string) error
	ResolveReturn(ctx context.Context, id uuid.UUID, approved bool, reason string) error
	ProcessRefund(ctx context.Context, id uuid.UUID, amount int64, reason string) error

	SetPaymentNotified(ctx context.Context, id uuid.UUID) error
	SetDeliveryNotified(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("updated_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, p *Pagination) ([]*Order, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID), p)
}

func (r *repository) ListAll(ctx context.Context, p *Pagination) ([]*Order, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&Order{}), p)
}

func (r *repository) list(ctx context.Context, query *gorm.DB, p *Pagination) ([]*Order, int64, error) {
	var orders []*Order
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(p.Offset()).
		Limit(p.PageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, method PaymentMethod, result *PaymentResult, invoiceRef string) (bool, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return false, fmt.Errorf("encode payment result: %w", err)
	}

	applied := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		// The is_paid predicate makes this a compare-and-set: of any
		// number of concurrent confirmations, exactly one applies.
		res := tx.Model(&Order{}).
			Where("id = ? AND is_paid = ?", id, false).
			Updates(map[string]interface{}{
				"is_paid":        true,
				"paid_at":        now,
				"payment_method": method,
				"payment_result": string(payload),
				"invoice_ref":    gorm.Expr("COALESCE(invoice_ref, ?)", invoiceRef),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Create(&StatusEvent{
			OrderID:   id,
			Status:    StatusPaid,
			UpdatedAt: now,
		}).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	return applied, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		res := tx.Model(&Order{}).
			Where("id = ?", id).
			Update("delivery_status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}

		return tx.Create(&StatusEvent{
			OrderID:   id,
			Status:    status,
			UpdatedAt: now,
		}).Error
	})
}

func (r *repository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		res := tx.Model(&Order{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_delivered":    true,
				"delivered_at":    now,
				"delivery_status": DeliveryStatusDelivered,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}

		return tx.Create(&StatusEvent{
			OrderID:   id,
			Status:    DeliveryStatusDelivered,
			UpdatedAt: now,
		}).Error
	})
}

func (r *repository) RequestReturn(ctx context.Context, id uuid.UUID, reason string) error {
	res := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND return_requested = ?", id, false).
		Updates(map[string]interface{}{
			"return_requested": true,
			"return_reason":    reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.explainReturnConflict(ctx, id)
	}
	return nil
}

// explainReturnConflict distinguishes a missing order from an order whose
// return was already requested.
func (r *repository) explainReturnConflict(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrOrderNotFound
	}
	return ErrReturnAlreadyRequested
}

func (r *repository) ResolveReturn(ctx context.Context, id uuid.UUID, approved bool, reason string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"return_approved":    approved,
		"return_approved_at": now,
	}
	if reason != "" {
		updates["return_reason"] = reason
	}

	// A refunded return is settled; resolving it again could clear the
	// approval that justified the refund.
	res := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND return_requested = ? AND return_refunded = ?", id, true, false).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var order Order
		err := r.db.WithContext(ctx).Select("return_requested", "return_refunded").Where("id = ?", id).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.Return.Refunded {
			return ErrAlreadyRefunded
		}
		return ErrReturnNotRequested
	}
	return nil
}

func (r *repository) ProcessRefund(ctx context.Context, id uuid.UUID, amount int64, reason string) error {
	now := time.Now()

	// Refund only ever applies to an approved, not yet refunded return.
	res := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND return_approved = ? AND return_refunded = ?", id, true, false).
		Updates(map[string]interface{}{
			"return_refunded":      true,
			"return_refunded_at":   now,
			"return_refund_amount": amount,
			"return_refund_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var order Order
		err := r.db.WithContext(ctx).Select("return_approved", "return_refunded").Where("id = ?", id).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.Return.Refunded {
			return ErrAlreadyRefunded
		}
		return ErrReturnNotApproved
	}
	return nil
}

func (r *repository) SetPaymentNotified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", id).
		Update("notify_payment_notified", true).Error
}

func (r *repository) SetDeliveryNotified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", id).
		Update("notify_delivery_notified", true).Error
}
