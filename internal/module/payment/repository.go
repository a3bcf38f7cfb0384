package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for payment bookkeeping data access.
type Repository interface {
	// CreateWebhookEvent records a delivery. A redelivered event returns
	// ErrEventExists without touching the stored row.
	CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error
	MarkWebhookEventProcessed(ctx context.Context, provider, eventID string, processErr error) error

	// CreateClaim stores a crypto claim. A duplicate transaction hash
	// returns ErrClaimExists.
	CreateClaim(ctx context.Context, claim *CryptoClaim) error
	UpdateClaimStatus(ctx context.Context, id uuid.UUID, status ClaimStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEventExists
	}
	return err
}

func (r *repository) MarkWebhookEventProcessed(ctx context.Context, provider, eventID string, processErr error) error {
	updates := map[string]interface{}{
		"processed": processErr == nil,
	}
	if processErr != nil {
		updates["process_err"] = processErr.Error()
	}
	return r.db.WithContext(ctx).Model(&WebhookEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Updates(updates).Error
}

func (r *repository) CreateClaim(ctx context.Context, claim *CryptoClaim) error {
	err := r.db.WithContext(ctx).Create(claim).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrClaimExists
	}
	return err
}

func (r *repository) UpdateClaimStatus(ctx context.Context, id uuid.UUID, status ClaimStatus) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if status == ClaimStatusConfirmed {
		updates["verified_at"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&CryptoClaim{}).
		Where("id = ?", id).
		Updates(updates).Error
}
