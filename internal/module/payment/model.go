package payment

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is the bookkeeping record for one webhook delivery. The
// (provider, event_id) pair is unique so a redelivered event is detected
// before any processing.
type WebhookEvent struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Provider   string    `json:"provider" gorm:"not null;uniqueIndex:idx_webhook_provider_event"`
	EventID    string    `json:"event_id" gorm:"not null;uniqueIndex:idx_webhook_provider_event"`
	Type       string    `json:"type"`
	OrderRef   string    `json:"order_ref"`
	Payload    string    `json:"-" gorm:"type:jsonb"`
	Processed  bool      `json:"processed" gorm:"default:false"`
	ProcessErr string    `json:"process_err,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "payment_webhook_events"
}

// ClaimStatus is the verification state of a crypto payment claim.
type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusConfirmed ClaimStatus = "confirmed"
	ClaimStatusRejected  ClaimStatus = "rejected"
)

// CryptoClaim is a stored unverified payment claim. It carries no
// authority over the order: only on-chain confirmation promotes it, and
// the promotion goes through the same mark-paid guard as webhooks.
type CryptoClaim struct {
	ID         uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TxHash     string      `json:"tx_hash" gorm:"not null;uniqueIndex"`
	OrderID    uuid.UUID   `json:"order_id" gorm:"type:uuid;not null;index"`
	Email      string      `json:"email"`
	Amount     int64       `json:"amount"` // Major currency units
	Currency   string      `json:"currency"`
	Status     ClaimStatus `json:"status" gorm:"default:pending"`
	VerifiedAt *time.Time  `json:"verified_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName returns the database table name.
func (CryptoClaim) TableName() string {
	return "crypto_claims"
}
