package order

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the closed set of accepted payment methods.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodBank           PaymentMethod = "bank"
	PaymentMethodBitcoin        PaymentMethod = "bitcoin"
	PaymentMethodUSDT           PaymentMethod = "usdt"
	PaymentMethodEther          PaymentMethod = "ether"
	PaymentMethodCashOnDelivery PaymentMethod = "cashOnDelivery"
	PaymentMethodPaystack       PaymentMethod = "paystack"
	PaymentMethodStripe         PaymentMethod = "stripe"
	PaymentMethodCrypto         PaymentMethod = "crypto"
)

// IsValid checks if the payment method is a known value.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBank, PaymentMethodBitcoin,
		PaymentMethodUSDT, PaymentMethodEther, PaymentMethodCashOnDelivery,
		PaymentMethodPaystack, PaymentMethodStripe, PaymentMethodCrypto:
		return true
	default:
		return false
	}
}

// DeliveryStatusProcessing is the delivery status every order starts in.
// The status vocabulary is otherwise free-form.
const (
	DeliveryStatusProcessing = "processing"
	DeliveryStatusDelivered  = "delivered"
)

// StatusPaid is the history tag appended on payment confirmation.
const StatusPaid = "paid"

// PaymentResult records how a payment was confirmed. Stored as a jsonb
// column; nil until confirmation and written exactly once.
type PaymentResult struct {
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	PaymentDate   time.Time `json:"payment_date"`
	Currency      string    `json:"currency"`
	ExchangeRate  float64   `json:"exchange_rate,omitempty"`
	Amount        int64     `json:"amount"` // Major currency units
}

// ShippingAddress is the destination captured at checkout.
type ShippingAddress struct {
	FullName    string `json:"full_name" gorm:"not null"`
	Address     string `json:"address" gorm:"not null"`
	City        string `json:"city" gorm:"not null"`
	PostalCode  string `json:"postal_code,omitempty"`
	Country     string `json:"country" gorm:"not null"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// ReturnRequest tracks the post-sale dispute state of an order.
// States: none -> requested -> approved/rejected -> refunded
// (refunded is reachable only from approved).
type ReturnRequest struct {
	Requested    bool       `json:"requested" gorm:"default:false"`
	Reason       string     `json:"reason,omitempty"`
	Approved     bool       `json:"approved" gorm:"default:false"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	Refunded     bool       `json:"refunded" gorm:"default:false"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`
	RefundAmount int64      `json:"refund_amount,omitempty"`
	RefundReason string     `json:"refund_reason,omitempty"`
}

// Fulfillment carries shipment tracking details.
type Fulfillment struct {
	Courier        string `json:"courier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// Notifications records which customer notices have been sent, so
// redeliveries and retries do not notify twice.
type Notifications struct {
	PaymentNotified  bool `json:"payment_notified" gorm:"default:false"`
	DeliveryNotified bool `json:"delivery_notified" gorm:"default:false"`
}

// Order is the permanent record of a placed purchase, its payment,
// delivery, and dispute state. Orders are never deleted.
type Order struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`

	ShippingAddress ShippingAddress `json:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`

	PaymentMethod PaymentMethod  `json:"payment_method" gorm:"not null"`
	PaymentResult *PaymentResult `json:"payment_result,omitempty" gorm:"type:jsonb;serializer:json"`

	// Fixed at creation, never recomputed from items. Major currency units.
	TotalPrice int64 `json:"total_price"`

	IsPaid bool       `json:"is_paid" gorm:"default:false"`
	PaidAt *time.Time `json:"paid_at,omitempty"`

	IsDelivered    bool       `json:"is_delivered" gorm:"default:false"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	DeliveryETA    *time.Time `json:"delivery_eta,omitempty" gorm:"column:delivery_eta"`
	DeliveryStatus string     `json:"delivery_status" gorm:"default:processing"`

	// Assigned lazily on first payment confirmation; unique once set.
	InvoiceRef *string `json:"invoice_ref,omitempty" gorm:"uniqueIndex"`

	Return        ReturnRequest `json:"return_request" gorm:"embedded;embeddedPrefix:return_"`
	Fulfillment   Fulfillment   `json:"fulfillment" gorm:"embedded"`
	Notifications Notifications `json:"notifications" gorm:"embedded;embeddedPrefix:notify_"`

	Notes string `json:"notes,omitempty"`

	StatusHistory []StatusEvent `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a line item captured at checkout. Immutable after creation.
type OrderItem struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID       uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductRef    string    `json:"product_ref" gorm:"not null"`
	Name          string    `json:"name"`
	Quantity      int       `json:"quantity" gorm:"not null"`
	SelectedColor string    `json:"selected_color,omitempty"`
	UnitPrice     int64     `json:"unit_price"`
}

// TableName returns the database table name.
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal returns quantity times unit price.
func (i *OrderItem) LineTotal() int64 {
	return int64(i.Quantity) * i.UnitPrice
}

// StatusEvent is one append-only entry in an order's status history.
type StatusEvent struct {
	ID        uuid.UUID `json:"-" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID   uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	Status    string    `json:"status" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

// TableName returns the database table name.
func (StatusEvent) TableName() string {
	return "order_status_history"
}
