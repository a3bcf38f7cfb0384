package order

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The production column defaults are postgres expressions, so the test
// schema is declared directly instead of auto-migrated.
var orderTestSchema = []string{
	`CREATE TABLE orders (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		shipping_full_name text,
		shipping_address text,
		shipping_city text,
		shipping_postal_code text,
		shipping_country text,
		shipping_phone_number text,
		payment_method text,
		payment_result text,
		total_price integer,
		is_paid numeric DEFAULT 0,
		paid_at datetime,
		is_delivered numeric DEFAULT 0,
		delivered_at datetime,
		delivery_eta datetime,
		delivery_status text DEFAULT 'processing',
		invoice_ref text,
		return_requested numeric DEFAULT 0,
		return_reason text,
		return_approved numeric DEFAULT 0,
		return_approved_at datetime,
		return_refunded numeric DEFAULT 0,
		return_refunded_at datetime,
		return_refund_amount integer,
		return_refund_reason text,
		courier text,
		tracking_number text,
		notify_payment_notified numeric DEFAULT 0,
		notify_delivery_notified numeric DEFAULT 0,
		notes text,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX idx_orders_invoice_ref ON orders(invoice_ref)`,
	`CREATE TABLE order_items (
		id text PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		order_id text NOT NULL,
		product_ref text NOT NULL,
		name text,
		quantity integer NOT NULL,
		selected_color text,
		unit_price integer
	)`,
	`CREATE TABLE order_status_history (
		id text PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		order_id text NOT NULL,
		status text NOT NULL,
		updated_at datetime NOT NULL
	)`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	for _, stmt := range orderTestSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID) *Order {
	t.Helper()

	ord := &Order{
		ID:     uuid.New(),
		UserID: userID,
		ShippingAddress: ShippingAddress{
			FullName: "Ada Obi",
			Address:  "12 Marina Rd",
			City:     "Lagos",
			Country:  "NG",
		},
		PaymentMethod:  PaymentMethodPaystack,
		TotalPrice:     30000,
		DeliveryStatus: DeliveryStatusProcessing,
		Items: []OrderItem{
			{ID: uuid.New(), ProductRef: "prod-1", Name: "Ankara gown", Quantity: 2, UnitPrice: 15000},
		},
		StatusHistory: []StatusEvent{
			{ID: uuid.New(), Status: DeliveryStatusProcessing, UpdatedAt: time.Now()},
		},
	}
	require.NoError(t, repo.Create(context.Background(), ord))
	return ord
}

func paidResult() *PaymentResult {
	return &PaymentResult{
		TransactionID: "txn_1",
		Status:        "success",
		PaymentDate:   time.Now(),
		Currency:      "NGN",
		Amount:        30000,
	}
}

func TestRepository_StatusHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ord := seedOrder(t, repo, uuid.New())

	applied, err := repo.MarkPaid(ctx, ord.ID, PaymentMethodPaystack, paidResult(), "INV-000001-0001")
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, repo.MarkDelivered(ctx, ord.ID))

	got, err := repo.GetByID(ctx, ord.ID)
	require.NoError(t, err)

	require.Len(t, got.StatusHistory, 3)
	statuses := make([]string, 0, len(got.StatusHistory))
	for _, ev := range got.StatusHistory {
		statuses = append(statuses, ev.Status)
	}
	assert.Equal(t, []string{DeliveryStatusProcessing, StatusPaid, DeliveryStatusDelivered}, statuses)

	for i := 1; i < len(got.StatusHistory); i++ {
		assert.False(t, got.StatusHistory[i].UpdatedAt.Before(got.StatusHistory[i-1].UpdatedAt),
			"history timestamps must not decrease")
	}

	assert.True(t, got.IsPaid)
	assert.True(t, got.IsDelivered)
	require.NotNil(t, got.InvoiceRef)
	assert.Equal(t, "INV-000001-0001", *got.InvoiceRef)
	require.NotNil(t, got.PaymentResult)
	assert.Equal(t, "txn_1", got.PaymentResult.TransactionID)
}

func TestRepository_MarkPaid(t *testing.T) {
	t.Run("second confirmation is a no-op", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		ctx := context.Background()

		ord := seedOrder(t, repo, uuid.New())

		applied, err := repo.MarkPaid(ctx, ord.ID, PaymentMethodPaystack, paidResult(), "INV-000001-0001")
		require.NoError(t, err)
		require.True(t, applied)

		second := paidResult()
		second.TransactionID = "txn_2"
		applied, err = repo.MarkPaid(ctx, ord.ID, PaymentMethodStripe, second, "INV-000002-0002")
		require.NoError(t, err)
		assert.False(t, applied)

		got, err := repo.GetByID(ctx, ord.ID)
		require.NoError(t, err)

		paidEvents := 0
		for _, ev := range got.StatusHistory {
			if ev.Status == StatusPaid {
				paidEvents++
			}
		}
		assert.Equal(t, 1, paidEvents, "a redelivered confirmation must not append history")
		assert.Equal(t, "txn_1", got.PaymentResult.TransactionID)
		require.NotNil(t, got.InvoiceRef)
		assert.Equal(t, "INV-000001-0001", *got.InvoiceRef)
	})

	t.Run("duplicate invoice reference surfaces for retry", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		ctx := context.Background()

		first := seedOrder(t, repo, uuid.New())
		second := seedOrder(t, repo, uuid.New())

		applied, err := repo.MarkPaid(ctx, first.ID, PaymentMethodPaystack, paidResult(), "INV-000001-0001")
		require.NoError(t, err)
		require.True(t, applied)

		_, err = repo.MarkPaid(ctx, second.ID, PaymentMethodPaystack, paidResult(), "INV-000001-0001")
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

		got, err := repo.GetByID(ctx, second.ID)
		require.NoError(t, err)
		assert.False(t, got.IsPaid)
	})
}

func TestRepository_ResolveReturn(t *testing.T) {
	t.Run("settled return cannot be resolved again", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		ctx := context.Background()

		ord := seedOrder(t, repo, uuid.New())

		require.NoError(t, repo.RequestReturn(ctx, ord.ID, "torn seam"))
		require.NoError(t, repo.ResolveReturn(ctx, ord.ID, true, ""))
		require.NoError(t, repo.ProcessRefund(ctx, ord.ID, 10000, "approved return"))

		err := repo.ResolveReturn(ctx, ord.ID, false, "second look")
		assert.ErrorIs(t, err, ErrAlreadyRefunded)

		got, err := repo.GetByID(ctx, ord.ID)
		require.NoError(t, err)
		assert.True(t, got.Return.Refunded)
		assert.True(t, got.Return.Approved, "rejecting a refunded return must not clear approval")
		assert.Equal(t, int64(10000), got.Return.RefundAmount)
	})

	t.Run("no open request conflicts", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)

		ord := seedOrder(t, repo, uuid.New())

		err := repo.ResolveReturn(context.Background(), ord.ID, true, "")
		assert.ErrorIs(t, err, ErrReturnNotRequested)
	})

	t.Run("missing order", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)

		err := repo.ResolveReturn(context.Background(), uuid.New(), true, "")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRepository_ProcessRefund(t *testing.T) {
	t.Run("requires approval", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		ctx := context.Background()

		ord := seedOrder(t, repo, uuid.New())
		require.NoError(t, repo.RequestReturn(ctx, ord.ID, "torn seam"))

		err := repo.ProcessRefund(ctx, ord.ID, 10000, "no approval yet")
		assert.ErrorIs(t, err, ErrReturnNotApproved)
	})

	t.Run("second refund conflicts", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		ctx := context.Background()

		ord := seedOrder(t, repo, uuid.New())
		require.NoError(t, repo.RequestReturn(ctx, ord.ID, "torn seam"))
		require.NoError(t, repo.ResolveReturn(ctx, ord.ID, true, ""))
		require.NoError(t, repo.ProcessRefund(ctx, ord.ID, 10000, "approved return"))

		err := repo.ProcessRefund(ctx, ord.ID, 5000, "again")
		assert.ErrorIs(t, err, ErrAlreadyRefunded)
	})
}
