package repository

import (
	"context"

	"printbox/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductRepository defines catalogue read access plus the guarded stock
// decrement used on the reconciliation success path.
type ProductRepository interface {
	// GetAll retrieves available products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns (nil, nil)
	// when no such product exists.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// DecrementStock subtracts qty from the product's stock only if the
	// current stock covers it. Returns whether the update was applied.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
}

// OrderRepository defines order persistence including the conditional
// state transitions the reconciliation engine relies on. Every Mark*
// method is a single-row compare-and-set: the bool result reports whether
// the transition was applied, and a false result carries no error.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts the order's item snapshots within the
	// provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByOrderID retrieves an order and its items by the external
	// order identifier. Returns (nil, nil, nil) when not found.
	GetByOrderID(ctx context.Context, orderID string) (*model.Order, []model.OrderItem, error)

	// GetByGatewayOrderID retrieves an order by the gateway's order
	// identifier. Returns (nil, nil) when not found.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error)

	// GetItems retrieves the item snapshots for an order row.
	GetItems(ctx context.Context, orderRowID uuid.UUID) ([]model.OrderItem, error)

	// SetGatewayOrder records the gateway order id on a freshly created
	// order. The column is write-once: a non-empty value is never
	// overwritten.
	SetGatewayOrder(ctx context.Context, orderRowID uuid.UUID, gatewayOrderID string) error

	// ClearCoupon strips the coupon snapshot from an order whose
	// conditional usage increment lost the race, restoring the
	// undiscounted total.
	ClearCoupon(ctx context.Context, orderRowID uuid.UUID, newTotal decimal.Decimal) error

	// MarkPaid transitions the order identified by gateway order id to
	// PAID/CAPTURED if it is still PENDING or FAILED, recording the
	// gateway payment id write-once. Returns the updated order when the
	// transition applied.
	MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*model.Order, bool, error)

	// MarkFailed transitions the order identified by gateway order id to
	// FAILED if it is still PENDING.
	MarkFailed(ctx context.Context, gatewayOrderID string) (bool, error)

	// MarkFailedByOrderID transitions the order identified by external
	// order id to FAILED if it is still PENDING.
	MarkFailedByOrderID(ctx context.Context, orderID string) (bool, error)

	// Delete removes an order together with its items and payment row.
	// Compensating rollback for a failed gateway intent creation only.
	Delete(ctx context.Context, orderRowID uuid.UUID) error
}

// PaymentRepository defines payment transaction persistence.
type PaymentRepository interface {
	// Create inserts a payment record.
	Create(ctx context.Context, payment *model.Payment) error

	// MarkCaptured sets the payment for a gateway order to CAPTURED and
	// records the gateway payment id write-once.
	MarkCaptured(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error

	// MarkFailed sets the payment for a gateway order to FAILED with the
	// gateway's error details.
	MarkFailed(ctx context.Context, gatewayOrderID, errorCode, errorDesc string) error

	// MarkFailedByOrderRow sets the payment belonging to an order row to
	// FAILED. Used when only the internal order is known.
	MarkFailedByOrderRow(ctx context.Context, orderRowID uuid.UUID, errorDesc string) error
}

// CouponRepository defines coupon lookup and the atomic usage accounting.
type CouponRepository interface {
	// GetActiveByCode retrieves an active coupon by its code. Returns
	// (nil, nil) when no active coupon matches.
	GetActiveByCode(ctx context.Context, code string) (*model.Coupon, error)

	// IncrementUsage atomically increments times_used, guarded by the
	// usage cap. Returns whether the increment was applied; a false
	// result means the coupon was exhausted by a concurrent checkout.
	IncrementUsage(ctx context.Context, code string) (bool, error)
}
