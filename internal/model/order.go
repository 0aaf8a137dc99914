package model

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus tracks an order through payment and fulfilment.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Reconciled reports whether the order has already been taken past PENDING
// on the success path. A second capture signal for such an order is a no-op.
func (s OrderStatus) Reconciled() bool {
	switch s {
	case OrderStatusPaid, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// PaymentState is the order-side mirror of the gateway outcome. It is kept
// separate from OrderStatus because OrderStatus also encodes fulfilment
// progress.
type PaymentState string

const (
	PaymentStatePending  PaymentState = "PENDING"
	PaymentStateCaptured PaymentState = "CAPTURED"
	PaymentStateFailed   PaymentState = "FAILED"
)

// Order represents a single checkout attempt.
//
// The gateway columns (GatewayOrderID, GatewayPaymentID, GatewaySignature)
// are write-once: the repository never overwrites a non-empty value, so the
// audit trail survives retries.
type Order struct {
	ID             uuid.UUID       `json:"-" db:"id"`
	OrderID        string          `json:"orderId" db:"order_id"`
	CustomerName   string          `json:"customerName" db:"customer_name"`
	CustomerEmail  string          `json:"customerEmail" db:"customer_email"`
	CustomerPhone  string          `json:"customerPhone" db:"customer_phone"`
	ShippingAddr   string          `json:"shippingAddress" db:"shipping_address"`
	ShippingCity   string          `json:"shippingCity" db:"shipping_city"`
	ShippingState  string          `json:"shippingState" db:"shipping_state"`
	ShippingPin    string          `json:"shippingPincode" db:"shipping_pincode"`
	Status         OrderStatus     `json:"status" db:"status"`
	PaymentState   PaymentState    `json:"paymentStatus" db:"payment_status"`
	TotalAmount    decimal.Decimal `json:"totalAmount" db:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	CouponCode     *string         `json:"couponCode,omitempty" db:"coupon_code"`
	GatewayOrderID *string         `json:"-" db:"gateway_order_id"`
	GatewayPayID   *string         `json:"-" db:"gateway_payment_id"`
	GatewaySig     *string         `json:"-" db:"gateway_signature"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a frozen snapshot of one purchased line, captured at order
// creation and never mutated afterwards. ProductID is nullable so the line
// survives product deletion.
type OrderItem struct {
	ID           uuid.UUID       `json:"-" db:"id"`
	OrderRowID   uuid.UUID       `json:"-" db:"order_row_id"`
	ProductID    *string         `json:"productId,omitempty" db:"product_id"`
	ProductName  string          `json:"productName" db:"product_name"`
	ProductPrice decimal.Decimal `json:"productPrice" db:"product_price"`
	ProductImage string          `json:"productImage,omitempty" db:"product_image"`
	Quantity     int             `json:"quantity" db:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal" db:"subtotal"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

const orderIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderID generates an external-facing order identifier of the form
// ORD<UTC timestamp><4 random chars>. Uniqueness is ultimately enforced by
// the database constraint on order_id.
func NewOrderID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	suffix := make([]byte, 4)
	for i, b := range buf {
		suffix[i] = orderIDCharset[int(b)%len(orderIDCharset)]
	}
	return "ORD" + time.Now().UTC().Format("20060102150405") + string(suffix)
}
