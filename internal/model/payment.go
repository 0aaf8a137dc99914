package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle of a payment record.
type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "CREATED"
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusCaptured   PaymentStatus = "CAPTURED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// Payment is the one-to-one payment transaction record for an order. It
// duplicates the gateway identifiers held on the order so each side is
// independently auditable.
type Payment struct {
	ID             uuid.UUID       `json:"-" db:"id"`
	OrderRowID     uuid.UUID       `json:"-" db:"order_row_id"`
	GatewayOrderID string          `json:"gatewayOrderId" db:"gateway_order_id"`
	GatewayPayID   *string         `json:"gatewayPaymentId,omitempty" db:"gateway_payment_id"`
	GatewaySig     *string         `json:"-" db:"gateway_signature"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Currency       string          `json:"currency" db:"currency"`
	Status         PaymentStatus   `json:"status" db:"status"`
	Method         string          `json:"paymentMethod,omitempty" db:"payment_method"`
	ErrorCode      string          `json:"errorCode,omitempty" db:"error_code"`
	ErrorDesc      string          `json:"errorDescription,omitempty" db:"error_description"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
}
