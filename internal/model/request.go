package model

import "github.com/shopspring/decimal"

// OrderItemRequest is a single cart line in a checkout request.
type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest is the checkout request payload.
type CreateOrderRequest struct {
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	CustomerPhone   string             `json:"customerPhone"`
	ShippingAddress string             `json:"shippingAddress"`
	ShippingCity    string             `json:"shippingCity"`
	ShippingState   string             `json:"shippingState"`
	ShippingPincode string             `json:"shippingPincode"`
	Items           []OrderItemRequest `json:"items"`
	CouponCode      string             `json:"couponCode,omitempty"`
}

// CreateOrderResponse carries everything the frontend needs to open the
// gateway payment form. Amount is in minor currency units.
type CreateOrderResponse struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	GatewayKeyID   string `json:"gatewayKeyId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	CustomerPhone  string `json:"customerPhone"`
}

// VerifyPaymentRequest is the client-originated payment verification
// callback (Trigger A).
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewaySignature string `json:"gatewaySignature"`
}

// VerifyPaymentResponse reports the outcome of a verification attempt.
type VerifyPaymentResponse struct {
	Success bool        `json:"success"`
	OrderID string      `json:"orderId,omitempty"`
	Status  OrderStatus `json:"status,omitempty"`
}

// PaymentFailedRequest records a client-reported payment failure.
type PaymentFailedRequest struct {
	OrderID   string `json:"orderId"`
	ErrorDesc string `json:"errorDescription,omitempty"`
}

// ValidateCouponRequest is the advisory coupon pre-check payload. The same
// validation is re-run at order creation; this endpoint is never trusted.
type ValidateCouponRequest struct {
	Code      string          `json:"code"`
	CartTotal decimal.Decimal `json:"cartTotal"`
}

// ValidateCouponResponse reports whether a coupon currently applies.
type ValidateCouponResponse struct {
	Valid          bool             `json:"valid"`
	DiscountAmount *decimal.Decimal `json:"discountAmount,omitempty"`
	Coupon         *Coupon          `json:"coupon,omitempty"`
	Message        string           `json:"message"`
}

// OrderStatusResponse is the order lookup payload: the order plus its
// frozen item snapshots.
type OrderStatusResponse struct {
	Order
	Items []OrderItem `json:"items"`
}

// WebhookEvent is the gateway's asynchronous event envelope (Trigger B).
// The body signature is verified against the raw bytes before this struct
// is ever decoded.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

// WebhookPayload wraps the payment entity inside a gateway event.
type WebhookPayload struct {
	Payment WebhookPayment `json:"payment"`
}

// WebhookPayment holds the entity envelope used by the gateway.
type WebhookPayment struct {
	Entity WebhookPaymentEntity `json:"entity"`
}

// WebhookPaymentEntity carries the gateway's own identifiers for the
// payment being reported.
type WebhookPaymentEntity struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorDesc string `json:"error_description,omitempty"`
}

// Webhook event names emitted by the gateway that this service reconciles.
const (
	WebhookEventPaymentCaptured = "payment.captured"
	WebhookEventPaymentFailed   = "payment.failed"
)
