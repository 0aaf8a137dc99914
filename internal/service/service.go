package service

import (
	"context"

	"printbox/internal/model"
)

// ProductService defines the read-only storefront catalogue surface.
type ProductService interface {
	// GetAll retrieves available products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// CheckoutService turns a cart into a durable order with a gateway payment
// intent.
type CheckoutService interface {
	// CreateOrder validates the cart, creates the Order and its item
	// snapshots, applies an optional coupon, and registers a payment
	// intent with the gateway. A gateway failure rolls the order back.
	CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.CreateOrderResponse, error)

	// GetOrderStatus retrieves an order with its items by external id.
	GetOrderStatus(ctx context.Context, orderID string) (*model.OrderStatusResponse, error)

	// ValidateCoupon is the advisory coupon pre-check. Its verdict is
	// never trusted at order creation, where validation re-runs.
	ValidateCoupon(ctx context.Context, req *model.ValidateCouponRequest) (*model.ValidateCouponResponse, error)
}

// ReconciliationService applies externally reported payment outcomes to
// orders exactly once, across both the synchronous verify callback and the
// asynchronous gateway webhook.
type ReconciliationService interface {
	// VerifyPayment handles the client-originated verification callback.
	VerifyPayment(ctx context.Context, req *model.VerifyPaymentRequest) (*model.VerifyPaymentResponse, error)

	// HandleWebhook handles a raw gateway webhook body. The signature is
	// checked against the raw bytes before anything is parsed. Business
	// outcomes (unknown order, duplicate event) are not errors; only
	// signature, parse and infrastructure failures are.
	HandleWebhook(ctx context.Context, body []byte, signature string) error

	// RecordFailure records a client-reported payment failure for an
	// order that is still pending.
	RecordFailure(ctx context.Context, orderID, errorDesc string) error
}
