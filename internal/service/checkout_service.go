package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"printbox/internal/config"
	"printbox/internal/coupon"
	"printbox/internal/gateway"
	"printbox/internal/model"
	"printbox/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	paymentRepo repository.PaymentRepository
	couponRepo  repository.CouponRepository
	evaluator   coupon.Evaluator
	gateway     gateway.Client
	gatewayCfg  config.GatewayConfig
	logger      zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	paymentRepo repository.PaymentRepository,
	couponRepo repository.CouponRepository,
	evaluator coupon.Evaluator,
	gw gateway.Client,
	gatewayCfg config.GatewayConfig,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		paymentRepo: paymentRepo,
		couponRepo:  couponRepo,
		evaluator:   evaluator,
		gateway:     gw,
		gatewayCfg:  gatewayCfg,
		logger:      logger.With().Str("service", "checkout").Logger(),
	}
}

// pricedLine pairs a cart line with the product snapshot taken during
// validation, so the order items freeze exactly what was checked.
type pricedLine struct {
	product  model.Product
	quantity int
	subtotal decimal.Decimal
}

// CreateOrder implements the checkout contract: full validation before any
// write, atomic order+items creation, conditional coupon accounting, and a
// compensating delete if the gateway intent cannot be created.
func (s *checkoutService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.CreateOrderResponse, error) {
	if err := validateCreateOrderRequest(req); err != nil {
		return nil, err
	}

	// Price the cart. Everything is checked before the first write so a
	// failure here leaves no partial order behind.
	lines := make([]pricedLine, 0, len(req.Items))
	total := decimal.Zero

	for _, item := range req.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		if product == nil || !product.IsAvailable {
			return nil, model.NewNotFoundError(fmt.Sprintf("Product with ID %s not found", item.ProductID))
		}
		if product.StockQuantity < item.Quantity {
			return nil, model.NewConflictError(fmt.Sprintf(
				"Insufficient stock for %s. Available: %d", product.Name, product.StockQuantity))
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(subtotal)
		lines = append(lines, pricedLine{product: *product, quantity: item.Quantity, subtotal: subtotal})
	}

	total = total.Round(2)

	// Re-validate the coupon against the final cart total. A stale or
	// exhausted coupon is dropped silently rather than failing checkout.
	discount := decimal.Zero
	var appliedCoupon *model.Coupon

	if code := strings.ToUpper(strings.TrimSpace(req.CouponCode)); code != "" {
		c, err := s.couponRepo.GetActiveByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		if vErr := s.evaluator.Validate(c, total); vErr != nil {
			s.logger.Warn().Str("coupon_code", code).Err(vErr).Msg("coupon invalid at checkout, dropped")
		} else {
			discount = s.evaluator.Discount(c, total)
			appliedCoupon = c
		}
	}

	grossTotal := total
	total = total.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := time.Now()
	order := &model.Order{
		ID:             uuid.New(),
		OrderID:        model.NewOrderID(),
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		ShippingAddr:   req.ShippingAddress,
		ShippingCity:   req.ShippingCity,
		ShippingState:  req.ShippingState,
		ShippingPin:    req.ShippingPincode,
		Status:         model.OrderStatusPending,
		PaymentState:   model.PaymentStatePending,
		TotalAmount:    total,
		DiscountAmount: discount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if appliedCoupon != nil {
		order.CouponCode = &appliedCoupon.Code
	}

	items := make([]model.OrderItem, len(lines))
	for i, line := range lines {
		productID := line.product.ID
		items[i] = model.OrderItem{
			ID:           uuid.New(),
			OrderRowID:   order.ID,
			ProductID:    &productID,
			ProductName:  line.product.Name,
			ProductPrice: line.product.Price,
			ProductImage: line.product.ImageURL,
			Quantity:     line.quantity,
			Subtotal:     line.subtotal,
			CreatedAt:    now,
		}
	}

	if err := s.writeOrder(ctx, order, items); err != nil {
		return nil, err
	}

	// Coupon usage is incremented only after the order write succeeds.
	// Losing the conditional increment means a concurrent checkout took
	// the last use: strip the discount instead of failing the order.
	if appliedCoupon != nil {
		applied, err := s.couponRepo.IncrementUsage(ctx, appliedCoupon.Code)
		if err != nil {
			s.logger.Error().Err(err).Str("coupon_code", appliedCoupon.Code).Msg("coupon increment failed, dropping discount")
			applied = false
		}
		if !applied {
			if clearErr := s.orderRepo.ClearCoupon(ctx, order.ID, grossTotal); clearErr != nil {
				return nil, fmt.Errorf("failed to create order: %w", clearErr)
			}
			total = grossTotal
			order.TotalAmount = grossTotal
			order.DiscountAmount = decimal.Zero
			order.CouponCode = nil
		}
	}

	// Register the payment intent. Any gateway failure, including missing
	// credentials, rolls the just-created order back so no intent-less
	// PENDING order is left behind.
	intent, err := s.gateway.CreateIntent(ctx, total, order.OrderID, map[string]interface{}{
		"internal_order_id": order.OrderID,
	})
	if err != nil {
		if delErr := s.orderRepo.Delete(ctx, order.ID); delErr != nil {
			s.logger.Error().Err(delErr).Str("order_id", order.OrderID).Msg("compensating order delete failed")
		}
		return nil, err
	}

	if err := s.orderRepo.SetGatewayOrder(ctx, order.ID, intent.GatewayOrderID); err != nil {
		return nil, fmt.Errorf("failed to record gateway order: %w", err)
	}

	payment := &model.Payment{
		ID:             uuid.New(),
		OrderRowID:     order.ID,
		GatewayOrderID: intent.GatewayOrderID,
		Amount:         total,
		Currency:       intent.Currency,
		Status:         model.PaymentStatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.OrderID).
		Str("gateway_order_id", intent.GatewayOrderID).
		Str("total_amount", total.StringFixed(2)).
		Str("discount_amount", order.DiscountAmount.StringFixed(2)).
		Int("item_count", len(items)).
		Msg("order created")

	return &model.CreateOrderResponse{
		OrderID:        order.OrderID,
		GatewayOrderID: intent.GatewayOrderID,
		GatewayKeyID:   s.gatewayCfg.KeyID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		CustomerName:   order.CustomerName,
		CustomerEmail:  order.CustomerEmail,
		CustomerPhone:  order.CustomerPhone,
	}, nil
}

// writeOrder creates the order and its item snapshots in one transaction.
func (s *checkoutService) writeOrder(ctx context.Context, order *model.Order, items []model.OrderItem) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetOrderStatus retrieves an order with its items by external id.
func (s *checkoutService) GetOrderStatus(ctx context.Context, orderID string) (*model.OrderStatusResponse, error) {
	order, items, err := s.orderRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	return &model.OrderStatusResponse{Order: *order, Items: items}, nil
}

// ValidateCoupon is the advisory pre-check endpoint.
func (s *checkoutService) ValidateCoupon(ctx context.Context, req *model.ValidateCouponRequest) (*model.ValidateCouponResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, model.NewValidationError("Please enter a coupon code")
	}

	c, err := s.couponRepo.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to validate coupon: %w", err)
	}

	if vErr := s.evaluator.Validate(c, req.CartTotal); vErr != nil {
		return &model.ValidateCouponResponse{Valid: false, Message: vErr.Error()}, nil
	}

	discount := s.evaluator.Discount(c, req.CartTotal)
	return &model.ValidateCouponResponse{
		Valid:          true,
		DiscountAmount: &discount,
		Coupon:         c,
		Message:        fmt.Sprintf("Coupon applied! You save %s.", discount.StringFixed(2)),
	}, nil
}

// validateCreateOrderRequest rejects malformed checkout payloads before any
// business logic runs.
func validateCreateOrderRequest(req *model.CreateOrderRequest) error {
	if req == nil {
		return model.NewValidationError("Request body is required")
	}

	required := map[string]string{
		"customerName":    req.CustomerName,
		"customerEmail":   req.CustomerEmail,
		"customerPhone":   req.CustomerPhone,
		"shippingAddress": req.ShippingAddress,
		"shippingCity":    req.ShippingCity,
		"shippingState":   req.ShippingState,
		"shippingPincode": req.ShippingPincode,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return model.NewValidationError(fmt.Sprintf("%s is required", field))
		}
	}

	if len(req.Items) == 0 {
		return model.NewValidationError("Order must contain at least one item")
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return model.NewValidationError(fmt.Sprintf("Item %d: productId is required", i))
		}
		if item.Quantity <= 0 {
			return model.NewValidationError(fmt.Sprintf("Item %d: quantity must be greater than zero", i))
		}
	}

	return nil
}
