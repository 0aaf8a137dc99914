package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"printbox/internal/gateway"
	"printbox/internal/model"
	"printbox/internal/notify"
	"printbox/internal/repository"

	"github.com/rs/zerolog"
)

// reconcileService implements ReconciliationService.
//
// Both triggers funnel into the same two transitions, each a single
// conditional update on the order row. The success transition (MarkPaid)
// only applies while the order is PENDING or FAILED, and its side effects
// (payment capture, stock decrement, notification) run exactly when the
// transition applied; the second of two racing triggers sees
// applied == false and performs no side effects. The failure transition
// only applies while the order is PENDING, so a captured order is never
// downgraded and FAILED orders never carry side effects that a later
// capture would duplicate.
type reconcileService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	productRepo repository.ProductRepository
	gateway     gateway.Client
	dispatcher  *notify.Dispatcher
	logger      zerolog.Logger
}

// NewReconciliationService creates a new reconciliation service.
func NewReconciliationService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	productRepo repository.ProductRepository,
	gw gateway.Client,
	dispatcher *notify.Dispatcher,
	logger zerolog.Logger,
) ReconciliationService {
	return &reconcileService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		productRepo: productRepo,
		gateway:     gw,
		dispatcher:  dispatcher,
		logger:      logger.With().Str("service", "reconcile").Logger(),
	}
}

// VerifyPayment handles the client-originated verification callback
// (Trigger A).
func (s *reconcileService) VerifyPayment(ctx context.Context, req *model.VerifyPaymentRequest) (*model.VerifyPaymentResponse, error) {
	if req == nil || req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.GatewaySignature == "" {
		return nil, model.NewValidationError("Missing verification fields")
	}

	// Order lookup happens before the signature check so an unknown
	// gateway order id is reported as not-found, with no state change.
	order, err := s.orderRepo.GetByGatewayOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if !s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature) {
		s.logger.Warn().
			Str("order_id", order.OrderID).
			Str("gateway_order_id", req.GatewayOrderID).
			Msg("payment signature mismatch")

		if err := s.applyFailure(ctx, req.GatewayOrderID, "SIGNATURE_MISMATCH", "Payment signature verification failed"); err != nil {
			return nil, err
		}
		return nil, model.ErrInvalidSignature
	}

	reconciled, err := s.applyCapture(ctx, req.GatewayOrderID, req.GatewayPaymentID)
	if err != nil {
		return nil, err
	}

	return &model.VerifyPaymentResponse{
		Success: true,
		OrderID: reconciled.OrderID,
		Status:  reconciled.Status,
	}, nil
}

// HandleWebhook handles a raw gateway webhook body (Trigger B). The
// whole-body signature is verified against the webhook secret before the
// payload is parsed.
func (s *reconcileService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		s.logger.Warn().Msg("webhook signature invalid")
		return model.ErrInvalidSignature
	}

	var event model.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return model.NewValidationError("Invalid webhook payload")
	}

	entity := event.Payload.Payment.Entity
	s.logger.Info().
		Str("event", event.Event).
		Str("gateway_order_id", entity.OrderID).
		Msg("webhook received")

	switch event.Event {
	case model.WebhookEventPaymentCaptured:
		_, err := s.applyCapture(ctx, entity.OrderID, entity.ID)
		if err != nil {
			var domainErr *model.DomainError
			if errors.As(err, &domainErr) {
				// Business outcomes are acknowledged, not retried.
				s.logger.Error().
					Str("gateway_order_id", entity.OrderID).
					Str("code", domainErr.Code).
					Msg("webhook capture not applied")
				return nil
			}
			return err
		}

	case model.WebhookEventPaymentFailed:
		if err := s.applyFailure(ctx, entity.OrderID, entity.ErrorCode, entity.ErrorDesc); err != nil {
			return err
		}

	default:
		s.logger.Debug().Str("event", event.Event).Msg("webhook event ignored")
	}

	return nil
}

// RecordFailure records a client-reported payment failure.
func (s *reconcileService) RecordFailure(ctx context.Context, orderID, errorDesc string) error {
	if orderID == "" {
		return model.NewValidationError("orderId is required")
	}
	if errorDesc == "" {
		errorDesc = "Payment failed"
	}

	order, _, err := s.orderRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to record payment failure: %w", err)
	}
	if order == nil {
		return model.ErrOrderNotFound
	}

	applied, err := s.orderRepo.MarkFailedByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to record payment failure: %w", err)
	}
	if !applied {
		s.logger.Info().Str("order_id", orderID).Msg("failure report ignored, order not pending")
		return nil
	}

	if err := s.paymentRepo.MarkFailedByOrderRow(ctx, order.ID, errorDesc); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to update payment record")
	}

	return nil
}

// applyCapture runs the idempotent success path for a gateway order.
func (s *reconcileService) applyCapture(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*model.Order, error) {
	order, applied, err := s.orderRepo.MarkPaid(ctx, gatewayOrderID, gatewayPaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to apply capture: %w", err)
	}

	if !applied {
		// The transition did not match: either the order does not exist,
		// it was already reconciled (duplicate trigger), or it was
		// cancelled. Duplicates are a no-op success.
		existing, err := s.orderRepo.GetByGatewayOrderID(ctx, gatewayOrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to apply capture: %w", err)
		}
		if existing == nil {
			return nil, model.ErrOrderNotFound
		}
		if existing.Status.Reconciled() {
			s.logger.Info().
				Str("order_id", existing.OrderID).
				Str("status", string(existing.Status)).
				Msg("capture already reconciled, no-op")
			return existing, nil
		}
		return nil, model.ErrOrderCancelled
	}

	// The transition applied, so this caller owns the one-shot side
	// effects.
	if err := s.paymentRepo.MarkCaptured(ctx, gatewayOrderID, gatewayPaymentID); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to mark payment captured")
	}

	s.decrementStock(ctx, order)

	if !s.dispatcher.Enqueue(order.OrderID) {
		s.logger.Warn().Str("order_id", order.OrderID).Msg("confirmation notification not enqueued")
	}

	return order, nil
}

// decrementStock reduces stock for each item snapshot, re-checking the
// available quantity at decrement time. A shortfall is logged and skipped;
// it never fails the payment.
func (s *reconcileService) decrementStock(ctx context.Context, order *model.Order) {
	items, err := s.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to load items for stock decrement")
		return
	}

	for _, item := range items {
		if item.ProductID == nil {
			continue
		}

		applied, err := s.productRepo.DecrementStock(ctx, *item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Error().Err(err).
				Str("order_id", order.OrderID).
				Str("product_id", *item.ProductID).
				Msg("stock decrement failed, skipped")
			continue
		}
		if !applied {
			s.logger.Warn().
				Str("order_id", order.OrderID).
				Str("product_id", *item.ProductID).
				Int("quantity", item.Quantity).
				Msg("stock shortfall at capture, decrement skipped")
		}
	}
}

// applyFailure runs the failure path: the order is marked FAILED only
// while still PENDING, and the payment record captures the gateway error.
func (s *reconcileService) applyFailure(ctx context.Context, gatewayOrderID, errorCode, errorDesc string) error {
	applied, err := s.orderRepo.MarkFailed(ctx, gatewayOrderID)
	if err != nil {
		return fmt.Errorf("failed to apply failure: %w", err)
	}
	if !applied {
		s.logger.Info().
			Str("gateway_order_id", gatewayOrderID).
			Msg("failure signal ignored, order not pending")
		return nil
	}

	if err := s.paymentRepo.MarkFailed(ctx, gatewayOrderID, errorCode, errorDesc); err != nil {
		s.logger.Error().Err(err).
			Str("gateway_order_id", gatewayOrderID).
			Msg("failed to update payment record")
	}

	return nil
}
