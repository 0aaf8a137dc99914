package repository

import (
	"context"
	"fmt"

	"printbox/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// paymentRepository implements the PaymentRepository interface using PostgreSQL.
type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

// Create inserts a payment record.
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, order_row_id, gateway_order_id, gateway_payment_id,
			amount, currency, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		payment.ID, payment.OrderRowID, payment.GatewayOrderID, payment.GatewayPayID,
		payment.Amount, payment.Currency, payment.Status, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("gateway_order_id", payment.GatewayOrderID).
			Msg("failed to create payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// MarkCaptured sets the payment to CAPTURED, recording the gateway payment
// id write-once.
func (r *paymentRepository) MarkCaptured(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error {
	query := `
		UPDATE payments
		SET status = 'CAPTURED',
		    gateway_payment_id = COALESCE(gateway_payment_id, $2),
		    updated_at = now()
		WHERE gateway_order_id = $1
	`

	if _, err := r.pool.Exec(ctx, query, gatewayOrderID, gatewayPaymentID); err != nil {
		r.logger.Error().Err(err).
			Str("gateway_order_id", gatewayOrderID).
			Msg("failed to mark payment captured")
		return fmt.Errorf("failed to mark payment captured: %w", err)
	}

	return nil
}

// MarkFailed sets the payment to FAILED with the gateway's error details.
func (r *paymentRepository) MarkFailed(ctx context.Context, gatewayOrderID, errorCode, errorDesc string) error {
	query := `
		UPDATE payments
		SET status = 'FAILED', error_code = $2, error_description = $3, updated_at = now()
		WHERE gateway_order_id = $1
	`

	if _, err := r.pool.Exec(ctx, query, gatewayOrderID, errorCode, errorDesc); err != nil {
		r.logger.Error().Err(err).
			Str("gateway_order_id", gatewayOrderID).
			Msg("failed to mark payment failed")
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}

	return nil
}

// MarkFailedByOrderRow sets the payment belonging to an order row to FAILED.
func (r *paymentRepository) MarkFailedByOrderRow(ctx context.Context, orderRowID uuid.UUID, errorDesc string) error {
	query := `
		UPDATE payments
		SET status = 'FAILED', error_description = $2, updated_at = now()
		WHERE order_row_id = $1
	`

	if _, err := r.pool.Exec(ctx, query, orderRowID, errorDesc); err != nil {
		r.logger.Error().Err(err).
			Str("order_row_id", orderRowID.String()).
			Msg("failed to mark payment failed")
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}

	return nil
}
