package repository

import (
	"context"
	"fmt"

	"printbox/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `
	id, order_id, customer_name, customer_email, customer_phone,
	shipping_address, shipping_city, shipping_state, shipping_pincode,
	status, payment_status, total_amount, discount_amount, coupon_code,
	gateway_order_id, gateway_payment_id, gateway_signature,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.OrderID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddr, &o.ShippingCity, &o.ShippingState, &o.ShippingPin,
		&o.Status, &o.PaymentState, &o.TotalAmount, &o.DiscountAmount, &o.CouponCode,
		&o.GatewayOrderID, &o.GatewayPayID, &o.GatewaySig,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_id, customer_name, customer_email, customer_phone,
			shipping_address, shipping_city, shipping_state, shipping_pincode,
			status, payment_status, total_amount, discount_amount, coupon_code,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.OrderID, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.ShippingAddr, order.ShippingCity, order.ShippingState, order.ShippingPin,
		order.Status, order.PaymentState, order.TotalAmount, order.DiscountAmount, order.CouponCode,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.OrderID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.OrderID).
		Msg("order created")

	return nil
}

// CreateOrderItems inserts the order's item snapshots within the provided
// transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (
			id, order_row_id, product_id, product_name, product_price,
			product_image, quantity, subtotal, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.OrderRowID, item.ProductID, item.ProductName, item.ProductPrice,
			item.ProductImage, item.Quantity, item.Subtotal, item.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("product_name", items[i].ProductName).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// GetByOrderID retrieves an order and its items by the external identifier.
func (r *orderRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Order, []model.OrderItem, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", orderID).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.GetItems(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetByGatewayOrderID retrieves an order by the gateway's order identifier.
func (r *orderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway_order_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, gatewayOrderID))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("gateway_order_id", gatewayOrderID).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("gateway_order_id", gatewayOrderID).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

// GetItems retrieves the item snapshots for an order row.
func (r *orderRepository) GetItems(ctx context.Context, orderRowID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_row_id, product_id, product_name, product_price,
		       product_image, quantity, subtotal, created_at
		FROM order_items
		WHERE order_row_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderRowID)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderRowID, &item.ProductID, &item.ProductName, &item.ProductPrice,
			&item.ProductImage, &item.Quantity, &item.Subtotal, &item.CreatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// SetGatewayOrder records the gateway order id write-once.
func (r *orderRepository) SetGatewayOrder(ctx context.Context, orderRowID uuid.UUID, gatewayOrderID string) error {
	query := `
		UPDATE orders
		SET gateway_order_id = $2, updated_at = now()
		WHERE id = $1 AND gateway_order_id IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, orderRowID, gatewayOrderID)
	if err != nil {
		r.logger.Error().Err(err).Str("gateway_order_id", gatewayOrderID).Msg("failed to set gateway order id")
		return fmt.Errorf("failed to set gateway order id: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("gateway order id already set for order %s", orderRowID)
	}

	return nil
}

// ClearCoupon strips the coupon snapshot and restores the undiscounted total.
func (r *orderRepository) ClearCoupon(ctx context.Context, orderRowID uuid.UUID, newTotal decimal.Decimal) error {
	query := `
		UPDATE orders
		SET coupon_code = NULL, discount_amount = 0, total_amount = $2, updated_at = now()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, orderRowID, newTotal); err != nil {
		r.logger.Error().Err(err).Msg("failed to clear coupon from order")
		return fmt.Errorf("failed to clear coupon from order: %w", err)
	}

	return nil
}

// MarkPaid applies the success transition as a single conditional update.
// Racing triggers are serialised by the row predicate: the second racer
// matches zero rows and gets applied == false.
func (r *orderRepository) MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*model.Order, bool, error) {
	query := `
		UPDATE orders
		SET status = 'PAID',
		    payment_status = 'CAPTURED',
		    gateway_payment_id = COALESCE(gateway_payment_id, $2),
		    updated_at = now()
		WHERE gateway_order_id = $1 AND status IN ('PENDING', 'FAILED')
		RETURNING ` + orderColumns

	order, err := scanOrder(r.pool.QueryRow(ctx, query, gatewayOrderID, gatewayPaymentID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		r.logger.Error().Err(err).Str("gateway_order_id", gatewayOrderID).Msg("failed to mark order paid")
		return nil, false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	r.logger.Info().
		Str("order_id", order.OrderID).
		Str("gateway_order_id", gatewayOrderID).
		Msg("order marked paid")

	return order, true, nil
}

// MarkFailed applies the failure transition only while the order is still
// PENDING: a captured order is never downgraded by a late failure signal.
func (r *orderRepository) MarkFailed(ctx context.Context, gatewayOrderID string) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'FAILED', payment_status = 'FAILED', updated_at = now()
		WHERE gateway_order_id = $1 AND status = 'PENDING'
	`

	tag, err := r.pool.Exec(ctx, query, gatewayOrderID)
	if err != nil {
		r.logger.Error().Err(err).Str("gateway_order_id", gatewayOrderID).Msg("failed to mark order failed")
		return false, fmt.Errorf("failed to mark order failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkFailedByOrderID is the failure transition keyed by external order id.
func (r *orderRepository) MarkFailedByOrderID(ctx context.Context, orderID string) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'FAILED', payment_status = 'FAILED', updated_at = now()
		WHERE order_id = $1 AND status = 'PENDING'
	`

	tag, err := r.pool.Exec(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to mark order failed")
		return false, fmt.Errorf("failed to mark order failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Delete removes the order, its items and its payment row in one
// transaction. Only used to compensate a failed gateway intent creation.
func (r *orderRepository) Delete(ctx context.Context, orderRowID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, query := range []string{
		`DELETE FROM payments WHERE order_row_id = $1`,
		`DELETE FROM order_items WHERE order_row_id = $1`,
		`DELETE FROM orders WHERE id = $1`,
	} {
		if _, err := tx.Exec(ctx, query, orderRowID); err != nil {
			r.logger.Error().Err(err).Str("order_row_id", orderRowID.String()).Msg("failed to delete order")
			return fmt.Errorf("failed to delete order: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order delete: %w", err)
	}

	r.logger.Warn().Str("order_row_id", orderRowID.String()).Msg("order rolled back after gateway failure")

	return nil
}
