package repository

import (
	"context"
	"fmt"

	"printbox/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// GetActiveByCode retrieves an active coupon by its code.
func (r *couponRepository) GetActiveByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `
		SELECT code, discount_type, discount_value, max_discount_amount,
		       min_order_amount, max_uses, times_used, expiry_date, is_active, created_at
		FROM coupons
		WHERE code = $1 AND is_active
	`

	var c model.Coupon
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&c.Code, &c.DiscountType, &c.DiscountValue, &c.MaxDiscount,
		&c.MinOrder, &c.MaxUses, &c.TimesUsed, &c.ExpiryDate, &c.IsActive, &c.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("code", code).Msg("coupon not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	return &c, nil
}

// IncrementUsage atomically increments times_used under the usage cap.
// The guard is the same predicate the evaluator checks, so two concurrent
// checkouts racing for the last use of a capped coupon cannot both win.
func (r *couponRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	query := `
		UPDATE coupons
		SET times_used = times_used + 1
		WHERE code = $1 AND is_active
		  AND (max_uses IS NULL OR times_used < max_uses)
	`

	tag, err := r.pool.Exec(ctx, query, code)
	if err != nil {
		r.logger.Error().Err(err).Str("code", code).Msg("failed to increment coupon usage")
		return false, fmt.Errorf("failed to increment coupon usage: %w", err)
	}

	applied := tag.RowsAffected() > 0
	if !applied {
		r.logger.Warn().Str("code", code).Msg("coupon usage increment lost race, cap reached")
	}

	return applied, nil
}
