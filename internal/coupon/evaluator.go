// Package coupon evaluates discount codes against a cart total.
//
// The evaluator is advisory at the validate endpoint and authoritative at
// order creation: the same checks run in both places, and the usage cap is
// additionally enforced by the repository's conditional increment.
package coupon

import (
	"time"

	"printbox/internal/model"

	"github.com/shopspring/decimal"
)

var percentBase = decimal.NewFromInt(100)

// Evaluator validates coupons and computes discount amounts.
type Evaluator struct{}

// NewEvaluator creates a coupon evaluator.
func NewEvaluator() Evaluator {
	return Evaluator{}
}

// Validate checks a coupon against a cart total and returns the first
// failing reason: unknown/inactive, expired, usage cap reached, below
// minimum order amount.
func (Evaluator) Validate(c *model.Coupon, cartTotal decimal.Decimal) error {
	if c == nil || !c.IsActive {
		return model.ErrCouponNotFound
	}

	if c.ExpiryDate != nil {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		if c.ExpiryDate.Before(today) {
			return model.ErrCouponExpired
		}
	}

	if c.MaxUses != nil && c.TimesUsed >= *c.MaxUses {
		return model.ErrCouponExhausted
	}

	if cartTotal.LessThan(c.MinOrder) {
		return model.ErrCouponMinOrder
	}

	return nil
}

// Discount computes the discount amount for a valid coupon, rounded to two
// fraction digits and never below zero or above the cart total.
func (Evaluator) Discount(c *model.Coupon, cartTotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch c.DiscountType {
	case model.DiscountTypePercent:
		discount = cartTotal.Mul(c.DiscountValue).Div(percentBase)
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	case model.DiscountTypeFlat:
		discount = c.DiscountValue
		if discount.GreaterThan(cartTotal) {
			discount = cartTotal
		}
	default:
		return decimal.Zero
	}

	discount = discount.Round(2)
	if discount.IsNegative() {
		return decimal.Zero
	}

	return discount
}
