package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a coupon discount is computed.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "PERCENT"
	DiscountTypeFlat    DiscountType = "FLAT"
)

// Coupon is a discount code. TimesUsed is monotonically incremented, never
// decremented; the repository enforces times_used <= max_uses with the same
// conditional update used at validation time.
type Coupon struct {
	Code          string           `json:"code" db:"code"`
	DiscountType  DiscountType     `json:"discountType" db:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discountValue" db:"discount_value"`
	MaxDiscount   *decimal.Decimal `json:"maxDiscountAmount,omitempty" db:"max_discount_amount"`
	MinOrder      decimal.Decimal  `json:"minOrderAmount" db:"min_order_amount"`
	MaxUses       *int             `json:"maxUses,omitempty" db:"max_uses"`
	TimesUsed     int              `json:"timesUsed" db:"times_used"`
	ExpiryDate    *time.Time       `json:"expiryDate,omitempty" db:"expiry_date"`
	IsActive      bool             `json:"isActive" db:"is_active"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
}
