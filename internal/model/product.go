package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a storefront catalogue entry. The checkout flow reads price,
// stock and availability; catalogue writes live outside this service.
type Product struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	ImageURL      string          `json:"imageUrl,omitempty" db:"image_url"`
	StockQuantity int             `json:"stockQuantity" db:"stock_quantity"`
	IsAvailable   bool            `json:"isAvailable" db:"is_available"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}
