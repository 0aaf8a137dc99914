package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
			is_available BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS coupons (
			code VARCHAR(50) PRIMARY KEY,
			discount_type VARCHAR(10) NOT NULL,
			discount_value DECIMAL(10, 2) NOT NULL,
			max_discount_amount DECIMAL(10, 2),
			min_order_amount DECIMAL(10, 2) NOT NULL DEFAULT 0,
			max_uses INTEGER,
			times_used INTEGER NOT NULL DEFAULT 0,
			expiry_date TIMESTAMP,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			order_id VARCHAR(30) NOT NULL UNIQUE,
			customer_name VARCHAR(255) NOT NULL,
			customer_email VARCHAR(255) NOT NULL,
			customer_phone VARCHAR(20) NOT NULL,
			shipping_address TEXT NOT NULL,
			shipping_city VARCHAR(100) NOT NULL,
			shipping_state VARCHAR(100) NOT NULL,
			shipping_pincode VARCHAR(10) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			payment_status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			total_amount DECIMAL(10, 2) NOT NULL,
			discount_amount DECIMAL(10, 2) NOT NULL DEFAULT 0,
			coupon_code VARCHAR(50),
			gateway_order_id VARCHAR(100) UNIQUE,
			gateway_payment_id VARCHAR(100),
			gateway_signature VARCHAR(200),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_row_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id VARCHAR(50) REFERENCES products(id) ON DELETE SET NULL,
			product_name VARCHAR(255) NOT NULL,
			product_price DECIMAL(10, 2) NOT NULL,
			product_image TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			subtotal DECIMAL(10, 2) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY,
			order_row_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			gateway_order_id VARCHAR(100) NOT NULL,
			gateway_payment_id VARCHAR(100),
			amount DECIMAL(10, 2) NOT NULL,
			currency VARCHAR(10) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'CREATED',
			error_code VARCHAR(100),
			error_description TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_orders_gateway_order_id ON orders(gateway_order_id);
		CREATE INDEX IF NOT EXISTS idx_order_items_order_row_id ON order_items(order_row_id);
		CREATE INDEX IF NOT EXISTS idx_payments_order_row_id ON payments(order_row_id);
		CREATE INDEX IF NOT EXISTS idx_payments_gateway_order_id ON payments(gateway_order_id);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedProducts inserts test product data into the database.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	products := []struct {
		id    string
		name  string
		price string
		stock int
	}{
		{"P001", "Filament Spool", "100.00", 10},
		{"P002", "Nozzle Kit", "50.00", 5},
		{"P003", "Build Plate", "250.00", 3},
		{"P004", "Resin Bottle", "75.50", 0},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, price, stock_quantity, is_available)
			 VALUES ($1, $2, $3, $4, TRUE)`,
			p.id, p.name, decimal.RequireFromString(p.price), p.stock,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.id, err)
		}
	}
}

// SeedCoupon inserts a single test coupon.
func SeedCoupon(t *testing.T, pool *pgxpool.Pool, code, discountType, value string, maxUses, timesUsed int) {
	t.Helper()

	ctx := context.Background()

	_, err := pool.Exec(ctx,
		`INSERT INTO coupons (code, discount_type, discount_value, min_order_amount, max_uses, times_used, is_active)
		 VALUES ($1, $2, $3, 0, $4, $5, TRUE)`,
		code, discountType, decimal.RequireFromString(value), maxUses, timesUsed,
	)
	if err != nil {
		t.Fatalf("failed to seed coupon %s: %v", code, err)
	}
}

// recordingSink collects confirmation notifications for assertions.
type recordingSink struct {
	mu     sync.Mutex
	orders []string
}

func (s *recordingSink) NotifyOrderConfirmed(_ context.Context, orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, orderID)
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"payments", "order_items", "orders", "coupons", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
