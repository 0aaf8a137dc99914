// Package gateway wraps the external payment provider.
//
// Only intent creation touches the network. Signature verification is a
// local HMAC-SHA256 computation: the per-payment digest is keyed with the
// API key secret, webhook bodies with a distinct webhook secret, and both
// comparisons run in constant time.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"printbox/internal/config"
	"printbox/internal/model"
)

var minorUnits = decimal.NewFromInt(100)

// Intent is the gateway's record of an expected payment.
type Intent struct {
	GatewayOrderID string
	Amount         int64 // minor currency units
	Currency       string
}

// Client is the payment gateway boundary consumed by the services.
type Client interface {
	// CreateIntent registers a payment intent for the given amount with
	// receipt as the external reference. Fails with a configuration
	// error when credentials are absent and a gateway error on any
	// transport or API failure.
	CreateIntent(ctx context.Context, amount decimal.Decimal, receipt string, notes map[string]interface{}) (*Intent, error)

	// VerifySignature checks the per-payment HMAC-SHA256 signature over
	// "{gatewayOrderID}|{gatewayPaymentID}".
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool

	// VerifyWebhookSignature checks the whole-body HMAC-SHA256 signature
	// of a webhook payload. It operates on the raw, undecoded bytes;
	// callers must verify before parsing.
	VerifyWebhookSignature(body []byte, signature string) bool
}

// client implements Client against Razorpay.
type client struct {
	cfg    config.GatewayConfig
	logger zerolog.Logger
}

// NewClient creates a gateway client. Credentials are allowed to be absent;
// CreateIntent then fails with a configuration error instead of the
// process refusing to start.
func NewClient(cfg config.GatewayConfig, logger zerolog.Logger) Client {
	return &client{
		cfg:    cfg,
		logger: logger.With().Str("component", "gateway").Logger(),
	}
}

// CreateIntent registers a payment intent with the provider. The amount is
// converted to minor currency units before the call.
func (c *client) CreateIntent(ctx context.Context, amount decimal.Decimal, receipt string, notes map[string]interface{}) (*Intent, error) {
	if !c.cfg.Configured() {
		c.logger.Error().Msg("gateway credentials missing")
		return nil, model.ErrGatewayNotConfigured
	}

	amountMinor := amount.Mul(minorUnits).Round(0).IntPart()

	payload := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        c.cfg.Currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}

	sdk := razorpay.NewClient(c.cfg.KeyID, c.cfg.KeySecret)
	resp, err := sdk.Order.Create(payload, nil)
	if err != nil {
		c.logger.Error().Err(err).Str("receipt", receipt).Msg("gateway order creation failed")
		return nil, model.NewGatewayError("Failed to create payment order")
	}

	id, ok := resp["id"].(string)
	if !ok || id == "" {
		c.logger.Error().Str("receipt", receipt).Msg("gateway response missing order id")
		return nil, model.NewGatewayError("Payment gateway returned an invalid response")
	}

	c.logger.Info().
		Str("gateway_order_id", id).
		Int64("amount_minor", amountMinor).
		Str("receipt", receipt).
		Msg("gateway order created")

	return &Intent{
		GatewayOrderID: id,
		Amount:         amountMinor,
		Currency:       c.cfg.Currency,
	}, nil
}

// VerifySignature recomputes the per-payment digest and compares it in
// constant time.
func (c *client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if c.cfg.KeySecret == "" {
		c.logger.Error().Msg("gateway key secret missing, rejecting signature")
		return false
	}

	expected := hmacHex([]byte(c.cfg.KeySecret), []byte(gatewayOrderID+"|"+gatewayPaymentID))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the raw body against the webhook secret.
// An unset secret rejects rather than skips verification.
func (c *client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" {
		c.logger.Warn().Msg("webhook secret not set, rejecting webhook")
		return false
	}

	expected := hmacHex([]byte(c.cfg.WebhookSecret), body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func hmacHex(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
