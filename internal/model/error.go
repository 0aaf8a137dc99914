package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeSignature     = "SIGNATURE_ERROR"
	ErrCodeGateway       = "GATEWAY_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// DomainError carries a machine-readable code alongside the human-readable
// message so handlers can map business failures onto HTTP statuses.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewValidationError reports malformed or missing input (400).
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: ErrCodeValidation, Message: message}
}

// NewNotFoundError reports an unknown product, order or coupon (404).
func NewNotFoundError(message string) *DomainError {
	return &DomainError{Code: ErrCodeNotFound, Message: message}
}

// NewConflictError reports a business-state conflict such as insufficient
// stock or an exhausted coupon (400 with an itemised reason).
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: ErrCodeConflict, Message: message}
}

// NewGatewayError reports that the external payment provider was
// unreachable or rejected the call (500).
func NewGatewayError(message string) *DomainError {
	return &DomainError{Code: ErrCodeGateway, Message: message}
}

// Common domain errors
var (
	ErrOrderNotFound   = &DomainError{Code: ErrCodeNotFound, Message: "Order not found"}
	ErrCouponNotFound  = &DomainError{Code: ErrCodeNotFound, Message: "Invalid or expired coupon code"}
	ErrCouponExpired   = &DomainError{Code: ErrCodeConflict, Message: "This coupon has expired"}
	ErrCouponExhausted = &DomainError{Code: ErrCodeConflict, Message: "This coupon has reached its usage limit"}
	ErrCouponMinOrder  = &DomainError{Code: ErrCodeConflict, Message: "Minimum order amount not met for this coupon"}

	// ErrInvalidSignature deliberately carries a generic message: signature
	// material is never echoed back to the caller.
	ErrInvalidSignature = &DomainError{Code: ErrCodeSignature, Message: "Payment verification failed"}

	ErrGatewayNotConfigured = &DomainError{Code: ErrCodeConfiguration, Message: "Payment gateway not configured"}
	ErrOrderCancelled       = &DomainError{Code: ErrCodeConflict, Message: "Order has been cancelled"}
)
