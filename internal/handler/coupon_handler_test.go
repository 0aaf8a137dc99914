package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"printbox/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCouponHandler_Validate(t *testing.T) {
	logger := zerolog.Nop()
	discount := decimal.RequireFromString("30.00")

	tests := []struct {
		name           string
		method         string
		requestBody    interface{}
		mockReturn     *model.ValidateCouponResponse
		mockError      error
		expectedStatus int
		expectService  bool
		wantValid      bool
	}{
		{
			name:        "Valid coupon",
			method:      http.MethodPost,
			requestBody: &model.ValidateCouponRequest{Code: "SAVE10", CartTotal: decimal.RequireFromString("300")},
			mockReturn: &model.ValidateCouponResponse{
				Valid:          true,
				DiscountAmount: &discount,
				Message:        "Coupon applied! You save 30.00.",
			},
			expectedStatus: http.StatusOK,
			expectService:  true,
			wantValid:      true,
		},
		{
			name:        "Invalid coupon still returns 200",
			method:      http.MethodPost,
			requestBody: &model.ValidateCouponRequest{Code: "GHOST", CartTotal: decimal.RequireFromString("300")},
			mockReturn: &model.ValidateCouponResponse{
				Valid:   false,
				Message: "Invalid or expired coupon code",
			},
			expectedStatus: http.StatusOK,
			expectService:  true,
			wantValid:      false,
		},
		{
			name:           "Empty code",
			method:         http.MethodPost,
			requestBody:    &model.ValidateCouponRequest{Code: ""},
			mockError:      model.NewValidationError("Please enter a coupon code"),
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Malformed JSON",
			method:         http.MethodPost,
			requestBody:    "{not json",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Wrong method",
			method:         http.MethodGet,
			expectedStatus: http.StatusMethodNotAllowed,
			expectService:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCheckoutService)
			h := NewCouponHandler(mockService, logger)

			if tt.expectService {
				mockService.On("ValidateCoupon", mock.Anything, mock.AnythingOfType("*model.ValidateCouponRequest")).
					Return(tt.mockReturn, tt.mockError)
			}

			var body bytes.Buffer
			switch b := tt.requestBody.(type) {
			case string:
				body.WriteString(b)
			case nil:
			default:
				require.NoError(t, json.NewEncoder(&body).Encode(b))
			}

			req := httptest.NewRequest(tt.method, "/api/coupons/validate", &body)
			rec := httptest.NewRecorder()

			h.Validate(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.expectedStatus == http.StatusOK {
				var resp model.ValidateCouponResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.wantValid, resp.Valid)
			}

			mockService.AssertExpectations(t)
		})
	}
}
