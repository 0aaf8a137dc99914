package service

import (
	"context"
	"testing"

	"printbox/internal/model"
	"printbox/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type reconcileFixture struct {
	orderRepo   *MockOrderRepository
	paymentRepo *MockPaymentRepository
	productRepo *MockProductRepository
	gw          *MockGatewayClient
	sink        *recordingSink
	dispatcher  *notify.Dispatcher
	svc         ReconciliationService
}

func newReconcileFixture() *reconcileFixture {
	f := &reconcileFixture{
		orderRepo:   new(MockOrderRepository),
		paymentRepo: new(MockPaymentRepository),
		productRepo: new(MockProductRepository),
		gw:          new(MockGatewayClient),
		sink:        &recordingSink{},
	}
	f.dispatcher = notify.NewDispatcher(f.sink, 16, 1, zerolog.Nop())
	f.svc = NewReconciliationService(f.orderRepo, f.paymentRepo, f.productRepo, f.gw, f.dispatcher, zerolog.Nop())
	return f
}

func pendingOrder(gatewayOrderID string) *model.Order {
	gw := gatewayOrderID
	return &model.Order{
		ID:             uuid.New(),
		OrderID:        "ORD20260830120000TEST",
		Status:         model.OrderStatusPending,
		PaymentState:   model.PaymentStatePending,
		GatewayOrderID: &gw,
	}
}

func paidOrder(gatewayOrderID string) *model.Order {
	o := pendingOrder(gatewayOrderID)
	o.Status = model.OrderStatusPaid
	o.PaymentState = model.PaymentStateCaptured
	return o
}

func verifyRequest(gatewayOrderID string) *model.VerifyPaymentRequest {
	return &model.VerifyPaymentRequest{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "pay_1",
		GatewaySignature: "sig",
	}
}

func TestReconcileService_VerifyPayment_Success(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	order := pendingOrder("order_gw1")
	paid := paidOrder("order_gw1")
	paid.ID = order.ID

	productID := "P001"
	items := []model.OrderItem{
		{OrderRowID: order.ID, ProductID: &productID, Quantity: 2},
	}

	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_gw1").Return(order, nil)
	f.gw.On("VerifySignature", "order_gw1", "pay_1", "sig").Return(true)
	f.orderRepo.On("MarkPaid", ctx, "order_gw1", "pay_1").Return(paid, true, nil)
	f.paymentRepo.On("MarkCaptured", ctx, "order_gw1", "pay_1").Return(nil)
	f.orderRepo.On("GetItems", ctx, order.ID).Return(items, nil)
	f.productRepo.On("DecrementStock", ctx, "P001", 2).Return(true, nil)

	resp, err := f.svc.VerifyPayment(ctx, verifyRequest("order_gw1"))

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, paid.OrderID, resp.OrderID)
	assert.Equal(t, model.OrderStatusPaid, resp.Status)

	f.dispatcher.Close()
	assert.Equal(t, []string{paid.OrderID}, f.sink.delivered())

	f.orderRepo.AssertExpectations(t)
	f.paymentRepo.AssertExpectations(t)
	f.productRepo.AssertExpectations(t)
}

func TestReconcileService_VerifyPayment_DuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	paid := paidOrder("order_gw1")

	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_gw1").Return(paid, nil)
	f.gw.On("VerifySignature", "order_gw1", "pay_1", "sig").Return(true)
	// The conditional transition does not match a second time.
	f.orderRepo.On("MarkPaid", ctx, "order_gw1", "pay_1").Return(nil, false, nil)

	resp, err := f.svc.VerifyPayment(ctx, verifyRequest("order_gw1"))

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, paid.OrderID, resp.OrderID)

	// No second round of side effects.
	f.paymentRepo.AssertNotCalled(t, "MarkCaptured")
	f.productRepo.AssertNotCalled(t, "DecrementStock")

	f.dispatcher.Close()
	assert.Empty(t, f.sink.delivered())
}

func TestReconcileService_VerifyPayment_SignatureMismatch(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	order := pendingOrder("order_gw1")

	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_gw1").Return(order, nil)
	f.gw.On("VerifySignature", "order_gw1", "pay_1", "sig").Return(false)
	f.orderRepo.On("MarkFailed", ctx, "order_gw1").Return(true, nil)
	f.paymentRepo.On("MarkFailed", ctx, "order_gw1", "SIGNATURE_MISMATCH", mock.AnythingOfType("string")).Return(nil)

	resp, err := f.svc.VerifyPayment(ctx, verifyRequest("order_gw1"))

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, model.ErrInvalidSignature)

	f.orderRepo.AssertNotCalled(t, "MarkPaid")
	f.orderRepo.AssertExpectations(t)
	f.paymentRepo.AssertExpectations(t)
}

func TestReconcileService_VerifyPayment_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_nope").Return(nil, nil)

	resp, err := f.svc.VerifyPayment(ctx, verifyRequest("order_nope"))

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	f.orderRepo.AssertNotCalled(t, "MarkPaid")
	f.orderRepo.AssertNotCalled(t, "MarkFailed")
}

func TestReconcileService_VerifyPayment_MissingFields(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	resp, err := f.svc.VerifyPayment(ctx, &model.VerifyPaymentRequest{GatewayOrderID: "order_gw1"})

	require.Error(t, err)
	assert.Nil(t, resp)

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeValidation, domainErr.Code)
}

func TestReconcileService_VerifyPayment_CancelledOrder(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	cancelled := pendingOrder("order_gw1")
	cancelled.Status = model.OrderStatusCancelled

	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_gw1").Return(cancelled, nil)
	f.gw.On("VerifySignature", "order_gw1", "pay_1", "sig").Return(true)
	f.orderRepo.On("MarkPaid", ctx, "order_gw1", "pay_1").Return(nil, false, nil)

	resp, err := f.svc.VerifyPayment(ctx, verifyRequest("order_gw1"))

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, model.ErrOrderCancelled)
}

func TestReconcileService_Webhook_Captured(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	order := pendingOrder("order_gw1")
	paid := paidOrder("order_gw1")
	paid.ID = order.ID

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_gw1"}}}}`)

	f.gw.On("VerifyWebhookSignature", body, "hooksig").Return(true)
	f.orderRepo.On("MarkPaid", ctx, "order_gw1", "pay_1").Return(paid, true, nil)
	f.paymentRepo.On("MarkCaptured", ctx, "order_gw1", "pay_1").Return(nil)
	f.orderRepo.On("GetItems", ctx, order.ID).Return([]model.OrderItem{}, nil)

	err := f.svc.HandleWebhook(ctx, body, "hooksig")

	require.NoError(t, err)

	f.dispatcher.Close()
	assert.Equal(t, []string{paid.OrderID}, f.sink.delivered())
}

func TestReconcileService_Webhook_InvalidSignatureParsesNothing(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_gw1"}}}}`)

	f.gw.On("VerifyWebhookSignature", body, "badsig").Return(false)

	err := f.svc.HandleWebhook(ctx, body, "badsig")

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidSignature)

	f.orderRepo.AssertNotCalled(t, "MarkPaid")
	f.orderRepo.AssertNotCalled(t, "MarkFailed")
}

func TestReconcileService_Webhook_MalformedBody(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	body := []byte(`{"event": "payment.captured", `)

	f.gw.On("VerifyWebhookSignature", body, "hooksig").Return(true)

	err := f.svc.HandleWebhook(ctx, body, "hooksig")

	require.Error(t, err)

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeValidation, domainErr.Code)
}

func TestReconcileService_Webhook_DuplicateCaptureAcknowledged(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	paid := paidOrder("order_gw1")

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_gw1"}}}}`)

	f.gw.On("VerifyWebhookSignature", body, "hooksig").Return(true)
	f.orderRepo.On("MarkPaid", ctx, "order_gw1", "pay_1").Return(nil, false, nil)
	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_gw1").Return(paid, nil)

	err := f.svc.HandleWebhook(ctx, body, "hooksig")

	require.NoError(t, err)

	f.paymentRepo.AssertNotCalled(t, "MarkCaptured")
	f.productRepo.AssertNotCalled(t, "DecrementStock")

	f.dispatcher.Close()
	assert.Empty(t, f.sink.delivered())
}

func TestReconcileService_Webhook_UnknownOrderAcknowledged(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_ghost"}}}}`)

	f.gw.On("VerifyWebhookSignature", body, "hooksig").Return(true)
	f.orderRepo.On("MarkPaid", ctx, "order_ghost", "pay_1").Return(nil, false, nil)
	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_ghost").Return(nil, nil)

	// An unknown order is a business outcome; the webhook is still
	// acknowledged so the gateway stops retrying.
	err := f.svc.HandleWebhook(ctx, body, "hooksig")

	require.NoError(t, err)
}

func TestReconcileService_Webhook_PaymentFailed(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_gw1","error_code":"BAD_CARD","error_description":"Card declined"}}}}`)

	f.gw.On("VerifyWebhookSignature", body, "hooksig").Return(true)
	f.orderRepo.On("MarkFailed", ctx, "order_gw1").Return(true, nil)
	f.paymentRepo.On("MarkFailed", ctx, "order_gw1", "BAD_CARD", "Card declined").Return(nil)

	err := f.svc.HandleWebhook(ctx, body, "hooksig")

	require.NoError(t, err)
	f.orderRepo.AssertExpectations(t)
	f.paymentRepo.AssertExpectations(t)
}

func TestReconcileService_Webhook_LateFailureAfterCaptureIgnored(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_gw1"}}}}`)

	f.gw.On("VerifyWebhookSignature", body, "hooksig").Return(true)
	// Order already PAID: the failure transition does not match.
	f.orderRepo.On("MarkFailed", ctx, "order_gw1").Return(false, nil)

	err := f.svc.HandleWebhook(ctx, body, "hooksig")

	require.NoError(t, err)
	f.paymentRepo.AssertNotCalled(t, "MarkFailed")
}

func TestReconcileService_Webhook_UnhandledEventIgnored(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	body := []byte(`{"event":"refund.processed","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_gw1"}}}}`)

	f.gw.On("VerifyWebhookSignature", body, "hooksig").Return(true)

	err := f.svc.HandleWebhook(ctx, body, "hooksig")

	require.NoError(t, err)
	f.orderRepo.AssertNotCalled(t, "MarkPaid")
	f.orderRepo.AssertNotCalled(t, "MarkFailed")
}

func TestReconcileService_CrossTriggerIdempotence(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	order := pendingOrder("order_gw1")
	paid := paidOrder("order_gw1")
	paid.ID = order.ID

	// Trigger A wins the race.
	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_gw1").Return(order, nil).Once()
	f.gw.On("VerifySignature", "order_gw1", "pay_1", "sig").Return(true)
	f.orderRepo.On("MarkPaid", ctx, "order_gw1", "pay_1").Return(paid, true, nil).Once()
	f.paymentRepo.On("MarkCaptured", ctx, "order_gw1", "pay_1").Return(nil).Once()
	f.orderRepo.On("GetItems", ctx, order.ID).Return([]model.OrderItem{}, nil).Once()

	_, err := f.svc.VerifyPayment(ctx, verifyRequest("order_gw1"))
	require.NoError(t, err)

	// Trigger B arrives second and must not repeat the side effects.
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_gw1"}}}}`)
	f.gw.On("VerifyWebhookSignature", body, "hooksig").Return(true)
	f.orderRepo.On("MarkPaid", ctx, "order_gw1", "pay_1").Return(nil, false, nil).Once()
	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_gw1").Return(paid, nil).Once()

	err = f.svc.HandleWebhook(ctx, body, "hooksig")
	require.NoError(t, err)

	f.dispatcher.Close()
	assert.Equal(t, []string{paid.OrderID}, f.sink.delivered())

	f.paymentRepo.AssertNumberOfCalls(t, "MarkCaptured", 1)
}

func TestReconcileService_StockShortfallDoesNotFailCapture(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	order := pendingOrder("order_gw1")
	paid := paidOrder("order_gw1")
	paid.ID = order.ID

	productID := "P001"
	items := []model.OrderItem{
		{OrderRowID: order.ID, ProductID: &productID, Quantity: 5},
	}

	f.orderRepo.On("GetByGatewayOrderID", ctx, "order_gw1").Return(order, nil)
	f.gw.On("VerifySignature", "order_gw1", "pay_1", "sig").Return(true)
	f.orderRepo.On("MarkPaid", ctx, "order_gw1", "pay_1").Return(paid, true, nil)
	f.paymentRepo.On("MarkCaptured", ctx, "order_gw1", "pay_1").Return(nil)
	f.orderRepo.On("GetItems", ctx, order.ID).Return(items, nil)
	// Stock ran out between checkout and capture.
	f.productRepo.On("DecrementStock", ctx, "P001", 5).Return(false, nil)

	resp, err := f.svc.VerifyPayment(ctx, verifyRequest("order_gw1"))

	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestReconcileService_RecordFailure(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	order := pendingOrder("order_gw1")

	f.orderRepo.On("GetByOrderID", ctx, order.OrderID).Return(order, nil, nil)
	f.orderRepo.On("MarkFailedByOrderID", ctx, order.OrderID).Return(true, nil)
	f.paymentRepo.On("MarkFailedByOrderRow", ctx, order.ID, "Card declined").Return(nil)

	err := f.svc.RecordFailure(ctx, order.OrderID, "Card declined")

	require.NoError(t, err)
	f.orderRepo.AssertExpectations(t)
	f.paymentRepo.AssertExpectations(t)
}

func TestReconcileService_RecordFailure_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	f.orderRepo.On("GetByOrderID", ctx, "ORD_MISSING").Return(nil, nil, nil)

	err := f.svc.RecordFailure(ctx, "ORD_MISSING", "Card declined")

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestReconcileService_RecordFailure_AlreadyPaidIgnored(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture()

	paid := paidOrder("order_gw1")

	f.orderRepo.On("GetByOrderID", ctx, paid.OrderID).Return(paid, nil, nil)
	f.orderRepo.On("MarkFailedByOrderID", ctx, paid.OrderID).Return(false, nil)

	err := f.svc.RecordFailure(ctx, paid.OrderID, "stale report")

	require.NoError(t, err)
	f.paymentRepo.AssertNotCalled(t, "MarkFailedByOrderRow")
}
