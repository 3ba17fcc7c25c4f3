package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/internal/gateway"
	apperrors "github.com/Faraz011/virasat-backend/pkg/errors"
)

const (
	testGatewayKeySecret     = "gateway-key-secret"
	testGatewayWebhookSecret = "gateway-webhook-secret"
)

type paymentFixture struct {
	orders    *mockOrderRepository
	carts     *mockCartRepository
	products  *mockProductRepository
	addresses *mockAddressRepository
	svc       *PaymentService
}

func newPaymentFixture(gatewayURL string) *paymentFixture {
	f := &paymentFixture{
		orders:    new(mockOrderRepository),
		carts:     new(mockCartRepository),
		products:  new(mockProductRepository),
		addresses: new(mockAddressRepository),
	}
	logger := newTestLogger()
	orderSvc := NewOrderService(f.orders, f.carts, f.products, f.addresses, newTestProducer(), logger)
	client := gateway.NewClient(gatewayURL, "key_test", testGatewayKeySecret, logger)
	f.svc = NewPaymentService(f.orders, f.carts, orderSvc, client, testGatewayKeySecret, testGatewayWebhookSecret, logger)
	return f
}

// --- CreateGatewayOrder ---

func TestCreateGatewayOrder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"order_G1","amount":2129700,"currency":"INR","status":"created"}`))
	}))
	defer srv.Close()

	f := newPaymentFixture(srv.URL)
	ctx := context.Background()

	f.carts.On("ListByUserID", ctx, "user-1").Return(sampleCartItems(), nil)

	session, err := f.svc.CreateGatewayOrder(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "order_G1", session.GatewayOrderID)
	assert.Equal(t, int64(2129700), session.Amount)
	assert.Equal(t, "INR", session.Currency)
	assert.Equal(t, "key_test", session.KeyID)
}

func TestCreateGatewayOrder_EmptyCart(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	f.carts.On("ListByUserID", ctx, "user-1").Return([]domain.CartItem{}, nil)

	_, err := f.svc.CreateGatewayOrder(ctx, "user-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- VerifyAndCreateOrder ---

func TestVerifyAndCreateOrder_ValidSignature(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	f.carts.On("ListByUserID", ctx, "user-1").Return(sampleCartItems(), nil)
	f.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
	f.carts.On("Clear", ctx, "user-1").Return(nil)

	sig := gateway.PaymentSignature(testGatewayKeySecret, "order_G1", "pay_P1")

	order, err := f.svc.VerifyAndCreateOrder(ctx, VerifyPaymentInput{
		UserID:           "user-1",
		GatewayOrderID:   "order_G1",
		GatewayPaymentID: "pay_P1",
		Signature:        sig,
		ShippingAddress:  sampleShippingAddress(),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, domain.PaymentMethodOnline, order.PaymentMethod)
	assert.Equal(t, "order_G1", order.GatewayOrderID)
	assert.Equal(t, "pay_P1", order.GatewayPaymentID)
	f.orders.AssertExpectations(t)
}

func TestVerifyAndCreateOrder_AlteredSignature(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	sig := gateway.PaymentSignature(testGatewayKeySecret, "order_G1", "pay_P1")
	altered := []byte(sig)
	if altered[0] == 'a' {
		altered[0] = 'b'
	} else {
		altered[0] = 'a'
	}

	_, err := f.svc.VerifyAndCreateOrder(ctx, VerifyPaymentInput{
		UserID:           "user-1",
		GatewayOrderID:   "order_G1",
		GatewayPaymentID: "pay_P1",
		Signature:        string(altered),
		ShippingAddress:  sampleShippingAddress(),
	})

	// No order may exist after a failed verification.
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
	f.orders.AssertNotCalled(t, "Create")
}

func TestVerifyAndCreateOrder_MissingFields(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")

	_, err := f.svc.VerifyAndCreateOrder(context.Background(), VerifyPaymentInput{
		UserID:          "user-1",
		ShippingAddress: sampleShippingAddress(),
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- HandleWebhook ---

func signedWebhookBody(t *testing.T, event string, payload map[string]any) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"event": event, "payload": payload})
	require.NoError(t, err)
	return body, gateway.WebhookSignature(testGatewayWebhookSecret, body)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")

	body := []byte(`{"event":"payment.authorized","payload":{}}`)
	err := f.svc.HandleWebhook(context.Background(), body, "bogus-signature")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.orders.AssertNotCalled(t, "GetByGatewayOrderID")
}

func TestHandleWebhook_AlteredByte(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")

	body, sig := signedWebhookBody(t, "payment.authorized", map[string]any{})
	altered := append([]byte(nil), body...)
	altered[10] ^= 0x01

	err := f.svc.HandleWebhook(context.Background(), altered, sig)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestHandleWebhook_PaymentAuthorized(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	order := &domain.Order{
		ID:             "order-1",
		Status:         domain.OrderStatusPending,
		PaymentStatus:  domain.PaymentStatusPending,
		GatewayOrderID: "order_G1",
	}
	f.orders.On("GetByGatewayOrderID", ctx, "order_G1").Return(order, nil)
	f.orders.On("GetByID", ctx, "order-1").Return(order, nil)
	f.orders.On("UpdateStatus", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	body, sig := signedWebhookBody(t, "payment.authorized", map[string]any{
		"payment": map[string]any{
			"entity": map[string]any{"id": "pay_P1", "order_id": "order_G1"},
		},
	})

	err := f.svc.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, "pay_P1", order.GatewayPaymentID)
	f.orders.AssertExpectations(t)
}

func TestHandleWebhook_PaymentAuthorizedRedelivery(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	// The order is already paid from the first delivery; reprocessing the same
	// event re-sets the same values without error.
	order := &domain.Order{
		ID:               "order-1",
		Status:           domain.OrderStatusPaid,
		PaymentStatus:    domain.PaymentStatusPaid,
		GatewayOrderID:   "order_G1",
		GatewayPaymentID: "pay_P1",
	}
	f.orders.On("GetByGatewayOrderID", ctx, "order_G1").Return(order, nil)
	f.orders.On("GetByID", ctx, "order-1").Return(order, nil)
	f.orders.On("UpdateStatus", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	body, sig := signedWebhookBody(t, "payment.authorized", map[string]any{
		"payment": map[string]any{
			"entity": map[string]any{"id": "pay_P1", "order_id": "order_G1"},
		},
	})

	err := f.svc.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, "pay_P1", order.GatewayPaymentID)
}

func TestHandleWebhook_PaymentFailed(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	order := &domain.Order{
		ID:             "order-1",
		Status:         domain.OrderStatusPending,
		PaymentStatus:  domain.PaymentStatusPending,
		GatewayOrderID: "order_G1",
	}
	f.orders.On("GetByGatewayOrderID", ctx, "order_G1").Return(order, nil)
	f.orders.On("GetByID", ctx, "order-1").Return(order, nil)
	f.orders.On("UpdateStatus", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	body, sig := signedWebhookBody(t, "payment.failed", map[string]any{
		"payment": map[string]any{
			"entity": map[string]any{
				"id":                "pay_P1",
				"order_id":          "order_G1",
				"error_description": "card declined",
			},
		},
	})

	err := f.svc.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFailed, order.Status)
	assert.Equal(t, domain.PaymentStatusFailed, order.PaymentStatus)
	assert.Equal(t, "card declined", order.PaymentMeta.FailureReason)
}

func TestHandleWebhook_RefundCreated(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	order := &domain.Order{
		ID:               "order-1",
		Status:           domain.OrderStatusPaid,
		PaymentStatus:    domain.PaymentStatusPaid,
		GatewayPaymentID: "pay_P1",
	}
	f.orders.On("GetByGatewayPaymentID", ctx, "pay_P1").Return(order, nil)
	f.orders.On("GetByID", ctx, "order-1").Return(order, nil)
	f.orders.On("UpdateStatus", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	body, sig := signedWebhookBody(t, "refund.created", map[string]any{
		"refund": map[string]any{
			"entity": map[string]any{"id": "rfnd_R1", "amount": 549900, "payment_id": "pay_P1"},
		},
	})

	err := f.svc.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRefunded, order.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, order.PaymentStatus)
	assert.Equal(t, "rfnd_R1", order.PaymentMeta.RefundID)
	assert.Equal(t, int64(549900), order.PaymentMeta.RefundAmount)
}

func TestHandleWebhook_UnknownEventAcked(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")

	body, sig := signedWebhookBody(t, "subscription.activated", map[string]any{})

	err := f.svc.HandleWebhook(context.Background(), body, sig)
	assert.NoError(t, err)
	f.orders.AssertNotCalled(t, "GetByGatewayOrderID")
}

func TestHandleWebhook_UnmatchedOrderAcked(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	f.orders.On("GetByGatewayOrderID", ctx, "order_unknown").Return(nil, apperrors.ErrNotFound)

	body, sig := signedWebhookBody(t, "payment.authorized", map[string]any{
		"payment": map[string]any{
			"entity": map[string]any{"id": "pay_P1", "order_id": "order_unknown"},
		},
	})

	err := f.svc.HandleWebhook(ctx, body, sig)
	assert.NoError(t, err)
	f.orders.AssertNotCalled(t, "UpdateStatus")
}

func TestHandleWebhook_MissingOrderIDNeverMatchesCOD(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	// COD orders persist gateway_order_id as ''. A validly signed event with
	// no order_id must not look anything up with the empty id, or it would
	// flip an arbitrary COD order to paid.
	codOrder := &domain.Order{
		ID:            "order-cod",
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		PaymentMethod: domain.PaymentMethodCOD,
	}
	f.orders.On("GetByGatewayOrderID", ctx, "").Return(codOrder, nil)

	body, sig := signedWebhookBody(t, "payment.authorized", map[string]any{})

	err := f.svc.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	f.orders.AssertNotCalled(t, "GetByGatewayOrderID")
	f.orders.AssertNotCalled(t, "UpdateStatus")
	assert.Equal(t, domain.OrderStatusPending, codOrder.Status)
	assert.Equal(t, domain.PaymentStatusPending, codOrder.PaymentStatus)
}

func TestHandleWebhook_MissingRefundPaymentIDSkipped(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")

	body, sig := signedWebhookBody(t, "refund.created", map[string]any{})

	err := f.svc.HandleWebhook(context.Background(), body, sig)
	assert.NoError(t, err)
	f.orders.AssertNotCalled(t, "GetByGatewayPaymentID")
}

func TestHandleWebhook_StaleTransitionAcked(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")
	ctx := context.Background()

	// A cancelled order cannot move to paid; the event is dropped but acked.
	order := &domain.Order{
		ID:             "order-1",
		Status:         domain.OrderStatusCancelled,
		GatewayOrderID: "order_G1",
	}
	f.orders.On("GetByGatewayOrderID", ctx, "order_G1").Return(order, nil)
	f.orders.On("GetByID", ctx, "order-1").Return(order, nil)

	body, sig := signedWebhookBody(t, "payment.authorized", map[string]any{
		"payment": map[string]any{
			"entity": map[string]any{"id": "pay_P1", "order_id": "order_G1"},
		},
	})

	err := f.svc.HandleWebhook(ctx, body, sig)
	assert.NoError(t, err)
	f.orders.AssertNotCalled(t, "UpdateStatus")
}

func TestHandleWebhook_UnparseableBodyAcked(t *testing.T) {
	f := newPaymentFixture("http://localhost:1")

	body := []byte(`not json at all`)
	sig := gateway.WebhookSignature(testGatewayWebhookSecret, body)

	err := f.svc.HandleWebhook(context.Background(), body, sig)
	assert.NoError(t, err)
}
