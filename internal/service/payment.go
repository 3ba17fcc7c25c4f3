package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/internal/gateway"
	"github.com/Faraz011/virasat-backend/internal/repository"
	apperrors "github.com/Faraz011/virasat-backend/pkg/errors"
)

// Webhook event types delivered by the payment gateway.
const (
	WebhookPaymentAuthorized = "payment.authorized"
	WebhookPaymentFailed     = "payment.failed"
	WebhookRefundCreated     = "refund.created"
)

// PaymentService implements the online payment flow: gateway order creation,
// synchronous post-checkout verification and asynchronous webhook processing.
type PaymentService struct {
	orders        repository.OrderRepository
	carts         repository.CartRepository
	orderSvc      *OrderService
	gateway       *gateway.Client
	keySecret     string
	webhookSecret string
	logger        *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	orderSvc *OrderService,
	gatewayClient *gateway.Client,
	keySecret string,
	webhookSecret string,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		orders:        orders,
		carts:         carts,
		orderSvc:      orderSvc,
		gateway:       gatewayClient,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// CheckoutSession is what the client-side payment widget needs to open.
type CheckoutSession struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"key_id"`
}

// CreateGatewayOrder creates a payment order on the gateway for the user's
// current cart total, ahead of the client-side checkout widget.
func (s *PaymentService) CreateGatewayOrder(ctx context.Context, userID string) (*CheckoutSession, error) {
	items, err := s.carts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart for payment: %w", err)
	}
	if len(items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	var total int64
	for i := range items {
		total += items[i].Subtotal()
	}

	receipt := uuid.New().String()
	gwOrder, err := s.gateway.CreateOrder(ctx, total, "INR", receipt)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	return &CheckoutSession{
		GatewayOrderID: gwOrder.ID,
		Amount:         gwOrder.Amount,
		Currency:       gwOrder.Currency,
		KeyID:          s.gateway.KeyID(),
	}, nil
}

// VerifyPaymentInput holds the gateway identifiers and signature returned by
// the client-side checkout, plus the order details staged before payment.
type VerifyPaymentInput struct {
	UserID           string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	ShippingAddress  *domain.Address
	Notes            string
	SaveAddress      bool
}

// VerifyAndCreateOrder checks the payment signature and, only on a match,
// creates the order as online/paid with both gateway identifiers. A signature
// mismatch rejects the request and no order is created.
func (s *PaymentService) VerifyAndCreateOrder(ctx context.Context, input VerifyPaymentInput) (*domain.Order, error) {
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" || input.Signature == "" {
		return nil, apperrors.InvalidInput("gateway order id, payment id and signature are required")
	}

	if !gateway.VerifyPaymentSignature(s.keySecret, input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		s.logger.WarnContext(ctx, "payment signature verification failed",
			slog.String("user_id", input.UserID),
			slog.String("gateway_order_id", input.GatewayOrderID),
		)
		return nil, apperrors.PaymentFailed("payment signature verification failed")
	}

	order, err := s.orderSvc.CreateOrder(ctx, CreateOrderInput{
		UserID:           input.UserID,
		PaymentMethod:    domain.PaymentMethodOnline,
		ShippingAddress:  input.ShippingAddress,
		Notes:            input.Notes,
		SaveAddress:      input.SaveAddress,
		GatewayOrderID:   input.GatewayOrderID,
		GatewayPaymentID: input.GatewayPaymentID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment verified",
		slog.String("order_id", order.ID),
		slog.String("gateway_payment_id", input.GatewayPaymentID),
	)

	return order, nil
}

// webhookEnvelope is the gateway's event wrapper. The signature covers the
// exact raw bytes, so it is parsed only after verification.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				Amount    int64  `json:"amount"`
				PaymentID string `json:"payment_id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// HandleWebhook verifies the raw-body signature and dispatches the event.
// After a valid signature, per-event failures (unknown types, orders that
// cannot be matched, stale redeliveries) are logged and acked so the gateway
// stops retrying.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !gateway.VerifyWebhookSignature(s.webhookSecret, body, signature) {
		return apperrors.InvalidInput("invalid webhook signature")
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		s.logger.WarnContext(ctx, "unparseable webhook body",
			slog.String("error", err.Error()),
		)
		return nil
	}

	switch envelope.Event {
	case WebhookPaymentAuthorized:
		payment := envelope.Payload.Payment.Entity
		s.applyGatewayEvent(ctx, envelope.Event, payment.OrderID,
			func() (*domain.Order, error) { return s.orders.GetByGatewayOrderID(ctx, payment.OrderID) },
			UpdateStatusInput{
				Status:           domain.OrderStatusPaid,
				GatewayPaymentID: payment.ID,
			},
		)

	case WebhookPaymentFailed:
		payment := envelope.Payload.Payment.Entity
		s.applyGatewayEvent(ctx, envelope.Event, payment.OrderID,
			func() (*domain.Order, error) { return s.orders.GetByGatewayOrderID(ctx, payment.OrderID) },
			UpdateStatusInput{
				Status:           domain.OrderStatusFailed,
				GatewayPaymentID: payment.ID,
				Meta:             domain.PaymentMeta{FailureReason: payment.ErrorDescription},
			},
		)

	case WebhookRefundCreated:
		refund := envelope.Payload.Refund.Entity
		s.applyGatewayEvent(ctx, envelope.Event, refund.PaymentID,
			func() (*domain.Order, error) { return s.orders.GetByGatewayPaymentID(ctx, refund.PaymentID) },
			UpdateStatusInput{
				Status: domain.OrderStatusRefunded,
				Meta:   domain.PaymentMeta{RefundID: refund.ID, RefundAmount: refund.Amount},
			},
		)

	default:
		s.logger.DebugContext(ctx, "ignoring unknown webhook event",
			slog.String("event", envelope.Event),
		)
	}

	return nil
}

// applyGatewayEvent looks up the order a webhook refers to and applies the
// transition. Unmatched orders and rejected transitions are dropped with a
// warning; the gateway's redelivery policy is the retry mechanism.
func (s *PaymentService) applyGatewayEvent(ctx context.Context, eventType, gatewayID string, lookup func() (*domain.Order, error), input UpdateStatusInput) {
	// COD rows persist gateway ids as empty strings, so an empty lookup key
	// must read as no match rather than hit one of them.
	if gatewayID == "" {
		s.logger.WarnContext(ctx, "webhook missing gateway identifier",
			slog.String("event", eventType),
		)
		return
	}

	order, err := lookup()
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "webhook references unknown order",
				slog.String("event", eventType),
			)
			return
		}
		s.logger.ErrorContext(ctx, "webhook order lookup failed",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if _, err := s.orderSvc.UpdateOrderStatus(ctx, order.ID, input); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.logger.WarnContext(ctx, "webhook transition rejected",
				slog.String("event", eventType),
				slog.String("order_id", order.ID),
				slog.String("order_status", order.Status),
			)
			return
		}
		s.logger.ErrorContext(ctx, "webhook transition failed",
			slog.String("event", eventType),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.InfoContext(ctx, "webhook event applied",
		slog.String("event", eventType),
		slog.String("order_id", order.ID),
		slog.String("new_status", input.Status),
	)
}
