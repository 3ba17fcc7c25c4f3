package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/internal/event"
	"github.com/Faraz011/virasat-backend/internal/repository"
	apperrors "github.com/Faraz011/virasat-backend/pkg/errors"
)

// OrderService implements the order workflow: checkout, cancel, reorder and
// status transitions.
type OrderService struct {
	orders    repository.OrderRepository
	carts     repository.CartRepository
	products  repository.ProductRepository
	addresses repository.AddressRepository
	producer  *event.Producer
	logger    *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	products repository.ProductRepository,
	addresses repository.AddressRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		carts:     carts,
		products:  products,
		addresses: addresses,
		producer:  producer,
		logger:    logger,
	}
}

// CreateOrderInput holds the parameters for placing an order from the user's
// cart. Gateway ids are set on the online payment path after verification.
type CreateOrderInput struct {
	UserID           string
	PaymentMethod    string
	ShippingAddress  *domain.Address
	Notes            string
	SaveAddress      bool
	GatewayOrderID   string
	GatewayPaymentID string
}

// CreateOrder turns the user's cart into an order. Items, the stock decrement
// and the order insert commit or roll back together; the cart is cleared only
// after the order exists. Orders arriving through a verified online payment
// are created already paid.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if input.PaymentMethod != domain.PaymentMethodCOD && input.PaymentMethod != domain.PaymentMethodOnline {
		return nil, apperrors.InvalidInput("payment_method must be cod or online")
	}
	if input.ShippingAddress == nil {
		return nil, apperrors.InvalidInput("shipping address is required")
	}

	cartItems, err := s.carts.ListByUserID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("load cart for checkout: %w", err)
	}
	if len(cartItems) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	now := time.Now().UTC()
	orderID := uuid.New().String()

	// Snapshot the cart lines so later catalog edits do not alter the order.
	var total int64
	items := make([]domain.OrderItem, len(cartItems))
	for i, ci := range cartItems {
		items[i] = domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: ci.ProductID,
			Name:      ci.Name,
			Slug:      ci.Slug,
			ImageURL:  ci.ImageURL,
			Price:     ci.Price,
			Quantity:  ci.Quantity,
		}
		total += items[i].LineTotal()
	}

	status := domain.OrderStatusPending
	paymentStatus := domain.PaymentStatusPending
	if input.PaymentMethod == domain.PaymentMethodOnline && input.GatewayPaymentID != "" {
		status = domain.OrderStatusPaid
		paymentStatus = domain.PaymentStatusPaid
	}

	order := &domain.Order{
		ID:               orderID,
		UserID:           input.UserID,
		OrderNumber:      generateOrderNumber(now),
		Status:           status,
		PaymentStatus:    paymentStatus,
		PaymentMethod:    input.PaymentMethod,
		Items:            items,
		TotalAmount:      total,
		Currency:         "INR",
		ShippingAddress:  input.ShippingAddress,
		Notes:            input.Notes,
		GatewayOrderID:   input.GatewayOrderID,
		GatewayPaymentID: input.GatewayPaymentID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.carts.Clear(ctx, input.UserID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	if input.SaveAddress {
		addr := *input.ShippingAddress
		addr.ID = uuid.New().String()
		addr.UserID = input.UserID
		addr.CreatedAt = now
		if err := s.addresses.Create(ctx, &addr); err != nil {
			s.logger.WarnContext(ctx, "failed to save address to address book",
				slog.String("user_id", input.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("payment_method", order.PaymentMethod),
		slog.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}

// GetOrder retrieves an order. Non-admins only see their own orders; admins
// can read any order.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string, isAdmin bool) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	if order.UserID != userID && !isAdmin {
		return nil, apperrors.NotFound("order", orderID)
	}

	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string, page, perPage int) ([]domain.Order, int, error) {
	filter := repository.OrderFilter{
		UserID:  &userID,
		Page:    page,
		PerPage: perPage,
	}
	return s.listOrders(ctx, filter)
}

// ListAllOrders returns orders across all users for the back office.
func (s *OrderService) ListAllOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	return s.listOrders(ctx, filter)
}

func (s *OrderService) listOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// CancelOrder cancels one of the user's orders and restores the stock of its
// items. Only pending and processing orders can be cancelled.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID, false)
	if err != nil {
		return nil, err
	}

	if !order.CanCancel() {
		return nil, apperrors.Conflict(fmt.Sprintf("order in %q status can no longer be cancelled", order.Status))
	}

	oldStatus := order.Status
	if err := s.orders.CancelAndRestock(ctx, order); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
	)

	return order, nil
}

// Reorder copies a past order's items back into the cart. Products that have
// since disappeared, been deactivated or run out of stock are skipped without
// error; quantities are clamped so the merged cart line stays within stock.
func (s *OrderService) Reorder(ctx context.Context, userID, orderID string) error {
	order, err := s.GetOrder(ctx, userID, orderID, false)
	if err != nil {
		return err
	}

	// Upsert adds onto any existing cart line, so the clamp has to count what
	// is already in the cart.
	cartItems, err := s.carts.ListByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load cart for reorder: %w", err)
	}
	inCart := make(map[string]int, len(cartItems))
	for _, ci := range cartItems {
		inCart[ci.ProductID] = ci.Quantity
	}

	for _, item := range order.Items {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.InfoContext(ctx, "reorder skipping missing product",
					slog.String("product_id", item.ProductID),
				)
				continue
			}
			return fmt.Errorf("get product for reorder: %w", err)
		}

		available := product.StockQuantity - inCart[item.ProductID]
		if !product.IsActive || available <= 0 {
			s.logger.InfoContext(ctx, "reorder skipping unavailable product",
				slog.String("product_id", item.ProductID),
			)
			continue
		}

		quantity := item.Quantity
		if quantity > available {
			quantity = available
		}

		if err := s.carts.Upsert(ctx, userID, item.ProductID, quantity); err != nil {
			return fmt.Errorf("add reorder item to cart: %w", err)
		}
	}

	return nil
}

// UpdateStatusInput holds the parameters for a status transition.
type UpdateStatusInput struct {
	Status           string
	GatewayPaymentID string
	Meta             domain.PaymentMeta
}

// UpdateOrderStatus is the central transition point. It enforces the state
// machine, derives the payment status for paid/refunded/failed and merges the
// gateway metadata. Re-applying the current status is treated as an idempotent
// redelivery: the metadata is re-merged and no event is emitted.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, input UpdateStatusInput) (*domain.Order, error) {
	if !domain.IsValidStatus(input.Status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", input.Status))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	redelivery := order.Status == input.Status
	if !redelivery && !order.CanTransitionTo(input.Status) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot transition from %q to %q", order.Status, input.Status))
	}

	oldStatus := order.Status
	order.Status = input.Status
	if ps := domain.PaymentStatusFor(input.Status); ps != "" {
		order.PaymentStatus = ps
	}
	if input.GatewayPaymentID != "" {
		order.GatewayPaymentID = input.GatewayPaymentID
	}
	order.PaymentMeta.Merge(input.Meta)

	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if !redelivery {
		if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}

		s.logger.InfoContext(ctx, "order status updated",
			slog.String("order_id", order.ID),
			slog.String("old_status", oldStatus),
			slog.String("new_status", order.Status),
		)
	}

	return order, nil
}

// generateOrderNumber builds a human-readable order number like
// VRS-20260830-493021.
func generateOrderNumber(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 1_000_000)
	}
	return fmt.Sprintf("VRS-%s-%06d", now.Format("20060102"), n.Int64())
}
