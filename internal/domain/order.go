package domain

import "time"

// Order status constants.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusPaid       = "paid"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
	OrderStatusFailed     = "failed"
)

// Payment status constants.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Payment method constants.
const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"
)

// Order represents one purchase transaction.
type Order struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	OrderNumber      string      `json:"order_number"`
	Status           string      `json:"status"`
	PaymentStatus    string      `json:"payment_status"`
	PaymentMethod    string      `json:"payment_method"`
	Items            []OrderItem `json:"items"`
	TotalAmount      int64       `json:"total_amount"`
	Currency         string      `json:"currency"`
	ShippingAddress  *Address    `json:"shipping_address,omitempty"`
	Notes            string      `json:"notes,omitempty"`
	GatewayOrderID   string      `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string      `json:"gateway_payment_id,omitempty"`
	PaymentMeta      PaymentMeta `json:"payment_meta"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// OrderItem is a line item snapshot captured at order time so later catalog
// changes do not alter historical orders.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal,omitempty"`
}

// LineTotal returns price * quantity for the item.
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// PaymentMeta holds the known gateway-derived fields for an order. Kept as a
// fixed struct rather than an open map so status transitions stay auditable.
type PaymentMeta struct {
	FailureReason string `json:"failure_reason,omitempty"`
	RefundID      string `json:"refund_id,omitempty"`
	RefundAmount  int64  `json:"refund_amount,omitempty"`
}

// Merge overlays the non-zero fields of other onto m.
func (m *PaymentMeta) Merge(other PaymentMeta) {
	if other.FailureReason != "" {
		m.FailureReason = other.FailureReason
	}
	if other.RefundID != "" {
		m.RefundID = other.RefundID
	}
	if other.RefundAmount != 0 {
		m.RefundAmount = other.RefundAmount
	}
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusPaid,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
		OrderStatusFailed,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid.
// cancelled, refunded, and failed are terminal.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:    {OrderStatusPaid, OrderStatusProcessing, OrderStatusCancelled, OrderStatusFailed},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusFailed},
		OrderStatusPaid:       {OrderStatusProcessing, OrderStatusShipped, OrderStatusRefunded},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {OrderStatusRefunded},
		OrderStatusCancelled:  {},
		OrderStatusRefunded:   {},
		OrderStatusFailed:     {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// CanCancel reports whether a user-initiated cancel is allowed. Cancellation
// is only permitted while the order has not been paid or handed to fulfillment.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// PaymentStatusFor maps an order status to the payment status it implies, or
// "" when the transition carries no payment-status change.
func PaymentStatusFor(status string) string {
	switch status {
	case OrderStatusPaid:
		return PaymentStatusPaid
	case OrderStatusRefunded:
		return PaymentStatusRefunded
	case OrderStatusFailed:
		return PaymentStatusFailed
	default:
		return ""
	}
}
