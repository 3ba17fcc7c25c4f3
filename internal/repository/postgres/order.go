package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/internal/repository"
	"github.com/Faraz011/virasat-backend/pkg/database"
	apperrors "github.com/Faraz011/virasat-backend/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order and its items and decrements product stock, all
// within one transaction. A conditional update guards each decrement so two
// concurrent orders can never oversell a product; the losing order rolls back
// with an insufficient stock error.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	decrementQuery := `
		UPDATE products
		SET stock_quantity = stock_quantity - $1, updated_at = $2
		WHERE id = $3 AND stock_quantity >= $1`

	now := time.Now().UTC()
	for _, item := range o.Items {
		ct, err := tx.Exec(ctx, decrementQuery, item.Quantity, now, item.ProductID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.InsufficientStock(item.ProductID)
		}
	}

	var shippingJSON []byte
	if o.ShippingAddress != nil {
		shippingJSON, err = json.Marshal(o.ShippingAddress)
		if err != nil {
			return fmt.Errorf("marshal shipping address: %w", err)
		}
	}

	metaJSON, err := json.Marshal(o.PaymentMeta)
	if err != nil {
		return fmt.Errorf("marshal payment meta: %w", err)
	}

	orderQuery := `
		INSERT INTO orders (id, user_id, order_number, status, payment_status, payment_method, total_amount, currency, shipping_address, notes, gateway_order_id, gateway_payment_id, payment_meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.UserID,
		o.OrderNumber,
		o.Status,
		o.PaymentStatus,
		o.PaymentMethod,
		o.TotalAmount,
		o.Currency,
		shippingJSON,
		o.Notes,
		o.GatewayOrderID,
		o.GatewayPaymentID,
		metaJSON,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, slug, image_url, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Slug,
			item.ImageURL,
			item.Price,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOrder(ctx, "o.id = $1", id)
}

// GetByGatewayOrderID retrieves an order by the gateway's order id. An empty
// id is never a match: COD orders store the column as an empty string.
func (r *OrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	if gatewayOrderID == "" {
		return nil, apperrors.NotFound("order", gatewayOrderID)
	}
	return r.getOrder(ctx, "o.gateway_order_id = $1", gatewayOrderID)
}

// GetByGatewayPaymentID retrieves an order by the gateway's payment id. An
// empty id is never a match.
func (r *OrderRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Order, error) {
	if gatewayPaymentID == "" {
		return nil, apperrors.NotFound("order", gatewayPaymentID)
	}
	return r.getOrder(ctx, "o.gateway_payment_id = $1", gatewayPaymentID)
}

// getOrder fetches one order and its items in a single query using
// LEFT JOIN + JSONB_AGG to avoid a second round trip.
func (r *OrderRepository) getOrder(ctx context.Context, where string, arg any) (*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT
			o.id, o.user_id, o.order_number, o.status, o.payment_status, o.payment_method,
			o.total_amount, o.currency, o.shipping_address, o.notes,
			o.gateway_order_id, o.gateway_payment_id, o.payment_meta, o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'name', oi.name,
						'slug', oi.slug,
						'image_url', oi.image_url,
						'price', oi.price,
						'quantity', oi.quantity,
						'subtotal', oi.price * oi.quantity
					) ORDER BY oi.id
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE %s
		GROUP BY o.id, o.user_id, o.order_number, o.status, o.payment_status, o.payment_method,
			o.total_amount, o.currency, o.shipping_address, o.notes,
			o.gateway_order_id, o.gateway_payment_id, o.payment_meta, o.created_at, o.updated_at`,
		where,
	)

	var (
		o            domain.Order
		shippingJSON []byte
		metaJSON     []byte
		itemsJSON    []byte
	)

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&o.ID,
		&o.UserID,
		&o.OrderNumber,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.TotalAmount,
		&o.Currency,
		&shippingJSON,
		&o.Notes,
		&o.GatewayOrderID,
		&o.GatewayPaymentID,
		&metaJSON,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := unmarshalOrderJSON(&o, shippingJSON, metaJSON, itemsJSON); err != nil {
		return nil, err
	}

	return &o, nil
}

// List returns orders matching the given filter with the total count,
// newest first.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   int = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`
		SELECT id, user_id, order_number, status, payment_status, payment_method, total_amount, currency, shipping_address, notes, gateway_order_id, gateway_payment_id, payment_meta, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o            domain.Order
			shippingJSON []byte
			metaJSON     []byte
		)

		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.OrderNumber,
			&o.Status,
			&o.PaymentStatus,
			&o.PaymentMethod,
			&o.TotalAmount,
			&o.Currency,
			&shippingJSON,
			&o.Notes,
			&o.GatewayOrderID,
			&o.GatewayPaymentID,
			&metaJSON,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}

		if err := unmarshalOrderJSON(&o, shippingJSON, metaJSON, nil); err != nil {
			return nil, 0, err
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load items for all orders in a single query to avoid N+1.
	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsQuery := `
			SELECT id, order_id, product_id, name, slug, image_url, price, quantity, price * quantity AS subtotal
			FROM order_items
			WHERE order_id = ANY($1)
			ORDER BY id`

		itemRows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load order items: %w", err)
		}
		defer itemRows.Close()

		itemsByOrderID := make(map[string][]domain.OrderItem, len(orders))
		for itemRows.Next() {
			var item domain.OrderItem
			if err := itemRows.Scan(
				&item.ID,
				&item.OrderID,
				&item.ProductID,
				&item.Name,
				&item.Slug,
				&item.ImageURL,
				&item.Price,
				&item.Quantity,
				&item.Subtotal,
			); err != nil {
				return nil, 0, fmt.Errorf("scan order item: %w", err)
			}
			itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
		}
		if err := itemRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate batch order item rows: %w", err)
		}

		for i := range orders {
			if items, ok := itemsByOrderID[orders[i].ID]; ok {
				orders[i].Items = items
			} else {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// UpdateStatus persists the order's status, payment status, gateway ids and
// metadata in one statement.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *domain.Order) error {
	o.UpdatedAt = time.Now().UTC()

	metaJSON, err := json.Marshal(o.PaymentMeta)
	if err != nil {
		return fmt.Errorf("marshal payment meta: %w", err)
	}

	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, gateway_order_id = $3, gateway_payment_id = $4, payment_meta = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.pool.Exec(ctx, query,
		o.Status,
		o.PaymentStatus,
		o.GatewayOrderID,
		o.GatewayPaymentID,
		metaJSON,
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", o.ID)
	}

	return nil
}

// CancelAndRestock flips the order to cancelled and restores each item's
// quantity onto product stock, all within one transaction.
func (r *OrderRepository) CancelAndRestock(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()

	statusQuery := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status IN ($4, $5)`

	ct, err := tx.Exec(ctx, statusQuery,
		domain.OrderStatusCancelled,
		now,
		o.ID,
		domain.OrderStatusPending,
		domain.OrderStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.Conflict("order can no longer be cancelled")
	}

	restockQuery := `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = $2
		WHERE id = $3`

	for _, item := range o.Items {
		if _, err := tx.Exec(ctx, restockQuery, item.Quantity, now, item.ProductID); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	o.Status = domain.OrderStatusCancelled
	o.UpdatedAt = now

	return nil
}

// unmarshalOrderJSON decodes the JSONB columns scanned off an order row.
func unmarshalOrderJSON(o *domain.Order, shippingJSON, metaJSON, itemsJSON []byte) error {
	if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
		var addr domain.Address
		if err := json.Unmarshal(shippingJSON, &addr); err != nil {
			return fmt.Errorf("unmarshal shipping address: %w", err)
		}
		o.ShippingAddress = &addr
	}

	if len(metaJSON) > 0 && string(metaJSON) != "null" {
		if err := json.Unmarshal(metaJSON, &o.PaymentMeta); err != nil {
			return fmt.Errorf("unmarshal payment meta: %w", err)
		}
	}

	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return fmt.Errorf("unmarshal order items: %w", err)
		}
	} else if itemsJSON != nil {
		o.Items = []domain.OrderItem{}
	}

	return nil
}
