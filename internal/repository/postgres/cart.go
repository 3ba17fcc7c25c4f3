package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/pkg/database"
	apperrors "github.com/Faraz011/virasat-backend/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

// Upsert adds a product to the user's cart, merging quantities when the
// product is already present.
func (r *CartRepository) Upsert(ctx context.Context, userID, productID string, quantity int) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query, userID, productID, quantity, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	return nil
}

// UpdateQuantity sets the quantity of a cart line.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $1, updated_at = $2
		WHERE user_id = $3 AND product_id = $4`

	ct, err := r.pool.Exec(ctx, query, quantity, time.Now().UTC(), userID, productID)
	if err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", productID)
	}

	return nil
}

// Remove deletes one product from the user's cart.
func (r *CartRepository) Remove(ctx context.Context, userID, productID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	ct, err := r.pool.Exec(ctx, query, userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", productID)
	}

	return nil
}

// Clear deletes all cart lines for the user.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`

	_, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return nil
}

// ListByUserID returns the user's cart lines joined with current product data.
func (r *CartRepository) ListByUserID(ctx context.Context, userID string) ([]domain.CartItem, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
			   p.name, p.slug, p.price, p.image_url, p.stock_quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var ci domain.CartItem
		if err := rows.Scan(
			&ci.ID,
			&ci.UserID,
			&ci.ProductID,
			&ci.Quantity,
			&ci.CreatedAt,
			&ci.UpdatedAt,
			&ci.Name,
			&ci.Slug,
			&ci.Price,
			&ci.ImageURL,
			&ci.StockQuantity,
		); err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		items = append(items, ci)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart item rows: %w", err)
	}

	if items == nil {
		items = []domain.CartItem{}
	}

	return items, nil
}
