package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/internal/repository"
	apperrors "github.com/Faraz011/virasat-backend/pkg/errors"
)

// Cart is the assembled view of a user's pending selections.
type Cart struct {
	Items    []domain.CartItem `json:"items"`
	Subtotal int64             `json:"subtotal"`
	Currency string            `json:"currency"`
}

// CartService implements cart operations backed by the cart_items table.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// GetCart returns the user's cart with product data joined in.
func (s *CartService) GetCart(ctx context.Context, userID string) (*Cart, error) {
	items, err := s.carts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var subtotal int64
	for i := range items {
		subtotal += items[i].Subtotal()
	}

	return &Cart{
		Items:    items,
		Subtotal: subtotal,
		Currency: "INR",
	}, nil
}

// AddItem adds a product to the cart, merging quantities when the product is
// already present. The product must be active and in stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for cart: %w", err)
	}

	if !product.IsActive {
		return nil, apperrors.Gone("product is no longer available")
	}
	if product.StockQuantity < quantity {
		return nil, apperrors.InsufficientStock(productID)
	}

	if err := s.carts.Upsert(ctx, userID, productID, quantity); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

// UpdateQuantity sets the quantity of a cart line. Zero removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, apperrors.InvalidInput("quantity cannot be negative")
	}

	if quantity == 0 {
		if err := s.carts.Remove(ctx, userID, productID); err != nil {
			return nil, fmt.Errorf("remove cart item: %w", err)
		}
		return s.GetCart(ctx, userID)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for cart: %w", err)
	}
	if product.StockQuantity < quantity {
		return nil, apperrors.InsufficientStock(productID)
	}

	if err := s.carts.UpdateQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, fmt.Errorf("update cart quantity: %w", err)
	}

	return s.GetCart(ctx, userID)
}

// RemoveItem deletes one product from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if err := s.carts.Remove(ctx, userID, productID); err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
