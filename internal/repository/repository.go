package repository

import (
	"context"

	"github.com/Faraz011/virasat-backend/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error
}

// SessionRepository defines the interface for login-session persistence.
// Session rows are the source of truth for listing and revocation.
type SessionRepository interface {
	// Create inserts a new session row.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// ListByUserID returns all non-expired sessions for the user,
	// most-recently-active first.
	ListByUserID(ctx context.Context, userID string) ([]domain.Session, error)

	// TouchLastActive refreshes the session's last_active timestamp.
	TouchLastActive(ctx context.Context, id string) error

	// Delete removes a session scoped to the owning user. Returns
	// apperrors.ErrNotFound when no row matches both ids.
	Delete(ctx context.Context, userID, id string) error

	// DeleteAllExcept removes every session for the user except the given
	// one, returning the number of sessions revoked.
	DeleteAllExcept(ctx context.Context, userID, keepID string) (int64, error)

	// DeleteExpired bulk-deletes all sessions whose expiry has passed,
	// returning a count.
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenRepository defines the interface for email-verification and
// password-reset token persistence.
type TokenRepository interface {
	// Create stores a new token hash with a purpose and expiry.
	Create(ctx context.Context, token *domain.AuthToken) error

	// GetByHash retrieves an unused, unexpired token by hash and purpose.
	GetByHash(ctx context.Context, tokenHash, purpose string) (*domain.AuthToken, error)

	// MarkUsed marks a token as consumed.
	MarkUsed(ctx context.Context, id string) error

	// DeleteExpired removes expired and used tokens, returning a count.
	DeleteExpired(ctx context.Context) (int64, error)
}

// AddressRepository defines the interface for address-book persistence.
type AddressRepository interface {
	// Create inserts a new address into the store.
	Create(ctx context.Context, address *domain.Address) error

	// GetByID retrieves an address by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Address, error)

	// ListByUserID returns all addresses for the given user.
	ListByUserID(ctx context.Context, userID string) ([]domain.Address, error)

	// Update modifies an existing address in the store.
	Update(ctx context.Context, address *domain.Address) error

	// Delete removes an address from the store by its identifier.
	Delete(ctx context.Context, id string) error
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID *string
	Search     *string
	InStock    bool
	Page       int
	PerPage    int
}

// ProductRepository defines the interface for catalog product persistence.
type ProductRepository interface {
	// Create inserts a new product.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its URL slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// List returns products matching the filter with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Update modifies an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its identifier.
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines the interface for category persistence.
type CategoryRepository interface {
	// Create inserts a new category.
	Create(ctx context.Context, category *domain.Category) error

	// List returns all categories.
	List(ctx context.Context) ([]domain.Category, error)

	// GetBySlug retrieves a category by its URL slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)

	// Delete removes a category by its identifier.
	Delete(ctx context.Context, id string) error
}

// CartRepository defines the interface for cart persistence.
type CartRepository interface {
	// Upsert adds a product to the user's cart, merging quantities when the
	// product is already present.
	Upsert(ctx context.Context, userID, productID string, quantity int) error

	// UpdateQuantity sets the quantity of a cart line.
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error

	// Remove deletes one product from the user's cart.
	Remove(ctx context.Context, userID, productID string) error

	// Clear deletes all cart lines for the user.
	Clear(ctx context.Context, userID string) error

	// ListByUserID returns the user's cart lines joined with product data.
	ListByUserID(ctx context.Context, userID string) ([]domain.CartItem, error)
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID  *string
	Status  *string
	Page    int
	PerPage int
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create atomically inserts the order with its items and decrements each
	// product's stock. Insufficient stock for any line aborts the whole
	// order with apperrors.ErrInsufficientStock semantics.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByGatewayOrderID retrieves an order by the gateway's order id.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)

	// GetByGatewayPaymentID retrieves an order by the gateway's payment id.
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Order, error)

	// List returns orders matching the filter with the total count,
	// newest first, each with its items.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus changes the order's status, payment status, gateway ids
	// and metadata in one statement.
	UpdateStatus(ctx context.Context, order *domain.Order) error

	// CancelAndRestock atomically flips the order to cancelled and restores
	// each item's quantity onto product stock.
	CancelAndRestock(ctx context.Context, order *domain.Order) error
}
