package domain

import "time"

// CartItem is a per-user pending selection. Product fields are joined in for
// display and availability checks; only product_id and quantity are persisted
// on the row itself.
type CartItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined product fields.
	Name          string `json:"name,omitempty"`
	Slug          string `json:"slug,omitempty"`
	Price         int64  `json:"price,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	StockQuantity int    `json:"stock_quantity,omitempty"`
}

// Subtotal returns price * quantity for the cart line.
func (c *CartItem) Subtotal() int64 {
	return c.Price * int64(c.Quantity)
}
