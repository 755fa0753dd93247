package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one product line inside a user's cart.
type CartItem struct {
	ID         int64           `json:"id"`
	UUID       uuid.UUID       `json:"uuid"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Product    *Product        `json:"product,omitempty"`
	AddedAt    time.Time       `json:"added_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CanIncreaseQuantity reports whether more units fit the available stock.
func (i *CartItem) CanIncreaseQuantity(availableStock int) bool {
	return i.Quantity < availableStock
}

// Cart aggregates a user's pending items.
type Cart struct {
	ID        int64       `json:"id"`
	UUID      uuid.UUID   `json:"uuid"`
	UserID    uuid.UUID   `json:"user_id"`
	Items     []*CartItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsEmpty reports whether the cart holds no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Item returns the line for the given product, nil when absent.
func (c *Cart) Item(productID int64) *CartItem {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item
		}
	}
	return nil
}

// TotalItems sums the quantities across all lines.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalAmount sums the line totals.
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

// CartSummary is the condensed checkout view.
type CartSummary struct {
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}
