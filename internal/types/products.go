package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus marks whether a listing is visible in the marketplace.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductSoldOut  ProductStatus = "sold_out"
)

// Product is a seller listing. Creation is premium-gated.
type Product struct {
	ID            int64           `json:"id"`
	UUID          uuid.UUID       `json:"uuid"`
	SellerID      uuid.UUID       `json:"seller_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Category      string          `json:"category"`
	Images        []string        `json:"images"`
	Status        ProductStatus   `json:"status"`
	ViewsCount    int             `json:"views_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsAvailable reports whether the product can be bought right now.
func (p *Product) IsAvailable() bool {
	return p.Status == ProductActive && p.StockQuantity > 0
}

// BelongsTo reports whether the given seller owns the product.
func (p *Product) BelongsTo(sellerID uuid.UUID) bool {
	return p.SellerID == sellerID
}

// CreateProductData carries the fields for a new listing.
type CreateProductData struct {
	SellerID      uuid.UUID
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Category      string
	Images        []string
}

// UpdateProductParams defines mutable listing fields for partial updates.
type UpdateProductParams struct {
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Images        *[]string        `json:"images,omitempty"`
	Status        *ProductStatus   `json:"status,omitempty"`
}
