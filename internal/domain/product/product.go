package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist or is not
// active.
var ErrNotFound = errors.New("product not found")

// Status is the catalog lifecycle state of a product.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var hundred = decimal.NewFromInt(100)

// Category groups products for navigation.
type Category struct {
	ID          string
	Name        string
	Description string
	ImageURL    string
	Slug        string
	CreatedAt   time.Time
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	// SalePrice is the discounted price. It takes effect whenever it is set,
	// see EffectivePrice.
	SalePrice      decimal.NullDecimal
	SKU            string
	StockQuantity  int
	Images         []string
	CategoryID     string
	Category       *Category
	Slug           string
	Featured       bool
	Status         Status
	SEOTitle       string
	SEODescription string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectivePrice returns the unit price a customer is charged: the sale price
// when one is set, otherwise the base price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// HasDiscount reports whether the product should be displayed as discounted.
func (p Product) HasDiscount() bool {
	return p.SalePrice.Valid && p.SalePrice.Decimal.LessThan(p.Price)
}

// DiscountPercent returns the whole-number discount percentage for display.
// It is zero when the product has no real discount.
func (p Product) DiscountPercent() int64 {
	if !p.HasDiscount() || !p.Price.IsPositive() {
		return 0
	}
	off := p.Price.Sub(p.SalePrice.Decimal).Div(p.Price).Mul(hundred)
	return off.Round(0).IntPart()
}

// InStock reports whether at least qty units are available.
func (p Product) InStock(qty int) bool {
	return qty <= p.StockQuantity
}

// Filter narrows a product listing. Zero values mean "no restriction".
type Filter struct {
	CategoryID string
	// Featured restricts the listing to featured products when true.
	Featured bool
	// Limit caps the number of rows when positive.
	Limit int
	// Search matches name or description, case-insensitively, as a substring.
	Search string
}

// Repository defines read operations for the product catalog. Only active
// products are ever returned.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	List(ctx context.Context, f Filter) ([]Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}

// Writer defines catalog maintenance operations. The storefront itself never
// writes the catalog; seeding tools do.
type Writer interface {
	// UpsertCategory inserts or updates a category keyed by slug and returns
	// its ID.
	UpsertCategory(ctx context.Context, c Category) (string, error)
	// UpsertProduct inserts or updates a product keyed by SKU and returns
	// its ID.
	UpsertProduct(ctx context.Context, p Product) (string, error)
}
