package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
)

// ErrOrderNotFound is returned when no order has the requested number.
var ErrOrderNotFound = errors.New("order not found")

// Status is the fulfillment state of an order. Only StatusPending is ever
// written by this service.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// DefaultPaymentMethod is stored when the checkout form leaves it empty.
const DefaultPaymentMethod = "credit_card"

// Address is a postal address snapshot stored with the order.
type Address struct {
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
	Company      string `json:"company,omitempty"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postalCode" validate:"required"`
	Country      string `json:"country"`
}

// Order is a submitted checkout. Totals are stored rounded to cents.
type Order struct {
	ID              string
	Number          string
	CustomerID      string
	Status          Status
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	ShippingAmount  decimal.Decimal
	TotalAmount     decimal.Decimal
	BillingAddress  Address
	ShippingAddress Address
	PaymentStatus   PaymentStatus
	PaymentMethod   string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items    []Item
	Customer *customer.Customer
}

// Item is a line of an order with the unit price that was charged.
type Item struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts the order and fills in its ID and timestamps.
	Create(ctx context.Context, o *Order) error
	// CreateItems inserts the items of an existing order. Items already
	// stored for the same (order, product) pair are left untouched.
	CreateItems(ctx context.Context, orderID string, items []Item) error
	// GetByNumber returns the order with its customer and items, or
	// ErrOrderNotFound.
	GetByNumber(ctx context.Context, number string) (*Order, error)
}
