package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (order_number, customer_id, status, subtotal, tax_amount,
			shipping_amount, total_amount, billing_address, shipping_address,
			payment_status, payment_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id, product_id) DO NOTHING`

	getOrderByNumberSQL = `SELECT o.id, o.order_number, o.customer_id, o.status, o.subtotal,
			o.tax_amount, o.shipping_amount, o.total_amount, o.billing_address,
			o.shipping_address, o.payment_status, o.payment_method, o.notes,
			o.created_at, o.updated_at,
			c.id, c.email, c.first_name, c.last_name, c.phone, c.created_at
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		WHERE o.order_number = $1`

	listOrderItemsSQL = `SELECT i.id, i.order_id, i.product_id, p.name, i.quantity,
			i.unit_price, i.total_price
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.created_at, i.id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Addresses are serialized to JSON for storage
// in the JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	billing, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshaling billing address: %w", err)
	}
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	err = r.pool.QueryRow(ctx, createOrderSQL,
		o.Number, nullable(o.CustomerID), string(o.Status), o.Subtotal, o.TaxAmount,
		o.ShippingAmount, o.TotalAmount, billing, shipping,
		string(o.PaymentStatus), o.PaymentMethod, nullable(o.Notes),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}

	return nil
}

// CreateItems inserts all items of an order in one batch. Items already
// stored for the same product are skipped, so a repeated call is harmless.
func (r *OrderRepository) CreateItems(ctx context.Context, orderID string, items []order.Item) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(createOrderItemSQL, orderID, it.ProductID, it.Quantity, it.UnitPrice, it.Total)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("creating items of order %q: %w", orderID, err)
	}
	return nil
}

// GetByNumber returns the order with its customer and items.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByNumberSQL, number)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}

	rows, err = r.pool.Query(ctx, listOrderItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", number, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", number, err)
	}

	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		customerID    *string
		status        string
		paymentStatus string
		billing       []byte
		shipping      []byte
		notes         *string

		custID        *string
		custEmail     *string
		custFirstName *string
		custLastName  *string
		custPhone     *string
		custCreatedAt *time.Time
	)
	err := row.Scan(
		&o.ID, &o.Number, &customerID, &status, &o.Subtotal,
		&o.TaxAmount, &o.ShippingAmount, &o.TotalAmount, &billing,
		&shipping, &paymentStatus, &o.PaymentMethod, &notes,
		&o.CreatedAt, &o.UpdatedAt,
		&custID, &custEmail, &custFirstName, &custLastName, &custPhone, &custCreatedAt,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
		return o, fmt.Errorf("decoding billing address: %w", err)
	}
	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("decoding shipping address: %w", err)
	}
	o.CustomerID = deref(customerID)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Notes = deref(notes)

	if custID != nil {
		o.Customer = &customer.Customer{
			ID:        *custID,
			Email:     deref(custEmail),
			FirstName: deref(custFirstName),
			LastName:  deref(custLastName),
			Phone:     deref(custPhone),
		}
		if custCreatedAt != nil {
			o.Customer.CreatedAt = *custCreatedAt
		}
	}
	return o, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity,
		&it.UnitPrice, &it.Total,
	)
	return it, err
}
