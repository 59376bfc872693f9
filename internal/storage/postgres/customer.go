package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/customer"
)

const (
	findCustomerByEmailSQL = `SELECT id, email, first_name, last_name, phone, created_at
		FROM customers WHERE email = $1`

	createCustomerSQL = `INSERT INTO customers (email, first_name, last_name, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, first_name, last_name, phone, created_at`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
// The unique index on email arbitrates concurrent creates.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// FindByEmail returns the customer with the given (normalized) email.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, findCustomerByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("finding customer by email: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("finding customer by email: %w", err)
	}
	return &c, nil
}

// Create inserts a customer. It returns customer.ErrAlreadyExists when the
// email is already registered.
func (r *CustomerRepository) Create(ctx context.Context, info customer.Info) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, createCustomerSQL,
		info.Email, info.FirstName, info.LastName, nullable(info.Phone),
	)
	if err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, customer.ErrAlreadyExists
		}
		return nil, fmt.Errorf("creating customer: %w", err)
	}
	return &c, nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var (
		c     customer.Customer
		phone *string
	)
	err := row.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &phone, &c.CreatedAt)
	c.Phone = deref(phone)
	return c, err
}
