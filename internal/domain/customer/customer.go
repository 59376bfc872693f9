package customer

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotFound is returned when no customer has the requested email.
	ErrNotFound = errors.New("customer not found")
	// ErrAlreadyExists is returned by Create when the email is already taken.
	ErrAlreadyExists = errors.New("customer already exists")
)

// Customer is a buyer identified by email.
type Customer struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	CreatedAt time.Time
}

// Info is the customer-supplied part of a checkout form.
type Info struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty"`
}

// Repository persists customers. Email is unique in the store.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	Create(ctx context.Context, info Info) (*Customer, error)
}

// NormalizeEmail trims and lower-cases an address for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// flightTimeout bounds a shared lookup, which outlives any single caller.
const flightTimeout = 10 * time.Second

// Resolver implements get-or-create by email. Concurrent calls for the same
// email within the process share a single store round trip; across processes
// the store's unique constraint decides and the loser re-reads.
type Resolver struct {
	repo  Repository
	group singleflight.Group
}

// NewResolver creates a Resolver backed by repo.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the existing customer for info.Email or creates one.
// The second return value reports whether a new record was created.
//
// The shared round trip is detached from ctx so that one caller giving up
// does not fail the others waiting on it; each caller still returns as soon
// as its own ctx is done.
func (r *Resolver) Resolve(ctx context.Context, info Info) (*Customer, bool, error) {
	info.Email = NormalizeEmail(info.Email)

	type result struct {
		c       *Customer
		created bool
	}
	ch := r.group.DoChan(info.Email, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()

		c, created, err := r.resolve(flightCtx, info)
		if err != nil {
			return nil, err
		}
		return result{c: c, created: created}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		v := res.Val.(result)
		return v.c, v.created, nil
	}
}

func (r *Resolver) resolve(ctx context.Context, info Info) (*Customer, bool, error) {
	c, err := r.repo.FindByEmail(ctx, info.Email)
	switch {
	case err == nil:
		return c, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, errors.Wrap(err, "find customer")
	}

	c, err = r.repo.Create(ctx, info)
	switch {
	case err == nil:
		return c, true, nil
	case !errors.Is(err, ErrAlreadyExists):
		return nil, false, errors.Wrap(err, "create customer")
	}

	// Lost a race with another writer: the row exists now.
	c, err = r.repo.FindByEmail(ctx, info.Email)
	if err != nil {
		return nil, false, errors.Wrap(err, "refetch customer")
	}
	return c, false, nil
}
