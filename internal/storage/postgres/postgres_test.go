//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		log.Printf("start postgres container: %v", err)
		return 1
	}
	defer func() { _ = testcontainers.TerminateContainer(container) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("connection string: %v", err)
		return 1
	}

	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Printf("create pool: %v", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool, zap.NewNop()); err != nil {
		log.Printf("run migrations: %v", err)
		return 1
	}

	return m.Run()
}

// --- Helpers ---

func truncate(t *testing.T) {
	t.Helper()

	_, err := testPool.Exec(context.Background(),
		`TRUNCATE order_items, orders, customers, products, categories CASCADE`)
	require.NoError(t, err)
}

func seedProduct(t *testing.T, repo *ProductRepository, p product.Product) string {
	t.Helper()

	id, err := repo.UpsertProduct(context.Background(), p)
	require.NoError(t, err)
	return id
}

// --- Tests ---

func TestProductRepository(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	catID, err := repo.UpsertCategory(ctx, product.Category{Name: "Kitchen", Slug: "kitchen"})
	require.NoError(t, err)

	knifeID := seedProduct(t, repo, product.Product{
		Name: "Chef Knife", Description: "Sharp steel blade", SKU: "K-1", Slug: "chef-knife",
		Price: decimal.RequireFromString("42.00"), StockQuantity: 5,
		CategoryID: catID, Featured: true, Images: []string{"a.jpg", "b.jpg"},
	})
	seedProduct(t, repo, product.Product{
		Name: "Kettle", SKU: "K-2", Slug: "kettle",
		Price:     decimal.RequireFromString("30.00"),
		SalePrice: decimal.NewNullDecimal(decimal.RequireFromString("25.00")),
	})
	seedProduct(t, repo, product.Product{
		Name: "Old Pan", SKU: "K-3", Slug: "old-pan",
		Price: decimal.RequireFromString("10.00"), Status: product.StatusInactive,
	})

	t.Run("categories", func(t *testing.T) {
		cats, err := repo.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, "kitchen", cats[0].Slug)
	})

	t.Run("list active only", func(t *testing.T) {
		ps, err := repo.List(ctx, product.Filter{})
		require.NoError(t, err)
		assert.Len(t, ps, 2)
	})

	t.Run("filters", func(t *testing.T) {
		ps, err := repo.List(ctx, product.Filter{Featured: true})
		require.NoError(t, err)
		require.Len(t, ps, 1)
		assert.Equal(t, knifeID, ps[0].ID)

		ps, err = repo.List(ctx, product.Filter{CategoryID: catID})
		require.NoError(t, err)
		require.Len(t, ps, 1)

		ps, err = repo.List(ctx, product.Filter{Search: "STEEL"})
		require.NoError(t, err)
		require.Len(t, ps, 1)
		assert.Equal(t, "Chef Knife", ps[0].Name)

		ps, err = repo.List(ctx, product.Filter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, ps, 1)

		ps, err = repo.List(ctx, product.Filter{CategoryID: "not-a-uuid"})
		require.NoError(t, err)
		assert.Empty(t, ps)
	})

	t.Run("get by slug with category", func(t *testing.T) {
		p, err := repo.GetBySlug(ctx, "chef-knife")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.Images)
		require.NotNil(t, p.Category)
		assert.Equal(t, "Kitchen", p.Category.Name)
		assert.False(t, p.SalePrice.Valid)
	})

	t.Run("sale price", func(t *testing.T) {
		p, err := repo.GetBySlug(ctx, "kettle")
		require.NoError(t, err)
		assert.True(t, p.SalePrice.Valid)
		assert.Equal(t, "25", p.EffectivePrice().String())
		assert.Nil(t, p.Category)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetBySlug(ctx, "old-pan")
		require.ErrorIs(t, err, product.ErrNotFound)

		_, err = repo.GetByID(ctx, "nope")
		require.ErrorIs(t, err, product.ErrNotFound)
	})
}

func TestCustomerRepository(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	repo := NewCustomerRepository(testPool)

	_, err := repo.FindByEmail(ctx, "ada@example.com")
	require.ErrorIs(t, err, customer.ErrNotFound)

	c, err := repo.Create(ctx, customer.Info{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	_, err = repo.Create(ctx, customer.Info{FirstName: "Ada", LastName: "L", Email: "ada@example.com"})
	require.ErrorIs(t, err, customer.ErrAlreadyExists)

	found, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)
}

func TestOrderRepository(t *testing.T) {
	truncate(t)
	ctx := context.Background()
	products := NewProductRepository(testPool)
	customers := NewCustomerRepository(testPool)
	orders := NewOrderRepository(testPool)

	pid := seedProduct(t, products, product.Product{
		Name: "Chef Knife", SKU: "K-1", Slug: "chef-knife", Price: decimal.RequireFromString("21.00"),
	})
	cust, err := customers.Create(ctx, customer.Info{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)

	addr := order.Address{
		FirstName: "Ada", LastName: "Lovelace", AddressLine1: "1 Main St",
		City: "Springfield", State: "IL", PostalCode: "62701", Country: "US",
	}
	o := &order.Order{
		Number:          "ORD-1700000000000-ABCDEFGHI",
		CustomerID:      cust.ID,
		Status:          order.StatusPending,
		Subtotal:        decimal.RequireFromString("42.00"),
		TaxAmount:       decimal.RequireFromString("3.36"),
		ShippingAmount:  decimal.RequireFromString("9.99"),
		TotalAmount:     decimal.RequireFromString("55.35"),
		BillingAddress:  addr,
		ShippingAddress: addr,
		PaymentStatus:   order.PaymentPending,
		PaymentMethod:   order.DefaultPaymentMethod,
	}
	require.NoError(t, orders.Create(ctx, o))
	require.NotEmpty(t, o.ID)

	items := []order.Item{{
		ProductID: pid, Quantity: 2,
		UnitPrice: decimal.RequireFromString("21.00"),
		Total:     decimal.RequireFromString("42.00"),
	}}
	require.NoError(t, orders.CreateItems(ctx, o.ID, items))
	require.NoError(t, orders.CreateItems(ctx, o.ID, items), "rerun does not duplicate")

	got, err := orders.GetByNumber(ctx, o.Number)
	require.NoError(t, err)
	assert.Equal(t, "55.35", got.TotalAmount.StringFixed(2))
	assert.Equal(t, addr, got.BillingAddress)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "ada@example.com", got.Customer.Email)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Chef Knife", got.Items[0].ProductName)
	assert.Equal(t, 2, got.Items[0].Quantity)

	_, err = orders.GetByNumber(ctx, "ORD-0-MISSING00")
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}
