package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	listCategoriesSQL = `SELECT id, name, description, image_url, slug, created_at
		FROM categories ORDER BY name`

	selectProductSQL = `SELECT p.id, p.name, p.description, p.price, p.sale_price, p.sku,
			p.stock_quantity, p.images, p.category_id, p.slug, p.featured, p.status,
			p.seo_title, p.seo_description, p.created_at, p.updated_at,
			c.id, c.name, c.description, c.image_url, c.slug, c.created_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id`

	getProductBySlugSQL = selectProductSQL + ` WHERE p.slug = $1 AND p.status = 'active'`
	getProductByIDSQL   = selectProductSQL + ` WHERE p.id = $1 AND p.status = 'active'`

	upsertCategorySQL = `INSERT INTO categories (name, description, image_url, slug)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url
		RETURNING id`

	upsertProductSQL = `INSERT INTO products (name, description, price, sale_price, sku, stock_quantity,
			images, category_id, slug, featured, status, seo_title, seo_description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			sale_price = EXCLUDED.sale_price,
			stock_quantity = EXCLUDED.stock_quantity,
			images = EXCLUDED.images,
			category_id = EXCLUDED.category_id,
			slug = EXCLUDED.slug,
			featured = EXCLUDED.featured,
			status = EXCLUDED.status,
			seo_title = EXCLUDED.seo_title,
			seo_description = EXCLUDED.seo_description,
			updated_at = now()
		RETURNING id`
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Writer     = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListCategories returns all categories ordered by name.
func (r *ProductRepository) ListCategories(ctx context.Context) ([]product.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// List returns active products matching f, newest first.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	if f.CategoryID != "" {
		if _, err := uuid.Parse(f.CategoryID); err != nil {
			return []product.Product{}, nil
		}
	}
	query, args := buildListQuery(f)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

func buildListQuery(f product.Filter) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(selectProductSQL)
	b.WriteString(` WHERE p.status = 'active'`)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.CategoryID != "" {
		b.WriteString(` AND p.category_id = ` + arg(f.CategoryID))
	}
	if f.Featured {
		b.WriteString(` AND p.featured`)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		n := arg("%" + escapeLike(s) + "%")
		b.WriteString(` AND (p.name ILIKE ` + n + ` OR p.description ILIKE ` + n + `)`)
	}
	b.WriteString(` ORDER BY p.created_at DESC, p.id`)
	if f.Limit > 0 {
		b.WriteString(` LIMIT ` + arg(f.Limit))
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// GetBySlug returns an active product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return r.getOne(ctx, getProductBySlugSQL, slug)
}

// GetByID returns an active product by its identifier. Identifiers that are
// not UUIDs cannot exist in the store and report product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, product.ErrNotFound
	}
	return r.getOne(ctx, getProductByIDSQL, id)
}

func (r *ProductRepository) getOne(ctx context.Context, query, key string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", key, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", key, err)
	}
	return &p, nil
}

// UpsertCategory inserts or updates a category keyed by slug.
func (r *ProductRepository) UpsertCategory(ctx context.Context, c product.Category) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, upsertCategorySQL,
		c.Name, nullable(c.Description), nullable(c.ImageURL), c.Slug,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upserting category %q: %w", c.Slug, err)
	}
	return id, nil
}

// UpsertProduct inserts or updates a product keyed by SKU.
func (r *ProductRepository) UpsertProduct(ctx context.Context, p product.Product) (string, error) {
	status := p.Status
	if status == "" {
		status = product.StatusActive
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}

	var id string
	err := r.pool.QueryRow(ctx, upsertProductSQL,
		p.Name, nullable(p.Description), p.Price, p.SalePrice, p.SKU, p.StockQuantity,
		images, nullable(p.CategoryID), p.Slug, p.Featured, string(status),
		nullable(p.SEOTitle), nullable(p.SEODescription),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upserting product %q: %w", p.SKU, err)
	}
	return id, nil
}

func scanCategory(row pgx.CollectableRow) (product.Category, error) {
	var (
		c           product.Category
		description *string
		imageURL    *string
	)
	err := row.Scan(&c.ID, &c.Name, &description, &imageURL, &c.Slug, &c.CreatedAt)
	c.Description = deref(description)
	c.ImageURL = deref(imageURL)
	return c, err
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p              product.Product
		description    *string
		categoryID     *string
		status         string
		seoTitle       *string
		seoDescription *string

		catID          *string
		catName        *string
		catDescription *string
		catImageURL    *string
		catSlug        *string
		catCreatedAt   *time.Time
	)
	err := row.Scan(
		&p.ID, &p.Name, &description, &p.Price, &p.SalePrice, &p.SKU,
		&p.StockQuantity, &p.Images, &categoryID, &p.Slug, &p.Featured, &status,
		&seoTitle, &seoDescription, &p.CreatedAt, &p.UpdatedAt,
		&catID, &catName, &catDescription, &catImageURL, &catSlug, &catCreatedAt,
	)
	if err != nil {
		return p, err
	}

	p.Description = deref(description)
	p.CategoryID = deref(categoryID)
	p.Status = product.Status(status)
	p.SEOTitle = deref(seoTitle)
	p.SEODescription = deref(seoDescription)
	if catID != nil {
		p.Category = &product.Category{
			ID:          *catID,
			Name:        deref(catName),
			Description: deref(catDescription),
			ImageURL:    deref(catImageURL),
			Slug:        deref(catSlug),
		}
		if catCreatedAt != nil {
			p.Category.CreatedAt = *catCreatedAt
		}
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
