package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

type categoryJSON struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

type productJSON struct {
	Name           string              `json:"name"`
	Slug           string              `json:"slug"`
	SKU            string              `json:"sku"`
	Description    string              `json:"description"`
	Price          decimal.Decimal     `json:"price"`
	SalePrice      decimal.NullDecimal `json:"salePrice"`
	StockQuantity  int                 `json:"stockQuantity"`
	Images         []string            `json:"images"`
	CategorySlug   string              `json:"categorySlug"`
	Featured       bool                `json:"featured"`
	Status         string              `json:"status"`
	SEOTitle       string              `json:"seoTitle"`
	SEODescription string              `json:"seoDescription"`
}

type catalogJSON struct {
	Categories []categoryJSON `json:"categories"`
	Products   []productJSON  `json:"products"`
}

var gzipMagic = []byte{0x1f, 0x8b}

// readCatalog loads a catalog file. Gzipped files are detected by the .gz
// suffix or the gzip magic bytes. An empty path selects the embedded sample.
func readCatalog(path string, fallback []byte) (*catalogJSON, error) {
	data := fallback
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "read catalog file")
		}
	}

	if strings.HasSuffix(path, ".gz") || bytes.HasPrefix(data, gzipMagic) {
		zr, err := pgzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = zr.Close() }()

		if data, err = io.ReadAll(zr); err != nil {
			return nil, errors.Wrap(err, "decompress catalog")
		}
	}

	var c catalogJSON
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *catalogJSON) validate() error {
	slugs := make(map[string]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Slug == "" || cat.Name == "" {
			return errors.Errorf("category %q: name and slug are required", cat.Name)
		}
		slugs[cat.Slug] = struct{}{}
	}
	for _, p := range c.Products {
		if p.SKU == "" || p.Slug == "" || p.Name == "" {
			return errors.Errorf("product %q: name, slug and sku are required", p.Name)
		}
		if !p.Price.IsPositive() {
			return errors.Errorf("product %s: price must be positive", p.SKU)
		}
		if p.StockQuantity < 0 {
			return errors.Errorf("product %s: stock must not be negative", p.SKU)
		}
		if _, ok := slugs[p.CategorySlug]; p.CategorySlug != "" && !ok {
			return errors.Errorf("product %s: unknown category %q", p.SKU, p.CategorySlug)
		}
	}
	return nil
}

func (c categoryJSON) toDomain() product.Category {
	return product.Category{
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ImageURL:    c.ImageURL,
	}
}

// toDomain converts p, resolving its category slug through categoryIDs.
func (p productJSON) toDomain(categoryIDs map[string]string) product.Product {
	status := product.Status(p.Status)
	if status == "" {
		status = product.StatusActive
	}
	return product.Product{
		Name:           p.Name,
		Slug:           p.Slug,
		SKU:            p.SKU,
		Description:    p.Description,
		Price:          p.Price,
		SalePrice:      p.SalePrice,
		StockQuantity:  p.StockQuantity,
		Images:         p.Images,
		CategoryID:     categoryIDs[p.CategorySlug],
		Featured:       p.Featured,
		Status:         status,
		SEOTitle:       p.SEOTitle,
		SEODescription: p.SEODescription,
	}
}
