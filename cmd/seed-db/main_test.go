package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockWriter struct {
	mu         sync.Mutex
	categories map[string]product.Category
	products   map[string]product.Product
	failSKU    string
}

func newMockWriter() *mockWriter {
	return &mockWriter{
		categories: make(map[string]product.Category),
		products:   make(map[string]product.Product),
	}
}

func (m *mockWriter) UpsertCategory(_ context.Context, c product.Category) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.categories[c.Slug] = c
	return "cat-" + c.Slug, nil
}

func (m *mockWriter) UpsertProduct(_ context.Context, p product.Product) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.SKU == m.failSKU {
		return "", errors.New("constraint violated")
	}
	m.products[p.SKU] = p
	return fmt.Sprintf("prod-%d", len(m.products)), nil
}

// --- Helpers ---

func writeGzip(t *testing.T, data []byte) string {
	t.Helper()

	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "catalog.json.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

// --- Tests ---

func TestReadCatalog_EmbeddedSample(t *testing.T) {
	c, err := readCatalog("", db.SampleCatalog)
	require.NoError(t, err)
	assert.Len(t, c.Categories, 3)
	assert.Len(t, c.Products, 8)
}

func TestReadCatalog_Gzip(t *testing.T) {
	path := writeGzip(t, db.SampleCatalog)

	c, err := readCatalog(path, nil)
	require.NoError(t, err)
	assert.Len(t, c.Products, 8)
}

func TestReadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"products": [`},
		{"missing sku", `{"products": [{"name": "Mug", "slug": "mug", "price": "5"}]}`},
		{"zero price", `{"products": [{"name": "Mug", "slug": "mug", "sku": "M1", "price": "0"}]}`},
		{"unknown category", `{"products": [{"name": "Mug", "slug": "mug", "sku": "M1", "price": "5", "categorySlug": "cups"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readCatalog("", []byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestSeed(t *testing.T) {
	c, err := readCatalog("", db.SampleCatalog)
	require.NoError(t, err)

	w := newMockWriter()
	require.NoError(t, seed(context.Background(), w, c))

	assert.Len(t, w.categories, 3)
	require.Len(t, w.products, 8)

	hp := w.products["ELEC-HP-001"]
	assert.Equal(t, "cat-electronics", hp.CategoryID)
	assert.Equal(t, product.StatusActive, hp.Status)
	require.True(t, hp.SalePrice.Valid)
	assert.Equal(t, "99.99", hp.SalePrice.Decimal.StringFixed(2))

	assert.Equal(t, product.StatusInactive, w.products["OUT-LN-003"].Status)
	assert.False(t, w.products["ELEC-SP-002"].SalePrice.Valid)
}

func TestSeed_ProductFailure(t *testing.T) {
	c, err := readCatalog("", db.SampleCatalog)
	require.NoError(t, err)

	w := newMockWriter()
	w.failSKU = "HOME-KN-001"
	err = seed(context.Background(), w, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOME-KN-001")
}
