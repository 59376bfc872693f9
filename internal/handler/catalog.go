package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	storefrontLatest   = 12
	storefrontFeatured = 4
	maxListLimit       = 100
)

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.products.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, failedLoad(errors.Wrap(err, "list categories")))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCategories(e, cats) })
}

// ListProducts handles GET /api/products?category=&featured=&limit=&search=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ps, err := h.products.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, failedLoad(errors.Wrap(err, "list products")))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProducts(e, ps) })
}

func parseFilter(r *http.Request) (product.Filter, error) {
	q := r.URL.Query()
	f := product.Filter{
		CategoryID: q.Get("category"),
		Search:     q.Get("search"),
	}
	if v := q.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			return f, badRequest("featured must be a boolean")
		}
		f.Featured = featured
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return f, badRequest("limit must be a non-negative integer")
		}
		f.Limit = min(limit, maxListLimit)
	}
	return f, nil
}

// GetProduct handles GET /api/products/{slug}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if !errors.Is(err, product.ErrNotFound) {
			err = failedLoad(errors.Wrap(err, "get product"))
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, *p) })
}

// Storefront handles GET /api/storefront: categories, the latest products and
// the featured products, loaded concurrently. Any failure fails the page.
func (h *Handler) Storefront(w http.ResponseWriter, r *http.Request) {
	var (
		cats     []product.Category
		latest   []product.Product
		featured []product.Product
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		if cats, err = h.products.ListCategories(ctx); err != nil {
			return errors.Wrap(err, "list categories")
		}
		return nil
	})
	g.Go(func() (err error) {
		if latest, err = h.products.List(ctx, product.Filter{Limit: storefrontLatest}); err != nil {
			return errors.Wrap(err, "list latest")
		}
		return nil
	})
	g.Go(func() (err error) {
		if featured, err = h.products.List(ctx, product.Filter{Featured: true, Limit: storefrontFeatured}); err != nil {
			return errors.Wrap(err, "list featured")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, failedLoad(err))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("categories")
		encodeCategories(e, cats)
		e.FieldStart("latest")
		h.encodeProducts(e, latest)
		e.FieldStart("featured")
		h.encodeProducts(e, featured)
		e.ObjEnd()
	})
}
