package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

func (h *Handler) cart(r *http.Request) (*cart.Cart, error) {
	return h.carts.Get(chi.URLParam(r, "cartID"))
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, c *cart.Cart) {
	entries := cart.Entries(c.Items())
	writeJSON(w, status, func(e *jx.Encoder) { h.encodeCart(e, c.ID(), entries) })
}

// product loads an active product for a cart mutation. Store failures other
// than absence are reported as load errors.
func (h *Handler) product(r *http.Request, id string) (*product.Product, error) {
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, err
		}
		return nil, failedLoad(errors.Wrap(err, "get product"))
	}
	return p, nil
}

// CreateCart handles POST /api/carts.
func (h *Handler) CreateCart(w http.ResponseWriter, _ *http.Request) {
	c := h.carts.New()
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(c.ID())
		e.ObjEnd()
	})
}

// GetCart handles GET /api/carts/{cartID}.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

// ClearCart handles DELETE /api/carts/{cartID}.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := c.Clear(); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

// AddItem handles POST /api/carts/{cartID}/items. The resulting quantity must
// not exceed the product's stock.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := decodeAddItem(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Quantity <= 0 {
		h.fail(w, r, cart.ErrInvalidQuantity)
		return
	}

	p, err := h.product(r, req.ProductID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := c.AddWithin(*p, req.Quantity, p.StockQuantity); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

// UpdateItem handles PUT /api/carts/{cartID}/items/{productID}. A quantity of
// zero or less removes the item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	qty, err := decodeQuantity(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	productID := chi.URLParam(r, "productID")
	limit := 0
	if qty > 0 {
		if c.Quantity(productID) == 0 {
			h.fail(w, r, cart.ErrItemNotFound)
			return
		}
		p, err := h.product(r, productID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		limit = p.StockQuantity
	}

	if err := c.UpdateWithin(productID, qty, limit); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

// RemoveItem handles DELETE /api/carts/{cartID}/items/{productID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := c.Remove(chi.URLParam(r, "productID")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}
