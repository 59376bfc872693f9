package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
)

// Checkout handles POST /api/carts/{cartID}/checkout. On success the cart is
// emptied and the order number is returned with the charged totals.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := decodeCheckout(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	conf, err := h.orders.Submit(r.Context(), c, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orderNumber")
		e.Str(conf.OrderNumber)
		encodeQuoteFields(e, conf.Quote, conf.Quote.FreeShipping())
		e.ObjEnd()
	})
}

// GetOrder handles GET /api/orders/{orderNumber}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Lookup(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) {
			err = failedLoad(err)
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}
