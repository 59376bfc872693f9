package handler

import (
	"net/http"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

var errInvalidBody = errors.New("invalid request body")

// loadError marks a failed store read.
type loadError struct{ err error }

func (e *loadError) Error() string { return "load: " + e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

func failedLoad(err error) error { return &loadError{err: err} }

// badRequestError carries a client-facing message for malformed input.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// fail maps err to the API error response and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status = http.StatusInternalServerError
		msg    = "internal error"
		fields map[string]string

		vErr   *order.ValidationError
		subErr *order.SubmissionError
		ldErr  *loadError
		brErr  *badRequestError
	)
	switch {
	case errors.As(err, &vErr):
		status, msg, fields = http.StatusBadRequest, "invalid checkout", vErr.Fields
	case errors.As(err, &brErr):
		status, msg = http.StatusBadRequest, brErr.msg
	case errors.Is(err, errInvalidBody):
		status, msg = http.StatusBadRequest, errInvalidBody.Error()
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		status, msg = http.StatusNotFound, rootMessage(err)
	case errors.Is(err, cart.ErrCheckoutInProgress):
		status, msg = http.StatusConflict, cart.ErrCheckoutInProgress.Error()
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInsufficientStock):
		status, msg = http.StatusUnprocessableEntity, rootMessage(err)
	case errors.As(err, &subErr):
		status, msg = http.StatusBadGateway, "order submission failed"
	case errors.As(err, &ldErr):
		status, msg = http.StatusBadGateway, "failed to load"
	}

	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeError(w, status, msg, fields)
}

// rootMessage returns the message of the domain sentinel err wraps.
func rootMessage(err error) string {
	for _, s := range []error{
		cart.ErrCartNotFound, cart.ErrItemNotFound, product.ErrNotFound,
		order.ErrOrderNotFound, cart.ErrEmptyCart, cart.ErrInvalidQuantity,
		cart.ErrInsufficientStock,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}

// writeError writes {"code", "message", "fields"?}.
func writeError(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		if len(fields) > 0 {
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			e.FieldStart("fields")
			e.ObjStart()
			for _, k := range keys {
				e.FieldStart(k)
				e.Str(fields[k])
			}
			e.ObjEnd()
		}
		e.ObjEnd()
	})
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
