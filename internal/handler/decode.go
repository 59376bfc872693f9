package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
)

type addItemRequest struct {
	ProductID string
	Quantity  int
}

// decodeBody runs fn over the JSON object in the request body.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := jx.Decode(body, 4096)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		return errors.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func decodeAddItem(w http.ResponseWriter, r *http.Request) (addItemRequest, error) {
	var req addItemRequest
	err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return req, err
	}
	if req.ProductID == "" {
		return req, badRequest("productId is required")
	}
	return req, nil
}

func decodeQuantity(w http.ResponseWriter, r *http.Request) (int, error) {
	var (
		qty  int
		seen bool
	)
	err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		if key != "quantity" {
			return d.Skip()
		}
		seen = true
		qty, err = d.Int()
		return err
	})
	if err != nil {
		return 0, err
	}
	if !seen {
		return 0, badRequest("quantity is required")
	}
	return qty, nil
}

func decodeCheckout(w http.ResponseWriter, r *http.Request) (order.CheckoutRequest, error) {
	var req order.CheckoutRequest
	err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "customer":
			return decodeCustomer(d, &req.Customer)
		case "billingAddress":
			return decodeAddress(d, &req.BillingAddress)
		case "shippingAddress":
			return decodeAddress(d, &req.ShippingAddress)
		case "sameAsBilling":
			req.SameAsBilling, err = d.Bool()
		case "paymentMethod":
			req.PaymentMethod, err = d.Str()
		case "notes":
			req.Notes, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeCustomer(d *jx.Decoder, c *customer.Info) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
		switch string(key) {
		case "firstName":
			c.FirstName, err = d.Str()
		case "lastName":
			c.LastName, err = d.Str()
		case "email":
			c.Email, err = d.Str()
		case "phone":
			c.Phone, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeAddress(d *jx.Decoder, a *order.Address) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
		switch string(key) {
		case "firstName":
			a.FirstName, err = d.Str()
		case "lastName":
			a.LastName, err = d.Str()
		case "company":
			a.Company, err = d.Str()
		case "addressLine1":
			a.AddressLine1, err = d.Str()
		case "addressLine2":
			a.AddressLine2, err = d.Str()
		case "city":
			a.City, err = d.Str()
		case "state":
			a.State, err = d.Str()
		case "postalCode":
			a.PostalCode, err = d.Str()
		case "country":
			a.Country, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}
