// Package pricing derives order totals from a cart subtotal.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Rules is the fixed rule set applied to every quote.
type Rules struct {
	// TaxRate is the flat tax fraction applied to the subtotal (0.08 = 8%).
	TaxRate decimal.Decimal
	// FreeShippingThreshold is the subtotal above which shipping is free.
	FreeShippingThreshold decimal.Decimal
	// FlatShipping is charged when the subtotal does not exceed the threshold.
	FlatShipping decimal.Decimal
}

// DefaultRules returns the storefront's standard rules: 8% tax, free shipping
// strictly above 50, otherwise 9.99.
func DefaultRules() Rules {
	return Rules{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShipping:          decimal.RequireFromString("9.99"),
	}
}

// Quote holds the derived monetary values at full precision.
type Quote struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Rounded returns the quote with every field rounded half-up to cents.
// Call it only when values leave the core.
func (q Quote) Rounded() Quote {
	return Quote{
		Subtotal: q.Subtotal.Round(2),
		Tax:      q.Tax.Round(2),
		Shipping: q.Shipping.Round(2),
		Total:    q.Total.Round(2),
	}
}

// FreeShipping reports whether the quote qualified for free shipping.
func (q Quote) FreeShipping() bool {
	return q.Shipping.IsZero()
}

// Totaler is anything that can report an unrounded subtotal, such as a cart
// or a checkout snapshot.
type Totaler interface {
	Total() decimal.Decimal
}

// Calculator applies Rules to subtotals.
type Calculator struct {
	rules Rules
}

// NewCalculator returns a Calculator for the given rules.
func NewCalculator(rules Rules) *Calculator {
	return &Calculator{rules: rules}
}

// Rules returns the rule set in use.
func (c *Calculator) Rules() Rules {
	return c.rules
}

// Quote computes tax, shipping and total for subtotal.
func (c *Calculator) Quote(subtotal decimal.Decimal) Quote {
	tax := subtotal.Mul(c.rules.TaxRate)

	shipping := c.rules.FlatShipping
	if subtotal.GreaterThan(c.rules.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// QuoteCart quotes the current total of t.
func (c *Calculator) QuoteCart(t Totaler) Quote {
	return c.Quote(t.Total())
}
