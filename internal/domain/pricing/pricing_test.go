package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixedTotal string

func (f fixedTotal) Total() decimal.Decimal { return d(string(f)) }

func TestQuote(t *testing.T) {
	calc := NewCalculator(DefaultRules())

	tests := []struct {
		name         string
		subtotal     string
		wantTax      string
		wantShipping string
		wantTotal    string
	}{
		{"below threshold", "42.00", "3.36", "9.99", "55.35"},
		{"above threshold", "60.00", "4.80", "0", "64.80"},
		{"exactly at threshold pays shipping", "50.00", "4.00", "9.99", "63.99"},
		{"just above threshold", "50.01", "4.00", "0", "54.01"},
		{"empty cart", "0", "0", "9.99", "9.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := calc.Quote(d(tt.subtotal)).Rounded()

			assert.True(t, d(tt.subtotal).Equal(q.Subtotal), "subtotal %s", q.Subtotal)
			assert.True(t, d(tt.wantTax).Equal(q.Tax), "tax %s", q.Tax)
			assert.True(t, d(tt.wantShipping).Equal(q.Shipping), "shipping %s", q.Shipping)
			assert.True(t, d(tt.wantTotal).Equal(q.Total), "total %s", q.Total)
		})
	}
}

func TestQuote_FullPrecision(t *testing.T) {
	calc := NewCalculator(DefaultRules())

	q := calc.Quote(d("10.15"))
	assert.Equal(t, "0.812", q.Tax.String())
	assert.Equal(t, "20.952", q.Total.String())

	r := q.Rounded()
	assert.Equal(t, "0.81", r.Tax.StringFixed(2))
	assert.Equal(t, "20.95", r.Total.StringFixed(2))
}

func TestQuote_NoFloatDrift(t *testing.T) {
	calc := NewCalculator(DefaultRules())

	sum := decimal.Zero
	for range 1000 {
		sum = sum.Add(d("0.10"))
	}
	q := calc.Quote(sum)
	assert.True(t, d("100").Equal(q.Subtotal))
	assert.True(t, d("108").Equal(q.Total))
	assert.True(t, q.FreeShipping())
}

func TestQuoteCart(t *testing.T) {
	calc := NewCalculator(Rules{
		TaxRate:               d("0.10"),
		FreeShippingThreshold: d("100"),
		FlatShipping:          d("5"),
	})

	q := calc.QuoteCart(fixedTotal("20"))
	assert.True(t, d("27").Equal(q.Total))
	assert.False(t, q.FreeShipping())
	assert.True(t, d("0.10").Equal(calc.Rules().TaxRate))
}
