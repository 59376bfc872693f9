package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func sale(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestEffectivePrice(t *testing.T) {
	tests := []struct {
		name string
		p    Product
		want string
	}{
		{
			name: "base price without sale",
			p:    Product{Price: decimal.RequireFromString("19.99")},
			want: "19.99",
		},
		{
			name: "sale price wins",
			p:    Product{Price: decimal.RequireFromString("19.99"), SalePrice: sale("14.99")},
			want: "14.99",
		},
		{
			name: "sale price above base still wins",
			p:    Product{Price: decimal.RequireFromString("10"), SalePrice: sale("12")},
			want: "12",
		},
		{
			name: "zero sale price is still a sale price",
			p:    Product{Price: decimal.RequireFromString("10"), SalePrice: sale("0")},
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(tt.p.EffectivePrice()),
				"got %s", tt.p.EffectivePrice())
		})
	}
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		name        string
		p           Product
		wantHas     bool
		wantPercent int64
	}{
		{"no sale", Product{Price: decimal.NewFromInt(100)}, false, 0},
		{"quarter off", Product{Price: decimal.NewFromInt(100), SalePrice: sale("75")}, true, 25},
		{"rounds", Product{Price: decimal.RequireFromString("29.99"), SalePrice: sale("19.99")}, true, 33},
		{"equal to base", Product{Price: decimal.NewFromInt(10), SalePrice: sale("10")}, false, 0},
		{"above base", Product{Price: decimal.NewFromInt(10), SalePrice: sale("15")}, false, 0},
		{"zero base", Product{Price: decimal.Zero, SalePrice: sale("-1")}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantHas, tt.p.HasDiscount())
			assert.Equal(t, tt.wantPercent, tt.p.DiscountPercent())
		})
	}
}

func TestInStock(t *testing.T) {
	p := Product{StockQuantity: 3}
	assert.True(t, p.InStock(3))
	assert.False(t, p.InStock(4))
	assert.False(t, Product{}.InStock(1))
}
