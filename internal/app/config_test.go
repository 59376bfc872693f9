package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/pricing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STOREFRONT_DATABASE_URL", "postgres://localhost/storefront")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.Checkout.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.Cart.IdleTTL)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)

	rules, err := cfg.Pricing.Rules()
	require.NoError(t, err)
	def := pricing.DefaultRules()
	assert.True(t, def.TaxRate.Equal(rules.TaxRate))
	assert.True(t, def.FreeShippingThreshold.Equal(rules.FreeShippingThreshold))
	assert.True(t, def.FlatShipping.Equal(rules.FlatShipping))
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STOREFRONT_DATABASE_URL", "postgres://localhost/storefront")
	t.Setenv("STOREFRONT_PRICING_TAX_RATE", "0.1")
	t.Setenv("STOREFRONT_CHECKOUT_TIMEOUT", "3s")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Checkout.Timeout)

	rules, err := cfg.Pricing.Rules()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.1").Equal(rules.TaxRate))
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing database url",
			env:  map[string]string{"DATABASE_URL": ""},
		},
		{
			name: "malformed tax rate",
			env: map[string]string{
				"STOREFRONT_DATABASE_URL":     "postgres://localhost/storefront",
				"STOREFRONT_PRICING_TAX_RATE": "eight percent",
			},
		},
		{
			name: "negative shipping",
			env: map[string]string{
				"STOREFRONT_DATABASE_URL":          "postgres://localhost/storefront",
				"STOREFRONT_PRICING_FLAT_SHIPPING": "-1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig([]string{})
			assert.Error(t, err)
		})
	}
}
