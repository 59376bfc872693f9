package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/pricing"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, a .env file, or YAML
// config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	Cart         CartConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PricingConfig holds the order pricing rules as decimal strings.
type PricingConfig struct {
	TaxRate               string `default:"0.08" usage:"Tax rate applied to the subtotal" flag:"tax-rate"`
	FreeShippingThreshold string `default:"50"   usage:"Subtotal above which shipping is free" flag:"free-shipping-threshold"`
	FlatShipping          string `default:"9.99" usage:"Shipping charged at or below the threshold" flag:"flat-shipping"`
}

// CheckoutConfig controls order submission.
type CheckoutConfig struct {
	Timeout time.Duration `default:"10s" usage:"Deadline for persisting one checkout" flag:"checkout-timeout"`
}

// CartConfig controls in-memory cart sessions.
type CartConfig struct {
	IdleTTL       time.Duration `default:"2h"     usage:"Evict carts idle for this long (0 disables)" flag:"cart-idle-ttl"`
	SweepInterval time.Duration `default:"5m"     usage:"How often idle carts are evicted" flag:"cart-sweep-interval"`
	MaxSessions   int           `default:"100000" usage:"Live cart count above which liveness fails" flag:"cart-max-sessions"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max            int           `default:"100"   usage:"Max requests per window (0 disables)"`
	Window         time.Duration `default:"1m"    usage:"Rate limit window duration"`
	TrustForwarded bool          `default:"false" usage:"Key clients by X-Forwarded-For / X-Real-IP" flag:"trust-forwarded"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Rules parses the configured pricing rules.
func (c PricingConfig) Rules() (pricing.Rules, error) {
	var (
		r   pricing.Rules
		err error
	)
	if r.TaxRate, err = parseAmount("tax rate", c.TaxRate); err != nil {
		return r, err
	}
	if r.FreeShippingThreshold, err = parseAmount("free shipping threshold", c.FreeShippingThreshold); err != nil {
		return r, err
	}
	if r.FlatShipping, err = parseAmount("flat shipping", c.FlatShipping); err != nil {
		return r, err
	}
	return r, nil
}

func parseAmount(name, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse %s %q", name, v)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.Errorf("%s must not be negative: %s", name, v)
	}
	return d, nil
}

// LoadConfig loads configuration from .env, environment variables, YAML config
// files and command-line flags, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.Pricing.Rules(); err != nil {
		return nil, errors.Wrap(err, "pricing")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT onto the STOREFRONT_ settings.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
