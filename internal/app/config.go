package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (ORDERS_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Currency     string `default:"INR" usage:"ISO currency code applied to all orders"`
	Order        OrderConfig
	Pricing      PricingConfig
	Payment      PaymentConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// OrderConfig controls order number generation.
type OrderConfig struct {
	NumberPrefix string `default:"RC" usage:"Prefix for generated order numbers" flag:"order-number-prefix"`
}

// PricingConfig holds the server-side pricing inputs. Decimal values are
// configured as strings and parsed on load.
type PricingConfig struct {
	ShippingFee string `default:"49.00" usage:"Flat shipping fee added to every order" flag:"shipping-fee"`
	TaxRate     string `default:"0.05"  usage:"Tax rate applied to the item subtotal" flag:"tax-rate"`
}

// PaymentConfig holds settlement parameters for both strategies.
type PaymentConfig struct {
	GatewayKeyID     string `usage:"Payment gateway API key id" flag:"gateway-key-id"`
	GatewaySecret    string `usage:"Payment gateway API secret" flag:"gateway-secret"`
	WebhookSecret    string `usage:"Shared secret for callback signature verification" flag:"webhook-secret"`
	CODSurchargeRate string `default:"0.02" usage:"Cash-on-delivery surcharge as a fraction of the total" flag:"cod-surcharge-rate"`
	CODMinAmount     string `default:"0"     usage:"Minimum order total eligible for cash on delivery" flag:"cod-min-amount"`
	CODMaxAmount     string `default:"50000" usage:"Maximum order total eligible for cash on delivery (0 = unbounded)" flag:"cod-max-amount"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
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

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS",
		Files:     []string{"config.yaml", "/etc/orders/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.decimals(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// decimalConfig holds the parsed decimal-valued settings.
type decimalConfig struct {
	ShippingFee      decimal.Decimal
	TaxRate          decimal.Decimal
	CODSurchargeRate decimal.Decimal
	CODMinAmount     decimal.Decimal
	CODMaxAmount     decimal.Decimal
}

// decimals parses the string-typed decimal settings, reporting the first
// malformed one.
func (c *Config) decimals() (*decimalConfig, error) {
	var (
		d   decimalConfig
		err error
	)
	for _, f := range []struct {
		name  string
		raw   string
		value *decimal.Decimal
	}{
		{"shipping-fee", c.Pricing.ShippingFee, &d.ShippingFee},
		{"tax-rate", c.Pricing.TaxRate, &d.TaxRate},
		{"cod-surcharge-rate", c.Payment.CODSurchargeRate, &d.CODSurchargeRate},
		{"cod-min-amount", c.Payment.CODMinAmount, &d.CODMinAmount},
		{"cod-max-amount", c.Payment.CODMaxAmount, &d.CODMaxAmount},
	} {
		*f.value, err = decimal.NewFromString(f.raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s %q", f.name, f.raw)
		}
	}
	return &d, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's ORDERS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
