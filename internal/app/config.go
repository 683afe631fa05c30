package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHIPIN_ prefix), flags, or YAML config files.
type Config struct {
	Addr string `default:"0.0.0.0:8080" usage:"API server listen address"`

	ShopifyStoreURL    string `usage:"Commerce platform base URL (e.g. https://yourshop.myshopify.com)" flag:"shopify-store-url"`
	ShopifyAccessToken string `usage:"Commerce platform Admin API access token" flag:"shopify-access-token"`

	ChipAPIURL  string `default:"https://gate.chip-in.asia" usage:"Payment gateway API base URL" flag:"chip-api-url"`
	ChipAPIKey  string `usage:"Payment gateway API key" flag:"chip-api-key"`
	ChipBrandID string `usage:"Payment gateway brand id" flag:"chip-brand-id"`

	DatabaseURL string `usage:"PostgreSQL connection URL for webhook dedup; empty selects the in-memory store" flag:"database-url"`

	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins (storefront domains)"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHIPIN",
		Files:     []string{"config.yaml", "/etc/chipin/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.ShopifyStoreURL == "" || cfg.ShopifyAccessToken == "" {
		return nil, errors.New("commerce platform credentials are required: set CHIPIN_SHOPIFY_STORE_URL and CHIPIN_SHOPIFY_ACCESS_TOKEN")
	}
	if cfg.ChipAPIKey == "" || cfg.ChipBrandID == "" {
		return nil, errors.New("payment gateway credentials are required: set CHIPIN_CHIP_API_KEY and CHIPIN_CHIP_BRAND_ID")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CHIPIN_-prefixed configuration.
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
