package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (LUVORA_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (LUVORA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `usage:"Redis connection URL for session carts (LUVORA_REDIS_URL or REDIS_URL)" flag:"redis-url"`

	// DevMode relaxes gateway requirements for local runs: unsigned webhooks
	// are accepted (loudly) and checkout works without gateway keys.
	DevMode bool `default:"false" usage:"Enable development conveniences; never in production" flag:"dev-mode"`

	Cart      CartConfig
	Razorpay  RazorpayConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// CartConfig controls session cart behaviour.
type CartConfig struct {
	TTL time.Duration `default:"168h" usage:"Idle session cart lifetime" flag:"cart-ttl"`
}

// RazorpayConfig holds the payment gateway credentials. An empty key pair
// puts checkout in test mode; an empty webhook secret disables the webhook
// route outside dev mode.
type RazorpayConfig struct {
	KeyID         string        `usage:"Razorpay API key ID" flag:"razorpay-key-id"`
	KeySecret     string        `usage:"Razorpay API key secret" flag:"razorpay-key-secret"`
	WebhookSecret string        `usage:"Razorpay webhook shared secret" flag:"razorpay-webhook-secret"`
	Currency      string        `default:"INR" usage:"Gateway currency code"`
	Timeout       time.Duration `default:"10s" usage:"Gateway HTTP timeout" flag:"razorpay-timeout"`
}

// SMTPConfig holds the order confirmation mail settings. An empty host
// disables sending.
type SMTPConfig struct {
	Host     string `usage:"SMTP server host; empty disables email" flag:"smtp-host"`
	Port     string `default:"587" usage:"SMTP server port" flag:"smtp-port"`
	Username string `usage:"SMTP auth username" flag:"smtp-username"`
	Password string `usage:"SMTP auth password" flag:"smtp-password"`
	From     string `default:"noreply@luvora.com" usage:"Confirmation mail sender" flag:"smtp-from"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (session cookie)" flag:"cors-credentials"`
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
		EnvPrefix: "LUVORA",
		Files:     []string{"config.yaml", "/etc/luvora/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set LUVORA_DATABASE_URL or DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("redis URL is required: set LUVORA_REDIS_URL or REDIS_URL")
	}
	if cfg.Razorpay.WebhookSecret == "" && !cfg.DevMode {
		return nil, errors.New("webhook secret is required outside dev mode: set LUVORA_RAZORPAY_WEBHOOK_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's LUVORA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
