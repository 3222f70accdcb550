package config

import (
	"errors"
	"strings"
	"time"

	"go-checkout/utils"

	"github.com/spf13/viper"
)

type Config struct {
	Env     string
	GinPort string
	DSN     string

	// JWT signing secret for caller identity.
	JWTSecret string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	MinAmount       int64 // minor units
	DefaultCurrency string

	ReconcileInterval time.Duration
	ReconcileLookback time.Duration

	RateLimit   float64 // requests per second per IP
	RateBurst   int
	CORSOrigins []string
}

var (
	ErrMissingGatewayCredentials = errors.New("razorpay credentials not configured, set RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET")
	ErrMissingWebhookSecret      = errors.New("RAZORPAY_WEBHOOK_SECRET not configured")
	ErrMissingJWTSecret          = errors.New("SECRET not configured")
	ErrMissingDSN                = errors.New("DB not configured")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("GIN_PORT", "8080")
	v.SetDefault("PAYMENT_MIN_AMOUNT", 100)
	v.SetDefault("PAYMENT_DEFAULT_CURRENCY", "INR")
	v.SetDefault("RECONCILE_INTERVAL", "10m")
	v.SetDefault("RECONCILE_LOOKBACK", "24h")
	v.SetDefault("RATE_LIMIT", 0.25) // 15 requests/min/IP
	v.SetDefault("RATE_BURST", 15)
	v.SetDefault("CORS_ORIGINS", "*")
}

// Load reads .env (if present) and the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := utils.LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:                   v.GetString("APP_ENV"),
		GinPort:               v.GetString("GIN_PORT"),
		DSN:                   v.GetString("DB"),
		JWTSecret:             v.GetString("SECRET"),
		RazorpayKeyID:         v.GetString("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     v.GetString("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: v.GetString("RAZORPAY_WEBHOOK_SECRET"),
		MinAmount:             v.GetInt64("PAYMENT_MIN_AMOUNT"),
		DefaultCurrency:       strings.ToUpper(v.GetString("PAYMENT_DEFAULT_CURRENCY")),
		ReconcileInterval:     v.GetDuration("RECONCILE_INTERVAL"),
		ReconcileLookback:     v.GetDuration("RECONCILE_LOOKBACK"),
		RateLimit:             v.GetFloat64("RATE_LIMIT"),
		RateBurst:             v.GetInt("RATE_BURST"),
	}

	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg, nil
}

// Validate checks the settings the payment service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DSN == "" {
		errs = append(errs, ErrMissingDSN)
	}
	if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" {
		errs = append(errs, ErrMissingGatewayCredentials)
	}
	if c.RazorpayWebhookSecret == "" {
		errs = append(errs, ErrMissingWebhookSecret)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}
