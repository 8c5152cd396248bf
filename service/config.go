package service

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string
	Port        string
	BaseURL     string
	DBPath      string

	Stripe struct {
		SecretKey     string
		WebhookSecret string
	}

	Email struct {
		Host  string
		Port  int
		Login string
		Key   string
		From  string
	}

	Checkout struct {
		Currency          string
		SuccessPath       string
		CancelPath        string
		ShippingCountries []string
		PaymentTimeout    time.Duration
	}

	Print struct {
		GelatoAPIKey  string
		GelatoBaseURL string
		SubmitTimeout time.Duration
		RetryInterval time.Duration
		MaxAttempts   int64
	}

	Mosaic struct {
		BaseURL string
	}

	// Redeem limits lookups per client IP; codes are short enough to guess.
	// A rate of 0 turns the limiter off.
	Redeem struct {
		RatePerSecond float64
		Burst         int
	}
}

// requiredEnv must be set; a missing one aborts startup.
var requiredEnv = []string{
	"STRIPE_SECRET_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"GELATO_API_KEY",
	"BREVO_SMTP_KEY",
	"BASE_URL",
	"DB_PATH",
}

func LoadConfig() (*Config, error) {
	var missing []string
	for _, key := range requiredEnv {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8000"),
		BaseURL:     strings.TrimRight(os.Getenv("BASE_URL"), "/"),
		DBPath:      os.Getenv("DB_PATH"),
	}

	// Stripe
	config.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	config.Stripe.WebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")

	// Email
	config.Email.Host = getEnv("BREVO_SMTP_HOST", "smtp-relay.brevo.com")
	config.Email.Port = getEnvInt("BREVO_SMTP_PORT", 587)
	config.Email.Login = getEnv("BREVO_SMTP_LOGIN", "")
	config.Email.Key = os.Getenv("BREVO_SMTP_KEY")
	config.Email.From = getEnv("EMAIL_FROM", "Pipcasso <noreply@pipcasso.com>")

	// Checkout
	config.Checkout.Currency = strings.ToLower(getEnv("CURRENCY", "usd"))
	config.Checkout.SuccessPath = getEnv("CHECKOUT_SUCCESS_PATH", "/thank-you?session_id={CHECKOUT_SESSION_ID}")
	config.Checkout.CancelPath = getEnv("CHECKOUT_CANCEL_PATH", "/create?canceled=true")
	config.Checkout.ShippingCountries = splitList(getEnv("SHIPPING_COUNTRIES", "US,CA,GB,AU"))
	config.Checkout.PaymentTimeout = getEnvDuration("PAYMENT_TIMEOUT", 10*time.Second)

	// Print fulfillment
	config.Print.GelatoAPIKey = os.Getenv("GELATO_API_KEY")
	config.Print.GelatoBaseURL = getEnv("GELATO_BASE_URL", "")
	config.Print.SubmitTimeout = getEnvDuration("PRINT_SUBMIT_TIMEOUT", 8*time.Second)
	config.Print.RetryInterval = getEnvDuration("PRINT_RETRY_INTERVAL", 10*time.Minute)
	config.Print.MaxAttempts = int64(getEnvInt("PRINT_MAX_ATTEMPTS", 5))

	// Mosaic renderer
	config.Mosaic.BaseURL = getEnv("MOSAIC_BASE_URL", "")

	// Redemption
	config.Redeem.RatePerSecond = getEnvFloat("REDEEM_RATE_PER_SECOND", 0.2)
	config.Redeem.Burst = getEnvInt("REDEEM_BURST", 10)

	return config, nil
}

// SuccessURL is where Stripe sends the customer after paying.
func (c *Config) SuccessURL() string {
	return c.BaseURL + c.Checkout.SuccessPath
}

func (c *Config) CancelURL() string {
	return c.BaseURL + c.Checkout.CancelPath
}

func (c *Config) RedeemURL() string {
	return c.BaseURL + "/redeem"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", raw)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		slog.Warn("ignoring invalid number setting", "key", key, "value", raw)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", raw)
		return defaultValue
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
