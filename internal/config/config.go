package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server      ServerConfig
	Session     SessionConfig
	Checkout    CheckoutConfig
	Documents   DocumentConfig
	WooCommerce WooCommerceConfig
	Mollie      MollieConfig
	TicketAPI   TicketAPIConfig
	Resend      ResendConfig
	Queue       QueueConfig
	Database    DatabaseConfig
	API         APIConfig
}

type ServerConfig struct {
	Port    string
	Host    string
	Env     string
	BaseURL string // public origin used for download and return links

	AllowedOrigins  []string
	RateLimit       int // state-changing requests per client and window
	RateLimitWindow time.Duration
	ShutdownTimeout time.Duration
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type CheckoutConfig struct {
	TaxRate            decimal.Decimal // percentage, e.g. 9 for 9%
	MaxTicketsPerOrder int
	Currency           string
}

type DocumentConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

type WooCommerceConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	WebhookSecret  string
}

type MollieConfig struct {
	APIKey  string
	BaseURL string
}

type TicketAPIConfig struct {
	URL    string
	APIKey string
}

type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type QueueConfig struct {
	Driver          string // "memory" or "sqs"
	SQSQueueURL     string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	DedupWindow     time.Duration
	MaxAttempts     int
}

type DatabaseConfig struct {
	URL string // optional; enables the Postgres delivery ledger
}

type APIConfig struct {
	Key string
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	port := getEnv("PORT", "8080")
	host := getEnv("HOST", "localhost")

	config := &Config{
		Server: ServerConfig{
			Port:    port,
			Host:    host,
			Env:     getEnv("ENV", "development"),
			BaseURL: strings.TrimSuffix(getEnv("BASE_URL", "http://"+host+":"+port), "/"),

			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS"),
			RateLimit:       getEnvAsInt("RATE_LIMIT", 30),
			RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", "your-secret-key-change-in-production"),
			TTL:    getEnvAsDuration("SESSION_TTL", 2*time.Hour),
		},
		Checkout: CheckoutConfig{
			TaxRate:            getEnvAsDecimal("TAX_RATE", decimal.NewFromInt(9)),
			MaxTicketsPerOrder: getEnvAsInt("MAX_TICKETS_PER_ORDER", 50),
			Currency:           getEnv("CURRENCY", "EUR"),
		},
		Documents: DocumentConfig{
			TokenSecret: getEnv("PDF_TOKEN_SECRET", ""),
			TokenTTL:    getEnvAsDuration("PDF_TOKEN_TTL", 150*24*time.Hour),
		},
		WooCommerce: WooCommerceConfig{
			BaseURL:        strings.TrimSuffix(getEnv("WOOCOMMERCE_BASE_URL", "http://localhost:8000"), "/"),
			ConsumerKey:    getEnv("WOOCOMMERCE_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("WOOCOMMERCE_CONSUMER_SECRET", ""),
			WebhookSecret:  getEnv("WOOCOMMERCE_WEBHOOK_SECRET", ""),
		},
		Mollie: MollieConfig{
			APIKey:  getEnv("MOLLIE_API_KEY", ""),
			BaseURL: strings.TrimSuffix(getEnv("MOLLIE_BASE_URL", "https://api.mollie.com/v2"), "/"),
		},
		TicketAPI: TicketAPIConfig{
			URL:    getEnv("TICKET_API_URL", ""),
			APIKey: getEnv("TICKET_API_KEY", ""),
		},
		Resend: ResendConfig{
			APIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail: getEnv("RESEND_FROM_EMAIL", "noreply@example.com"),
			FromName:  getEnv("RESEND_FROM_NAME", "Ticket Storefront"),
		},
		Queue: QueueConfig{
			Driver:          getEnv("QUEUE_DRIVER", "memory"),
			SQSQueueURL:     getEnv("SQS_QUEUE_URL", ""),
			Region:          getEnv("SQS_REGION", "eu-west-1"),
			AccessKeyID:     getEnv("SQS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("SQS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("SQS_ENDPOINT", ""),
			DedupWindow:     getEnvAsDuration("CONFIRMATION_DEDUP_WINDOW", 24*time.Hour),
			MaxAttempts:     getEnvAsInt("QUEUE_MAX_ATTEMPTS", 5),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		API: APIConfig{
			Key: getEnv("API_KEY", ""),
		},
	}

	return config, config.Validate()
}

// Validate rejects configurations the checkout pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Checkout.TaxRate.IsNegative() {
		return errors.New("TAX_RATE must not be negative")
	}
	if c.Checkout.MaxTicketsPerOrder <= 0 {
		return errors.New("MAX_TICKETS_PER_ORDER must be positive")
	}
	if c.Documents.TokenSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("PDF_TOKEN_SECRET is required outside development")
		}
		c.Documents.TokenSecret = "development-only-pdf-token-secret"
	}
	if c.Queue.Driver == "sqs" && c.Queue.SQSQueueURL == "" {
		return errors.New("SQS_QUEUE_URL is required when QUEUE_DRIVER=sqs")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty entries
func getEnvAsList(key string) []string {
	var values []string
	for _, value := range strings.Split(os.Getenv(key), ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	return values
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("36h") or a plain number of days ("150").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if days, err := strconv.Atoi(value); err == nil {
		return time.Duration(days) * 24 * time.Hour
	}
	return defaultValue
}
