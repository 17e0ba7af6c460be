package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     string

	ClerkSecretKey string
	DatabaseURL    string

	// Timezone used to bucket injections into days for streaks.
	Timezone *time.Location

	NATSURL string

	FCMServiceAccountJSON string
	FCMCredentialsFile    string

	StripeSecretKey     string
	StripeWebhookSecret string

	PaddleAPIKey    string
	PaddleSecretKey string
	PaddleSandbox   bool

	MetricsUser string
	MetricsPass string
}

var (
	cfg     *Config
	loadErr error
	once    sync.Once
)

// Load reads .env (if present) and the environment once per process.
func Load() (*Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "No .env file found")
		}
		cfg, loadErr = FromEnv()
	})
	return cfg, loadErr
}

func FromEnv() (*Config, error) {
	c := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		Port:                  getEnv("PORT", "3333"),
		ClerkSecretKey:        os.Getenv("CLERK_SECRET_KEY"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		NATSURL:               os.Getenv("NATS_URL"),
		FCMServiceAccountJSON: os.Getenv("FCM_SERVICE_ACCOUNT_JSON"),
		FCMCredentialsFile:    getEnv("FCM_CREDENTIALS_FILE", "./serviceAccountKey.json"),
		StripeSecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PaddleAPIKey:          os.Getenv("PADDLE_API_KEY"),
		PaddleSecretKey:       os.Getenv("PADDLE_SECRET_KEY"),
		PaddleSandbox:         getEnv("PADDLE_ENV", "sandbox") != "production",
		MetricsUser:           os.Getenv("METRICS_USER"),
		MetricsPass:           os.Getenv("METRICS_PASS"),
	}

	loc, err := time.LoadLocation(getEnv("APP_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	c.Timezone = loc

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.ClerkSecretKey == "" {
		return errors.New("CLERK_SECRET_KEY environment variable is not set")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
