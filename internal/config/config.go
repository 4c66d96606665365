package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig
	Shopify ShopifyConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Session SessionConfig
	Log     LogConfig
	Metrics MetricsConfig
	CORS    CORSConfig

	// TokenEncryptionKey is a base64 encoded 32 byte key. Tokens are stored in clear when empty.
	TokenEncryptionKey string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port   string
	AppURL string
	Env    string
}

// ShopifyConfig holds the app credentials and OAuth settings
type ShopifyConfig struct {
	APIKey     string
	APISecret  string
	APIVersion string
	Scopes     []string
	// FetchShopDetails fills missing contact fields from the Shop API after login.
	FetchShopDetails bool
}

// MongoConfig holds database configuration
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig holds session store configuration. An empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName   string
	TTL          time.Duration
	CookieSecure bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	Prefix string
}

// CORSConfig holds allowed origins for cross-origin requests
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:   getEnv("PORT", "8080"),
			AppURL: strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
			Env:    getEnv("APP_ENV", "development"),
		},
		Shopify: ShopifyConfig{
			APIKey:           os.Getenv("SHOPIFY_API_KEY"),
			APISecret:        os.Getenv("SHOPIFY_API_SECRET"),
			APIVersion:       getEnv("SHOPIFY_API_VERSION", "2024-01"),
			Scopes:           getEnvAsList("SHOPIFY_API_SCOPE", []string{"read_products", "read_orders"}),
			FetchShopDetails: getEnvAsBool("SHOPIFY_FETCH_SHOP_DETAILS", false),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "shopify_app"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			CookieName:   getEnv("SESSION_COOKIE_NAME", "shopify_app_session"),
			TTL:          getEnvAsDuration("SESSION_TTL", 14*24*time.Hour),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "shopify_app"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		},
		TokenEncryptionKey: os.Getenv("TOKEN_ENC_KEY_B64"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required settings
func (c *Config) Validate() error {
	var errs []error
	if c.Shopify.APIKey == "" {
		errs = append(errs, errors.New("SHOPIFY_API_KEY is required"))
	}
	if c.Shopify.APISecret == "" {
		errs = append(errs, errors.New("SHOPIFY_API_SECRET is required"))
	}
	if len(c.Shopify.Scopes) == 0 {
		errs = append(errs, errors.New("SHOPIFY_API_SCOPE must list at least one scope"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
