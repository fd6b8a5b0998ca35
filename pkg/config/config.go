// Package config provides application configuration management with environment
// variable loading, validation, and sensible defaults. It supports .env files
// for local development and validates all required settings on startup to
// prevent runtime configuration errors.
//
// Configuration is loaded from environment variables with the Load() function,
// which returns a validated Config struct or an error if required variables
// are missing or invalid.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//
//	// Use configuration
//	server := &http.Server{
//	    Addr: ":" + cfg.Server.Port,
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// It aggregates all configuration sections into a single struct
// for easy access throughout the application.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	Redis     RedisConfig
	OAuth     OAuthConfig
	Firebase  FirebaseConfig
	Email     EmailConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Notify    NotifyConfig
}

// ServerConfig holds server-specific configuration including port,
// environment, and external URLs.
type ServerConfig struct {
	Port        string
	Environment string
	FrontendURL string // URL to redirect after the Google Calendar OAuth callback
}

// FirestoreConfig holds Google Cloud Firestore configuration.
// Service account credentials are resolved through Application Default
// Credentials (GOOGLE_APPLICATION_CREDENTIALS) by the client libraries.
type FirestoreConfig struct {
	ProjectID string
}

// RedisConfig holds Redis configuration including connection parameters,
// authentication, database selection, and pool size.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int // Connection pool size
}

// OAuthConfig holds Google OAuth 2.0 configuration for the Calendar and
// Tasks scopes, including client credentials and the callback URL.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// FirebaseConfig holds Firebase Cloud Messaging configuration.
type FirebaseConfig struct {
	ProjectID string
}

// EmailConfig holds SendGrid configuration for transactional and batch email.
type EmailConfig struct {
	SendGridKey string
	FromName    string
	FromAddress string
}

// CORSConfig holds Cross-Origin Resource Sharing (CORS) configuration
// to control which origins can access the API.
type CORSConfig struct {
	AllowedOrigins []string // List of allowed origin URLs
}

// RateLimitConfig holds rate limiting configuration to protect against
// abuse and ensure fair resource usage.
type RateLimitConfig struct {
	RequestsPerMinute int
	WindowDuration    time.Duration // Time window for rate limiting (default: 1 minute)
}

// CacheConfig holds cache configuration including TTL values for different
// data types and cache enablement flag.
type CacheConfig struct {
	UserTTL      time.Duration
	AnalyticsTTL time.Duration
	Enabled      bool // Master switch to enable/disable caching
}

// NotifyConfig holds tuning knobs for the scheduled batch notifiers.
type NotifyConfig struct {
	FanoutWorkers int           // Bounded concurrency for email/push fan-out
	SendRetries   int           // Per-item send attempts before giving up
	DueSoonWindow time.Duration // How far ahead the due-soon check looks (default: 24h)
}

// Load reads and validates configuration from environment variables.
// It attempts to load a .env file if present (for local development) but
// doesn't fail if the file is missing (for production deployments).
//
// Required environment variables:
//   - FIRESTORE_PROJECT_ID: GCP project holding the Firestore database
//   - GOOGLE_CLIENT_ID: Google OAuth client ID
//   - GOOGLE_CLIENT_SECRET: Google OAuth client secret
//   - SENDGRID_API_KEY: SendGrid API key for outgoing email
//
// Optional environment variables have sensible defaults.
//
// Returns an error if any required variable is missing or if validation fails.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	// Get required environment variables with error handling
	firestoreProject, err := getEnvRequired("FIRESTORE_PROJECT_ID")
	if err != nil {
		return nil, err
	}

	googleClientID, err := getEnvRequired("GOOGLE_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	googleClientSecret, err := getEnvRequired("GOOGLE_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	sendgridKey, err := getEnvRequired("SENDGRID_API_KEY")
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENV", "development"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Firestore: FirestoreConfig{
			ProjectID: firestoreProject,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 100),
		},
		OAuth: OAuthConfig{
			ClientID:     googleClientID,
			ClientSecret: googleClientSecret,
			RedirectURL:  getEnv("CALENDAR_REDIRECT_URL", "http://localhost:8080/api/v1/calendar/callback"),
		},
		Firebase: FirebaseConfig{
			ProjectID: getEnv("FIREBASE_PROJECT_ID", firestoreProject),
		},
		Email: EmailConfig{
			SendGridKey: sendgridKey,
			FromName:    getEnv("EMAIL_FROM_NAME", "IntelliTask"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "notifications@intellitask.app"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			WindowDuration:    getEnvAsDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		Cache: CacheConfig{
			UserTTL:      getEnvAsDuration("CACHE_USER_TTL", 15*time.Minute),
			AnalyticsTTL: getEnvAsDuration("CACHE_ANALYTICS_TTL", 5*time.Minute),
			Enabled:      getEnv("CACHE_ENABLED", "true") == "true",
		},
		Notify: NotifyConfig{
			FanoutWorkers: getEnvAsInt("NOTIFY_FANOUT_WORKERS", 8),
			SendRetries:   getEnvAsInt("NOTIFY_SEND_RETRIES", 3),
			DueSoonWindow: getEnvAsDuration("NOTIFY_DUE_SOON_WINDOW", 24*time.Hour),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if all required configuration is present and valid.
// It performs comprehensive validation including:
//   - Port numbers are valid integers
//   - URLs are properly formatted
//   - Required credentials are present
//   - Notifier tuning values are positive
//
// This method is called automatically by Load() but can also be called
// independently for testing or validation purposes.
//
// Returns an error describing the first validation failure encountered,
// or nil if all configuration is valid.
func (c *Config) Validate() error {
	// Validate server port
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server port must be a valid integer: %w", err)
	}

	// Validate Redis port
	if _, err := strconv.Atoi(c.Redis.Port); err != nil {
		return fmt.Errorf("redis port must be a valid integer: %w", err)
	}

	if c.Firestore.ProjectID == "" {
		return fmt.Errorf("firestore project ID is required")
	}

	// Validate OAuth configuration
	if c.OAuth.ClientID == "" {
		return fmt.Errorf("google OAuth client ID is required")
	}
	if c.OAuth.ClientSecret == "" {
		return fmt.Errorf("google OAuth client secret is required")
	}

	// Validate redirect URL format
	if _, err := url.ParseRequestURI(c.OAuth.RedirectURL); err != nil {
		return fmt.Errorf("invalid OAuth redirect URL: %w", err)
	}

	// Validate frontend URL format
	if _, err := url.ParseRequestURI(c.Server.FrontendURL); err != nil {
		return fmt.Errorf("invalid frontend URL: %w", err)
	}

	if c.Email.SendGridKey == "" {
		return fmt.Errorf("sendgrid API key is required")
	}
	if !strings.Contains(c.Email.FromAddress, "@") {
		return fmt.Errorf("invalid email from address %q", c.Email.FromAddress)
	}

	if c.Notify.FanoutWorkers < 1 {
		return fmt.Errorf("notify fan-out workers must be at least 1")
	}
	if c.Notify.SendRetries < 1 {
		return fmt.Errorf("notify send retries must be at least 1")
	}

	return nil
}

// Address returns the Redis server address in "host:port" format.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{
//	    Addr: cfg.Redis.Address(),
//	})
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions for environment variable parsing

// getEnv retrieves an environment variable with a default fallback.
// Returns the environment variable value if set, otherwise returns defaultValue.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvRequired retrieves a required environment variable.
// Returns an error if the variable is not set or is empty.
//
// Use this for configuration that has no sensible default and must be
// explicitly provided by the operator.
func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an integer with a default fallback.
// If the variable is not set or cannot be parsed as an integer, returns defaultValue.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a time.Duration with a default fallback.
// Supports Go duration format: "300ms", "1.5h", "2h45m", etc.
// If the variable is not set or cannot be parsed, returns defaultValue.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice retrieves an environment variable as a string slice with a default fallback.
// Parses comma-separated values into a slice, trimming surrounding whitespace.
// If the variable is not set, returns defaultValue.
//
// Example:
//
//	// ALLOWED_ORIGINS=http://localhost:3000,https://example.com
//	origins := getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
