// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the gateway needs at startup.
type Config struct {
	Port string

	// Identity provider.
	IdentityProviderURL string
	IdentityProviderKey string

	// Downstream target: either a pinned base URL or a Consul service name.
	DownstreamURL     string
	DownstreamService string
	ConsulAddr        string
	ConsulToken       string

	// Authorization.
	ProtectedPrefixes []string
	LoginPath         string

	// Sessions.
	SessionStore     string // "memory" or "redis"
	InactivityWindow time.Duration
	SweepInterval    time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Browser frontend.
	FrontendURL   string
	SecureCookies bool

	// Audit.
	KafkaBrokers string
	AuditTopic   string

	// Forwarding.
	ProxyTimeout time.Duration
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		IdentityProviderURL: os.Getenv("IDENTITY_PROVIDER_URL"),
		IdentityProviderKey: os.Getenv("IDENTITY_PROVIDER_KEY"),

		DownstreamURL:     os.Getenv("DOWNSTREAM_URL"),
		DownstreamService: os.Getenv("DOWNSTREAM_SERVICE"),
		ConsulAddr:        getEnv("CONSUL_HTTP_ADDR", "localhost:8500"),
		ConsulToken:       os.Getenv("CONSUL_HTTP_TOKEN"),

		ProtectedPrefixes: splitList(getEnv("PROTECTED_PREFIXES", "/dashboard,/api,/reports,/settings")),
		LoginPath:         getEnv("LOGIN_PATH", "/login"),

		SessionStore:     getEnv("SESSION_STORE", "memory"),
		InactivityWindow: getEnvDuration("SESSION_INACTIVITY_WINDOW", 30*time.Minute),
		SweepInterval:    getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),

		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
		SecureCookies: getEnv("APP_ENV", "development") == "production",

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		AuditTopic:   getEnv("KAFKA_TOPIC_AUDIT", "auth-events"),

		ProxyTimeout: getEnvDuration("PROXY_TIMEOUT", 30*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string

	if c.IdentityProviderURL == "" {
		missing = append(missing, "IDENTITY_PROVIDER_URL")
	}
	if c.DownstreamURL == "" && c.DownstreamService == "" {
		missing = append(missing, "DOWNSTREAM_URL (or DOWNSTREAM_SERVICE)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	switch c.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("SESSION_STORE must be \"memory\" or \"redis\", got %q", c.SessionStore)
	}

	if c.InactivityWindow <= 0 {
		return fmt.Errorf("SESSION_INACTIVITY_WINDOW must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
