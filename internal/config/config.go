package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	Environment     string
	DatabaseURL     string
	JWKSURL         string
	CORSOrigins     string
	TablePrefix     string
	LogDir          string // Empty = log to stdout only
	StoreBackend    string // "postgres" or "memory"
	SearchBackend   string // "algolia" or "postgres"
	AlgoliaAppID    string
	AlgoliaAPIKey   string
	BlobBackend     string // "gcs" or "memory"
	GCSBucket       string
	GCSPublicURL    string // Optional CDN/base URL for screenshot links
	GCSEmulatorHost string
	ParserCommand   string // Executable that turns a blueprint string into a JSON tree
	ParserTimeout   time.Duration
	// Edit/session behaviour
	UpdateMaxAttempts  int
	SessionIdleTimeout time.Duration
	SessionMaxCount    int
	// Per-client request budget for counters and search
	RateLimitPerMinute int
	RateLimitBurst     int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        env,
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWKSURL:            getEnv("JWKS_URL", ""),
		CORSOrigins:        getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:        getTablePrefix(env),
		LogDir:             getEnv("LOG_DIR", ""),
		StoreBackend:       getEnv("STORE_BACKEND", getDefaultBackend(env, "postgres")),
		SearchBackend:      getEnv("SEARCH_BACKEND", "postgres"),
		AlgoliaAppID:       getEnv("ALGOLIA_APP_ID", ""),
		AlgoliaAPIKey:      getEnv("ALGOLIA_API_KEY", ""),
		BlobBackend:        getEnv("BLOB_BACKEND", getDefaultBackend(env, "gcs")),
		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSPublicURL:       getEnv("GCS_PUBLIC_URL", ""),
		GCSEmulatorHost:    getEnv("STORAGE_EMULATOR_HOST", ""),
		ParserCommand:      getEnv("PARSER_COMMAND", "coi-bp-parse"),
		ParserTimeout:      getDuration("PARSER_TIMEOUT", 5*time.Second),
		UpdateMaxAttempts:  getInt("UPDATE_MAX_ATTEMPTS", DefaultUpdateMaxAttempts),
		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 12*time.Hour),
		SessionMaxCount:    getInt("SESSION_MAX_COUNT", 100_000),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 30),
	}
}

// getDefaultBackend keeps tests on in-memory stores unless told otherwise
func getDefaultBackend(env, real string) string {
	if env == "test" {
		return "memory"
	}
	return real
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
