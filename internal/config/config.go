package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	CatalogURL        string
	CatalogTimeout    time.Duration
	CatalogRateLimit  float64
	CatalogRateBurst  int
	CatalogMaxRetries int
	CatalogRetryDelay time.Duration
	SearchStaleTime   time.Duration
	DetailsStaleTime  time.Duration

	StorageBackend string
	SQLitePath     string
	ChangeFeed     string
	NATSURL        string
	NATSSubject    string

	Port      string
	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads the whole configuration from the environment, falling back to
// defaults for anything unset or unparsable.
func Load() Config {
	return Config{
		CatalogURL:        GetEnv("CATALOG_URL", "https://api.tvmaze.com"),
		CatalogTimeout:    GetEnvDuration("CATALOG_TIMEOUT", 30*time.Second),
		CatalogRateLimit:  GetEnvFloat("CATALOG_RATE_LIMIT", 2),
		CatalogRateBurst:  GetEnvInt("CATALOG_RATE_BURST", 5),
		CatalogMaxRetries: GetEnvInt("CATALOG_MAX_RETRIES", 3),
		CatalogRetryDelay: GetEnvDuration("CATALOG_RETRY_DELAY", 2*time.Second),
		SearchStaleTime:   GetEnvDuration("SEARCH_STALE_TIME", 5*time.Minute),
		DetailsStaleTime:  GetEnvDuration("DETAILS_STALE_TIME", 10*time.Minute),

		StorageBackend: strings.ToLower(GetEnv("STORAGE_BACKEND", "sqlite")),
		SQLitePath:     GetEnv("SQLITE_PATH", "tvscout.db"),
		ChangeFeed:     strings.ToLower(GetEnv("CHANGE_FEED", "none")),
		NATSURL:        GetEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:    GetEnv("NATS_SUBJECT", "tvscout.changes"),

		Port:      GetEnv("PORT", "8080"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(GetEnv("LOG_FORMAT", "json")),
		LogFile:   GetEnv("LOG_FILE", ""),
	}
}

// RedisConfig returns host, port, password
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "localhost")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

// DatabaseConfig returns host, port, user, password, database name
func DatabaseConfig() (string, string, string, string, string) {
	host := GetEnv("DB_HOST", "localhost")
	port := GetEnv("DB_PORT", "5432")
	user := GetEnv("DB_USER", "")
	password := GetEnv("DB_PASSWORD", "")
	name := GetEnv("DB_NAME", "tvscout")
	return host, port, user, password, name
}

// DatabaseDSN builds a pgx connection string from DatabaseConfig.
func DatabaseDSN() (string, error) {
	host, port, user, password, databaseName := DatabaseConfig()
	if host == "" || port == "" || user == "" || databaseName == "" {
		return "", fmt.Errorf("missing required database configuration")
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, databaseName), nil
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	v := GetEnv(key, "")
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	v := GetEnv(key, "")
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := GetEnv(key, "")
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
