package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"listen-history/models"
)

// DefaultSheetURLTemplate is the CSV export endpoint for a Google Sheet.
const DefaultSheetURLTemplate = "https://docs.google.com/spreadsheets/d/%s/export?format=csv"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SheetIDs         string
	SheetURLTemplate string

	DataDir      string
	CacheTTL     time.Duration
	FetchTimeout time.Duration

	MaxConcurrency int
	MaxRetries     int
	RetryDelay     time.Duration

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisEnabled    bool
	RedisAddress    string
	RedisPassword   string
	RedisDB         int
	SummaryCacheTTL time.Duration

	ServerAddr string
	LogLevel   string
	ChromeBin  string
	TopN       int
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		SheetIDs:         getEnv("SHEET_IDS", ""),
		SheetURLTemplate: getEnv("SHEET_URL_TEMPLATE", DefaultSheetURLTemplate),

		DataDir:      getEnv("DATA_DIR", "./data"),
		CacheTTL:     getEnvDuration("CACHE_TTL", 24*time.Hour),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 30*time.Second),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RetryDelay:     getEnvDuration("RETRY_DELAY", 2*time.Second),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "listens"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "listens"),
		PostgresDB:       getEnv("POSTGRES_DB", "listen_history"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisEnabled:    getEnvBool("REDIS_ENABLED", false),
		RedisAddress:    getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		SummaryCacheTTL: getEnvDuration("SUMMARY_CACHE_TTL", 10*time.Minute),

		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ChromeBin:  getEnv("CHROME_BIN", ""),
		TopN:       getEnvInt("TOP_N", 10),
	}
}

// SheetIDList splits SHEET_IDS into trimmed identifiers. An unset or blank
// value is a configuration error the caller has to fix.
func (c *Config) SheetIDList() ([]string, error) {
	if strings.TrimSpace(c.SheetIDs) == "" {
		return nil, &models.ConfigError{
			Message: "SHEET_IDS not found. Add it to .env or the environment",
		}
	}

	parts := strings.Split(c.SheetIDs, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, strings.TrimSpace(p))
	}
	return ids, nil
}

// ProcessedPath is the canonical dataset file.
func (c *Config) ProcessedPath() string {
	return strings.TrimRight(c.DataDir, "/") + "/processed_data.csv"
}

// RawPath is the headerless backup of the last fetched export.
func (c *Config) RawPath() string {
	return strings.TrimRight(c.DataDir, "/") + "/raw_data.csv"
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
