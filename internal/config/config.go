package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	DefaultVenueID int64

	Demo      DemoConfig
	RateLimit RateLimitConfig
}

// DemoConfig controls the demo-only surfaces: header-based auth, dataset
// regeneration, and simulated latency / error injection.
type DemoConfig struct {
	Enabled         bool
	Seed            int64
	HistoryDays     int
	LatencyMin      time.Duration
	LatencyMax      time.Duration
	ErrorRate       float64
	AllowHeaderAuth bool
}

// RateLimitConfig controls the redis token bucket guarding write-heavy
// endpoints.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BookingWriteRate  float64
	BookingWriteBurst int
	BulkRate          float64
	BulkBurst         int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "partnerboard"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "partnerboard"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		DefaultVenueID: getenvInt64("DEFAULT_VENUE", 0),

		Demo: DemoConfig{
			Enabled:         getenvBool("DEMO_ENABLED", environment != "production"),
			Seed:            getenvInt64("DEMO_SEED", 20240101),
			HistoryDays:     getenvInt("DEMO_HISTORY_DAYS", 90),
			LatencyMin:      getenvDuration("DEMO_LATENCY_MIN", 0),
			LatencyMax:      getenvDuration("DEMO_LATENCY_MAX", 0),
			ErrorRate:       getenvFloat("DEMO_ERROR_RATE", 0),
			AllowHeaderAuth: getenvBool("DEMO_HEADER_AUTH", environment != "production"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:         getenv("RATE_LIMIT_REDIS_ADDR", ""),
			RedisPassword:     getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:           getenvInt("RATE_LIMIT_REDIS_DB", 0),
			BookingWriteRate:  getenvFloat("RATE_LIMIT_BOOKING_WRITE_RATE", 50),
			BookingWriteBurst: getenvInt("RATE_LIMIT_BOOKING_WRITE_BURST", 100),
			BulkRate:          getenvFloat("RATE_LIMIT_BULK_RATE", 2),
			BulkBurst:         getenvInt("RATE_LIMIT_BULK_BURST", 5),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

func getenvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return value
}

func getenvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return value
}

func getenvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return value
}

func getenvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return value
}
