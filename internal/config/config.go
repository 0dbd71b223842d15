package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Dispatch DispatchConfig
	Billing  BillingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// DispatchConfig holds ride dispatch and driver eligibility settings.
type DispatchConfig struct {
	// GracePeriod is how long an unverified driver may operate after
	// registration before verification becomes mandatory.
	GracePeriod time.Duration
	// DefaultSearchRadiusKm is used when a driver has not set one.
	DefaultSearchRadiusKm float64
	// LocationInterval is the expected cadence of driver location
	// reports; stale entries older than several intervals are ignored.
	LocationInterval time.Duration
	// AvgSpeedKmh is the assumed rural average speed for ETA and
	// duration estimates.
	AvgSpeedKmh float64
}

// BillingConfig holds the weekly billing job configuration.
type BillingConfig struct {
	// RunWeekday and RunTime place the weekly aggregation run,
	// e.g. Sunday at 23:59 local time.
	RunWeekday time.Weekday
	RunTime    string // "HH:MM"
	Enabled    bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "taxirural"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "taxirural"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Dispatch: DispatchConfig{
			GracePeriod:           getDurationEnv("DRIVER_GRACE_PERIOD", 72*time.Hour),
			DefaultSearchRadiusKm: getFloatEnv("DEFAULT_SEARCH_RADIUS_KM", 5.0),
			LocationInterval:      getDurationEnv("LOCATION_INTERVAL", 5*time.Second),
			AvgSpeedKmh:           getFloatEnv("AVG_SPEED_KMH", 30),
		},
		Billing: BillingConfig{
			RunWeekday: time.Weekday(getIntEnv("BILLING_RUN_WEEKDAY", int(time.Sunday))),
			RunTime:    getEnv("BILLING_RUN_TIME", "23:59"),
			Enabled:    getBoolEnv("BILLING_ENABLED", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
