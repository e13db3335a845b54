package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Environment string
	BunDebug    bool
	AutoMigrate bool

	// API key shared by every client application
	APIKey string

	// Rate limiting. RedisURL is optional; the limiter falls back to memory.
	RedisURL           string
	RateLimitPerMinute int
	RateLimitPerHour   int
	TrustProxy         bool

	AllowedOrigins []string
}

// Load loads environment variables and returns a Config struct
func Load() *Config {
	_ = godotenv.Load()

	allowedOrigins := strings.Split(
		getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		",",
	)

	return &Config{
		Port:               getEnv("APP_PORT", "8000"),
		DatabaseURL:        databaseURL(),
		Environment:        getEnv("ENVIRONMENT", "development"),
		BunDebug:           getEnvAsBool("BUNDEBUG", false) || getEnvAsBool("SQL_ECHO", false),
		AutoMigrate:        getEnvAsBool("AUTO_MIGRATE", true),
		APIKey:             strings.TrimSpace(os.Getenv("API_KEY")),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 500),
		RateLimitPerHour:   getEnvAsInt("RATE_LIMIT_PER_HOUR", 5000),
		TrustProxy:         getEnvAsBool("TRUST_PROXY", false),
		AllowedOrigins:     allowedOrigins,
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("API_KEY environment variable is not set"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("missing database settings: set DATABASE_URL or DB_USER, DB_HOST, DB_NAME"))
	}
	if c.RateLimitPerMinute <= 0 || c.RateLimitPerHour <= 0 {
		errs = append(errs, fmt.Errorf("rate limits must be positive (minute=%d, hour=%d)", c.RateLimitPerMinute, c.RateLimitPerHour))
	}
	return errors.Join(errs...)
}

// databaseURL prefers DATABASE_URL and otherwise assembles a postgres DSN from DB_* parts.
// It returns "" when neither is usable.
func databaseURL() string {
	if direct := strings.Trim(strings.TrimSpace(os.Getenv("DATABASE_URL")), `"'`); direct != "" {
		return direct
	}

	user := strings.TrimSpace(os.Getenv("DB_USER"))
	host := strings.TrimSpace(os.Getenv("DB_HOST"))
	name := strings.TrimSpace(os.Getenv("DB_NAME"))
	if user == "" || host == "" || name == "" {
		return ""
	}

	u := &url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + getEnv("DB_PORT", "5432"),
		Path:     "/" + name,
		RawQuery: "sslmode=" + getEnv("DB_SSLMODE", "disable"),
	}
	if pw := os.Getenv("DB_PASSWORD"); pw != "" {
		u.User = url.UserPassword(user, pw)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	switch strings.ToLower(valStr) {
	case "yes":
		return true
	case "no":
		return false
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("invalid bool for %s, defaulting to %v\n", key, fallback)
		return fallback
	}
	return val
}

func getEnvAsInt(key string, fallback int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("invalid int for %s, defaulting to %d\n", key, fallback)
		return fallback
	}
	return val
}
