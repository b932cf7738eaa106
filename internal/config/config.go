package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Platform   PlatformConfig
	Withdrawal WithdrawalConfig
	Referral   ReferralConfig
	Accrual    AccrualConfig
	Catalog    CatalogConfig
	Security   SecurityConfig
	Cache      CacheConfig
	Events     EventsConfig
	Log        LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// PlatformConfig holds the organisation-wide calendar. Every "today" in the
// engine (grant dates, withdrawal window, daily cap) is evaluated in Location.
type PlatformConfig struct {
	Location *time.Location
}

// WithdrawalConfig holds the withdrawal policy.
type WithdrawalConfig struct {
	MinimumAmount decimal.Decimal
	DailyLimit    decimal.Decimal
	TaxRate       decimal.Decimal
	OpenHour      int
	CloseHour     int
	BlockedDays   []time.Weekday
}

// ReferralConfig holds the referral reward policy.
type ReferralConfig struct {
	RewardAmount decimal.Decimal
}

// AccrualConfig controls the daily income job.
type AccrualConfig struct {
	Schedule   string
	Workers    int
	RunOnStart bool
}

// CatalogConfig points at the product catalog file.
type CatalogConfig struct {
	Path string
}

// SecurityConfig holds secrets used at rest and on admin routes.
type SecurityConfig struct {
	FernetKeys     []string
	InternalAPIKey string
}

// CacheConfig configures the optional redis balance cache.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	BalanceTTL    time.Duration
}

// EventsConfig configures the optional kafka event stream.
type EventsConfig struct {
	KafkaBrokers []string
	Topic        string
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/ledger.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost",
			}),
		},
		Accrual: AccrualConfig{
			Schedule: getEnv("ACCRUAL_SCHEDULE", "5 0 * * *"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", "./config/products.toml"),
		},
		Security: SecurityConfig{
			FernetKeys:     getEnvSlice("FERNET_KEYS", nil),
			InternalAPIKey: getEnv("INTERNAL_API_KEY", ""),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
		},
		Events: EventsConfig{
			KafkaBrokers: getEnvSlice("KAFKA_BROKERS", nil),
			Topic:        getEnv("KAFKA_TOPIC", "ledger.transactions"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	var err error
	if config.Platform.Location, err = time.LoadLocation(getEnv("PLATFORM_TIMEZONE", "Asia/Kolkata")); err != nil {
		return nil, fmt.Errorf("invalid PLATFORM_TIMEZONE: %w", err)
	}

	w := &config.Withdrawal
	if w.MinimumAmount, err = getEnvDecimal("WITHDRAW_MIN_AMOUNT", "100"); err != nil {
		return nil, err
	}
	if w.DailyLimit, err = getEnvDecimal("WITHDRAW_DAILY_LIMIT", "1000"); err != nil {
		return nil, err
	}
	if w.TaxRate, err = getEnvDecimal("WITHDRAW_TAX_RATE", "0.15"); err != nil {
		return nil, err
	}
	if w.OpenHour, err = getEnvInt("WITHDRAW_OPEN_HOUR", 9); err != nil {
		return nil, err
	}
	if w.CloseHour, err = getEnvInt("WITHDRAW_CLOSE_HOUR", 17); err != nil {
		return nil, err
	}
	if w.BlockedDays, err = parseWeekdays(getEnvSlice("WITHDRAW_BLOCKED_DAYS", []string{"Saturday", "Sunday"})); err != nil {
		return nil, err
	}

	if config.Referral.RewardAmount, err = getEnvDecimal("REFERRAL_REWARD_AMOUNT", "50"); err != nil {
		return nil, err
	}

	if config.Accrual.Workers, err = getEnvInt("ACCRUAL_WORKERS", 4); err != nil {
		return nil, err
	}
	if config.Accrual.RunOnStart, err = getEnvBool("ACCRUAL_RUN_ON_START", true); err != nil {
		return nil, err
	}

	if config.Cache.BalanceTTL, err = time.ParseDuration(getEnv("BALANCE_CACHE_TTL", "30s")); err != nil {
		return nil, fmt.Errorf("invalid BALANCE_CACHE_TTL: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks cross-field constraints of the policy values.
func (c *Config) Validate() error {
	w := c.Withdrawal
	if w.OpenHour < 0 || w.OpenHour > 23 || w.CloseHour < 1 || w.CloseHour > 24 || w.OpenHour >= w.CloseHour {
		return fmt.Errorf("invalid withdrawal window %d-%d", w.OpenHour, w.CloseHour)
	}
	if w.TaxRate.IsNegative() || w.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid WITHDRAW_TAX_RATE %s: must be in [0, 1)", w.TaxRate)
	}
	if !w.MinimumAmount.IsPositive() || !w.DailyLimit.IsPositive() {
		return fmt.Errorf("withdrawal minimum and daily limit must be positive")
	}
	if c.Referral.RewardAmount.IsNegative() {
		return fmt.Errorf("REFERRAL_REWARD_AMOUNT cannot be negative")
	}
	if c.Accrual.Workers < 1 {
		return fmt.Errorf("ACCRUAL_WORKERS must be at least 1")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, defaultValue))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		if strings.EqualFold(name, "none") {
			continue
		}
		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			if strings.EqualFold(d.String(), name) || strings.EqualFold(d.String()[:3], name) {
				days = append(days, d)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid weekday %q in WITHDRAW_BLOCKED_DAYS", name)
		}
	}
	return days, nil
}
