package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage
	Store    StoreConfig
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Upstream broker API
	Kite      KiteConfig
	RateLimit RateLimitConfig
	Fetch     FetchConfig

	// Pipeline
	Ingest   IngestConfig
	Universe UniverseConfig
	Scan     ScanConfig
	Market   MarketConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// StoreConfig selects the time-series store backend
type StoreConfig struct {
	Driver     string // sqlite, postgres
	SQLitePath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// KiteConfig holds Kite Connect API configuration.
// The access token is not here: it is read from TokensFile once per run.
type KiteConfig struct {
	APIKey            string
	BaseURL           string
	TokensFile        string
	Exchange          string
	MaxDaysPerRequest int
}

// RateLimitConfig is the outbound request ceiling shared by every upstream call
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Backend  string // local, redis
}

// FetchConfig controls per-request timeout and retry behaviour
type FetchConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// IngestConfig controls the ingestion orchestrator
type IngestConfig struct {
	Workers       int
	BootstrapDays int
	RunBudget     time.Duration
}

// UniverseConfig locates the symbol membership list
type UniverseConfig struct {
	Path        string
	SourceURL   string
	FallbackURL string
}

// ScanConfig locates scan parameters and output directories
type ScanConfig struct {
	ConfigPath string
	OutDir     string
	SiteDir    string
}

// MarketConfig describes the exchange calendar and the daily schedule
type MarketConfig struct {
	Timezone string
	Holidays []time.Time
	Schedule string // 6-field cron (with seconds)
}

// Location returns the market timezone, falling back to UTC
func (m MarketConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	holidays, err := parseDates(getEnv("MARKET_HOLIDAYS", ""))
	if err != nil {
		return nil, fmt.Errorf("MARKET_HOLIDAYS: %w", err)
	}

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", "sqlite"),
			SQLitePath: getEnv("SQLITE_PATH", "data/stock_data.db"),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Kite: KiteConfig{
			APIKey:            getEnv("KITE_API_KEY", ""),
			BaseURL:           getEnv("KITE_BASE_URL", "https://api.kite.trade"),
			TokensFile:        getEnv("KITE_TOKENS_FILE", "tokens.json"),
			Exchange:          getEnv("KITE_EXCHANGE", "NSE"),
			MaxDaysPerRequest: getEnvAsInt("KITE_MAX_DAYS_PER_REQUEST", 2000),
		},

		// Kite allows 3 historical requests per second
		RateLimit: RateLimitConfig{
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 3),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", "1s"),
			Backend:  getEnv("RATE_LIMIT_BACKEND", "local"),
		},

		Fetch: FetchConfig{
			Timeout:        getEnvAsDuration("FETCH_TIMEOUT", "15s"),
			MaxRetries:     getEnvAsInt("FETCH_MAX_RETRIES", 3),
			InitialBackoff: getEnvAsDuration("FETCH_INITIAL_BACKOFF", "500ms"),
			MaxBackoff:     getEnvAsDuration("FETCH_MAX_BACKOFF", "8s"),
		},

		Ingest: IngestConfig{
			Workers:       getEnvAsInt("INGEST_WORKERS", 3),
			BootstrapDays: getEnvAsInt("INGEST_BOOTSTRAP_DAYS", 600),
			RunBudget:     getEnvAsDuration("INGEST_RUN_BUDGET", "45m"),
		},

		Universe: UniverseConfig{
			Path:        getEnv("UNIVERSE_PATH", "data/universe_nifty500.txt"),
			SourceURL:   getEnv("UNIVERSE_SOURCE_URL", "https://archives.nseindia.com/content/indices/ind_nifty500list.csv"),
			FallbackURL: getEnv("UNIVERSE_FALLBACK_URL", "https://www.niftyindices.com/IndexConstituent/ind_nifty500list.csv"),
		},

		Scan: ScanConfig{
			ConfigPath: getEnv("SCAN_CONFIG_PATH", "config/scan.yaml"),
			OutDir:     getEnv("OUT_DIR", "out"),
			SiteDir:    getEnv("SITE_DIR", "site"),
		},

		Market: MarketConfig{
			Timezone: getEnv("MARKET_TIMEZONE", "Asia/Kolkata"),
			Holidays: holidays,
			Schedule: getEnv("SCHEDULE_CRON", "0 30 16 * * MON-FRI"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: sqlite, postgres")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}

	if c.RateLimit.Backend != "local" && c.RateLimit.Backend != "redis" {
		return fmt.Errorf("RATE_LIMIT_BACKEND must be one of: local, redis")
	}

	if c.RateLimit.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("RATE_LIMIT_BACKEND=redis requires REDIS_ENABLED=true")
	}

	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("INGEST_WORKERS must be positive")
	}

	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("FETCH_MAX_RETRIES must not be negative")
	}

	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("MARKET_TIMEZONE: %w", err)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}
	if explicit := os.Getenv("ENV_FILE"); explicit != "" {
		paths = []string{explicit}
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// parseDates parses a comma separated list of YYYY-MM-DD dates
func parseDates(raw string) ([]time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var dates []time.Time
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", part)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", part, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}
