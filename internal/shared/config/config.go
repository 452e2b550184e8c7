package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	Provider   ProviderConfig
	Import     ImportConfig
	Scheduler  SchedulerConfig
	Telemetry  TelemetryConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret string
}

type EncryptionConfig struct {
	Key string
}

type ProviderConfig struct {
	ClientID          string
	Secret            string
	Environment       string // sandbox, development, production
	PageSize          int
	RequestsPerSecond float64
	Timeout           time.Duration
}

type ImportConfig struct {
	MaxBytes int64
}

type SchedulerConfig struct {
	Enabled      bool
	Cron         string
	WorkerCount  int
	JobDelay     time.Duration
	QueueSize    int
	RunOnStartup bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

type LogConfig struct {
	Level  string
	Format string
}

var providerBaseURLs = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("PROVIDER_PAGE_SIZE", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_PAGE_SIZE: %w", err)
	}
	providerRPS, err := strconv.ParseFloat(getEnv("PROVIDER_REQUESTS_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_REQUESTS_PER_SECOND: %w", err)
	}
	providerTimeout, err := time.ParseDuration(getEnv("PROVIDER_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT: %w", err)
	}

	importMaxBytes, err := strconv.ParseInt(getEnv("IMPORT_MAX_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid IMPORT_MAX_BYTES: %w", err)
	}

	// Parse scheduler configuration
	schedulerWorkers, err := strconv.Atoi(getEnv("SCHEDULER_WORKERS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_WORKERS: %w", err)
	}
	schedulerJobDelay, err := time.ParseDuration(getEnv("SCHEDULER_JOB_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_DELAY: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SCHEDULER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_QUEUE_SIZE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "spendsync"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "spendsync"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Provider: ProviderConfig{
			ClientID:          getEnv("PROVIDER_CLIENT_ID", ""),
			Secret:            getEnv("PROVIDER_SECRET", ""),
			Environment:       strings.ToLower(getEnv("PROVIDER_ENV", "sandbox")),
			PageSize:          pageSize,
			RequestsPerSecond: providerRPS,
			Timeout:           providerTimeout,
		},
		Import: ImportConfig{
			MaxBytes: importMaxBytes,
		},
		Scheduler: SchedulerConfig{
			Enabled:      getBoolEnv("SCHEDULER_ENABLED", true),
			Cron:         getEnv("SCHEDULER_CRON", "0 5,10,14,20 * * *"),
			WorkerCount:  schedulerWorkers,
			JobDelay:     schedulerJobDelay,
			QueueSize:    schedulerQueueSize,
			RunOnStartup: getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "spendsync-api"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9464"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes")
	}
	if _, ok := providerBaseURLs[cfg.Provider.Environment]; !ok {
		return nil, fmt.Errorf("invalid PROVIDER_ENV %q (expected sandbox, development or production)", cfg.Provider.Environment)
	}
	if cfg.Provider.PageSize < 1 || cfg.Provider.PageSize > 500 {
		return nil, fmt.Errorf("PROVIDER_PAGE_SIZE must be between 1 and 500")
	}
	if cfg.Provider.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("PROVIDER_REQUESTS_PER_SECOND must be positive")
	}
	if cfg.Import.MaxBytes <= 0 {
		return nil, fmt.Errorf("IMPORT_MAX_BYTES must be positive")
	}

	return cfg, nil
}

// BaseURL returns the provider API root for the configured environment.
func (c *ProviderConfig) BaseURL() string {
	return providerBaseURLs[c.Environment]
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
