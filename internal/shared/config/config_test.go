package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-jwt-secret-key")
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901") // 32 bytes
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.JWT.Secret != "test-jwt-secret-key" {
		t.Errorf("JWT.Secret = %q, want %q", cfg.JWT.Secret, "test-jwt-secret-key")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Provider.PageSize != 500 {
		t.Errorf("Provider.PageSize = %d, want 500", cfg.Provider.PageSize)
	}
	if cfg.Provider.BaseURL() != "https://sandbox.plaid.com" {
		t.Errorf("Provider.BaseURL() = %q", cfg.Provider.BaseURL())
	}
	if cfg.Provider.Timeout != 60*time.Second {
		t.Errorf("Provider.Timeout = %v, want 60s", cfg.Provider.Timeout)
	}
	if cfg.Import.MaxBytes != 10<<20 {
		t.Errorf("Import.MaxBytes = %d, want %d", cfg.Import.MaxBytes, 10<<20)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing JWT_SECRET, got nil")
	}
}

func TestLoad_InvalidEncryptionKeyLength(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid ENCRYPTION_KEY length, got nil")
	}
}

func TestLoad_InvalidNumbers(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DB_PORT", "not-a-number"},
		{"PROVIDER_PAGE_SIZE", "lots"},
		{"PROVIDER_PAGE_SIZE", "0"},
		{"PROVIDER_PAGE_SIZE", "501"},
		{"PROVIDER_REQUESTS_PER_SECOND", "-1"},
		{"PROVIDER_TIMEOUT", "soon"},
		{"IMPORT_MAX_BYTES", "0"},
		{"SCHEDULER_WORKERS", "many"},
		{"SCHEDULER_JOB_DELAY", "1 second"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() expected error for %s=%q, got nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_ProviderEnvironment(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PROVIDER_ENV", "Production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Provider.BaseURL() != "https://production.plaid.com" {
		t.Errorf("Provider.BaseURL() = %q", cfg.Provider.BaseURL())
	}

	t.Setenv("PROVIDER_ENV", "staging")
	if _, err := Load(); err == nil {
		t.Error("Load() expected error for unknown PROVIDER_ENV, got nil")
	}
}

func TestLoad_SchedulerConfig(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("SCHEDULER_WORKERS", "10")
	t.Setenv("SCHEDULER_RUN_ON_STARTUP", "true")
	t.Setenv("SCHEDULER_CRON", "*/15 * * * *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Scheduler.Enabled != false {
		t.Error("Scheduler.Enabled should be false")
	}
	if cfg.Scheduler.WorkerCount != 10 {
		t.Errorf("Scheduler.WorkerCount = %d, want 10", cfg.Scheduler.WorkerCount)
	}
	if cfg.Scheduler.RunOnStartup != true {
		t.Error("Scheduler.RunOnStartup should be true")
	}
	if cfg.Scheduler.Cron != "*/15 * * * *" {
		t.Errorf("Scheduler.Cron = %q", cfg.Scheduler.Cron)
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		defVal   bool
		expected bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"invalid", true, true},   // returns default
		{"invalid", false, false}, // returns default
		{"", true, true},          // empty returns default
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			key := "TEST_BOOL_ENV"
			if tt.value == "" {
				os.Unsetenv(key)
			} else {
				t.Setenv(key, tt.value)
			}

			got := getBoolEnv(key, tt.defVal)
			if got != tt.expected {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defVal, got, tt.expected)
			}
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	got := cfg.ConnectionString()
	if got != expected {
		t.Errorf("ConnectionString() = %q, want %q", got, expected)
	}
}
