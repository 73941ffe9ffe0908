package config

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Test loading default config
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify defaults
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "/api", cfg.Server.PathPrefix)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, "UTC", cfg.Progression.Timezone)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOLYFIT_ENV", "staging")
	t.Setenv("HOLYFIT_SERVER_ADDR", ":9999")
	t.Setenv("HOLYFIT_STORAGE_ADAPTER", "file")
	t.Setenv("HOLYFIT_STORAGE_FILE_PATH", "/tmp/holyfit.json")
	t.Setenv("HOLYFIT_PROGRESSION_TIMEZONE", "America/Sao_Paulo")
	t.Setenv("HOLYFIT_SERVER_REQUEST_TIMEOUT", "45s")
	t.Setenv("HOLYFIT_WEBHOOK_NOTIFY_ENDPOINTS", "http://a.example/hook,http://b.example/hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvStaging, cfg.Environment)
	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "file", cfg.Storage.Adapter)
	assert.Equal(t, "/tmp/holyfit.json", cfg.Storage.File.Path)
	assert.Equal(t, "America/Sao_Paulo", cfg.Progression.Timezone)
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"http://a.example/hook", "http://b.example/hook"}, cfg.Webhooks.NotifyEndpoints)
}

func TestLoadFromFile(t *testing.T) {
	// Create a temporary config file
	configContent := `{
		"environment": "testing",
		"server": {
			"address": ":9090"
		},
		"storage": {
			"adapter": "memory"
		},
		"progression": {
			"timezone": "Europe/Lisbon"
		}
	}`

	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	// Load config from file
	cfg, err := LoadFromFile(tmpFile.Name())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify loaded values
	assert.Equal(t, EnvTesting, cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, "Europe/Lisbon", cfg.Progression.Timezone)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return DefaultConfig() }

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:        "empty environment",
			mutate:      func(c *Config) { c.Environment = "" },
			expectError: "environment",
		},
		{
			name:        "zero read timeout",
			mutate:      func(c *Config) { c.Server.ReadTimeout = 0 },
			expectError: "read_timeout",
		},
		{
			name:        "unknown adapter",
			mutate:      func(c *Config) { c.Storage.Adapter = "cassandra" },
			expectError: "adapter",
		},
		{
			name: "redis adapter without addr",
			mutate: func(c *Config) {
				c.Storage.Adapter = "redis"
				c.Storage.Redis.Addr = ""
			},
			expectError: "addr",
		},
		{
			name: "sql adapter without dsn",
			mutate: func(c *Config) {
				c.Storage.Adapter = "sql"
				c.Storage.SQL.DSN = ""
			},
			expectError: "dsn",
		},
		{
			name:        "bad timezone",
			mutate:      func(c *Config) { c.Progression.Timezone = "Mars/Olympus" },
			expectError: "timezone",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: "level",
		},
		{
			name: "rate limit enabled without budget",
			mutate: func(c *Config) {
				c.Security.EnableRateLimit = true
				c.Security.RateLimit.RequestsPerMinute = 0
			},
			expectError: "requests_per_minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
			}
		})
	}
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("HOLYFIT_REDIS_PASSWORD", "hunter2")
	t.Setenv("HOLYFIT_SQL_DSN", "postgres://user:pw@localhost/holyfit")
	t.Setenv("HOLYFIT_API_KEYS", "k1, k2, k1")

	cfg := DefaultConfig()
	cfg.Security.APIKeys = []string{"k0"}
	require.NoError(t, cfg.LoadSecretsFromEnv(context.Background()))

	assert.Equal(t, "hunter2", cfg.Storage.Redis.Password)
	assert.Equal(t, "postgres://user:pw@localhost/holyfit", cfg.Storage.SQL.DSN)
	assert.Equal(t, []string{"k0", "k1", "k2"}, cfg.Security.APIKeys)
}

func TestLoadSecretsFromEnv_ProductionSQLRequiresDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Environment = EnvProduction
	cfg.Storage.Adapter = "sql"
	cfg.Storage.SQL.DSN = ""

	err := cfg.LoadSecretsFromEnv(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOLYFIT_SQL_DSN")
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Redis.Password = "hunter2"
	cfg.Storage.SQL.DSN = "postgres://user:pw@localhost/holyfit"

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "user:pw")
	assert.True(t, strings.Contains(out, "[REDACTED]"))
}

func TestValidateConfigPath(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	tmpFile.WriteString("{}")
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	assert.NoError(t, validateConfigPath(tmpFile.Name()))
	assert.Error(t, validateConfigPath(""))
	assert.Error(t, validateConfigPath("nonexistent.json"))
	assert.Error(t, validateConfigPath("config.txt"))
}
