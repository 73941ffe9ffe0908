package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// LoadSecretsFromEnv fills in credential fields from environment variables.
// Secrets are kept out of config files and the env-tag loader so that
// Config.String never has to know about new sensitive fields by accident.
//
//	HOLYFIT_REDIS_PASSWORD  -> Storage.Redis.Password
//	HOLYFIT_SQL_DSN         -> Storage.SQL.DSN
//	HOLYFIT_API_KEYS        -> Security.APIKeys (comma-separated, appended)
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("secret loading cancelled: %w", err)
	}

	if v := os.Getenv("HOLYFIT_REDIS_PASSWORD"); v != "" {
		c.Storage.Redis.Password = v
	}

	if v := os.Getenv("HOLYFIT_SQL_DSN"); v != "" {
		c.Storage.SQL.DSN = v
	}

	if v := os.Getenv("HOLYFIT_API_KEYS"); v != "" {
		for _, key := range strings.Split(v, ",") {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if !containsKey(c.Security.APIKeys, key) {
				c.Security.APIKeys = append(c.Security.APIKeys, key)
			}
		}
	}

	// Production deployments must not run the SQL adapter without credentials.
	if c.Environment == EnvProduction && c.Storage.Adapter == "sql" && c.Storage.SQL.DSN == "" {
		return fmt.Errorf("sql storage selected in production but HOLYFIT_SQL_DSN is not set")
	}

	return nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
