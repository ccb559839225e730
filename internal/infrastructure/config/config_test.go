package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"B2B_APP_NAME",
	"B2B_APP_ENV",
	"B2B_APP_PORT",
	"B2B_COMMERCE_BASE_URL",
	"B2B_COMMERCE_API_TOKEN",
	"B2B_COMMERCE_TIMEOUT",
	"B2B_COMMERCE_RETRY_COUNT",
	"B2B_VALIDATION_MAX_CONCURRENCY",
	"B2B_BULK_MAX_ROWS",
	"B2B_DRAFT_STORE",
	"B2B_DRAFT_TTL",
	"B2B_DRAFT_PURGE_INTERVAL",
	"B2B_DATABASE_DRIVER",
	"B2B_DATABASE_HOST",
	"B2B_DATABASE_PORT",
	"B2B_DATABASE_SSLMODE",
	"B2B_DATABASE_MAX_OPEN_CONNS",
	"B2B_DATABASE_MAX_IDLE_CONNS",
	"B2B_JWT_SECRET",
	"B2B_TELEMETRY_SAMPLING_RATIO",
}

// isolateEnv clears every key the tests touch and restores it afterwards
func isolateEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string, len(envKeys))
	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			original[k] = v
		}
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range envKeys {
			if v, ok := original[k]; ok {
				os.Setenv(k, v)
			} else {
				os.Unsetenv(k)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "b2b-quote", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, 10*time.Second, cfg.Commerce.Timeout)
		assert.Equal(t, 0, cfg.Commerce.RetryCount)
		assert.Equal(t, 5*time.Minute, cfg.Commerce.CacheTTL)
		assert.Equal(t, 0, cfg.Validation.MaxConcurrency)
		assert.Equal(t, 500, cfg.Bulk.MaxRows)
		assert.Equal(t, 100, cfg.Bulk.MaxErrors)
		assert.Equal(t, DraftStoreMemory, cfg.Draft.Store)
		assert.Equal(t, "b2b:quote-draft:", cfg.Draft.KeyPrefix)
		assert.Equal(t, 10, cfg.Draft.MaxRetries)
		assert.Equal(t, time.Hour, cfg.Draft.PurgeInterval)
		assert.Equal(t, 24*time.Hour, cfg.Draft.IdempotencyTTL)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "b2b-quote", cfg.Telemetry.ServiceName)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads values from environment variables", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("B2B_APP_NAME", "quote-api")
		os.Setenv("B2B_APP_PORT", "9000")
		os.Setenv("B2B_COMMERCE_BASE_URL", "https://store.example.com")
		os.Setenv("B2B_COMMERCE_API_TOKEN", "tok")
		os.Setenv("B2B_COMMERCE_TIMEOUT", "3s")
		os.Setenv("B2B_COMMERCE_RETRY_COUNT", "2")
		os.Setenv("B2B_VALIDATION_MAX_CONCURRENCY", "8")
		os.Setenv("B2B_DRAFT_STORE", "redis")
		os.Setenv("B2B_DRAFT_TTL", "1h")
		os.Setenv("B2B_DATABASE_DRIVER", "sqlite")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "quote-api", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "https://store.example.com", cfg.Commerce.BaseURL)
		assert.Equal(t, "tok", cfg.Commerce.APIToken)
		assert.Equal(t, 3*time.Second, cfg.Commerce.Timeout)
		assert.Equal(t, 2, cfg.Commerce.RetryCount)
		assert.Equal(t, 8, cfg.Validation.MaxConcurrency)
		assert.Equal(t, DraftStoreRedis, cfg.Draft.Store)
		assert.Equal(t, time.Hour, cfg.Draft.TTL)
		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, "quote-api", cfg.Telemetry.ServiceName)
	})

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "rejects relative commerce base url",
			env:     map[string]string{"B2B_COMMERCE_BASE_URL": "store.example.com"},
			wantErr: "commerce.base_url must be an absolute http(s) URL",
		},
		{
			name:    "rejects unknown draft store",
			env:     map[string]string{"B2B_DRAFT_STORE": "etcd"},
			wantErr: "draft.store must be one of",
		},
		{
			name:    "rejects negative purge interval",
			env:     map[string]string{"B2B_DRAFT_PURGE_INTERVAL": "-1m"},
			wantErr: "draft.purge_interval cannot be negative",
		},
		{
			name:    "rejects unknown database driver",
			env:     map[string]string{"B2B_DATABASE_DRIVER": "mysql"},
			wantErr: "database.driver must be postgres or sqlite",
		},
		{
			name:    "rejects negative concurrency cap",
			env:     map[string]string{"B2B_VALIDATION_MAX_CONCURRENCY": "-1"},
			wantErr: "validation.max_concurrency cannot be negative",
		},
		{
			name: "rejects idle conns above open conns",
			env: map[string]string{
				"B2B_DATABASE_MAX_OPEN_CONNS": "10",
				"B2B_DATABASE_MAX_IDLE_CONNS": "20",
			},
			wantErr: "cannot exceed",
		},
		{
			name:    "rejects sampling ratio above one",
			env:     map[string]string{"B2B_TELEMETRY_SAMPLING_RATIO": "1.5"},
			wantErr: "telemetry.sampling_ratio must be between",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("B2B_APP_ENV", "production")
		os.Setenv("B2B_COMMERCE_BASE_URL", "https://store.example.com")
		os.Setenv("B2B_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		os.Setenv("B2B_DRAFT_STORE", "redis")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires commerce.base_url in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Unsetenv("B2B_COMMERCE_BASE_URL")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "commerce.base_url is required in production")
	})

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Unsetenv("B2B_JWT_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})

	t.Run("requires jwt.secret at least 32 characters in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("B2B_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret must be at least 32 characters")
	})

	t.Run("rejects in-memory drafts in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("B2B_DRAFT_STORE", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "draft.store cannot be memory in production")
	})

	t.Run("requires SSL for postgres drafts in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("B2B_DRAFT_STORE", "sql")
		os.Setenv("B2B_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
