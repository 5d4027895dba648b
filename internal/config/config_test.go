package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "DEBUG", "STORE_DRIVER", "DATABASE_URL", "MONGODB_URI", "MONGO_URI", "MONGODB_DATABASE",
	"REDIS_URL", "PAYMENTS_CACHE_TTL", "STRICT_FEES", "CORS_ORIGINS", "WORKER_INTERVAL",
}

// clearEnv blanks every config key for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "school", cfg.MongoDatabase)
	assert.Equal(t, 5*time.Minute, cfg.PaymentsCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.WorkerInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.StrictFees)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("PAYMENTS_CACHE_TTL", "30s")
	t.Setenv("STRICT_FEES", "true")
	t.Setenv("CORS_ORIGINS", "https://school.example.com, http://localhost:3000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, 30*time.Second, cfg.PaymentsCacheTTL)
	assert.True(t, cfg.StrictFees)
	assert.Equal(t, []string{"https://school.example.com", "http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_URL=postgres://localhost/school\nDEBUG=true\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("DEBUG")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.True(t, cfg.Debug)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"mongo without uri", map[string]string{"STORE_DRIVER": "mongo"}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"zero worker interval", map[string]string{"WORKER_INTERVAL": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestCheckWorker(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"postgres ledger", Config{DatabaseURL: "postgres://localhost/school", StoreDriver: DriverPostgres}, ""},
		{"mongo ledger", Config{DatabaseURL: "postgres://localhost/school", StoreDriver: DriverMongo}, ""},
		{"no task database", Config{StoreDriver: DriverMongo}, "DATABASE_URL"},
		{"memory ledger", Config{DatabaseURL: "postgres://localhost/school", StoreDriver: DriverMemory}, "memory store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.CheckWorker()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
