// Package config loads process settings from the environment and an optional .env file.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds the settings shared by the server, the worker and the CLI
type Config struct {
	Port  string
	Debug bool

	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	RedisURL         string
	PaymentsCacheTTL time.Duration

	StrictFees     bool
	CORSOrigins    []string
	WorkerInterval time.Duration
}

// Load reads .env files (missing ones are ignored) and then the environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("STORE_DRIVER", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MONGODB_URI", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGODB_DATABASE", "school")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("PAYMENTS_CACHE_TTL", 5*time.Minute)
	v.SetDefault("STRICT_FEES", false)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("WORKER_INTERVAL", 5*time.Minute)
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:             v.GetString("PORT"),
		Debug:            v.GetBool("DEBUG"),
		StoreDriver:      strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		DatabaseURL:      strings.TrimSpace(v.GetString("DATABASE_URL")),
		MongoURI:         strings.TrimSpace(v.GetString("MONGODB_URI")),
		MongoDatabase:    v.GetString("MONGODB_DATABASE"),
		RedisURL:         strings.TrimSpace(v.GetString("REDIS_URL")),
		PaymentsCacheTTL: v.GetDuration("PAYMENTS_CACHE_TTL"),
		StrictFees:       v.GetBool("STRICT_FEES"),
		WorkerInterval:   v.GetDuration("WORKER_INTERVAL"),
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = strings.TrimSpace(v.GetString("MONGO_URI"))
	}
	for _, origin := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if cfg.StoreDriver == "" {
		switch {
		case cfg.DatabaseURL != "":
			cfg.StoreDriver = DriverPostgres
		case cfg.MongoURI != "":
			cfg.StoreDriver = DriverMongo
		default:
			cfg.StoreDriver = DriverMemory
		}
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL is required for the postgres store")
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			return nil, errors.New("config: MONGODB_URI is required for the mongo store")
		}
	case DriverMemory:
	default:
		return nil, errors.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.WorkerInterval <= 0 {
		return nil, errors.New("config: WORKER_INTERVAL must be positive")
	}
	return cfg, nil
}

// CheckWorker reports whether the task worker can run with this config. Tasks
// live in postgres, and the ledger must be one the server also writes to.
func (c *Config) CheckWorker() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required, the worker keeps scheduled tasks in postgres")
	}
	if c.StoreDriver == DriverMemory {
		return errors.New("config: the worker cannot use the memory store, it would only see its own empty ledger")
	}
	return nil
}
