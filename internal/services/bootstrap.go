package services

import (
	"context"

	glog "github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"school_transport_echo/internal/config"
)

// OpenStore connects the configured backend. The gorm handle is returned as
// well when the driver is postgres, for the scheduled task tables.
func OpenStore(ctx context.Context, cfg *config.Config, log *glog.Logger) (Store, *gorm.DB, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := InitDB(cfg.DatabaseURL, cfg.Debug, log)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connect postgres")
		}
		if err := AutoMigrate(db, log); err != nil {
			return nil, nil, errors.Wrap(err, "migrate")
		}
		return NewGormStore(db), db, nil
	case config.DriverMongo:
		mdb, err := InitMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return nil, nil, err
		}
		store := NewMongoStore(mdb)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Warnf("mongo indexes: %v", err)
		}
		return store, nil, nil
	default:
		log.Warn("STORE_DRIVER=memory: data is kept in process memory only")
		return NewMemoryStore(), nil, nil
	}
}

// OpenCache connects Redis when REDIS_URL is set. A nil Cache disables caching.
func OpenCache(cfg *config.Config, log *glog.Logger) (*RedisCache, error) {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, payment cache disabled")
		return nil, nil
	}
	return NewRedisCache(cfg.RedisURL, log)
}
