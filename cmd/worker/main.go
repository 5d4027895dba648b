package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	glog "github.com/labstack/gommon/log"

	"school_transport_echo/internal/config"
	"school_transport_echo/internal/services"
	"school_transport_echo/internal/tasks"
)

func main() {
	logger := glog.New("transport-worker")
	logger.SetLevel(glog.INFO)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}
	if err := cfg.CheckWorker(); err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// scheduled tasks always live in postgres, the ledger follows STORE_DRIVER
	db, err := services.InitDB(cfg.DatabaseURL, cfg.Debug, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db, logger); err != nil {
		logger.Fatalf("Failed to run database migrations: %v", err)
	}

	var store services.Store
	if cfg.StoreDriver == config.DriverPostgres {
		store = services.NewGormStore(db)
	} else {
		store, _, err = services.OpenStore(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
		}
	}
	defer store.Close(context.Background())

	paymentCfg := services.PaymentServiceConfig{CacheTTL: cfg.PaymentsCacheTTL, StrictFees: cfg.StrictFees}
	if redisCache, err := services.OpenCache(cfg, logger); err != nil {
		logger.Warnf("Redis unavailable, cache invalidation skipped: %v", err)
	} else if redisCache != nil {
		paymentCfg.Cache = redisCache
		defer redisCache.Close()
	}
	payments := services.NewPaymentService(store, store, logger, paymentCfg)

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry, tasks.Deps{Payments: payments, Log: logger})
	runner := tasks.NewRunner(db, registry, logger)

	logger.Infof("Worker started with tasks %v, checking every %s", registry.Names(), cfg.WorkerInterval)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	// run once at startup, then on every tick
	runner.ProcessDue(ctx)

	for {
		select {
		case <-ticker.C:
			runner.ProcessDue(ctx)
		case <-ctx.Done():
			logger.Info("Shutting down worker...")
			return
		}
	}
}
