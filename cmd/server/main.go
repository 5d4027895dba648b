package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"school_transport_echo/internal/config"
	"school_transport_echo/internal/handlers"
	appMiddleware "school_transport_echo/internal/middleware"
	"school_transport_echo/internal/services"
)

func main() {
	logger := glog.New("transport-api")
	logger.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}
	if cfg.Debug {
		logger.SetLevel(glog.DEBUG)
	} else {
		logger.SetLevel(glog.INFO)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, _, err := services.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}

	paymentCfg := services.PaymentServiceConfig{
		CacheTTL:   cfg.PaymentsCacheTTL,
		StrictFees: cfg.StrictFees,
	}
	redisCache, err := services.OpenCache(cfg, logger)
	if err != nil {
		logger.Warnf("Redis unavailable, payment cache disabled: %v", err)
	} else if redisCache != nil {
		paymentCfg.Cache = redisCache
		defer redisCache.Close()
	}

	payments := services.NewPaymentService(store, store, logger, paymentCfg)

	// Create Echo instance
	e := echo.New()
	e.Debug = cfg.Debug
	e.HideBanner = true
	e.Logger = logger
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Middleware
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))

	handlers.Register(e, handlers.Deps{
		Store:      store,
		Payments:   payments,
		Attendance: services.NewAttendanceService(store, store, logger),
		Stats:      services.NewStatsService(payments),
	})

	go func() {
		logger.Infof("Server starting on port %s (store: %s)", cfg.Port, store.Name())
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error(err)
	}
}
