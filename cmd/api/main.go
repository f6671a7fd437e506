package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/passwordkeyorg/s3s/internal/api"
	"github.com/passwordkeyorg/s3s/internal/backend"
	"github.com/passwordkeyorg/s3s/internal/config"
	"github.com/passwordkeyorg/s3s/internal/events"
	"github.com/passwordkeyorg/s3s/internal/metrics"
	"github.com/passwordkeyorg/s3s/internal/ratelimit"
	"github.com/passwordkeyorg/s3s/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotenv(".env"); err != nil {
		logger.Error("dotenv failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}
	if err := metrics.RequireLocalhost(cfg.MetricsListen); err != nil {
		logger.Error("invalid METRICS_LISTEN", "addr", cfg.MetricsListen, "err", err)
		os.Exit(1)
	}

	raw, closer, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("backend open failed", "backend", cfg.Backend, "err", err)
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	mreg := metrics.New()
	st := store.Metered{Store: raw, Metrics: metrics.StoreAdapter{M: mreg.Store}}
	sc, err := backend.Scope(st, cfg, logger)
	if err != nil {
		logger.Error("scope init failed", "err", err)
		os.Exit(1)
	}

	deps := api.Deps{
		Logger:   logger,
		Scope:    sc,
		AdminKey: cfg.AdminKey,
		Metrics:  &mreg.API,
	}
	if cfg.RateLimitRPS > 0 {
		deps.Limit = ratelimit.PerSecond(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if len(cfg.KafkaBrokers) > 0 {
		p := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		p.Metrics = metrics.EventAdapter{M: mreg.Events}
		defer func() { _ = p.Close() }()
		deps.Events = p
		logger.Info("kafka enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// Metrics endpoint (localhost only).
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", mreg.Handler())
		srv := &http.Server{Addr: cfg.MetricsListen, Handler: mux, ReadHeaderTimeout: 3 * time.Second}
		logger.Info("metrics listening", "addr", cfg.MetricsListen)
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.APIListen,
		Handler:           http.TimeoutHandler(api.New(deps), cfg.RequestTimeout, `{"error":"timeout"}`),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("api listening", "addr", cfg.APIListen, "backend", cfg.Backend, "root", sc.URI())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("api server error", "err", err)
		os.Exit(1)
	}
}
