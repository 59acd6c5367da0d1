package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/civisafe/hazardwatch/internal/adapter/httpapi"
	kafkaadapter "github.com/civisafe/hazardwatch/internal/adapter/kafka"
	"github.com/civisafe/hazardwatch/internal/adapter/postgres"
	"github.com/civisafe/hazardwatch/internal/adapter/redisdedup"
	"github.com/civisafe/hazardwatch/internal/adapter/routing"
	"github.com/civisafe/hazardwatch/internal/config"
	"github.com/civisafe/hazardwatch/internal/notify"
	"github.com/civisafe/hazardwatch/internal/observability"
	"github.com/civisafe/hazardwatch/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := postgres.New(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		logger.Error("failed to connect to catalog store", "error", err)
		os.Exit(1)
	}
	defer catalog.Close()

	// Seen store is feature-flagged via REDIS_ADDR: shared deduplication when
	// set, per-process in-memory otherwise.
	var seen notify.SeenStore
	if cfg.RedisAddr != "" {
		redisSeen, err := redisdedup.New(ctx, cfg.RedisAddr, "hazard:seen:", cfg.RedisSeenTTL)
		if err != nil {
			logger.Error("failed to connect to redis seen store", "error", err)
			os.Exit(1)
		}
		defer redisSeen.Close()
		seen = redisSeen
		logger.Info("redis seen store enabled", "addr", cfg.RedisAddr, "ttl", cfg.RedisSeenTTL)
	} else {
		seen = notify.NewMemorySeenStore()
		logger.Info("in-memory seen store enabled")
	}

	session := notify.New(cfg.FallbackLocation, cfg.NotifyRadiusKm, seen, logger)

	osrm := routing.NewClient(cfg.RoutingURL, cfg.RoutingTimeout, logger)
	cached := routing.NewCachedProvider(osrm, cfg.RoadPathCacheSize, metrics)
	roads := routing.NewFallbackProvider(cached, logger, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, session, writer, logger, metrics, cfg.BatchSize)

	handler := httpapi.NewHandler(catalog, roads, session, logger)
	srv := httpapi.NewServer(cfg.HTTPAddr, handler, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start notification pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
