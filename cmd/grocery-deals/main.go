package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/grocery-deals-api/internal/adapter/geoadmin"
	"github.com/couchcryptid/grocery-deals-api/internal/adapter/gormstore"
	httpadapter "github.com/couchcryptid/grocery-deals-api/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/grocery-deals-api/internal/adapter/kafka"
	"github.com/couchcryptid/grocery-deals-api/internal/config"
	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	"github.com/couchcryptid/grocery-deals-api/internal/observability"
	"github.com/couchcryptid/grocery-deals-api/internal/service"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := gormstore.Open(ctx, cfg, clock, logger, metrics)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	// Geocoding is feature-flagged via GEOCODER_ENABLED.
	var geocoder domain.Geocoder
	if cfg.GeocoderEnabled {
		geocoder = geoadmin.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderTimeout, cfg.GeocoderMaxRetries, logger, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("geoadmin geocoding enabled", "base_url", cfg.GeocoderBaseURL, "timeout", cfg.GeocoderTimeout)
	} else {
		logger.Info("geoadmin geocoding disabled")
	}

	// Promotion events are published only when KAFKA_BROKERS is set.
	var (
		publisher domain.PromotionPublisher
		writer    *kafkaadapter.Writer
	)
	if cfg.EventsEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("promotion events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaPromotionsTopic)
	}

	svc := service.New(repo, geocoder, publisher, clock, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, repo, logger, metrics)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := repo.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
