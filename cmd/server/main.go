package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/curbshare/parking-backend/internal/app"
	"github.com/curbshare/parking-backend/internal/config"
	"github.com/curbshare/parking-backend/internal/db"
	"github.com/curbshare/parking-backend/internal/listing"
	"github.com/curbshare/parking-backend/internal/telemetry"
)

const serviceName = "parking-api"

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(serviceName, cfg.IsProduction)
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
	})
	if err != nil {
		logger.Error("failed to set up tracing", "err", err)
		os.Exit(1)
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("failed to connect to db", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	caps, err := db.DetectCapabilities(ctx, pool, logger)
	if err != nil {
		logger.Error("failed to probe schema", "err", err)
		os.Exit(1)
	}

	rdb := connectRedis(ctx, cfg.RedisURL, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	container, err := app.NewContainer(app.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  cfg.ProdOrigins,
		Logger:       logger,
		DBPool:       pool,
		Caps:         caps,
		Redis:        rdb,
		JWTSecret:    cfg.JWTSecret,
		JWTTTL:       cfg.JWTAccessTokenTTL,
		BcryptCost:   cfg.BcryptCost,
		OpenGate:     cfg.OpenGate,
		SearchLimits: listing.Limits{
			Candidates: cfg.SearchCandidateLimit,
			Results:    cfg.SearchResultLimit,
		},
		StripeSecretKey:        cfg.StripeSecretKey,
		StripeWebhookSecret:    cfg.StripeWebhookSecret,
		StripeWebhookTolerance: cfg.StripeWebhookTolerance,
		WebBaseURL:             cfg.WebBaseURL,
		Currency:               cfg.Currency,
		PlatformFeeBps:         cfg.PlatformFeeBps,
		BookingRateMax:         cfg.BookingRateMax,
		AuthRateMax:            cfg.AuthRateMax,
		RateLimitWindow:        cfg.RateLimitWindow,
	})
	if err != nil {
		logger.Error("failed to init app", "err", err)
		os.Exit(1)
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(container.Router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		logger.Info("server running", "addr", cfg.HTTPAddr, "gate", cfg.OpenGate)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", "err", err)
	}

	logger.Info("server exited gracefully")
}

// connectRedis returns nil when no URL is configured or the server cannot be
// reached, in which case rate limits fall back to in-memory counters.
func connectRedis(ctx context.Context, url string, logger *slog.Logger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("invalid REDIS_URL, using in-memory rate limits", "err", err)
		return nil
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory rate limits", "err", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
