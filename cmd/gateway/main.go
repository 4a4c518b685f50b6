// Command gateway runs the HTTP-facing half of the recommendation
// pipeline: the Ingestion Handler's telemetry intake and the
// Recommendation Handler's request/response path, behind a shared
// middleware chain (request id, recovery, logging, metrics, CORS,
// rate limiting).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"evchargenet/internal/bus"
	"evchargenet/internal/breaker"
	"evchargenet/internal/database"
	"evchargenet/internal/events"
	"evchargenet/internal/httpapi"
	"evchargenet/internal/ingest"
	"evchargenet/internal/narrategw"
	"evchargenet/internal/optimizer"
	"evchargenet/internal/predictgw"
	"evchargenet/internal/recommend"
	"evchargenet/internal/repository"
	"evchargenet/internal/sss"
	"evchargenet/migrations"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/metrics"
	"evchargenet/pkg/ratelimit"
	"evchargenet/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadWithServiceDefaults("gateway")
	if err != nil {
		logger.Init("error")
		logger.Fatal("failed to load config", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Init("error")
		logger.Fatal("invalid config", "error", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	logger.Info("starting gateway",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracing", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	store, err := sss.New(cfg.SSS)
	if err != nil {
		logger.Fatal("failed to connect to shared state store", "error", err)
	}
	defer store.Close()

	db, err := database.NewPostgresDB(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to durable repository", "error", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool(), cfg.Database, migrations.FS, "."); err != nil {
		logger.Fatal("failed to run migrations", "error", err)
	}

	eventRecorder := events.New(db, cfg.Events)
	defer eventRecorder.Close()

	stations := repository.NewStationRepository(db)
	requests := repository.NewRequestRepository(db)
	recLogs := repository.NewRecommendationLogRepository(db)

	br := breaker.New(cfg.Breaker)
	defer br.Close()

	predict := predictgw.New(cfg.PredictGW, store, br)
	narrate := narrategw.New(cfg.NarrateGW)
	opt := optimizer.New(store, stations, predict, cfg.Optimizer)
	recommendHandler := recommend.New(opt, predict, narrate, store, requests, recLogs)

	producer := bus.NewProducer(cfg.Bus)
	defer producer.Close()
	ingestHandler := ingest.New(producer, store)

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(&ratelimit.Config{
			Requests:        cfg.RateLimit.Requests,
			Window:          cfg.RateLimit.Window,
			Strategy:        cfg.RateLimit.Strategy,
			Backend:         cfg.RateLimit.Backend,
			BurstSize:       cfg.RateLimit.BurstSize,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
			RedisAddr:       cfg.RateLimit.RedisAddr,
		})
		if err != nil {
			logger.Fatal("failed to initialize rate limiter", "error", err)
		}
		defer limiter.Close()
	}

	metrics.Get().SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	ready := func() bool {
		return store.Ping(ctx) == nil && db.Ping(ctx) == nil
	}

	handler := httpapi.New(cfg, httpapi.Deps{
		Ingest:    ingestHandler,
		Recommend: recommendHandler,
		Store:     store,
		RecLogs:   recLogs,
		Limiter:   limiter,
		Ready:     ready,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      h2c.NewHandler(mux, &http2.Server{}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("gateway listening", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("gateway stopped")
}
