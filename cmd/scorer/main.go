// Command scorer runs the Scorer: a Message Bus consumer combining
// engineered features with Prediction Gateway signals into a scalar
// utility score and maintaining the global station ranking.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evchargenet/internal/breaker"
	"evchargenet/internal/bus"
	"evchargenet/internal/predictgw"
	"evchargenet/internal/scorer"
	"evchargenet/internal/sss"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/metrics"
	"evchargenet/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadWithServiceDefaults("scorer")
	if err != nil {
		logger.Init("error")
		logger.Fatal("failed to load config", "error", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	logger.Info("starting scorer", "version", cfg.App.Version)

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
	defer provider.Shutdown(context.Background())

	store, err := sss.New(cfg.SSS)
	if err != nil {
		logger.Fatal("failed to connect to shared state store", "error", err)
	}
	defer store.Close()

	producer := bus.NewProducer(cfg.Bus)
	defer producer.Close()

	br := breaker.New(cfg.Breaker)
	defer br.Close()
	predict := predictgw.New(cfg.PredictGW, store, br)

	scoreTTL := time.Duration(cfg.SSS.ScoreCacheTTL) * time.Second
	sc := scorer.New(producer, store, predict, cfg.Scoring, scoreTTL)
	consumer := bus.NewConsumer(cfg.Bus, config.TopicStationFeatures)

	if cfg.Metrics.Enabled {
		go metrics.StartMetricsServer(cfg.Metrics.Port)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- consumer.Run(runCtx, func(c context.Context, key, value []byte) bus.Outcome {
			metrics.Get().RecordMessageConsumed(config.TopicStationFeatures, "received")
			outcome := sc.HandleFeatures(c, key, value)
			if outcome == bus.OutcomeCommit {
				metrics.Get().RecordMessageConsumed(config.TopicStationFeatures, "committed")
			} else {
				metrics.Get().RecordMessageConsumed(config.TopicStationFeatures, "retried")
			}
			return outcome
		})
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("consumer stopped with error", "error", err)
		}
	}

	runCancel()
	logger.Info("scorer stopped")
}
