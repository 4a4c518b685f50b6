// Command feature-engineer runs the Feature Engineer: a Message Bus
// consumer turning raw station telemetry into normalized, cached
// features for the Scorer.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"evchargenet/internal/bus"
	"evchargenet/internal/feature"
	"evchargenet/internal/sss"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/metrics"
	"evchargenet/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadWithServiceDefaults("feature-engineer")
	if err != nil {
		logger.Init("error")
		logger.Fatal("failed to load config", "error", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	logger.Info("starting feature engineer", "version", cfg.App.Version)

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

	engineer := feature.New(producer, store, cfg.Feature)
	consumer := bus.NewConsumer(cfg.Bus, config.TopicStationTelemetry)

	if cfg.Metrics.Enabled {
		go metrics.StartMetricsServer(cfg.Metrics.Port)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- consumer.Run(runCtx, func(c context.Context, key, value []byte) bus.Outcome {
			metrics.Get().RecordMessageConsumed(config.TopicStationTelemetry, "received")
			outcome := engineer.HandleTelemetry(c, key, value)
			if outcome == bus.OutcomeCommit {
				metrics.Get().RecordMessageConsumed(config.TopicStationTelemetry, "committed")
			} else {
				metrics.Get().RecordMessageConsumed(config.TopicStationTelemetry, "retried")
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
	logger.Info("feature engineer stopped")
}
