// Package feature implements the Feature Engineer: a message-bus
// consumer that turns raw station telemetry into normalized,
// cacheable features for the Scorer.
package feature

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"evchargenet/internal/bus"
	"evchargenet/internal/domain"
	"evchargenet/internal/sss"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/metrics"
	"evchargenet/pkg/telemetry"
)

// Engineer consumes station.telemetry and produces StationFeatures.
type Engineer struct {
	producer *bus.Producer
	store    *sss.Store
	cfg      config.FeatureConfig
}

// New creates a Feature Engineer publishing to producer and caching
// in store.
func New(producer *bus.Producer, store *sss.Store, cfg config.FeatureConfig) *Engineer {
	return &Engineer{producer: producer, store: store, cfg: cfg}
}

// HandleTelemetry is the bus.Handler processing one station.telemetry
// message: parse, compute, cache, emit. Malformed payloads are logged
// and committed (skipped, not retried); transient cache/bus failures
// are left for redelivery.
func (e *Engineer) HandleTelemetry(ctx context.Context, key, value []byte) bus.Outcome {
	ctx, span := telemetry.StartSpan(ctx, "Engineer.HandleTelemetry")
	defer span.End()

	var t domain.StationTelemetry
	if err := json.Unmarshal(value, &t); err != nil {
		logger.Warn("dropping malformed telemetry message", "error", err)
		return bus.OutcomeCommit
	}

	if ve := t.Validate(); ve != nil && ve.HasErrors() {
		logger.Warn("dropping invalid telemetry message", "stationId", t.StationID, "errors", ve.ErrorMessages())
		return bus.OutcomeCommit
	}

	computeStart := time.Now()
	features := e.computeFeatures(t)
	metrics.Get().FeatureComputeDuration.Observe(time.Since(computeStart).Seconds())
	telemetry.SetAttributes(ctx, telemetry.FeatureAttributes(t.StationID, features.EffectiveWaitTime, features.ChargerAvailabilityRatio)...)

	payload, err := json.Marshal(features)
	if err != nil {
		logger.Warn("failed to encode station features, dropping", "stationId", t.StationID, "error", err)
		return bus.OutcomeCommit
	}

	if err := e.store.Set(ctx, e.store.StationFeaturesKey(t.StationID), payload, e.cacheTTL()); err != nil {
		logger.Warn("failed to cache station features, retrying", "stationId", t.StationID, "error", err)
		return bus.OutcomeRetry
	}

	if err := e.producer.Publish(ctx, config.TopicStationFeatures, []byte(t.StationID), payload); err != nil {
		logger.Warn("failed to publish station features, retrying", "stationId", t.StationID, "error", err)
		return bus.OutcomeRetry
	}

	return bus.OutcomeCommit
}

func (e *Engineer) computeFeatures(t domain.StationTelemetry) domain.StationFeatures {
	waitTimeCeiling := e.cfg.WaitTimeCeilingMinutes
	nominalDistance := e.cfg.NominalDistanceKm

	features := domain.ComputeFeatures(t, waitTimeCeiling, 0, nominalDistance)
	return roundFeatures(features)
}

func (e *Engineer) cacheTTL() time.Duration {
	if e.cfg.CacheTTL > 0 {
		return e.cfg.CacheTTL
	}
	return 30 * time.Second
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// roundFeatures rounds every exposed numeric field to 4 decimal
// places, per the external contract for published StationFeatures.
func roundFeatures(f domain.StationFeatures) domain.StationFeatures {
	f.EffectiveWaitTime = round4(f.EffectiveWaitTime)
	f.ChargerAvailabilityRatio = round4(f.ChargerAvailabilityRatio)
	f.StationReliabilityScore = round4(f.StationReliabilityScore)
	f.EnergyStabilityIndex = round4(f.EnergyStabilityIndex)
	f.Normalized.WaitTime = round4(f.Normalized.WaitTime)
	f.Normalized.Availability = round4(f.Normalized.Availability)
	f.Normalized.Reliability = round4(f.Normalized.Reliability)
	f.Normalized.Distance = round4(f.Normalized.Distance)
	f.Normalized.EnergyStability = round4(f.Normalized.EnergyStability)
	return f
}
