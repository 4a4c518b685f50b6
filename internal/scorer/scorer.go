// Package scorer implements the Scorer: a message-bus consumer that
// combines engineered features with prediction-gateway signals into a
// scalar utility score, publishing it and maintaining the global
// station ranking.
package scorer

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"evchargenet/internal/bus"
	"evchargenet/internal/domain"
	"evchargenet/internal/predictgw"
	"evchargenet/internal/sss"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/metrics"
	"evchargenet/pkg/telemetry"
)

// Scorer consumes station.features and produces StationScore.
type Scorer struct {
	producer *bus.Producer
	store    *sss.Store
	predict  *predictgw.Gateway
	weights  domain.ScoringWeights
	scoreTTL time.Duration
}

// New creates a Scorer publishing to producer, caching/ranking in
// store, and fetching auxiliary predictions through predict.
func New(producer *bus.Producer, store *sss.Store, predict *predictgw.Gateway, cfg config.ScoringConfig, scoreTTL time.Duration) *Scorer {
	return &Scorer{
		producer: producer,
		store:    store,
		predict:  predict,
		weights: domain.ScoringWeights{
			WaitTime:        cfg.WeightWaitTime,
			Availability:    cfg.WeightAvailability,
			Reliability:     cfg.WeightReliability,
			Distance:        cfg.WeightDistance,
			EnergyStability: cfg.WeightEnergyStability,
		},
		scoreTTL: scoreTTL,
	}
}

// HandleFeatures is the bus.Handler processing one station.features
// message: compute component scores, apply prediction-driven
// penalties, cache, rank, emit. A score is always produced if the
// features parse — prediction-gateway failures degrade the penalty,
// not the message.
func (s *Scorer) HandleFeatures(ctx context.Context, key, value []byte) bus.Outcome {
	ctx, span := telemetry.StartSpan(ctx, "Scorer.HandleFeatures")
	defer span.End()

	var f domain.StationFeatures
	if err := json.Unmarshal(value, &f); err != nil {
		logger.Warn("dropping malformed features message", "error", err)
		return bus.OutcomeCommit
	}

	computeStart := time.Now()
	score := s.computeScore(ctx, f)
	metrics.Get().ScoreComputeDuration.Observe(time.Since(computeStart).Seconds())
	telemetry.SetAttributes(ctx, telemetry.ScoreAttributes(f.StationID, score.OverallScore, score.Confidence)...)

	payload, err := json.Marshal(score)
	if err != nil {
		logger.Warn("failed to encode station score, dropping", "stationId", f.StationID, "error", err)
		return bus.OutcomeCommit
	}

	if err := s.store.Set(ctx, s.store.StationScoreKey(f.StationID), payload, s.scoreTTL); err != nil {
		logger.Warn("failed to cache station score, retrying", "stationId", f.StationID, "error", err)
		return bus.OutcomeRetry
	}

	if err := s.store.ZAdd(ctx, s.store.RankingKey(), f.StationID, score.OverallScore); err != nil {
		logger.Warn("failed to update station ranking, retrying", "stationId", f.StationID, "error", err)
		return bus.OutcomeRetry
	}

	if err := s.producer.Publish(ctx, config.TopicStationScores, []byte(f.StationID), payload); err != nil {
		logger.Warn("failed to publish station score, retrying", "stationId", f.StationID, "error", err)
		return bus.OutcomeRetry
	}

	return bus.OutcomeCommit
}

func (s *Scorer) computeScore(ctx context.Context, f domain.StationFeatures) domain.StationScore {
	components := domain.ComponentScores{
		Wait:            round4(f.Normalized.WaitTime),
		Availability:    round4(f.Normalized.Availability),
		Reliability:     round4(f.Normalized.Reliability),
		Distance:        round4(f.Normalized.Distance),
		EnergyStability: round4(f.Normalized.EnergyStability),
	}

	overall := domain.ComputeOverallScore(f.Normalized, s.weights)
	overall = s.applyPredictionPenalties(ctx, f.StationID, overall)
	overall = domain.ClampUnit(overall)

	completeness := completenessFactor(f.Normalized)
	age := float64(time.Now().Unix() - f.Timestamp)
	confidence := domain.ComputeConfidence(age, completeness)

	return domain.StationScore{
		StationID:       f.StationID,
		OverallScore:    round4(overall),
		ComponentScores: components,
		Confidence:      round4(confidence),
		Timestamp:       time.Now().Unix(),
	}
}

// applyPredictionPenalties fetches the station's load and fault
// predictions lazily through PG and folds their penalties into score.
// A prediction-gateway failure (already degraded to a conservative
// fallback by PG itself) simply applies no penalty.
func (s *Scorer) applyPredictionPenalties(ctx context.Context, stationID string, score float64) float64 {
	if s.predict == nil {
		return score
	}

	load, err := s.predict.Predict(ctx, domain.KindLoadForecast, stationID, nil)
	if err == nil && load.Load != nil {
		score = domain.ApplyLoadPenalty(score, load.Load.PredictedLoad)
	}

	fault, err := s.predict.Predict(ctx, domain.KindFaultPrediction, stationID, nil)
	if err == nil && fault.Fault != nil {
		score = domain.ApplyFaultRiskPenalty(score, fault.Fault.FaultRiskLevel)
	}

	return score
}

// completenessFactor approximates "all normalized fields present":
// StationFeatures carries no explicit missing-field marker, so a
// still-zero field (FE never computed it, e.g. a TotalChargers=0
// station) is the closest available signal.
func completenessFactor(n domain.NormalizedFeatures) float64 {
	if n.WaitTime > 0 && n.Availability > 0 && n.Reliability > 0 && n.EnergyStability > 0 {
		return 1.0
	}
	return 0.8
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
