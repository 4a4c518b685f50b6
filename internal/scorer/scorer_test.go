package scorer

import (
	"context"
	"testing"

	"evchargenet/internal/bus"
	"evchargenet/internal/domain"
	"evchargenet/pkg/config"
)

func testWeights() config.ScoringConfig {
	return config.ScoringConfig{
		WeightWaitTime:        0.25,
		WeightAvailability:    0.20,
		WeightReliability:     0.20,
		WeightDistance:        0.20,
		WeightEnergyStability: 0.15,
	}
}

func TestScorer_ComputeScore_NoPredictor(t *testing.T) {
	s := New(nil, nil, nil, testWeights(), 0)

	f := domain.StationFeatures{
		StationID: "st-1",
		Normalized: domain.NormalizedFeatures{
			WaitTime:        1.0,
			Availability:    1.0,
			Reliability:     1.0,
			Distance:        1.0,
			EnergyStability: 1.0,
		},
		Timestamp: 1700000000,
	}

	score := s.computeScore(context.Background(), f)

	if score.OverallScore < 0.999 || score.OverallScore > 1.001 {
		t.Errorf("expected overall score ≈ 1.0 with full normalized features, got %v", score.OverallScore)
	}
	if score.StationID != "st-1" {
		t.Errorf("expected stationId st-1, got %s", score.StationID)
	}
}

func TestScorer_HandleFeatures_MalformedPayloadCommits(t *testing.T) {
	s := New(nil, nil, nil, testWeights(), 0)

	outcome := s.HandleFeatures(context.Background(), []byte("st-1"), []byte("not json"))
	if outcome != bus.OutcomeCommit {
		t.Fatalf("expected OutcomeCommit for malformed payload, got %v", outcome)
	}
}

func TestCompletenessFactor(t *testing.T) {
	full := domain.NormalizedFeatures{WaitTime: 0.5, Availability: 0.5, Reliability: 0.5, EnergyStability: 0.5}
	if got := completenessFactor(full); got != 1.0 {
		t.Errorf("expected completeness 1.0 for full feature set, got %v", got)
	}

	partial := domain.NormalizedFeatures{WaitTime: 0.5, Availability: 0}
	if got := completenessFactor(partial); got != 0.8 {
		t.Errorf("expected completeness 0.8 for partial feature set, got %v", got)
	}
}
