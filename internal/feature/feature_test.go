package feature

import (
	"context"
	"encoding/json"
	"testing"

	"evchargenet/internal/bus"
	"evchargenet/internal/domain"
	"evchargenet/pkg/config"
)

func TestEngineer_HandleTelemetry_MalformedPayloadCommits(t *testing.T) {
	e := New(nil, nil, config.FeatureConfig{WaitTimeCeilingMinutes: 60, NominalDistanceKm: 50})

	outcome := e.HandleTelemetry(context.Background(), []byte("st-1"), []byte("not json"))
	if outcome != bus.OutcomeCommit {
		t.Fatalf("expected OutcomeCommit for malformed payload, got %v", outcome)
	}
}

func TestEngineer_HandleTelemetry_InvalidTelemetryCommits(t *testing.T) {
	e := New(nil, nil, config.FeatureConfig{WaitTimeCeilingMinutes: 60, NominalDistanceKm: 50})

	invalid := domain.StationTelemetry{StationID: "", TotalChargers: 0}
	payload, _ := json.Marshal(invalid)

	outcome := e.HandleTelemetry(context.Background(), []byte("st-1"), payload)
	if outcome != bus.OutcomeCommit {
		t.Fatalf("expected OutcomeCommit for invalid telemetry, got %v", outcome)
	}
}

func TestComputeFeatures_RoundsToFourDecimals(t *testing.T) {
	e := New(nil, nil, config.FeatureConfig{WaitTimeCeilingMinutes: 60, NominalDistanceKm: 50})

	telemetry := domain.StationTelemetry{
		StationID:         "st-1",
		QueueLength:       3,
		AvgServiceTime:    7.123456,
		AvailableChargers: 2,
		TotalChargers:     3,
		FaultRate:         0.123456,
		AvailablePower:    50.123456,
		MaxCapacity:       100,
		Timestamp:         1700000000,
	}

	features := e.computeFeatures(telemetry)

	if features.StationReliabilityScore != round4(1-0.123456) {
		t.Errorf("expected rounded reliability score, got %v", features.StationReliabilityScore)
	}
	if features.EffectiveWaitTime != round4(3*7.123456) {
		t.Errorf("expected rounded effective wait time, got %v", features.EffectiveWaitTime)
	}
}
