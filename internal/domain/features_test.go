package domain

import "testing"

func TestClamp01(t *testing.T) {
	tests := []struct {
		v        float64
		expected float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}

	for _, tt := range tests {
		if got := clamp01(tt.v); got != tt.expected {
			t.Errorf("clamp01(%v) = %v, want %v", tt.v, got, tt.expected)
		}
	}
}

func TestComputeFeatures(t *testing.T) {
	telemetry := StationTelemetry{
		StationID:         "st-1",
		QueueLength:       2,
		AvgServiceTime:    5,
		AvailableChargers: 4,
		TotalChargers:     8,
		FaultRate:         0.1,
		AvailablePower:    80,
		MaxCapacity:       100,
		Timestamp:         1000,
	}

	f := ComputeFeatures(telemetry, 60, 10, 50)

	if f.EffectiveWaitTime != 10 {
		t.Errorf("effectiveWaitTime = %v, want 10", f.EffectiveWaitTime)
	}
	if f.ChargerAvailabilityRatio != 0.5 {
		t.Errorf("chargerAvailabilityRatio = %v, want 0.5", f.ChargerAvailabilityRatio)
	}
	if f.StationReliabilityScore != 0.9 {
		t.Errorf("stationReliabilityScore = %v, want 0.9", f.StationReliabilityScore)
	}
	if f.EnergyStabilityIndex != 0.8 {
		t.Errorf("energyStabilityIndex = %v, want 0.8", f.EnergyStabilityIndex)
	}
	if f.Normalized.Availability != 0.5 {
		t.Errorf("normalized availability = %v, want 0.5", f.Normalized.Availability)
	}
	if f.Normalized.Distance != 0.8 {
		t.Errorf("normalized distance = %v, want 0.8", f.Normalized.Distance)
	}
}

func TestComputeFeatures_ZeroDenominators(t *testing.T) {
	telemetry := StationTelemetry{
		StationID:     "st-2",
		TotalChargers: 0,
		MaxCapacity:   0,
		Timestamp:     1000,
	}

	f := ComputeFeatures(telemetry, 0, 0, 0)

	if f.ChargerAvailabilityRatio != 0 {
		t.Errorf("chargerAvailabilityRatio = %v, want 0 when totalChargers is 0", f.ChargerAvailabilityRatio)
	}
	if f.EnergyStabilityIndex != 0 {
		t.Errorf("energyStabilityIndex = %v, want 0 when maxCapacity is 0", f.EnergyStabilityIndex)
	}
	if f.Normalized.WaitTime != 0 {
		t.Errorf("normalized waitTime = %v, want 0 when ceiling is 0", f.Normalized.WaitTime)
	}
}
