package domain

// NormalizedFeatures holds the [0,1]-clamped, dimensionless versions of
// the raw station features, ready for weighted scoring.
type NormalizedFeatures struct {
	WaitTime       float64 `json:"waitTime"`
	Availability   float64 `json:"availability"`
	Reliability    float64 `json:"reliability"`
	Distance       float64 `json:"distance"`
	EnergyStability float64 `json:"energyStability"`
}

// StationFeatures is the engineered-feature record produced by the
// Feature Engineer from raw telemetry, cached in the Shared State
// Store and published to the bus for the Scorer to consume.
type StationFeatures struct {
	StationID               string  `json:"stationId"`
	EffectiveWaitTime        float64 `json:"effectiveWaitTime"`
	ChargerAvailabilityRatio float64 `json:"chargerAvailabilityRatio"`
	StationReliabilityScore  float64 `json:"stationReliabilityScore"`
	EnergyStabilityIndex     float64 `json:"energyStabilityIndex"`

	Normalized NormalizedFeatures `json:"normalizedFeatures"`

	Timestamp int64 `json:"timestamp"`
}

// clamp01 restricts a value to the [0,1] range, used at every
// normalization boundary before a feature enters the scoring stage.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ComputeFeatures derives raw and normalized features from a telemetry
// sample. waitTimeCeiling and distance are normalization references
// supplied by the caller (config-driven, not hardcoded here).
func ComputeFeatures(t StationTelemetry, waitTimeCeiling float64, distance, maxDistance float64) StationFeatures {
	effectiveWaitTime := float64(t.QueueLength) * t.AvgServiceTime

	chargerAvailabilityRatio := 0.0
	if t.TotalChargers > 0 {
		chargerAvailabilityRatio = float64(t.AvailableChargers) / float64(t.TotalChargers)
	}

	stationReliabilityScore := 1 - t.FaultRate

	energyStabilityIndex := 0.0
	if t.MaxCapacity > 0 {
		energyStabilityIndex = t.AvailablePower / t.MaxCapacity
	}

	norm := NormalizedFeatures{
		Availability:    clamp01(chargerAvailabilityRatio),
		Reliability:     clamp01(stationReliabilityScore),
		EnergyStability: clamp01(energyStabilityIndex),
	}
	if waitTimeCeiling > 0 {
		norm.WaitTime = clamp01(1 - effectiveWaitTime/waitTimeCeiling)
	}
	if maxDistance > 0 {
		norm.Distance = clamp01(1 - distance/maxDistance)
	}

	return StationFeatures{
		StationID:                t.StationID,
		EffectiveWaitTime:        effectiveWaitTime,
		ChargerAvailabilityRatio: chargerAvailabilityRatio,
		StationReliabilityScore:  stationReliabilityScore,
		EnergyStabilityIndex:     energyStabilityIndex,
		Normalized:               norm,
		Timestamp:                t.Timestamp,
	}
}
