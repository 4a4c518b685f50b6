package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys shared across pipeline spans.
const (
	// Station
	AttrStationID      = "station.id"
	AttrStationCharger = "station.charger_type"
	AttrStationRegion  = "station.region"

	// Feature Engineer
	AttrFeatureWaitTime     = "feature.effective_wait_time"
	AttrFeatureAvailability = "feature.availability_ratio"

	// Scorer
	AttrScoreOverall    = "score.overall"
	AttrScoreConfidence = "score.confidence"

	// Optimizer / ranking
	AttrRankingCandidates = "ranking.candidates"
	AttrRankingReturned   = "ranking.returned"
)

// StationAttributes returns the attributes identifying one station.
func StationAttributes(stationID, chargerType, region string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStationID, stationID),
		attribute.String(AttrStationCharger, chargerType),
		attribute.String(AttrStationRegion, region),
	}
}

// FeatureAttributes returns the attributes describing one computed
// feature set, for Feature Engineer spans.
func FeatureAttributes(stationID string, waitTime, availabilityRatio float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStationID, stationID),
		attribute.Float64(AttrFeatureWaitTime, waitTime),
		attribute.Float64(AttrFeatureAvailability, availabilityRatio),
	}
}

// ScoreAttributes returns the attributes describing one computed
// score, for Scorer spans.
func ScoreAttributes(stationID string, overall, confidence float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStationID, stationID),
		attribute.Float64(AttrScoreOverall, overall),
		attribute.Float64(AttrScoreConfidence, confidence),
	}
}

// RankingAttributes returns the attributes describing one Optimizer
// ranking pass: how many candidates were considered vs. returned.
func RankingAttributes(candidates, returned int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrRankingCandidates, candidates),
		attribute.Int(AttrRankingReturned, returned),
	}
}
