package domain

// ComponentScores breaks the overall score down by contributing
// dimension, preserved alongside the aggregate for explanation and
// for the Optimizer's preference re-weighting pass.
type ComponentScores struct {
	Wait            float64 `json:"wait"`
	Availability    float64 `json:"availability"`
	Reliability     float64 `json:"reliability"`
	Distance        float64 `json:"distance"`
	EnergyStability float64 `json:"energyStability"`
}

// StationScore is the Scorer's output: a weighted overall score with
// its component breakdown, a prediction-derived penalty, and a
// confidence estimate reflecting the freshness and completeness of
// the features it was derived from.
type StationScore struct {
	StationID      string          `json:"stationId"`
	OverallScore   float64         `json:"overallScore"`
	ComponentScores ComponentScores `json:"componentScores"`
	Confidence     float64         `json:"confidence"`
	Timestamp      int64           `json:"timestamp"`
}

// ScoringWeights are the configured weights applied to each
// normalized feature when computing the overall score. They need not
// sum to 1.0: ComputeOverallScore divides by their sum. Config
// validation rejects negative weights.
type ScoringWeights struct {
	WaitTime        float64
	Availability     float64
	Reliability      float64
	Distance         float64
	EnergyStability  float64
}

// ComputeOverallScore produces the weighted aggregate from normalized
// features, before any prediction-driven penalty is applied. The
// weighted sum is normalized by the sum of the weights so that
// slightly misconfigured weights (not summing to exactly 1) still
// produce a score in [0,1]; an all-zero weight set yields 0.
func ComputeOverallScore(n NormalizedFeatures, w ScoringWeights) float64 {
	weightSum := w.WaitTime + w.Availability + w.Reliability + w.Distance + w.EnergyStability
	if weightSum <= 0 {
		return 0
	}

	weighted := n.WaitTime*w.WaitTime +
		n.Availability*w.Availability +
		n.Reliability*w.Reliability +
		n.Distance*w.Distance +
		n.EnergyStability*w.EnergyStability

	return weighted / weightSum
}

// ApplyLoadPenalty reduces a score when the Prediction Gateway reports
// elevated predicted load for the station: above 0.8, the score is
// reduced proportionally to how far above 0.8 the prediction sits.
func ApplyLoadPenalty(score, predictedLoad float64) float64 {
	if predictedLoad > 0.8 {
		return score * (1 - 0.5*(predictedLoad-0.8))
	}
	return score
}

// ApplyFaultRiskPenalty reduces a score based on the predicted fault
// risk level for the station.
func ApplyFaultRiskPenalty(score float64, risk RiskLevel) float64 {
	switch risk {
	case RiskHigh:
		return score * 0.7
	case RiskMedium:
		return score * 0.9
	default:
		return score
	}
}

// ComputeConfidence estimates how much to trust a score, decaying with
// feature age (capped at 300s, contributing up to a 0.3 reduction) and
// scaled by how complete the contributing feature set was.
func ComputeConfidence(ageSeconds float64, completenessFactor float64) float64 {
	age := ageSeconds
	if age < 0 {
		age = 0
	}
	ageFactor := age / 300
	if ageFactor > 1 {
		ageFactor = 1
	}
	return (1 - ageFactor*0.3) * completenessFactor
}
