package optimizer

import (
	"testing"

	"evchargenet/internal/domain"
	"evchargenet/pkg/config"
)

func testCfg() config.OptimizerConfig {
	return config.OptimizerConfig{
		CandidateMultiplier:  3,
		MinHealthScore:       50,
		MaxFaultProbability:  0.3,
		MinAvailabilityRatio: 0.1,
		DefaultMaxDistanceKm: 50,
		PreferenceBoost:      1.2,
		NearbyThresholdKm:    5,
		ReliableFaultCeiling: 0.1,
		ColdStartScore:       0.5,
	}
}

func TestComputeAdjustedScore_ZeroDistanceNoDecay(t *testing.T) {
	got := computeAdjustedScore(0.8, 0, 50)
	if got != 0.8 {
		t.Errorf("expected no decay at zero distance, got %v", got)
	}
}

func TestComputeAdjustedScore_DecaysWithDistance(t *testing.T) {
	near := computeAdjustedScore(0.8, 5, 50)
	far := computeAdjustedScore(0.8, 40, 50)
	if !(far < near && near < 0.8) {
		t.Errorf("expected monotonic decay, got near=%v far=%v", near, far)
	}
}

func TestEffectiveMaxDistance(t *testing.T) {
	cfg := testCfg()

	req := domain.RecommendationRequest{}
	if got := effectiveMaxDistance(req, cfg); got != 50 {
		t.Errorf("expected default 50, got %v", got)
	}

	md := 20.0
	req.MaxDistance = &md
	if got := effectiveMaxDistance(req, cfg); got != 20 {
		t.Errorf("expected request maxDistance 20, got %v", got)
	}
}

func TestSortByAdjustedScore_TieBreaksOnDistanceThenID(t *testing.T) {
	cands := []scoredCandidate{
		{station: domain.Station{StationID: "st-b"}, adjustedScore: 0.5, distanceKm: 3},
		{station: domain.Station{StationID: "st-a"}, adjustedScore: 0.5, distanceKm: 3},
		{station: domain.Station{StationID: "st-c"}, adjustedScore: 0.9, distanceKm: 10},
	}

	sortByAdjustedScore(cands)

	if cands[0].station.StationID != "st-c" {
		t.Fatalf("expected st-c first (highest score), got %s", cands[0].station.StationID)
	}
	if cands[1].station.StationID != "st-a" || cands[2].station.StationID != "st-b" {
		t.Errorf("expected tie broken lexicographically by stationId, got order %s, %s",
			cands[1].station.StationID, cands[2].station.StationID)
	}
}

func TestApplyPreferenceReweight_FastChargerBoost(t *testing.T) {
	cfg := testCfg()
	cands := []scoredCandidate{
		{station: domain.Station{StationID: "st-1", ChargerType: domain.ChargerFast}, adjustedScore: 0.5},
	}
	req := domain.RecommendationRequest{PreferredChargerType: domain.ChargerFast}

	applyPreferenceReweight(cands, req, cfg)

	if cands[0].adjustedScore != round4(0.5*1.2) {
		t.Errorf("expected boosted score %v, got %v", round4(0.5*1.2), cands[0].adjustedScore)
	}
}

func TestApplyPreferenceReweight_NearbyBoost(t *testing.T) {
	cfg := testCfg()
	cands := []scoredCandidate{
		{station: domain.Station{StationID: "st-1"}, adjustedScore: 0.5, distanceKm: 2},
		{station: domain.Station{StationID: "st-2"}, adjustedScore: 0.5, distanceKm: 10},
	}
	req := domain.RecommendationRequest{Preference: domain.PreferenceNearby}

	applyPreferenceReweight(cands, req, cfg)

	if cands[0].adjustedScore == cands[1].adjustedScore {
		t.Errorf("expected nearby station to be boosted above the far one")
	}
}

func TestApplyPreferenceReweight_ReliableBoost(t *testing.T) {
	cfg := testCfg()
	cands := []scoredCandidate{
		{station: domain.Station{StationID: "st-1"}, adjustedScore: 0.5, faultProb: 0.05},
		{station: domain.Station{StationID: "st-2"}, adjustedScore: 0.5, faultProb: 0.5},
	}
	req := domain.RecommendationRequest{Preference: domain.PreferenceReliable}

	applyPreferenceReweight(cands, req, cfg)

	if cands[0].adjustedScore <= cands[1].adjustedScore {
		t.Errorf("expected lower-fault-probability station to be boosted above the riskier one")
	}
}

func TestAssignRanks_OneBasedInOrder(t *testing.T) {
	cands := []scoredCandidate{
		{station: domain.Station{StationID: "st-1"}, adjustedScore: 0.9},
		{station: domain.Station{StationID: "st-2"}, adjustedScore: 0.5},
	}

	ranked := assignRanks(cands)

	if ranked[0].Rank != 1 || ranked[1].Rank != 2 {
		t.Errorf("expected ranks 1,2 in order, got %v, %v", ranked[0].Rank, ranked[1].Rank)
	}
	if ranked[0].Station.StationID != "st-1" {
		t.Errorf("expected first-rank station to be st-1, got %s", ranked[0].Station.StationID)
	}
}
