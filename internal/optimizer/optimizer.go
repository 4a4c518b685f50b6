// Package optimizer implements the Optimizer (OPT): a query-time
// library, not a bus consumer, that turns the global station ranking
// into a feasibility-filtered, distance-adjusted, optionally
// preference-reweighted list of RankedStation for one recommendation
// request.
package optimizer

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"

	"evchargenet/internal/domain"
	"evchargenet/internal/predictgw"
	"evchargenet/internal/repository"
	"evchargenet/internal/sss"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/metrics"
	"evchargenet/pkg/telemetry"
)

// Optimizer computes ranked stations for a recommendation request from
// the live ranking set, DR station master data, and PG fault signals.
type Optimizer struct {
	store    *sss.Store
	stations *repository.StationRepository
	predict  *predictgw.Gateway
	cfg      config.OptimizerConfig
}

// New creates an Optimizer reading the ranking and caches from store,
// station master data from stations, and fault predictions from
// predict.
func New(store *sss.Store, stations *repository.StationRepository, predict *predictgw.Gateway, cfg config.OptimizerConfig) *Optimizer {
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = 3
	}
	if cfg.DefaultMaxDistanceKm <= 0 {
		cfg.DefaultMaxDistanceKm = 50
	}
	if cfg.PreferenceBoost <= 0 {
		cfg.PreferenceBoost = 1.2
	}
	return &Optimizer{store: store, stations: stations, predict: predict, cfg: cfg}
}

// scoredCandidate is a station carrying everything the filter chain
// and preference re-weighting pass need, kept internal to this
// package until the final RankedStation is assembled.
type scoredCandidate struct {
	station       domain.Station
	baseScore     float64
	distanceKm    float64
	faultProb     float64
	adjustedScore float64
}

// Recommend returns up to req.EffectiveLimit() ranked, feasible
// stations for the request's location and preferences.
func (o *Optimizer) Recommend(ctx context.Context, req domain.RecommendationRequest) ([]domain.RankedStation, error) {
	ctx, span := telemetry.StartSpan(ctx, "Optimizer.Recommend")
	defer span.End()

	limit := req.EffectiveLimit()

	ranked, err := o.store.ZRevRange(ctx, o.store.RankingKey(), int64(o.cfg.CandidateMultiplier*limit))
	if err != nil {
		return nil, err
	}

	if len(ranked) == 0 {
		return o.coldStart(ctx, req, limit)
	}

	maxDistance := effectiveMaxDistance(req, o.cfg)

	var collected []scoredCandidate
	for _, candidate := range ranked {
		if len(collected) >= limit {
			break
		}

		sc, ok := o.evaluate(ctx, candidate.Member, candidate.Score, req, maxDistance)
		if !ok {
			continue
		}
		collected = append(collected, sc)
	}

	sortByAdjustedScore(collected)
	applyPreferenceReweight(collected, req, o.cfg)
	sortByAdjustedScore(collected)

	result := assignRanks(collected)
	metrics.Get().RankingSetSize.Observe(float64(len(ranked)))
	telemetry.SetAttributes(ctx, telemetry.RankingAttributes(len(ranked), len(result))...)
	return result, nil
}

// evaluate runs the feasibility filter chain (a-h from the algorithm)
// for one candidate station, returning ok=false the moment any step
// disqualifies it.
func (o *Optimizer) evaluate(ctx context.Context, stationID string, baseScore float64, req domain.RecommendationRequest, maxDistance float64) (scoredCandidate, bool) {
	var (
		wg            sync.WaitGroup
		health        domain.StationHealth
		hasHealth     bool
		fault         domain.PredictionResult
		faultErr      error
		features      domain.StationFeatures
		hasFeatures   bool
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		health, hasHealth = o.loadHealth(ctx, stationID)
	}()
	go func() {
		defer wg.Done()
		fault, faultErr = o.predict.Predict(ctx, domain.KindFaultPrediction, stationID, nil)
	}()
	go func() {
		defer wg.Done()
		features, hasFeatures = o.loadFeatures(ctx, stationID)
	}()
	wg.Wait()

	if ctx.Err() != nil {
		return scoredCandidate{}, false
	}

	if hasHealth && (!health.Status.Selectable() || health.HealthScore < o.cfg.MinHealthScore) {
		return scoredCandidate{}, false
	}

	faultProb := 0.0
	if faultErr == nil && fault.Fault != nil {
		faultProb = fault.Fault.Probability
	}
	if faultProb > o.cfg.MaxFaultProbability {
		return scoredCandidate{}, false
	}

	if !hasFeatures || features.ChargerAvailabilityRatio < o.cfg.MinAvailabilityRatio {
		return scoredCandidate{}, false
	}
	if req.MaxWaitTime != nil && features.EffectiveWaitTime > *req.MaxWaitTime {
		return scoredCandidate{}, false
	}

	station, err := o.stations.GetByID(ctx, stationID)
	if err != nil {
		return scoredCandidate{}, false
	}

	distance := domain.HaversineKm(req.Location, station.Location)
	if req.MaxDistance != nil && distance > *req.MaxDistance {
		return scoredCandidate{}, false
	}

	return scoredCandidate{
		station:       station,
		baseScore:     baseScore,
		distanceKm:    distance,
		faultProb:     faultProb,
		adjustedScore: computeAdjustedScore(baseScore, distance, maxDistance),
	}, true
}

func (o *Optimizer) loadHealth(ctx context.Context, stationID string) (domain.StationHealth, bool) {
	data, err := o.store.Get(ctx, o.store.StationHealthKey(stationID))
	if err != nil {
		return domain.StationHealth{}, false
	}
	var h domain.StationHealth
	if err := json.Unmarshal(data, &h); err != nil {
		return domain.StationHealth{}, false
	}
	return h, true
}

func (o *Optimizer) loadFeatures(ctx context.Context, stationID string) (domain.StationFeatures, bool) {
	data, err := o.store.Get(ctx, o.store.StationFeaturesKey(stationID))
	if err != nil {
		return domain.StationFeatures{}, false
	}
	var f domain.StationFeatures
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.StationFeatures{}, false
	}
	return f, true
}

// coldStart handles the empty-ranking-set path: every registered
// station, filtered to selectable health and the request's hard
// constraints, sorted by distance, at a flat placeholder score.
func (o *Optimizer) coldStart(ctx context.Context, req domain.RecommendationRequest, limit int) ([]domain.RankedStation, error) {
	all, err := o.stations.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []scoredCandidate
	for _, station := range all {
		if !station.Health.Status.Selectable() {
			continue
		}
		distance := domain.HaversineKm(req.Location, station.Location)
		if req.MaxDistance != nil && distance > *req.MaxDistance {
			continue
		}
		candidates = append(candidates, scoredCandidate{
			station:       station,
			baseScore:     o.cfg.ColdStartScore,
			distanceKm:    distance,
			adjustedScore: o.cfg.ColdStartScore,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distanceKm != candidates[j].distanceKm {
			return candidates[i].distanceKm < candidates[j].distanceKm
		}
		return candidates[i].station.StationID < candidates[j].station.StationID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	logger.Info("optimizer cold start: ranking set empty, falling back to station master data", "stationsConsidered", len(all), "returned", len(candidates))

	result := assignRanks(candidates)
	telemetry.SetAttributes(ctx, telemetry.RankingAttributes(len(all), len(result))...)
	return result, nil
}

// effectiveMaxDistance returns the request's maxDistance when set,
// otherwise the configured default decay reference.
func effectiveMaxDistance(req domain.RecommendationRequest, cfg config.OptimizerConfig) float64 {
	if req.MaxDistance != nil && *req.MaxDistance > 0 {
		return *req.MaxDistance
	}
	return cfg.DefaultMaxDistanceKm
}

// computeAdjustedScore applies exponential distance decay to a
// station's base ranking score, rounded to 4 decimals.
func computeAdjustedScore(baseScore, distanceKm, maxDistanceKm float64) float64 {
	if maxDistanceKm <= 0 {
		maxDistanceKm = 50
	}
	decay := math.Exp(-distanceKm / (maxDistanceKm / 3))
	return round4(baseScore * decay)
}

// sortByAdjustedScore orders candidates by adjustedScore descending,
// tie-breaking on lower distance then lexicographic station id.
func sortByAdjustedScore(cands []scoredCandidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].adjustedScore != cands[j].adjustedScore {
			return cands[i].adjustedScore > cands[j].adjustedScore
		}
		if cands[i].distanceKm != cands[j].distanceKm {
			return cands[i].distanceKm < cands[j].distanceKm
		}
		return cands[i].station.StationID < cands[j].station.StationID
	})
}

// applyPreferenceReweight applies the optional multiplicative boosts:
// fast-charger match, nearby preference, reliability preference.
func applyPreferenceReweight(cands []scoredCandidate, req domain.RecommendationRequest, cfg config.OptimizerConfig) {
	for i := range cands {
		boost := 1.0

		if req.PreferredChargerType == domain.ChargerFast && cands[i].station.ChargerType == domain.ChargerFast {
			boost *= cfg.PreferenceBoost
		}
		if req.Preference == domain.PreferenceNearby && cands[i].distanceKm < cfg.NearbyThresholdKm {
			boost *= cfg.PreferenceBoost
		}
		if req.Preference == domain.PreferenceReliable && cands[i].faultProb < cfg.ReliableFaultCeiling {
			boost *= cfg.PreferenceBoost
		}

		if boost != 1.0 {
			cands[i].adjustedScore = round4(cands[i].adjustedScore * boost)
		}
	}
}

// assignRanks converts scored candidates to the external RankedStation
// shape, assigning 1-based ranks in their current order.
func assignRanks(cands []scoredCandidate) []domain.RankedStation {
	out := make([]domain.RankedStation, len(cands))
	for i, c := range cands {
		out[i] = domain.RankedStation{
			Station:       c.station,
			BaseScore:     c.baseScore,
			DistanceKm:    round4(c.distanceKm),
			AdjustedScore: c.adjustedScore,
			Rank:          i + 1,
		}
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
