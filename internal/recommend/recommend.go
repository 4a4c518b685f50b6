// Package recommend implements the Recommendation Handler (RH): the
// query-path orchestrator that validates an inbound request, calls the
// Optimizer for a ranked candidate list, fans out auxiliary model
// calls through the Prediction Gateway, narrates the top result
// through the Narration Gateway, and persists the full transaction to
// the Durable Repository and the Shared State Store.
package recommend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"evchargenet/internal/domain"
	"evchargenet/internal/narrategw"
	"evchargenet/internal/optimizer"
	"evchargenet/internal/predictgw"
	"evchargenet/internal/repository"
	"evchargenet/internal/sss"
	"evchargenet/pkg/apperror"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/metrics"
	"evchargenet/pkg/telemetry"
)

// auxiliaryKinds are the prediction families RH attaches to every
// ranked station on a best-effort basis; an individual failure
// degrades silently and never fails the request.
var auxiliaryKinds = []domain.PredictionKind{
	domain.KindTraffic,
	domain.KindMicroTraffic,
	domain.KindBatteryRebalance,
	domain.KindStockOrder,
	domain.KindStaffDiversion,
	domain.KindTieUpStorage,
	domain.KindCustomerArrival,
	domain.KindBatteryDemand,
}

const recommendationTTL = 300 * time.Second

// Handler orchestrates one recommendation request end to end.
type Handler struct {
	opt       *optimizer.Optimizer
	predict   *predictgw.Gateway
	narrate   *narrategw.Gateway
	store     *sss.Store
	requests  *repository.RequestRepository
	recLogs   *repository.RecommendationLogRepository
}

// New creates a Recommendation Handler wiring the Optimizer, the
// Prediction and Narration Gateways, the Shared State Store, and the
// Durable Repository's request/log tables.
func New(opt *optimizer.Optimizer, predict *predictgw.Gateway, narrate *narrategw.Gateway, store *sss.Store, requests *repository.RequestRepository, recLogs *repository.RecommendationLogRepository) *Handler {
	return &Handler{opt: opt, predict: predict, narrate: narrate, store: store, requests: requests, recLogs: recLogs}
}

// Recommend runs the full per-query pipeline described by the
// recommendation contract: validate, record pending, optimize,
// enrich, narrate, assemble, persist, cache.
func (h *Handler) Recommend(ctx context.Context, req domain.RecommendationRequest) (domain.RecommendationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "Handler.Recommend")
	defer span.End()

	start := time.Now()

	if ve := req.Validate(); ve.HasErrors() {
		return domain.RecommendationResponse{}, apperror.New(apperror.CodeInvalidField, "invalid recommendation request").WithDetails("errors", ve.ErrorMessages())
	}

	requestID := uuid.New().String()

	if err := h.requests.Create(ctx, requestID, req); err != nil {
		logger.Warn("failed to record pending request, continuing", "requestId", requestID, "error", err)
	}

	ranked, err := h.opt.Recommend(ctx, req)
	if err != nil {
		h.fail(ctx, requestID, start)
		return domain.RecommendationResponse{}, apperror.Wrap(err, apperror.CodeInternal, "recommendation optimization failed")
	}
	if len(ranked) == 0 {
		h.fail(ctx, requestID, start)
		return domain.RecommendationResponse{}, apperror.New(apperror.CodeNoCandidates, "no feasible stations found")
	}

	enriched := h.attachAuxiliaryPredictions(ctx, ranked)

	recommendations := h.buildRecommendations(ctx, req, enriched)

	resp := domain.RecommendationResponse{
		RequestID:       requestID,
		UserID:          req.UserID,
		Recommendations: recommendations,
		GeneratedAt:     time.Now().Unix(),
	}

	processingMs := time.Since(start).Milliseconds()
	metrics.Get().RecommendationDuration.Observe(time.Since(start).Seconds())
	if err := h.requests.Complete(ctx, requestID, resp, processingMs); err != nil {
		logger.Warn("failed to complete request row", "requestId", requestID, "error", err)
	}

	stationIDs := make([]string, len(ranked))
	for i, rs := range ranked {
		stationIDs[i] = rs.Station.StationID
	}
	if err := h.recLogs.Create(ctx, repository.RecommendationLog{
		RequestID:  requestID,
		UserID:     req.UserID,
		StationIDs: stationIDs,
		Metadata:   map[string]any{"totalCandidates": len(ranked)},
	}); err != nil {
		logger.Warn("failed to write recommendation log", "requestId", requestID, "error", err)
	}

	h.cacheResponse(ctx, requestID, resp)

	return resp, nil
}

// enrichedStation pairs a ranked station with whatever auxiliary
// predictions succeeded for it.
type enrichedStation struct {
	ranked      domain.RankedStation
	predictions map[domain.PredictionKind]domain.PredictionResult
	fault       *domain.FaultPrediction
	load        *domain.LoadForecast
}

// attachAuxiliaryPredictions fires the bounded set of auxiliary model
// calls concurrently per station. Any individual failure is dropped
// silently; the station is still recommended.
func (h *Handler) attachAuxiliaryPredictions(ctx context.Context, ranked []domain.RankedStation) []enrichedStation {
	out := make([]enrichedStation, len(ranked))

	type job struct {
		stationIdx int
		kind       domain.PredictionKind
	}

	jobs := make([]job, 0, len(ranked)*(len(auxiliaryKinds)+2))
	for i := range ranked {
		out[i] = enrichedStation{ranked: ranked[i], predictions: make(map[domain.PredictionKind]domain.PredictionResult)}
		jobs = append(jobs, job{i, domain.KindLoadForecast}, job{i, domain.KindFaultPrediction})
		for _, k := range auxiliaryKinds {
			jobs = append(jobs, job{i, k})
		}
	}

	results := make(chan struct {
		idx    int
		kind   domain.PredictionKind
		result domain.PredictionResult
		err    error
	}, len(jobs))

	for _, j := range jobs {
		go func(j job) {
			result, err := h.predict.Predict(ctx, j.kind, ranked[j.stationIdx].Station.StationID, nil)
			results <- struct {
				idx    int
				kind   domain.PredictionKind
				result domain.PredictionResult
				err    error
			}{j.stationIdx, j.kind, result, err}
		}(j)
	}

	for range jobs {
		r := <-results
		if r.err != nil {
			continue
		}
		out[r.idx].predictions[r.kind] = r.result
		if r.kind == domain.KindFaultPrediction && r.result.Fault != nil {
			out[r.idx].fault = r.result.Fault
		}
		if r.kind == domain.KindLoadForecast && r.result.Load != nil {
			out[r.idx].load = r.result.Load
		}
	}

	return out
}

// buildRecommendations narrates each ranked station and assembles the
// external Recommendation list, preserving rank order.
func (h *Handler) buildRecommendations(ctx context.Context, req domain.RecommendationRequest, enriched []enrichedStation) []domain.Recommendation {
	out := make([]domain.Recommendation, len(enriched))

	alternatives := make([]narrategw.AlternativeStation, 0, len(enriched))
	for _, e := range enriched {
		alternatives = append(alternatives, narrategw.AlternativeStation{
			Name:       e.ranked.Station.Name,
			DistanceKm: e.ranked.DistanceKm,
			Score:      e.ranked.AdjustedScore,
		})
	}

	for i, e := range enriched {
		rec := domain.Recommendation{
			StationID:  e.ranked.Station.StationID,
			Name:       e.ranked.Station.Name,
			Location:   e.ranked.Station.Location,
			Score:      e.ranked.AdjustedScore,
			DistanceKm: e.ranked.DistanceKm,
		}

		ec := narrategw.ExplanationContext{
			UserID:          req.UserID,
			TopStation:      rec,
			Alternatives:    otherThan(alternatives, i),
			TotalCandidates: len(enriched),
		}
		if e.load != nil {
			ec.PredictedLoad = &e.load.PredictedLoad
		}
		if e.fault != nil {
			ec.FaultRiskLevel = &e.fault.FaultRiskLevel
		}

		rec.Explanation = h.narrate.Explain(ctx, ec)
		out[i] = rec
	}

	return out
}

func otherThan(all []narrategw.AlternativeStation, idx int) []narrategw.AlternativeStation {
	out := make([]narrategw.AlternativeStation, 0, len(all)-1)
	for i, a := range all {
		if i != idx {
			out = append(out, a)
		}
	}
	return out
}

// fail marks the request row FAILED when the pipeline cannot produce a
// response.
func (h *Handler) fail(ctx context.Context, requestID string, start time.Time) {
	metrics.Get().RecommendationDuration.Observe(time.Since(start).Seconds())
	if err := h.requests.Fail(ctx, requestID, time.Since(start).Milliseconds()); err != nil {
		logger.Warn("failed to mark request failed", "requestId", requestID, "error", err)
	}
}

// cacheResponse mirrors the final response in SSS so GET /recommend/{requestId}
// is servable without re-querying the Durable Repository.
func (h *Handler) cacheResponse(ctx context.Context, requestID string, resp domain.RecommendationResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		logger.Warn("failed to encode recommendation for caching", "requestId", requestID, "error", err)
		return
	}
	if err := h.store.Set(ctx, h.store.RecommendationKey(requestID), payload, recommendationTTL); err != nil {
		logger.Warn("failed to cache recommendation", "requestId", requestID, "error", err)
	}
}
