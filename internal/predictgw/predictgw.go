// Package predictgw implements the Prediction Gateway: a thin,
// cached, circuit-breaker-protected caller that turns a (model kind,
// station id, input) tuple into a normalized prediction by invoking an
// external model service over HTTP.
package predictgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"evchargenet/internal/breaker"
	"evchargenet/internal/domain"
	"evchargenet/internal/sss"
	"evchargenet/pkg/apperror"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/telemetry"
)

// Gateway fronts the external model service: cache-check, breaker
// gate, HTTP call, response normalization.
type Gateway struct {
	httpClient *http.Client
	baseURL    string
	store      *sss.Store
	breaker    *breaker.Breaker
}

// New creates a Prediction Gateway bound to store for caching and br
// for failure tracking.
func New(cfg config.PredictGWConfig, store *sss.Store, br *breaker.Breaker) *Gateway {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Gateway{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.ModelServiceURL,
		store:      store,
		breaker:    br,
	}
}

// modelRequest is the wire payload sent to the external model
// service.
type modelRequest struct {
	ModelID   string         `json:"modelId"`
	StationID string         `json:"stationId"`
	Input     map[string]any `json:"input"`
}

// modelResponse is the wire payload returned by the external model
// service. Exactly one of the typed fields is populated depending on
// the requested kind; Error signals an explicit model-side failure.
type modelResponse struct {
	PredictedLoad  *float64             `json:"predictedLoad,omitempty"`
	HorizonMin     int                  `json:"horizonMinutes,omitempty"`
	FaultRiskLevel *domain.RiskLevel    `json:"faultRiskLevel,omitempty"`
	Probability    *float64             `json:"probability,omitempty"`
	Raw            map[string]any       `json:"raw,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// Predict returns a prediction for (kind, stationID), preferring a
// fresh SSS cache entry, falling back to the external model service
// behind the per-kind circuit breaker, and finally to a conservative
// deterministic fallback when the breaker is open or the call fails.
// An already-cancelled ctx returns its error before the cache or the
// model service is touched.
func (g *Gateway) Predict(ctx context.Context, kind domain.PredictionKind, stationID string, input map[string]any) (domain.PredictionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Gateway.Predict")
	defer span.End()

	breakerKey := string(kind)

	if err := ctx.Err(); err != nil {
		return domain.PredictionResult{}, err
	}

	if cached, ok := g.readCache(ctx, kind, stationID); ok {
		cached.Cached = true
		return cached, nil
	}

	if err := g.breaker.Allow(ctx, breakerKey); err != nil {
		if ctx.Err() != nil {
			return domain.PredictionResult{}, ctx.Err()
		}
		return fallback(kind, stationID), nil
	}

	result, err := g.callModel(ctx, kind, stationID, input)
	if err != nil {
		if ctx.Err() != nil {
			return domain.PredictionResult{}, ctx.Err()
		}
		g.breaker.RecordFailure(breakerKey)
		logger.Warn("prediction gateway call failed, using fallback", "kind", kind, "stationId", stationID, "error", err)
		return fallback(kind, stationID), nil
	}

	g.breaker.RecordSuccess(breakerKey)
	g.writeCache(ctx, kind, stationID, result)
	return result, nil
}

func (g *Gateway) readCache(ctx context.Context, kind domain.PredictionKind, stationID string) (domain.PredictionResult, bool) {
	key := g.cacheKey(kind, stationID)
	data, err := g.store.Get(ctx, key)
	if err != nil {
		return domain.PredictionResult{}, false
	}

	var result domain.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.PredictionResult{}, false
	}
	return result, true
}

func (g *Gateway) writeCache(ctx context.Context, kind domain.PredictionKind, stationID string, result domain.PredictionResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	key := g.cacheKey(kind, stationID)
	if err := g.store.Set(ctx, key, data, g.cacheTTL()); err != nil {
		logger.Warn("failed to cache prediction", "kind", kind, "stationId", stationID, "error", err)
	}
}

func (g *Gateway) cacheKey(kind domain.PredictionKind, stationID string) string {
	switch kind {
	case domain.KindLoadForecast:
		return g.store.PredictionLoadKey(stationID)
	case domain.KindFaultPrediction:
		return g.store.PredictionFaultKey(stationID)
	default:
		return g.store.PredictionKey(string(kind), stationID)
	}
}

func (g *Gateway) cacheTTL() time.Duration {
	return 60 * time.Second
}

func (g *Gateway) callModel(ctx context.Context, kind domain.PredictionKind, stationID string, input map[string]any) (domain.PredictionResult, error) {
	payload, err := json.Marshal(modelRequest{ModelID: string(kind), StationID: stationID, Input: input})
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("failed to encode model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("failed to build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.PredictionResult{}, apperror.Wrap(err, apperror.CodeDependencyUnavailable, "predictgw: call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PredictionResult{}, apperror.New(apperror.CodeDependencyUnavailable, fmt.Sprintf("predictgw: model service returned status %d", resp.StatusCode))
	}

	var body modelResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.PredictionResult{}, fmt.Errorf("failed to decode model response: %w", err)
	}
	if body.Error != "" {
		return domain.PredictionResult{}, apperror.New(apperror.CodeDependencyUnavailable, "predictgw: model error: "+body.Error)
	}

	result := domain.PredictionResult{
		StationID: stationID,
		Kind:      kind,
		Raw:       body.Raw,
		Timestamp: time.Now().Unix(),
	}

	switch kind {
	case domain.KindLoadForecast:
		if body.PredictedLoad != nil {
			result.Load = &domain.LoadForecast{
				PredictedLoad: domain.ClampUnit(*body.PredictedLoad),
				HorizonMin:    body.HorizonMin,
			}
		}
	case domain.KindFaultPrediction:
		if body.FaultRiskLevel != nil && body.Probability != nil {
			result.Fault = &domain.FaultPrediction{
				FaultRiskLevel: *body.FaultRiskLevel,
				Probability:    domain.ClampUnit(*body.Probability),
			}
		}
	}

	if err := result.Validate(); err != nil {
		return domain.PredictionResult{}, err
	}
	return result, nil
}

// fallback returns a conservative, deterministic prediction used when
// the breaker is open or the model call failed: no load surge, no
// elevated fault risk, so downstream scoring applies no penalty.
func fallback(kind domain.PredictionKind, stationID string) domain.PredictionResult {
	result := domain.PredictionResult{
		StationID: stationID,
		Kind:      kind,
		Timestamp: time.Now().Unix(),
		Cached:    false,
	}

	switch kind {
	case domain.KindLoadForecast:
		result.Load = &domain.LoadForecast{PredictedLoad: 0, HorizonMin: 0}
	case domain.KindFaultPrediction:
		result.Fault = &domain.FaultPrediction{FaultRiskLevel: domain.RiskLow, Probability: 0}
	}

	return result
}
