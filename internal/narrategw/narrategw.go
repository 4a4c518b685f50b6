// Package narrategw implements the Narration Gateway: it turns a
// structured explanation context into human-readable text by calling
// an external LLM, falling back to a deterministic rule-based template
// whenever the LLM is unavailable, unconfigured, or fails. The
// Narration Gateway never fails the caller's request.
package narrategw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"evchargenet/internal/domain"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/telemetry"
)

// AlternativeStation is a station mentioned for comparison in an
// explanation.
type AlternativeStation struct {
	Name       string
	DistanceKm float64
	Score      float64
}

// ExplanationContext is the structured input the Narration Gateway
// renders into prose.
type ExplanationContext struct {
	UserID          string
	TopStation      domain.Recommendation
	Alternatives    []AlternativeStation
	TotalCandidates int
	PredictedLoad   *float64
	FaultRiskLevel  *domain.RiskLevel
}

// Gateway calls an external LLM to render a recommendation
// explanation, falling back to a rule-based template.
type Gateway struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	temperature float64
	maxTokens   int
}

// New creates a Narration Gateway from configuration. An empty APIKey
// means the LLM call is skipped entirely and the rule-based fallback
// always renders.
func New(cfg config.NarrateGWConfig) *Gateway {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	return &Gateway{
		httpClient:  &http.Client{Timeout: timeout},
		endpoint:    cfg.LLMEndpoint,
		apiKey:      cfg.LLMAPIKey,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// llmRequest is the wire payload sent to the external LLM.
type llmRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type llmResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Explain renders prose for ctx. On any LLM failure it silently falls
// back to the deterministic rule-based template.
func (g *Gateway) Explain(ctx context.Context, ec ExplanationContext) string {
	_, span := telemetry.StartSpan(ctx, "Gateway.Explain")
	defer span.End()

	if g.apiKey == "" {
		return ruleBased(ec)
	}

	text, err := g.callLLM(ctx, ec)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("narration gateway call failed, using rule-based fallback", "error", err)
		}
		return ruleBased(ec)
	}
	return text
}

func (g *Gateway) callLLM(ctx context.Context, ec ExplanationContext) (string, error) {
	prompt := buildPrompt(ec)

	payload, err := json.Marshal(llmRequest{Prompt: prompt, Temperature: g.temperature, MaxTokens: g.maxTokens})
	if err != nil {
		return "", fmt.Errorf("failed to encode LLM request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build LLM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("LLM service returned status %d", resp.StatusCode)
	}

	var body llmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode LLM response: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("LLM error: %s", body.Error)
	}
	if strings.TrimSpace(body.Text) == "" {
		return "", fmt.Errorf("LLM returned empty text")
	}
	return body.Text, nil
}

func buildPrompt(ec ExplanationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Explain why station %q is recommended for user %s.\n", ec.TopStation.Name, ec.UserID)
	fmt.Fprintf(&b, "Distance: %.1f km. Score: %.2f.\n", ec.TopStation.DistanceKm, ec.TopStation.Score)
	if ec.PredictedLoad != nil {
		fmt.Fprintf(&b, "Predicted load: %.0f%%.\n", *ec.PredictedLoad*100)
	}
	if ec.FaultRiskLevel != nil {
		fmt.Fprintf(&b, "Fault risk: %s.\n", *ec.FaultRiskLevel)
	}
	fmt.Fprintf(&b, "Considered %d candidate stations.\n", ec.TotalCandidates)
	for _, alt := range ec.Alternatives {
		fmt.Fprintf(&b, "Alternative: %s at %.1f km, score %.2f.\n", alt.Name, alt.DistanceKm, alt.Score)
	}
	return b.String()
}

// ruleBased composes an explanation from the same structured facts an
// LLM prompt would use, without calling out.
func ruleBased(ec ExplanationContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s is recommended", ec.TopStation.Name)
	if d := distanceBucket(ec.TopStation.DistanceKm); d != "" {
		fmt.Fprintf(&b, " (%s, %.1f km away)", d, ec.TopStation.DistanceKm)
	}
	b.WriteString(".")

	if ec.TopStation.Score >= 0.8 {
		b.WriteString(" It has excellent overall availability and reliability.")
	} else if ec.TopStation.Score >= 0.6 {
		b.WriteString(" It offers solid availability with reasonable wait times.")
	} else {
		b.WriteString(" It is the best option currently available given your constraints.")
	}

	if len(ec.Alternatives) > 0 {
		best := ec.Alternatives[0]
		if ec.TopStation.Score > best.Score {
			improvement := (ec.TopStation.Score - best.Score) * 100
			fmt.Fprintf(&b, " This scores %.0f%% higher than the next best alternative, %s.", improvement, best.Name)
		}
	}

	if ec.PredictedLoad != nil && *ec.PredictedLoad > 0.8 {
		b.WriteString(" Note: this station is forecast to be busy soon.")
	}
	if ec.FaultRiskLevel != nil && *ec.FaultRiskLevel == domain.RiskHigh {
		b.WriteString(" Note: elevated fault risk has been factored into its score.")
	}

	return b.String()
}

func distanceBucket(km float64) string {
	switch {
	case km <= 2:
		return "very close"
	case km <= 5:
		return "nearby"
	case km <= 15:
		return "a short drive"
	default:
		return "further out"
	}
}
