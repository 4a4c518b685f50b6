package narrategw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"evchargenet/internal/domain"
	"evchargenet/pkg/config"
)

func baseContext() ExplanationContext {
	return ExplanationContext{
		UserID: "u1",
		TopStation: domain.Recommendation{
			StationID:  "st-1",
			Name:       "Downtown Fast Charge",
			Score:      0.9,
			DistanceKm: 1.2,
		},
		Alternatives: []AlternativeStation{
			{Name: "Uptown Hub", DistanceKm: 3.4, Score: 0.7},
		},
		TotalCandidates: 12,
	}
}

func TestGateway_NoAPIKeyUsesRuleBased(t *testing.T) {
	g := New(config.NarrateGWConfig{})
	text := g.Explain(context.Background(), baseContext())

	if !strings.Contains(text, "Downtown Fast Charge") {
		t.Fatalf("expected rule-based text to mention the station, got %q", text)
	}
}

func TestGateway_LLMSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "Generated explanation text."})
	}))
	defer srv.Close()

	g := New(config.NarrateGWConfig{LLMAPIKey: "secret", LLMEndpoint: srv.URL})
	text := g.Explain(context.Background(), baseContext())

	if text != "Generated explanation text." {
		t.Fatalf("expected LLM text to be used, got %q", text)
	}
}

func TestGateway_LLMFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := New(config.NarrateGWConfig{LLMAPIKey: "secret", LLMEndpoint: srv.URL})
	text := g.Explain(context.Background(), baseContext())

	if !strings.Contains(text, "Downtown Fast Charge") {
		t.Fatalf("expected fallback text on LLM failure, got %q", text)
	}
}

func TestGateway_NeverFailsOnCancelledContext(t *testing.T) {
	g := New(config.NarrateGWConfig{LLMAPIKey: "secret", LLMEndpoint: "http://127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text := g.Explain(ctx, baseContext())
	if text == "" {
		t.Fatal("expected a non-empty fallback explanation even on cancellation")
	}
}

func TestRuleBased_MentionsHighFaultRisk(t *testing.T) {
	ec := baseContext()
	risk := domain.RiskHigh
	ec.FaultRiskLevel = &risk

	text := ruleBased(ec)
	if !strings.Contains(text, "fault risk") {
		t.Fatalf("expected fault-risk mention, got %q", text)
	}
}

func TestDistanceBucket(t *testing.T) {
	cases := map[float64]string{
		1:  "very close",
		4:  "nearby",
		10: "a short drive",
		50: "further out",
	}
	for km, want := range cases {
		if got := distanceBucket(km); got != want {
			t.Errorf("distanceBucket(%v) = %q, want %q", km, got, want)
		}
	}
}
