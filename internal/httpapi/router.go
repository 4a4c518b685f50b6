// Package httpapi exposes the Ingestion Handler and Recommendation
// Handler over HTTP/JSON, with the gateway's logging, metrics, rate
// limiting and CORS middleware wrapped around every route.
package httpapi

import (
	"net/http"

	"evchargenet/internal/ingest"
	"evchargenet/internal/recommend"
	"evchargenet/internal/repository"
	"evchargenet/internal/sss"
	"evchargenet/pkg/config"
	"evchargenet/pkg/ratelimit"
)

// Deps are the collaborators the HTTP surface dispatches into.
type Deps struct {
	Ingest    *ingest.Handler
	Recommend *recommend.Handler
	Store     *sss.Store
	RecLogs   *repository.RecommendationLogRepository
	Limiter   ratelimit.Limiter
	Ready     func() bool
}

// New builds the HTTP handler for the gateway process: every route
// from the recommendation API wrapped in the standard middleware
// chain.
func New(cfg *config.Config, deps Deps) http.Handler {
	h := &handlers{deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.ready)

	mux.HandleFunc("POST /ingest/station", h.ingestStation)
	mux.HandleFunc("POST /ingest/station-health", h.ingestStationHealth)
	mux.HandleFunc("POST /ingest/grid-status", h.ingestGridStatus)
	mux.HandleFunc("POST /ingest/user-context", h.ingestUserContext)

	mux.HandleFunc("GET /recommend", h.getRecommend)
	mux.HandleFunc("POST /recommend", h.postRecommend)
	mux.HandleFunc("GET /recommend/{requestId}", h.getRecommendByID)
	mux.HandleFunc("POST /recommend/{requestId}/select", h.selectStation)
	mux.HandleFunc("POST /recommend/{requestId}/feedback", h.recordFeedback)

	mux.HandleFunc("GET /station/{id}/score", h.stationScore)
	mux.HandleFunc("GET /station/{id}/health", h.stationHealth)

	return Chain(mux,
		RequestID(),
		Recover(),
		Logging(),
		Metrics(),
		CORS(cfg.HTTP.CORS),
		RateLimit(deps.Limiter),
	)
}
