package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"evchargenet/internal/domain"
	"evchargenet/pkg/apperror"
)

type handlers struct {
	deps Deps
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ready != nil && !h.deps.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// --- Ingestion Handler routes ---

func (h *handlers) ingestStation(w http.ResponseWriter, r *http.Request) {
	var t domain.StationTelemetry
	if !decodeBody(w, r, &t) {
		return
	}
	if err := h.deps.Ingest.IngestTelemetry(r.Context(), t); err != nil {
		writeErr(w, err)
		return
	}
	writeAccepted(w, map[string]string{"stationId": t.StationID})
}

func (h *handlers) ingestStationHealth(w http.ResponseWriter, r *http.Request) {
	var hlth domain.StationHealth
	if !decodeBody(w, r, &hlth) {
		return
	}
	if err := h.deps.Ingest.IngestHealth(r.Context(), hlth); err != nil {
		writeErr(w, err)
		return
	}
	writeAccepted(w, map[string]string{"stationId": hlth.StationID})
}

func (h *handlers) ingestGridStatus(w http.ResponseWriter, r *http.Request) {
	var g domain.GridStatus
	if !decodeBody(w, r, &g) {
		return
	}
	if err := h.deps.Ingest.IngestGridStatus(r.Context(), g); err != nil {
		writeErr(w, err)
		return
	}
	writeAccepted(w, map[string]string{"gridId": g.GridID})
}

func (h *handlers) ingestUserContext(w http.ResponseWriter, r *http.Request) {
	var u domain.UserContext
	if !decodeBody(w, r, &u) {
		return
	}
	if err := h.deps.Ingest.IngestUserContext(r.Context(), u); err != nil {
		writeErr(w, err)
		return
	}
	writeAccepted(w, map[string]string{"userId": u.UserID})
}

// --- Recommendation Handler routes ---

func (h *handlers) getRecommend(w http.ResponseWriter, r *http.Request) {
	req, err := parseRecommendQuery(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.runRecommend(w, r, req)
}

func (h *handlers) postRecommend(w http.ResponseWriter, r *http.Request) {
	var req domain.RecommendationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.runRecommend(w, r, req)
}

func (h *handlers) runRecommend(w http.ResponseWriter, r *http.Request, req domain.RecommendationRequest) {
	start := time.Now()

	resp, err := h.deps.Recommend.Recommend(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeData(w, http.StatusOK, resp, map[string]any{
		"processingTime": time.Since(start).Milliseconds(),
	})
}

func (h *handlers) getRecommendByID(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("requestId")

	raw, err := h.deps.Store.Get(r.Context(), h.deps.Store.RecommendationKey(requestID))
	if err != nil {
		writeError(w, http.StatusNotFound, string(apperror.CodeNotFound), "recommendation not found or expired")
		return
	}

	var resp domain.RecommendationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		writeErr(w, apperror.Wrap(err, apperror.CodeInternal, "failed to decode cached recommendation"))
		return
	}

	writeData(w, http.StatusOK, resp, nil)
}

func (h *handlers) selectStation(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("requestId")

	var body struct {
		StationID string `json:"stationId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.StationID == "" {
		writeError(w, http.StatusBadRequest, string(apperror.CodeMissingField), "stationId is required")
		return
	}

	if err := h.deps.RecLogs.RecordSelection(r.Context(), requestID, body.StationID); err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"requestId": requestID, "stationId": body.StationID}, nil)
}

func (h *handlers) recordFeedback(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("requestId")

	var body struct {
		Rating int `json:"rating"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Rating < 1 || body.Rating > 5 {
		writeError(w, http.StatusBadRequest, string(apperror.CodeInvalidField), "rating must be in [1,5]")
		return
	}

	if err := h.deps.RecLogs.RecordFeedback(r.Context(), requestID, strconv.Itoa(body.Rating)); err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"requestId": requestID, "rating": body.Rating}, nil)
}

// --- Station lookup routes ---

func (h *handlers) stationScore(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("id")

	raw, err := h.deps.Store.Get(r.Context(), h.deps.Store.StationScoreKey(stationID))
	if err != nil {
		writeError(w, http.StatusNotFound, string(apperror.CodeNotFound), "score not found for station")
		return
	}

	var score domain.StationScore
	if err := json.Unmarshal(raw, &score); err != nil {
		writeErr(w, apperror.Wrap(err, apperror.CodeInternal, "failed to decode cached score"))
		return
	}
	writeData(w, http.StatusOK, score, nil)
}

func (h *handlers) stationHealth(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("id")

	raw, err := h.deps.Store.Get(r.Context(), h.deps.Store.StationHealthKey(stationID))
	if err != nil {
		writeError(w, http.StatusNotFound, string(apperror.CodeNotFound), "health not found for station")
		return
	}

	var health domain.StationHealth
	if err := json.Unmarshal(raw, &health); err != nil {
		writeErr(w, apperror.Wrap(err, apperror.CodeInternal, "failed to decode cached health"))
		return
	}
	writeData(w, http.StatusOK, health, nil)
}

// decodeBody parses the request body as JSON into dst, writing a 400
// response and returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, string(apperror.CodeInvalidInput), "malformed request body: "+err.Error())
		return false
	}
	return true
}
