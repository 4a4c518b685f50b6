package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"evchargenet/internal/database"
	"evchargenet/pkg/telemetry"
)

// RecommendationLog is a single recorded recommendation outcome: which
// stations were offered, which one (if any) the user ultimately
// selected, and any feedback collected afterward.
type RecommendationLog struct {
	RequestID         string
	UserID            string
	StationIDs        []string
	SelectedStationID string
	Feedback          string
	Metadata          map[string]any
}

// RecommendationLogRepository persists the audit trail of what was
// recommended and what the user did with it.
type RecommendationLogRepository struct {
	db database.DB
}

// NewRecommendationLogRepository creates a recommendation log
// repository over db.
func NewRecommendationLogRepository(db database.DB) *RecommendationLogRepository {
	return &RecommendationLogRepository{db: db}
}

// Create records the stations offered for a request. request_id is
// unique, so a request can only be logged once.
func (r *RecommendationLogRepository) Create(ctx context.Context, log RecommendationLog) error {
	ctx, span := telemetry.StartSpan(ctx, "RecommendationLogRepository.Create")
	defer span.End()

	metadata, err := json.Marshal(log.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation log metadata: %w", err)
	}

	query := `
		INSERT INTO recommendation_logs (request_id, user_id, station_ids, selected_station_id, feedback, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (request_id) DO NOTHING
	`
	_, err = r.db.Exec(ctx, query, log.RequestID, log.UserID, log.StationIDs,
		nullableString(log.SelectedStationID), nullableString(log.Feedback), metadata)
	if err != nil {
		return fmt.Errorf("failed to create recommendation log: %w", err)
	}
	return nil
}

// RecordSelection attaches the station the user actually chose to a
// previously logged recommendation.
func (r *RecommendationLogRepository) RecordSelection(ctx context.Context, requestID, stationID string) error {
	ctx, span := telemetry.StartSpan(ctx, "RecommendationLogRepository.RecordSelection")
	defer span.End()

	query := `UPDATE recommendation_logs SET selected_station_id = $2 WHERE request_id = $1`
	if _, err := r.db.Exec(ctx, query, requestID, stationID); err != nil {
		return fmt.Errorf("failed to record selection: %w", err)
	}
	return nil
}

// RecordFeedback attaches free-form user feedback to a previously
// logged recommendation.
func (r *RecommendationLogRepository) RecordFeedback(ctx context.Context, requestID, feedback string) error {
	ctx, span := telemetry.StartSpan(ctx, "RecommendationLogRepository.RecordFeedback")
	defer span.End()

	query := `UPDATE recommendation_logs SET feedback = $2 WHERE request_id = $1`
	if _, err := r.db.Exec(ctx, query, requestID, feedback); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
