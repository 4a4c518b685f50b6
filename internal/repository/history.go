package repository

import (
	"context"
	"fmt"

	"evchargenet/internal/database"
	"evchargenet/internal/domain"
	"evchargenet/pkg/telemetry"
)

// HistoryRepository persists a rolling sample of station telemetry for
// trend analysis and model training data.
type HistoryRepository struct {
	db database.DB
}

// NewHistoryRepository creates a history repository over db.
func NewHistoryRepository(db database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record appends one telemetry sample to the rolling history.
func (r *HistoryRepository) Record(ctx context.Context, t domain.StationTelemetry) error {
	ctx, span := telemetry.StartSpan(ctx, "HistoryRepository.Record")
	defer span.End()

	query := `
		INSERT INTO station_history (
			station_id, queue_length, avg_service_time, available_chargers,
			total_chargers, fault_rate, available_power, max_capacity, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, to_timestamp($9))
	`

	_, err := r.db.Exec(ctx, query,
		t.StationID, t.QueueLength, t.AvgServiceTime, t.AvailableChargers,
		t.TotalChargers, t.FaultRate, t.AvailablePower, t.MaxCapacity, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record station history: %w", err)
	}
	return nil
}

// RecentByStation returns the most recent `limit` samples for a
// station, most recent first.
func (r *HistoryRepository) RecentByStation(ctx context.Context, stationID string, limit int) ([]domain.StationTelemetry, error) {
	ctx, span := telemetry.StartSpan(ctx, "HistoryRepository.RecentByStation")
	defer span.End()

	query := `
		SELECT station_id, queue_length, avg_service_time, available_chargers,
			total_chargers, fault_rate, available_power, max_capacity, extract(epoch from recorded_at)
		FROM station_history
		WHERE station_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query station history: %w", err)
	}
	defer rows.Close()

	var out []domain.StationTelemetry
	for rows.Next() {
		var t domain.StationTelemetry
		if err := rows.Scan(
			&t.StationID, &t.QueueLength, &t.AvgServiceTime, &t.AvailableChargers,
			&t.TotalChargers, &t.FaultRate, &t.AvailablePower, &t.MaxCapacity, &t.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan station history row: %w", err)
		}
		out = append(out, t)
	}

	return out, rows.Err()
}
