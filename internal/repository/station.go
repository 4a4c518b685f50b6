// Package repository implements the Durable Repository's persistence
// surface: station master data, history, users, and request/recommendation
// logs, all backed by Postgres. System events are recorded by
// internal/events.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"evchargenet/internal/database"
	"evchargenet/internal/domain"
	"evchargenet/pkg/apperror"
	"evchargenet/pkg/telemetry"
)

// StationRepository persists station master data.
type StationRepository struct {
	db database.DB
}

// NewStationRepository creates a station repository over db.
func NewStationRepository(db database.DB) *StationRepository {
	return &StationRepository{db: db}
}

// Upsert inserts or updates a station's master-data record.
func (r *StationRepository) Upsert(ctx context.Context, s domain.Station) error {
	ctx, span := telemetry.StartSpan(ctx, "StationRepository.Upsert")
	defer span.End()

	query := `
		INSERT INTO stations (station_id, name, lat, lng, region, grid_id, total_chargers, charger_type, health_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (station_id) DO UPDATE SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			region = EXCLUDED.region,
			grid_id = EXCLUDED.grid_id,
			total_chargers = EXCLUDED.total_chargers,
			charger_type = EXCLUDED.charger_type,
			health_status = EXCLUDED.health_status
	`

	_, err := r.db.Exec(ctx, query,
		s.StationID, s.Name, s.Location.Lat, s.Location.Lng,
		s.Region, s.GridID, s.TotalChargers, string(s.ChargerType), string(s.Health.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert station: %w", err)
	}
	return nil
}

// GetByID fetches a single station by id.
func (r *StationRepository) GetByID(ctx context.Context, stationID string) (domain.Station, error) {
	ctx, span := telemetry.StartSpan(ctx, "StationRepository.GetByID")
	defer span.End()

	query := `
		SELECT station_id, name, lat, lng, region, grid_id, total_chargers, charger_type, health_status
		FROM stations
		WHERE station_id = $1
	`

	var s domain.Station
	var chargerType, healthStatus string
	err := r.db.QueryRow(ctx, query, stationID).Scan(
		&s.StationID, &s.Name, &s.Location.Lat, &s.Location.Lng,
		&s.Region, &s.GridID, &s.TotalChargers, &chargerType, &healthStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Station{}, apperror.ErrStationNotFound
		}
		return domain.Station{}, fmt.Errorf("failed to get station: %w", err)
	}
	s.ChargerType = domain.ChargerPreference(chargerType)
	s.Health.Status = domain.HealthStatus(healthStatus)

	return s, nil
}

// FindAll returns every registered station, used as the Optimizer's
// cold-start fallback when the SSS ranking set is empty.
func (r *StationRepository) FindAll(ctx context.Context) ([]domain.Station, error) {
	ctx, span := telemetry.StartSpan(ctx, "StationRepository.FindAll")
	defer span.End()

	query := `
		SELECT station_id, name, lat, lng, region, grid_id, total_chargers, charger_type, health_status
		FROM stations
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var s domain.Station
		var chargerType, healthStatus string
		if err := rows.Scan(
			&s.StationID, &s.Name, &s.Location.Lat, &s.Location.Lng,
			&s.Region, &s.GridID, &s.TotalChargers, &chargerType, &healthStatus,
		); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		s.ChargerType = domain.ChargerPreference(chargerType)
		s.Health.Status = domain.HealthStatus(healthStatus)
		stations = append(stations, s)
	}

	return stations, rows.Err()
}

// UpdateHealth updates a station's health snapshot in place.
func (r *StationRepository) UpdateHealth(ctx context.Context, stationID string, health domain.StationHealth) error {
	ctx, span := telemetry.StartSpan(ctx, "StationRepository.UpdateHealth")
	defer span.End()

	query := `UPDATE stations SET health_status = $2 WHERE station_id = $1`
	result, err := r.db.Exec(ctx, query, stationID, string(health.Status))
	if err != nil {
		return fmt.Errorf("failed to update station health: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.ErrStationNotFound
	}
	return nil
}
