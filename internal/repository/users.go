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

// UserRepository persists the ambient user-context profile mirrored
// out of band from recommendation requests (trip plan, vehicle type,
// charger preference).
type UserRepository struct {
	db database.DB
}

// NewUserRepository creates a user repository over db.
func NewUserRepository(db database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts or refreshes a user's profile context.
func (r *UserRepository) Upsert(ctx context.Context, u domain.UserContext) error {
	ctx, span := telemetry.StartSpan(ctx, "UserRepository.Upsert")
	defer span.End()

	query := `
		INSERT INTO users (user_id, vehicle_type, preferred_charger_type, updated_at)
		VALUES ($1, $2, $3, to_timestamp($4))
		ON CONFLICT (user_id) DO UPDATE SET
			vehicle_type = EXCLUDED.vehicle_type,
			preferred_charger_type = EXCLUDED.preferred_charger_type,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query, u.UserID, u.VehicleType, u.PreferredCharger, u.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID fetches a user's profile context.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (domain.UserContext, error) {
	ctx, span := telemetry.StartSpan(ctx, "UserRepository.GetByID")
	defer span.End()

	query := `
		SELECT user_id, vehicle_type, preferred_charger_type, extract(epoch from updated_at)
		FROM users
		WHERE user_id = $1
	`

	var u domain.UserContext
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&u.UserID, &u.VehicleType, &u.PreferredCharger, &u.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserContext{}, apperror.New(apperror.CodeNotFound, "user not found")
		}
		return domain.UserContext{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
