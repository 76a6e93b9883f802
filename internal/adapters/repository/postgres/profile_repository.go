package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
)

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ports.ProfileRepository {
	return &profileRepository{
		db: db,
	}
}

func (r *profileRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	query := `
		SELECT user_id, first_name, last_name, gender, mileage_goal, long_run_goal
		FROM athlete_profiles
		WHERE user_id = $1
	`
	profile := &domain.Profile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.FirstName,
		&profile.LastName,
		&profile.Gender,
		&profile.MileageGoal,
		&profile.LongRunGoal,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	// Goals are user-edited and survive relinking; only the imported
	// profile fields are overwritten.
	query := `
		INSERT INTO athlete_profiles (user_id, first_name, last_name, gender)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			gender = EXCLUDED.gender
	`
	_, err := r.db.ExecContext(ctx, query,
		profile.UserID, profile.FirstName, profile.LastName, profile.Gender)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *profileRepository) UpdateGoals(ctx context.Context, userID uuid.UUID, mileageGoal, longRunGoal float64) error {
	query := `
		UPDATE athlete_profiles
		SET mileage_goal = $2, long_run_goal = $3
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, mileageGoal, longRunGoal)
	if err != nil {
		return fmt.Errorf("failed to update goals: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update goals: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotLinked
	}
	return nil
}
