package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
)

const activityDateLayout = "2006-01-02"

type activityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) ports.ActivityRepository {
	return &activityRepository{
		db: db,
	}
}

func (r *activityRepository) SaveIfNew(ctx context.Context, activity *domain.Activity) (bool, error) {
	// The existence check keeps the common resync path cheap; the unique
	// index on (user_id, date, distance, title) is what actually prevents
	// duplicates under concurrent syncs.
	checkQuery := `
		SELECT 1 FROM activities
		WHERE user_id = $1 AND date = $2 AND distance = $3 AND title = $4
		LIMIT 1
	`
	var exists int
	err := r.db.QueryRowContext(ctx, checkQuery,
		activity.UserID, activity.Date, activity.Distance, activity.Title).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check existing activity: %w", err)
	}

	insertQuery := `
		INSERT INTO activities (id, user_id, date, distance, title)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, date, distance, title) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, insertQuery,
		activity.ID, activity.UserID, activity.Date, activity.Distance, activity.Title)
	if err != nil {
		return false, fmt.Errorf("failed to insert activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert activity: %w", err)
	}
	return affected > 0, nil
}

func (r *activityRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Activity, error) {
	query := `
		SELECT id, user_id, date, distance, title, created_at
		FROM activities
		WHERE user_id = $1
		ORDER BY date DESC, created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var date time.Time
		if err := rows.Scan(&a.ID, &a.UserID, &date, &a.Distance, &a.Title, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Date = date.Format(activityDateLayout)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func (r *activityRepository) TotalDistanceSince(ctx context.Context, userID uuid.UUID, date string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(distance), 0)
		FROM activities
		WHERE user_id = $1 AND date >= $2
	`
	var total float64
	if err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum distances: %w", err)
	}
	return total, nil
}

func (r *activityRepository) LongestRunSince(ctx context.Context, userID uuid.UUID, date string) (float64, error) {
	query := `
		SELECT COALESCE(MAX(distance), 0)
		FROM activities
		WHERE user_id = $1 AND date >= $2
	`
	var longest float64
	if err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&longest); err != nil {
		return 0, fmt.Errorf("failed to find longest run: %w", err)
	}
	return longest, nil
}
