package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
)

type ActivityRepository interface {
	// SaveIfNew inserts the activity unless a row with the same
	// (user, date, distance, title) already exists. Reports whether a row
	// was inserted. The unique index on the tuple is the authoritative
	// guard under concurrent syncs.
	SaveIfNew(ctx context.Context, activity *domain.Activity) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Activity, error)
	TotalDistanceSince(ctx context.Context, userID uuid.UUID, date string) (float64, error)
	LongestRunSince(ctx context.Context, userID uuid.UUID, date string) (float64, error)
}

type SyncService interface {
	// MaybeSync dispatches a background sync when one is due. It never
	// blocks on provider or storage calls beyond the due-check and the
	// last-sync stamp, and never returns an error to the caller.
	MaybeSync(ctx context.Context, userID uuid.UUID)
	// SyncNow runs a full sync pass inline, regardless of the interval.
	SyncNow(ctx context.Context, userID uuid.UUID) error
}

type UpdateGoalsInput struct {
	MileageGoal float64 `json:"mileage_goal"`
	LongRunGoal float64 `json:"long_run_goal"`
}

type ActivityService interface {
	ListActivities(ctx context.Context, userID uuid.UUID) ([]domain.Activity, error)
	Summary(ctx context.Context, userID uuid.UUID) (*domain.Summary, error)
	UpdateGoals(ctx context.Context, userID uuid.UUID, input UpdateGoalsInput) error
}
