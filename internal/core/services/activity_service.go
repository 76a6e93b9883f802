package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
)

// weeklyWindow is the range the dashboard aggregates over.
const weeklyWindow = 7 * 24 * time.Hour

type activityService struct {
	activities ports.ActivityRepository
	profiles   ports.ProfileRepository
	now        func() time.Time
}

func NewActivityService(activities ports.ActivityRepository, profiles ports.ProfileRepository) ports.ActivityService {
	return &activityService{
		activities: activities,
		profiles:   profiles,
		now:        time.Now,
	}
}

func (s *activityService) ListActivities(ctx context.Context, userID uuid.UUID) ([]domain.Activity, error) {
	activities, err := s.activities.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func (s *activityService) Summary(ctx context.Context, userID uuid.UUID) (*domain.Summary, error) {
	summary := &domain.Summary{}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile != nil {
		summary.FirstName = profile.FirstName
		summary.LastName = profile.LastName
		summary.Gender = profile.Gender
		summary.MileageGoal = profile.MileageGoal
		summary.LongRunGoal = profile.LongRunGoal
	}

	since := s.now().Add(-weeklyWindow).Format(dateLayout)

	total, err := s.activities.TotalDistanceSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate weekly mileage: %w", err)
	}
	summary.WeeklyMileage = total

	longest, err := s.activities.LongestRunSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to find longest run: %w", err)
	}
	summary.LongestRun = longest

	return summary, nil
}

func (s *activityService) UpdateGoals(ctx context.Context, userID uuid.UUID, input ports.UpdateGoalsInput) error {
	if input.MileageGoal < 0 || input.LongRunGoal < 0 {
		return domain.ErrInvalidGoal
	}
	if err := s.profiles.UpdateGoals(ctx, userID, input.MileageGoal, input.LongRunGoal); err != nil {
		return fmt.Errorf("failed to update goals: %w", err)
	}
	return nil
}
