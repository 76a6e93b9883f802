package domain

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one imported workout, reduced to the fields the dashboard
// shows. Distance is in miles, Date is the calendar day the activity
// started ("2006-01-02"). The (user, date, distance, title) tuple is the
// dedup key; rows are never mutated after insert.
type Activity struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Date      string    `json:"date"`
	Distance  float64   `json:"distance"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the aggregated view served to the dashboard.
type Summary struct {
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Gender        string  `json:"gender"`
	MileageGoal   float64 `json:"mileage_goal"`
	LongRunGoal   float64 `json:"long_run_goal"`
	WeeklyMileage float64 `json:"weekly_mileage"`
	LongestRun    float64 `json:"longest_run"`
}
