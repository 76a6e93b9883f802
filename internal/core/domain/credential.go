package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential holds the strava OAuth tokens for a linked user. A row exists
// only for linked users; the token triple is always present together.
type Credential struct {
	UserID          uuid.UUID `json:"user_id"`
	AthleteID       int64     `json:"athlete_id"`
	AccessToken     string    `json:"-"`
	RefreshToken    string    `json:"-"`
	TokenExpiration int64     `json:"token_expiration"` // unix seconds
	LastSyncTime    int64     `json:"last_sync_time"`   // unix seconds, 0 = never synced
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TokenStale reports whether the access token is expired or expires within
// the skew margin and must be refreshed before use.
func (c *Credential) TokenStale(now time.Time, skew time.Duration) bool {
	if c.TokenExpiration == 0 {
		return true
	}
	return now.Unix() >= c.TokenExpiration-int64(skew.Seconds())
}

// Profile holds the athlete profile imported on linking, plus the goals the
// user edits from the dashboard.
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Gender      string    `json:"gender"`
	MileageGoal float64   `json:"mileage_goal"`
	LongRunGoal float64   `json:"long_run_goal"`
}
