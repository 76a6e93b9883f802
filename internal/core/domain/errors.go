package domain

import "errors"

var (
	ErrNotLinked         = errors.New("account is not linked to strava")
	ErrExchangeFailed    = errors.New("authorization code exchange failed")
	ErrRefreshFailed     = errors.New("token refresh failed")
	ErrFetchFailed       = errors.New("activity fetch failed")
	ErrInsufficientScope = errors.New("token is missing the activity:read scope")
	ErrInvalidGoal       = errors.New("goal must be a non-negative number")
)
