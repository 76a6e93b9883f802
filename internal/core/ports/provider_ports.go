package ports

import "context"

// TokenGrant is the result of a token-endpoint call. Athlete is only set on
// an authorization-code exchange; refreshes return the triple alone.
type TokenGrant struct {
	AccessToken     string
	RefreshToken    string
	TokenExpiration int64 // unix seconds
	Athlete         *Athlete
}

type Athlete struct {
	ID        int64
	FirstName string
	LastName  string
	Gender    string
}

// RawActivity is one provider activity record as returned by the listing
// endpoint. Dates stay strings; the provider is inconsistent about
// timezone suffixes and normalization deals with that.
type RawActivity struct {
	Name           string  `json:"name"`
	Distance       float64 `json:"distance"` // meters
	StartDate      string  `json:"start_date"`
	StartDateLocal string  `json:"start_date_local"`
}

type ProviderClient interface {
	ExchangeCode(ctx context.Context, code string) (*TokenGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error)
	// ListActivities returns all activities started after the given unix
	// timestamp. Single call, no pagination.
	ListActivities(ctx context.Context, accessToken string, after int64) ([]RawActivity, error)
}
