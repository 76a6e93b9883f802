package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
)

type CredentialRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Credential, error)
	Upsert(ctx context.Context, cred *domain.Credential) error
	// UpdateTokens overwrites the token triple in a single statement so
	// concurrent readers see either the old or the new triple.
	UpdateTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiration int64) error
	UpdateLastSync(ctx context.Context, userID uuid.UUID, syncedAt int64) error
	ListLinkedUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

type ProfileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
	UpdateGoals(ctx context.Context, userID uuid.UUID, mileageGoal, longRunGoal float64) error
}

type TokenService interface {
	// AccessToken returns a currently valid access token for the user,
	// refreshing and persisting it first when stale.
	AccessToken(ctx context.Context, userID uuid.UUID) (string, error)
	// Link exchanges an authorization code and stores the resulting
	// credential and athlete profile. Relinking overwrites.
	Link(ctx context.Context, userID uuid.UUID, code string) error
}
