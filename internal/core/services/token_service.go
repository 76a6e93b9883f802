package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
	"go.uber.org/zap"
)

// tokenExpirySkew is subtracted from the stored expiry so a token that
// would expire mid-request is refreshed up front.
const tokenExpirySkew = 300 * time.Second

type tokenService struct {
	creds    ports.CredentialRepository
	profiles ports.ProfileRepository
	provider ports.ProviderClient
	logger   *zap.Logger
	now      func() time.Time
}

func NewTokenService(creds ports.CredentialRepository, profiles ports.ProfileRepository, provider ports.ProviderClient, logger *zap.Logger) ports.TokenService {
	return &tokenService{
		creds:    creds,
		profiles: profiles,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *tokenService) AccessToken(ctx context.Context, userID uuid.UUID) (string, error) {
	cred, err := s.creds.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return "", domain.ErrNotLinked
	}

	if !cred.TokenStale(s.now(), tokenExpirySkew) {
		return cred.AccessToken, nil
	}

	grant, err := s.provider.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	// The provider rotates the refresh token; the old one is dead as soon
	// as the refresh succeeds, so the new triple must be persisted before
	// the token is handed out.
	if err := s.creds.UpdateTokens(ctx, userID, grant.AccessToken, grant.RefreshToken, grant.TokenExpiration); err != nil {
		return "", fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	s.logger.Debug("access token refreshed",
		zap.String("user_id", userID.String()),
		zap.Int64("expires_at", grant.TokenExpiration))

	return grant.AccessToken, nil
}

func (s *tokenService) Link(ctx context.Context, userID uuid.UUID, code string) error {
	grant, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	// A code exchange always carries the athlete object; a grant without
	// one has no athlete id to store and is rejected rather than linked
	// half-way.
	if grant.Athlete == nil {
		return fmt.Errorf("%w: token response missing athlete", domain.ErrExchangeFailed)
	}

	cred := &domain.Credential{
		UserID:          userID,
		AthleteID:       grant.Athlete.ID,
		AccessToken:     grant.AccessToken,
		RefreshToken:    grant.RefreshToken,
		TokenExpiration: grant.TokenExpiration,
	}
	if err := s.creds.Upsert(ctx, cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	profile := &domain.Profile{
		UserID:    userID,
		FirstName: grant.Athlete.FirstName,
		LastName:  grant.Athlete.LastName,
		Gender:    grant.Athlete.Gender,
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("failed to store athlete profile: %w", err)
	}

	s.logger.Info("strava account linked",
		zap.String("user_id", userID.String()),
		zap.Int64("athlete_id", cred.AthleteID))

	return nil
}
