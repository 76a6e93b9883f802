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

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) ports.CredentialRepository {
	return &credentialRepository{
		db: db,
	}
}

func (r *credentialRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Credential, error) {
	query := `
		SELECT user_id, athlete_id, access_token, refresh_token, token_expiration, last_sync_time, created_at, updated_at
		FROM credentials
		WHERE user_id = $1
	`
	cred := &domain.Credential{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cred.UserID,
		&cred.AthleteID,
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.TokenExpiration,
		&cred.LastSyncTime,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return cred, nil
}

func (r *credentialRepository) Upsert(ctx context.Context, cred *domain.Credential) error {
	// Relinking replaces the token triple but keeps the sync bookkeeping
	// so a reauthorization does not re-import a month of activities.
	query := `
		INSERT INTO credentials (user_id, athlete_id, access_token, refresh_token, token_expiration)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			athlete_id = EXCLUDED.athlete_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiration = EXCLUDED.token_expiration,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		cred.UserID, cred.AthleteID, cred.AccessToken, cred.RefreshToken, cred.TokenExpiration)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

func (r *credentialRepository) UpdateTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiration int64) error {
	query := `
		UPDATE credentials
		SET access_token = $2, refresh_token = $3, token_expiration = $4, updated_at = NOW()
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, accessToken, refreshToken, expiration)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotLinked
	}
	return nil
}

func (r *credentialRepository) UpdateLastSync(ctx context.Context, userID uuid.UUID, syncedAt int64) error {
	query := `UPDATE credentials SET last_sync_time = $2, updated_at = NOW() WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID, syncedAt)
	if err != nil {
		return fmt.Errorf("failed to update last sync time: %w", err)
	}
	return nil
}

func (r *credentialRepository) ListLinkedUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM credentials ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list linked users: %w", err)
	}
	return ids, nil
}
