package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/ports"
	"go.uber.org/zap"
)

const (
	// syncInterval is the minimum gap between two sync passes for a user.
	syncInterval = 900 * time.Second
	// neverSyncedLookback is the activity window used the first time a
	// linked user syncs.
	neverSyncedLookback = 28 * 24 * time.Hour
)

// Dispatcher runs a unit of work in the background, detached from the
// request that triggered it.
type Dispatcher interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

type syncService struct {
	creds      ports.CredentialRepository
	activities ports.ActivityRepository
	tokens     ports.TokenService
	provider   ports.ProviderClient
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func NewSyncService(creds ports.CredentialRepository, activities ports.ActivityRepository, tokens ports.TokenService, provider ports.ProviderClient, dispatcher Dispatcher, logger *zap.Logger) ports.SyncService {
	return &syncService{
		creds:      creds,
		activities: activities,
		tokens:     tokens,
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// MaybeSync checks whether a sync is due and, if so, stamps the last-sync
// time and hands the fetch pipeline to the dispatcher. The stamp happens
// before the pipeline runs so rapid repeated triggers collapse into one
// pass; a pipeline failure does not roll it back, the next interval
// retries.
func (s *syncService) MaybeSync(ctx context.Context, userID uuid.UUID) {
	cred, err := s.creds.Get(ctx, userID)
	if err != nil {
		s.logger.Error("sync due-check failed",
			zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	if cred == nil {
		return
	}

	now := s.now()
	after, due := syncWindow(cred.LastSyncTime, now)
	if !due {
		return
	}

	if err := s.creds.UpdateLastSync(ctx, userID, now.Unix()); err != nil {
		s.logger.Error("failed to stamp last sync time",
			zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	submitted := s.dispatcher.Submit("activity-sync", func(jobCtx context.Context) error {
		return s.run(jobCtx, userID, after)
	})
	if !submitted {
		s.logger.Warn("sync dispatch rejected, queue full",
			zap.String("user_id", userID.String()))
	}
}

// SyncNow runs a full pass inline regardless of the interval. Used by the
// cron-style sync command.
func (s *syncService) SyncNow(ctx context.Context, userID uuid.UUID) error {
	cred, err := s.creds.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return nil
	}

	now := s.now()
	after := cred.LastSyncTime
	if after == 0 {
		after = now.Add(-neverSyncedLookback).Unix()
	}

	if err := s.creds.UpdateLastSync(ctx, userID, now.Unix()); err != nil {
		return fmt.Errorf("failed to stamp last sync time: %w", err)
	}

	return s.run(ctx, userID, after)
}

// syncWindow decides whether a sync is due and from which unix timestamp
// activities should be requested.
func syncWindow(lastSync int64, now time.Time) (after int64, due bool) {
	if lastSync == 0 {
		return now.Add(-neverSyncedLookback).Unix(), true
	}
	if now.Unix()-lastSync > int64(syncInterval.Seconds()) {
		return lastSync, true
	}
	return 0, false
}

// run is the fetch → normalize → persist pipeline. Persistence is
// best-effort per record; one failed insert does not abort the rest.
func (s *syncService) run(ctx context.Context, userID uuid.UUID, after int64) error {
	token, err := s.tokens.AccessToken(ctx, userID)
	if err != nil {
		s.logger.Error("sync abandoned, no valid access token",
			zap.String("user_id", userID.String()), zap.Error(err))
		return err
	}

	raws, err := s.provider.ListActivities(ctx, token, after)
	if err != nil {
		s.logger.Error("sync abandoned, activity fetch failed",
			zap.String("user_id", userID.String()), zap.Error(err))
		return err
	}

	inserted, skipped, failed := 0, 0, 0
	for _, raw := range raws {
		activity := NormalizeActivity(raw, s.now())
		activity.ID = uuid.New()
		activity.UserID = userID

		ok, err := s.activities.SaveIfNew(ctx, &activity)
		if err != nil {
			failed++
			s.logger.Error("failed to persist activity",
				zap.String("user_id", userID.String()),
				zap.String("date", activity.Date), zap.Error(err))
			continue
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
	}

	s.logger.Info("activity sync completed",
		zap.String("user_id", userID.String()),
		zap.Int64("after", after),
		zap.Int("fetched", len(raws)),
		zap.Int("inserted", inserted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("%d of %d activities failed to persist", failed, len(raws))
	}
	return nil
}
