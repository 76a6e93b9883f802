package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) AccessToken(context.Context, uuid.UUID) (string, error) {
	return s.token, s.err
}

func (s *staticTokens) Link(context.Context, uuid.UUID, string) error {
	return nil
}

func newSyncServiceForTest(creds *fakeCredentialRepo, activities *fakeActivityRepo, provider *fakeProvider, dispatcher Dispatcher, now time.Time) *syncService {
	return &syncService{
		creds:      creds,
		activities: activities,
		tokens:     &staticTokens{token: "token"},
		provider:   provider,
		dispatcher: dispatcher,
		logger:     zap.NewNop(),
		now:        func() time.Time { return now },
	}
}

func TestSyncWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("never synced uses 28 day lookback", func(t *testing.T) {
		after, due := syncWindow(0, now)
		require.True(t, due)
		assert.Equal(t, now.Add(-28*24*time.Hour).Unix(), after)
	})

	t.Run("due after interval, window starts at last sync", func(t *testing.T) {
		last := now.Add(-901 * time.Second).Unix()
		after, due := syncWindow(last, now)
		require.True(t, due)
		assert.Equal(t, last, after)
	})

	t.Run("not due within interval", func(t *testing.T) {
		_, due := syncWindow(now.Add(-899*time.Second).Unix(), now)
		assert.False(t, due)

		// Exactly at the interval is still not due; strictly greater wins.
		_, due = syncWindow(now.Add(-900*time.Second).Unix(), now)
		assert.False(t, due)
	})
}

func TestMaybeSyncUnlinkedUserIsNoop(t *testing.T) {
	events := []string{}
	creds := newFakeCredentialRepo()
	creds.events = &events
	dispatcher := &inlineDispatcher{events: &events}
	svc := newSyncServiceForTest(creds, &fakeActivityRepo{}, &fakeProvider{}, dispatcher, time.Now())

	svc.MaybeSync(context.Background(), uuid.New())
	assert.Empty(t, events)
}

func TestMaybeSyncNotDueIsNoop(t *testing.T) {
	now := time.Now()
	userID := uuid.New()
	events := []string{}

	creds := newFakeCredentialRepo()
	creds.events = &events
	creds.creds[userID] = &domain.Credential{
		UserID:          userID,
		AccessToken:     "token",
		RefreshToken:    "refresh",
		TokenExpiration: now.Add(time.Hour).Unix(),
		LastSyncTime:    now.Add(-5 * time.Minute).Unix(),
	}
	provider := &fakeProvider{}
	svc := newSyncServiceForTest(creds, &fakeActivityRepo{}, provider, &inlineDispatcher{events: &events}, now)

	svc.MaybeSync(context.Background(), userID)

	assert.Empty(t, events)
	assert.Zero(t, provider.listCalls)
}

func TestMaybeSyncStampsBeforeDispatch(t *testing.T) {
	now := time.Now()
	userID := uuid.New()
	events := []string{}

	creds := newFakeCredentialRepo()
	creds.events = &events
	creds.creds[userID] = &domain.Credential{
		UserID:          userID,
		AccessToken:     "token",
		RefreshToken:    "refresh",
		TokenExpiration: now.Add(time.Hour).Unix(),
	}
	provider := &fakeProvider{
		list: func(string, int64) ([]ports.RawActivity, error) { return nil, nil },
	}
	svc := newSyncServiceForTest(creds, &fakeActivityRepo{}, provider, &inlineDispatcher{events: &events}, now)

	svc.MaybeSync(context.Background(), userID)

	// The stamp lands before the pipeline runs so a second trigger in
	// quick succession sees the interval as not elapsed.
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, "last-sync-stamped", events[0])
	assert.Equal(t, "job-dispatched", events[1])
	assert.Equal(t, now.Unix(), creds.creds[userID].LastSyncTime)
}

func TestSyncPipelineDeduplicates(t *testing.T) {
	now := time.Now()
	userID := uuid.New()

	creds := newFakeCredentialRepo()
	creds.creds[userID] = &domain.Credential{
		UserID:          userID,
		AccessToken:     "token",
		RefreshToken:    "refresh",
		TokenExpiration: now.Add(time.Hour).Unix(),
	}

	activities := &fakeActivityRepo{}
	// Pre-existing row that one fetched activity duplicates.
	activities.saved = append(activities.saved, domain.Activity{
		UserID: userID, Date: "2024-01-15", Distance: 3.11, Title: "Morning Run",
	})

	provider := &fakeProvider{
		list: func(string, int64) ([]ports.RawActivity, error) {
			return []ports.RawActivity{
				{Name: "Morning Run", Distance: 5000, StartDateLocal: "2024-01-15T07:00:00Z"},
				{Name: "Tempo", Distance: 8000, StartDateLocal: "2024-01-16T07:00:00Z"},
				{Name: "Long Run", Distance: 16093.4, StartDateLocal: "2024-01-20T08:00:00Z"},
			}, nil
		},
	}
	svc := newSyncServiceForTest(creds, activities, provider, &inlineDispatcher{}, now)

	svc.MaybeSync(context.Background(), userID)

	// 3 fetched, 1 duplicate: exactly 2 new rows.
	assert.Len(t, activities.saved, 3)
	assert.Equal(t, now.Unix(), creds.creds[userID].LastSyncTime)
	assert.Equal(t, now.Add(-28*24*time.Hour).Unix(), provider.lastAfter)
}

func TestSyncPipelineBestEffortPersistence(t *testing.T) {
	now := time.Now()
	userID := uuid.New()

	creds := newFakeCredentialRepo()
	creds.creds[userID] = &domain.Credential{
		UserID:          userID,
		AccessToken:     "token",
		RefreshToken:    "refresh",
		TokenExpiration: now.Add(time.Hour).Unix(),
	}
	activities := &fakeActivityRepo{failOn: "Cursed"}
	provider := &fakeProvider{
		list: func(string, int64) ([]ports.RawActivity, error) {
			return []ports.RawActivity{
				{Name: "Cursed", Distance: 1000, StartDateLocal: "2024-01-15T07:00:00Z"},
				{Name: "Fine", Distance: 2000, StartDateLocal: "2024-01-16T07:00:00Z"},
			}, nil
		},
	}
	svc := newSyncServiceForTest(creds, activities, provider, &inlineDispatcher{}, now)

	err := svc.run(context.Background(), userID, 0)
	require.Error(t, err)

	// The failed insert must not abort the remaining records.
	require.Len(t, activities.saved, 1)
	assert.Equal(t, "Fine", activities.saved[0].Title)
}

func TestSyncAbandonedWhenRefreshFails(t *testing.T) {
	now := time.Now()
	userID := uuid.New()

	creds := newFakeCredentialRepo()
	creds.creds[userID] = &domain.Credential{
		UserID:          userID,
		AccessToken:     "token",
		RefreshToken:    "revoked",
		TokenExpiration: now.Add(-time.Hour).Unix(),
	}
	provider := &fakeProvider{}
	svc := newSyncServiceForTest(creds, &fakeActivityRepo{}, provider, &inlineDispatcher{}, now)
	svc.tokens = &staticTokens{err: domain.ErrRefreshFailed}

	svc.MaybeSync(context.Background(), userID)

	// Sync abandoned for this pass; the stamp still moved, so the next
	// interval governs the retry.
	assert.Zero(t, provider.listCalls)
	assert.Equal(t, now.Unix(), creds.creds[userID].LastSyncTime)
}

func TestSyncNowForcesWindow(t *testing.T) {
	now := time.Now()
	userID := uuid.New()
	last := now.Add(-2 * time.Minute).Unix()

	creds := newFakeCredentialRepo()
	creds.creds[userID] = &domain.Credential{
		UserID:          userID,
		AccessToken:     "token",
		RefreshToken:    "refresh",
		TokenExpiration: now.Add(time.Hour).Unix(),
		LastSyncTime:    last,
	}
	provider := &fakeProvider{
		list: func(string, int64) ([]ports.RawActivity, error) { return nil, nil },
	}
	svc := newSyncServiceForTest(creds, &fakeActivityRepo{}, provider, &inlineDispatcher{}, now)

	require.NoError(t, svc.SyncNow(context.Background(), userID))

	// Runs even though the interval has not elapsed.
	assert.Equal(t, 1, provider.listCalls)
	assert.Equal(t, last, provider.lastAfter)
}
