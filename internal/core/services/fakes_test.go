package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
)

type fakeCredentialRepo struct {
	creds  map[uuid.UUID]*domain.Credential
	events *[]string
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: map[uuid.UUID]*domain.Credential{}, events: &[]string{}}
}

func (r *fakeCredentialRepo) Get(_ context.Context, userID uuid.UUID) (*domain.Credential, error) {
	cred, ok := r.creds[userID]
	if !ok {
		return nil, nil
	}
	copied := *cred
	return &copied, nil
}

func (r *fakeCredentialRepo) Upsert(_ context.Context, cred *domain.Credential) error {
	existing, ok := r.creds[cred.UserID]
	if ok {
		cred.LastSyncTime = existing.LastSyncTime
	}
	copied := *cred
	r.creds[cred.UserID] = &copied
	return nil
}

func (r *fakeCredentialRepo) UpdateTokens(_ context.Context, userID uuid.UUID, accessToken, refreshToken string, expiration int64) error {
	cred, ok := r.creds[userID]
	if !ok {
		return domain.ErrNotLinked
	}
	cred.AccessToken = accessToken
	cred.RefreshToken = refreshToken
	cred.TokenExpiration = expiration
	*r.events = append(*r.events, "tokens-updated")
	return nil
}

func (r *fakeCredentialRepo) UpdateLastSync(_ context.Context, userID uuid.UUID, syncedAt int64) error {
	cred, ok := r.creds[userID]
	if !ok {
		return domain.ErrNotLinked
	}
	cred.LastSyncTime = syncedAt
	*r.events = append(*r.events, "last-sync-stamped")
	return nil
}

func (r *fakeCredentialRepo) ListLinkedUserIDs(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range r.creds {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeProfileRepo struct {
	profiles map[uuid.UUID]*domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[uuid.UUID]*domain.Profile{}}
}

func (r *fakeProfileRepo) Get(_ context.Context, userID uuid.UUID) (*domain.Profile, error) {
	profile, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

func (r *fakeProfileRepo) Upsert(_ context.Context, profile *domain.Profile) error {
	existing, ok := r.profiles[profile.UserID]
	if ok {
		profile.MileageGoal = existing.MileageGoal
		profile.LongRunGoal = existing.LongRunGoal
	}
	copied := *profile
	r.profiles[profile.UserID] = &copied
	return nil
}

func (r *fakeProfileRepo) UpdateGoals(_ context.Context, userID uuid.UUID, mileageGoal, longRunGoal float64) error {
	profile, ok := r.profiles[userID]
	if !ok {
		return domain.ErrNotLinked
	}
	profile.MileageGoal = mileageGoal
	profile.LongRunGoal = longRunGoal
	return nil
}

type fakeActivityRepo struct {
	saved  []domain.Activity
	failOn string // title that makes SaveIfNew error
}

func (r *fakeActivityRepo) dedupKey(a *domain.Activity) string {
	return fmt.Sprintf("%s|%s|%.2f|%s", a.UserID, a.Date, a.Distance, a.Title)
}

func (r *fakeActivityRepo) SaveIfNew(_ context.Context, activity *domain.Activity) (bool, error) {
	if r.failOn != "" && activity.Title == r.failOn {
		return false, fmt.Errorf("insert failed for %q", activity.Title)
	}
	key := r.dedupKey(activity)
	for i := range r.saved {
		if r.dedupKey(&r.saved[i]) == key {
			return false, nil
		}
	}
	r.saved = append(r.saved, *activity)
	return true, nil
}

func (r *fakeActivityRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Activity, error) {
	var out []domain.Activity
	for _, a := range r.saved {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) TotalDistanceSince(_ context.Context, userID uuid.UUID, date string) (float64, error) {
	var total float64
	for _, a := range r.saved {
		if a.UserID == userID && a.Date >= date {
			total += a.Distance
		}
	}
	return total, nil
}

func (r *fakeActivityRepo) LongestRunSince(_ context.Context, userID uuid.UUID, date string) (float64, error) {
	var longest float64
	for _, a := range r.saved {
		if a.UserID == userID && a.Date >= date && a.Distance > longest {
			longest = a.Distance
		}
	}
	return longest, nil
}

type fakeProvider struct {
	exchange func(code string) (*ports.TokenGrant, error)
	refresh  func(refreshToken string) (*ports.TokenGrant, error)
	list     func(accessToken string, after int64) ([]ports.RawActivity, error)

	listCalls    int
	lastAfter    int64
	refreshCalls int
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (*ports.TokenGrant, error) {
	if p.exchange == nil {
		return nil, domain.ErrExchangeFailed
	}
	return p.exchange(code)
}

func (p *fakeProvider) RefreshToken(_ context.Context, refreshToken string) (*ports.TokenGrant, error) {
	p.refreshCalls++
	if p.refresh == nil {
		return nil, domain.ErrRefreshFailed
	}
	return p.refresh(refreshToken)
}

func (p *fakeProvider) ListActivities(_ context.Context, accessToken string, after int64) ([]ports.RawActivity, error) {
	p.listCalls++
	p.lastAfter = after
	if p.list == nil {
		return nil, domain.ErrFetchFailed
	}
	return p.list(accessToken, after)
}

// inlineDispatcher runs jobs synchronously so tests can assert on the
// pipeline's effects without sleeping.
type inlineDispatcher struct {
	events *[]string
	reject bool
}

func (d *inlineDispatcher) Submit(_ string, fn func(ctx context.Context) error) bool {
	if d.reject {
		return false
	}
	if d.events != nil {
		*d.events = append(*d.events, "job-dispatched")
	}
	_ = fn(context.Background())
	return true
}
