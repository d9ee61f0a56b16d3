package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/socialpulse/syncd/internal/limiter"
	"github.com/socialpulse/syncd/internal/model"
)

type fakeTenantRepo struct {
	tenants map[uuid.UUID]*model.Tenant
	listIDs []uuid.UUID
	listErr error
	getErr  error
}

func (f *fakeTenantRepo) Get(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if t, ok := f.tenants[id]; ok {
		return t, nil
	}
	return &model.Tenant{ID: id, Active: true}, nil
}

func (f *fakeTenantRepo) ListActiveNonDemo(context.Context) ([]uuid.UUID, error) {
	return f.listIDs, f.listErr
}

type fakeAccountRepo struct {
	mu sync.Mutex

	nearExpiry    []model.SocialAccount
	nearExpiryErr error
	forTenant     map[uuid.UUID][]model.SocialAccount
	forTenantErrs map[uuid.UUID]error

	upserted     []*model.SocialAccount
	upsertErr    error
	storedID     uuid.UUID // non-zero: identity key already exists under this id
	tokenUpdates []tokenUpdate
	statusSets   map[uuid.UUID]model.AuthStatus
	touched      []uuid.UUID
}

type tokenUpdate struct {
	accountID  uuid.UUID
	accessEnc  string
	refreshEnc string
	expiresAt  time.Time
}

func (f *fakeAccountRepo) Get(context.Context, uuid.UUID, model.Platform, string) (*model.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) Upsert(_ context.Context, acc *model.SocialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.storedID != uuid.Nil {
		acc.ID = f.storedID
	}
	f.upserted = append(f.upserted, acc)
	return nil
}

func (f *fakeAccountRepo) UpdateTokens(_ context.Context, accountID uuid.UUID, accessEnc, refreshEnc string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenUpdates = append(f.tokenUpdates, tokenUpdate{accountID, accessEnc, refreshEnc, expiresAt})
	return nil
}

func (f *fakeAccountRepo) SetStatus(_ context.Context, accountID uuid.UUID, status model.AuthStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusSets == nil {
		f.statusSets = make(map[uuid.UUID]model.AuthStatus)
	}
	f.statusSets[accountID] = status
	return nil
}

func (f *fakeAccountRepo) TouchSynced(_ context.Context, accountID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, accountID)
	return nil
}

func (f *fakeAccountRepo) ListNearingExpiry(context.Context, time.Duration) ([]model.SocialAccount, error) {
	return f.nearExpiry, f.nearExpiryErr
}

func (f *fakeAccountRepo) ListForTenant(_ context.Context, tenantID uuid.UUID, platform model.Platform) ([]model.SocialAccount, error) {
	if err := f.forTenantErrs[tenantID]; err != nil {
		return nil, err
	}
	accs := f.forTenant[tenantID]
	if platform == "" {
		return accs, nil
	}
	var out []model.SocialAccount
	for _, a := range accs {
		if a.Platform == platform {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeMetricsRepo struct {
	mu sync.Mutex

	metricWrites []uuid.UUID
	postWrites   []uuid.UUID
	metricsErr   error
	postsErr     error
}

func (f *fakeMetricsRepo) UpsertDailyMetrics(_ context.Context, tenantID uuid.UUID, _ model.Platform, _ []model.DailyMetricRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metricsErr != nil {
		return f.metricsErr
	}
	f.metricWrites = append(f.metricWrites, tenantID)
	return nil
}

func (f *fakeMetricsRepo) UpsertPosts(_ context.Context, tenantID uuid.UUID, _ model.Platform, _ []model.PostRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postsErr != nil {
		return f.postsErr
	}
	f.postWrites = append(f.postWrites, tenantID)
	return nil
}

// fakeConnector answers every capability from configured fields and records
// the accounts it was called with.
type fakeConnector struct {
	mu sync.Mutex

	platform model.Platform

	metrics    []model.DailyMetricRow
	posts      []model.PostRow
	fetchErr   map[string]error // keyed by external id
	refreshed  model.RefreshedToken
	refreshErr error

	fetchCalls   []string
	refreshCalls []string
}

func (f *fakeConnector) Platform() model.Platform { return f.platform }

func (f *fakeConnector) FetchDailyMetrics(_ context.Context, acc model.SocialAccount, _ model.Credentials, _ model.DateRange) ([]model.DailyMetricRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls = append(f.fetchCalls, acc.ExternalID)
	if err := f.fetchErr[acc.ExternalID]; err != nil {
		return nil, err
	}
	return f.metrics, nil
}

func (f *fakeConnector) FetchPosts(_ context.Context, _ model.SocialAccount, _ model.Credentials, _ model.DateRange) ([]model.PostRow, error) {
	return f.posts, nil
}

func (f *fakeConnector) RefreshAccessToken(_ context.Context, acc model.SocialAccount, _ model.Credentials) (model.RefreshedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls = append(f.refreshCalls, acc.ExternalID)
	if f.refreshErr != nil {
		return model.RefreshedToken{}, f.refreshErr
	}
	return f.refreshed, nil
}

type allowGate struct{}

func (allowGate) Check(string, limiter.Config) limiter.Result {
	return limiter.Result{Allowed: true}
}

type denyGate struct{ retryAfter time.Duration }

func (g denyGate) Check(string, limiter.Config) limiter.Result {
	return limiter.Result{Allowed: false, RetryAfter: g.retryAfter}
}
