package connector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/socialpulse/syncd/internal/model"
)

// Mock is the deterministic adapter used for demo tenants and tests. It
// performs no network I/O and generates the same internally consistent series
// for the same account and range on every call.
type Mock struct{}

// NewMock constructs the mock adapter.
func NewMock() *Mock { return &Mock{} }

func (c *Mock) Platform() model.Platform { return model.PlatformMock }

// seedFor gives every account its own stable series.
func seedFor(account model.SocialAccount) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(account.TenantID.String()))
	_, _ = h.Write([]byte(account.ExternalID))
	return int64(h.Sum64())
}

// FetchDailyMetrics synthesizes one row per day. Follower counts grow
// monotonically with a plausible daily gain; counters are never negative.
func (c *Mock) FetchDailyMetrics(_ context.Context, account model.SocialAccount, _ model.Credentials, r model.DateRange) ([]model.DailyMetricRow, error) {
	rng := rand.New(rand.NewSource(seedFor(account)))
	base := 1000 + rng.Int63n(50000)

	days := int(r.To.Sub(r.From).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	rows := make([]model.DailyMetricRow, 0, days)
	followers := base
	for i := 0; i < days; i++ {
		followers += rng.Int63n(40) // gains only, keeps the series monotonic
		impressions := 200 + rng.Int63n(5000)
		reach := impressions * (60 + rng.Int63n(30)) / 100
		rows = append(rows, model.DailyMetricRow{
			Date:        r.From.AddDate(0, 0, i),
			Followers:   followers,
			Impressions: impressions,
			Reach:       reach,
			Engagements: reach / (5 + rng.Int63n(10)),
			Views:       impressions / 2,
			WatchTimeS:  float64(rng.Int63n(3600)),
			PostCount:   rng.Int63n(3),
		})
	}
	return rows, nil
}

// FetchPosts synthesizes a handful of posts spread across the range.
func (c *Mock) FetchPosts(_ context.Context, account model.SocialAccount, _ model.Credentials, r model.DateRange) ([]model.PostRow, error) {
	rng := rand.New(rand.NewSource(seedFor(account) + 1))

	days := int(r.To.Sub(r.From).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	n := 3 + rng.Intn(5)
	posts := make([]model.PostRow, 0, n)
	for i := 0; i < n; i++ {
		day := r.From.AddDate(0, 0, rng.Intn(days))
		posts = append(posts, model.PostRow{
			ExternalID:  fmt.Sprintf("%s-post-%d", account.ExternalID, i),
			PublishedAt: day.Add(time.Duration(rng.Intn(24)) * time.Hour),
			Caption:     fmt.Sprintf("Sample post %d", i+1),
			Likes:       rng.Int63n(900),
			Comments:    rng.Int63n(120),
			Shares:      rng.Int63n(60),
			Views:       rng.Int63n(20000),
		})
	}
	return posts, nil
}

// RefreshAccessToken returns a synthetic non-expiring grant; demo credentials
// never hit a token endpoint.
func (c *Mock) RefreshAccessToken(_ context.Context, account model.SocialAccount, creds model.Credentials) (model.RefreshedToken, error) {
	return model.RefreshedToken{
		AccessToken:  "mock-" + account.ExternalID,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    time.Now().AddDate(10, 0, 0),
	}, nil
}
