// Package connector holds one adapter per upstream platform behind a uniform
// capability set: daily-metric fetch, post fetch and token refresh. Adapters
// surface the shared error taxonomy instead of raw transport failures so the
// orchestrator can decide between retry, revoke and abort.
package connector

import (
	"context"
	"fmt"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/limiter"
	"github.com/socialpulse/syncd/internal/model"
)

// Connector is the capability set every platform adapter implements.
type Connector interface {
	// Platform names the upstream this adapter talks to.
	Platform() model.Platform
	// FetchDailyMetrics pulls per-day account metrics over the range.
	FetchDailyMetrics(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.DailyMetricRow, error)
	// FetchPosts pulls posts published inside the range.
	FetchPosts(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.PostRow, error)
	// RefreshAccessToken exchanges the stored refresh token for a new grant.
	RefreshAccessToken(ctx context.Context, account model.SocialAccount, creds model.Credentials) (model.RefreshedToken, error)
}

// App holds one platform's OAuth client credentials.
type App struct {
	ClientID     string
	ClientSecret string
}

// Gate rate-limits outbound calls; implemented by *limiter.Memory.
type Gate interface {
	Check(key string, cfg limiter.Config) limiter.Result
}

// Registry dispatches platforms to their adapters. The platform set is
// closed; registration happens once at startup.
type Registry struct {
	byPlatform map[model.Platform]Connector
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(cs ...Connector) *Registry {
	r := &Registry{byPlatform: make(map[model.Platform]Connector, len(cs))}
	for _, c := range cs {
		r.byPlatform[c.Platform()] = c
	}
	return r
}

// Resolve returns the adapter for p or ErrUnknownPlatform.
func (r *Registry) Resolve(p model.Platform) (Connector, error) {
	c, ok := r.byPlatform[p]
	if !ok {
		return nil, fmt.Errorf("connector: %q: %w", p, errs.ErrUnknownPlatform)
	}
	return c, nil
}

// Platforms lists every registered platform.
func (r *Registry) Platforms() []model.Platform {
	out := make([]model.Platform, 0, len(r.byPlatform))
	for p := range r.byPlatform {
		out = append(out, p)
	}
	return out
}
