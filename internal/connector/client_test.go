package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/limiter"
	"github.com/socialpulse/syncd/internal/model"
)

// allowAll satisfies Gate without limiting.
type allowAll struct{}

func (allowAll) Check(string, limiter.Config) limiter.Result { return limiter.Result{Allowed: true} }

// denyAll rejects every call with a fixed retry-after.
type denyAll struct{}

func (denyAll) Check(string, limiter.Config) limiter.Result {
	return limiter.Result{Allowed: false, RetryAfter: time.Minute}
}

func TestStatusError_Taxonomy(t *testing.T) {
	t.Parallel()
	c := newClient(model.PlatformInstagram, allowAll{}, time.Second)

	require.ErrorIs(t, c.statusError(http.StatusUnauthorized), errs.ErrAuth)
	require.ErrorIs(t, c.statusError(http.StatusForbidden), errs.ErrAuth)
	require.ErrorIs(t, c.statusError(http.StatusTooManyRequests), errs.ErrRateLimited)
	require.ErrorIs(t, c.statusError(http.StatusInternalServerError), errs.ErrTransient)
	require.ErrorIs(t, c.statusError(http.StatusBadGateway), errs.ErrTransient)
}

func TestGetJSON_LocalGateRejects(t *testing.T) {
	t.Parallel()
	c := newClient(model.PlatformTikTok, denyAll{}, time.Second)

	var out struct{}
	err := c.getJSON(context.Background(), "http://unreachable.invalid", "tok", &out)
	require.ErrorIs(t, err, errs.ErrRateLimited)
}

func TestGetJSON_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newClient(model.PlatformYouTube, allowAll{}, 5*time.Second)
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.getJSON(context.Background(), srv.URL, "tok", &out)
	require.NoError(t, err)
	require.True(t, out.OK)
	require.Equal(t, int32(2), calls.Load())
}

func TestGetJSON_AuthErrorNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newClient(model.PlatformYouTube, allowAll{}, 5*time.Second)
	var out struct{}
	err := c.getJSON(context.Background(), srv.URL, "tok", &out)
	require.ErrorIs(t, err, errs.ErrAuth)
	require.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_SendsBearer(t *testing.T) {
	t.Parallel()
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newClient(model.PlatformFacebook, allowAll{}, time.Second)
	var out struct{}
	require.NoError(t, c.getJSON(context.Background(), srv.URL, "secret-token", &out))
	require.Equal(t, "Bearer secret-token", got)
}

func TestRefreshGrant_MissingAppCreds(t *testing.T) {
	t.Parallel()
	c := newClient(model.PlatformLinkedIn, allowAll{}, time.Second)
	_, err := c.refreshGrant(context.Background(), App{}, linkedinEndpoint, model.Credentials{RefreshToken: "rt"})
	require.ErrorIs(t, err, errs.ErrConfig)
}

func TestRefreshGrant_NoRefreshToken(t *testing.T) {
	t.Parallel()
	c := newClient(model.PlatformLinkedIn, allowAll{}, time.Second)
	_, err := c.refreshGrant(context.Background(), App{ClientID: "id", ClientSecret: "s"}, linkedinEndpoint, model.Credentials{})
	require.ErrorIs(t, err, errs.ErrAuth)
}

func TestRefreshGrant_MapsUpstreamStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	c := newClient(model.PlatformTikTok, allowAll{}, time.Second)
	ep := tiktokEndpoint
	ep.TokenURL = srv.URL
	_, err := c.refreshGrant(context.Background(), App{ClientID: "id", ClientSecret: "s"}, ep, model.Credentials{RefreshToken: "revoked"})
	require.ErrorIs(t, err, errs.ErrAuth)
}

func TestRefreshGrant_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-at","refresh_token":"new-rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	c := newClient(model.PlatformTikTok, allowAll{}, time.Second)
	ep := tiktokEndpoint
	ep.TokenURL = srv.URL
	tok, err := c.refreshGrant(context.Background(), App{ClientID: "id", ClientSecret: "s"}, ep, model.Credentials{RefreshToken: "old-rt"})
	require.NoError(t, err)
	require.Equal(t, "new-at", tok.AccessToken)
	require.Equal(t, "new-rt", tok.RefreshToken)
	require.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	t.Parallel()
	r := NewRegistry(NewMock())

	c, err := r.Resolve(model.PlatformMock)
	require.NoError(t, err)
	require.Equal(t, model.PlatformMock, c.Platform())

	_, err = r.Resolve(model.PlatformTikTok)
	require.ErrorIs(t, err, errs.ErrUnknownPlatform)
}
