package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/limiter"
	"github.com/socialpulse/syncd/internal/model"
)

// Upstream quota policy shared by all real adapters. The key is platform
// scoped, so one tenant's heavy usage throttles the shared app key rather
// than another tenant's unrelated platform.
var upstreamGate = limiter.Config{
	Max:    30,
	Window: time.Minute,
	Block:  2 * time.Minute,
}

const fetchRetries = 2

// client is the transport shared by the real platform adapters: rate gate,
// per-request timeout, typed status classification and bounded retry on
// transient failures for idempotent GETs.
type client struct {
	platform model.Platform
	http     *http.Client
	gate     Gate
}

func newClient(platform model.Platform, gate Gate, timeout time.Duration) *client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &client{
		platform: platform,
		http:     &http.Client{Timeout: timeout},
		gate:     gate,
	}
}

// gateKey scopes the limiter to the upstream app quota.
func (c *client) gateKey() string { return "platform:" + string(c.platform) }

// getJSON fetches u with a bearer token and decodes the body into out.
// Transient failures are retried with fibonacci backoff; auth and quota
// failures are surfaced immediately.
func (c *client) getJSON(ctx context.Context, u string, bearer string, out any) error {
	if res := c.gate.Check(c.gateKey(), upstreamGate); !res.Allowed {
		return fmt.Errorf("connector %s: local quota, retry in %s: %w", c.platform, res.RetryAfter, errs.ErrRateLimited)
	}

	backoff := retry.WithMaxRetries(fetchRetries, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.getJSONOnce(ctx, u, bearer, out)
		if errors.Is(err, errs.ErrTransient) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *client) getJSONOnce(ctx context.Context, u string, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("connector %s: %v: %w", c.platform, err, errs.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused; the body itself is never
		// propagated past this package.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return c.statusError(resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("connector %s: decode: %v: %w", c.platform, err, errs.ErrTransient)
	}
	return nil
}

// statusError maps an upstream HTTP status onto the shared taxonomy.
func (c *client) statusError(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("connector %s: status %d: %w", c.platform, code, errs.ErrAuth)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("connector %s: status %d: %w", c.platform, code, errs.ErrRateLimited)
	default:
		return fmt.Errorf("connector %s: status %d: %w", c.platform, code, errs.ErrTransient)
	}
}

// refreshGrant runs the OAuth refresh_token grant against tokenURL and maps
// transport errors onto the taxonomy. Refresh calls are never retried here;
// the scheduler owns that policy.
func (c *client) refreshGrant(ctx context.Context, app App, endpoint oauth2.Endpoint, creds model.Credentials) (model.RefreshedToken, error) {
	if app.ClientID == "" || app.ClientSecret == "" {
		return model.RefreshedToken{}, fmt.Errorf("connector %s: missing app credentials: %w", c.platform, errs.ErrConfig)
	}
	if creds.RefreshToken == "" {
		return model.RefreshedToken{}, fmt.Errorf("connector %s: no refresh token on file: %w", c.platform, errs.ErrAuth)
	}
	if res := c.gate.Check(c.gateKey(), upstreamGate); !res.Allowed {
		return model.RefreshedToken{}, fmt.Errorf("connector %s: local quota: %w", c.platform, errs.ErrRateLimited)
	}

	cfg := oauth2.Config{
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		Endpoint:     endpoint,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	if err != nil {
		return model.RefreshedToken{}, c.classifyOAuthErr(err)
	}
	out := model.RefreshedToken{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry,
	}
	// Platforms that rotate refresh tokens return a new one; others omit it
	// and the stored value stays in place.
	if tok.RefreshToken != creds.RefreshToken {
		out.RefreshToken = tok.RefreshToken
	}
	return out, nil
}

func (c *client) classifyOAuthErr(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return c.statusError(rerr.Response.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("connector %s: token endpoint: %v: %w", c.platform, err, errs.ErrTransient)
}

// dayKey formats a date the way the graph-style APIs expect.
func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// parseGraphTime accepts both RFC3339 and the graph API's "+0000" zone form.
func parseGraphTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05-0700", s)
}

// queryURL assembles base?params with escaping.
func queryURL(base string, params url.Values) string {
	return base + "?" + params.Encode()
}

// nonNegInt coerces an upstream numeric field: missing fields decode to zero
// and negative values are clamped so downstream aggregation never null-checks.
func nonNegInt(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func nonNegFloat(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// sortRows flattens a by-day map into a date-ordered slice.
func sortRows(byDay map[string]*model.DailyMetricRow) []model.DailyMetricRow {
	rows := make([]model.DailyMetricRow, 0, len(byDay))
	for _, r := range byDay {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}
