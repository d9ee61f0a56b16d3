// Package model defines domain entities used by services, connectors and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Platform identifies a supported upstream network.
type Platform string

// Supported platforms. MetaAds is the campaign-metrics variant of the Meta
// graph API; Mock is the deterministic no-network variant used for demo
// tenants and tests.
const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformMetaAds   Platform = "meta_ads"
	PlatformMock      Platform = "mock"
)

// Platforms lists every platform that may carry real accounts.
var Platforms = []Platform{
	PlatformInstagram,
	PlatformFacebook,
	PlatformLinkedIn,
	PlatformTikTok,
	PlatformYouTube,
	PlatformMetaAds,
}

// Valid reports whether p names a known platform (mock included).
func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformFacebook, PlatformLinkedIn,
		PlatformTikTok, PlatformYouTube, PlatformMetaAds, PlatformMock:
		return true
	}
	return false
}

// AuthStatus tracks the lifecycle of a stored platform credential.
type AuthStatus string

const (
	AuthPending AuthStatus = "pending"
	AuthActive  AuthStatus = "active"
	AuthExpired AuthStatus = "expired"
	AuthRevoked AuthStatus = "revoked"
)

// Tenant is a customer workspace. Deactivation is a soft flag; tenants are
// never deleted.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Active    bool
	Demo      bool
	CreatedAt time.Time
}

// SocialAccount is one connected platform account owned by exactly one
// tenant. Token fields hold vault payloads, never plaintext. Identity key is
// (TenantID, Platform, ExternalID).
type SocialAccount struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Platform        Platform
	ExternalID      string // platform-scoped account id
	DisplayName     string
	Status          AuthStatus
	AccessTokenEnc  string // vault payload, base64
	RefreshTokenEnc string // vault payload, base64; empty when the platform issues none
	TokenExpiresAt  time.Time
	LastSyncedAt    time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Credentials is the decrypted form of an account's tokens. It exists only
// in memory around a connector call.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// RefreshedToken is what a connector returns from a refresh call. An empty
// RefreshToken means the platform omitted it and the stored value is kept.
type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// DateRange is a closed day interval used for metric and post pulls.
type DateRange struct {
	From time.Time
	To   time.Time
}

// TrailingWindow returns the range covering the last n days up to today.
func TrailingWindow(now time.Time, days int) DateRange {
	day := now.UTC().Truncate(24 * time.Hour)
	return DateRange{From: day.AddDate(0, 0, -days), To: day}
}

// DailyMetricRow is one day of account metrics, keyed by
// (tenant, platform, date). Missing upstream fields are zero, never null.
type DailyMetricRow struct {
	Date        time.Time
	Followers   int64
	Impressions int64
	Reach       int64
	Engagements int64
	Views       int64
	WatchTimeS  float64
	PostCount   int64
}

// PostRow is one published post, keyed by (tenant, platform, external id).
type PostRow struct {
	ExternalID  string
	PublishedAt time.Time
	Caption     string
	Likes       int64
	Comments    int64
	Shares      int64
	Views       int64
}

// SyncResult is the ephemeral output of one connector pull for one account.
// It is flattened into per-tenant storage and never persisted as-is.
type SyncResult struct {
	Metrics []DailyMetricRow
	Posts   []PostRow
}

// RefreshStatus classifies one account's refresh attempt.
type RefreshStatus string

const (
	RefreshSkipped   RefreshStatus = "skipped"
	RefreshRefreshed RefreshStatus = "refreshed"
	RefreshFailed    RefreshStatus = "failed"
)

// RefreshOutcome is the per-account result of a scheduler run.
type RefreshOutcome struct {
	AccountID uuid.UUID
	Platform  Platform
	Status    RefreshStatus
	Reason    string // set when Status == RefreshFailed
}
