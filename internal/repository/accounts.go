package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/socialpulse/syncd/internal/model"
)

// AccountRepository stores connected platform accounts. Accounts are upserted
// on the (tenant, platform, external id) identity key and soft-invalidated,
// never deleted.
type AccountRepository interface {
	// Get returns the account matching the identity key.
	Get(ctx context.Context, tenantID uuid.UUID, platform model.Platform, externalID string) (*model.SocialAccount, error)
	// Upsert inserts or updates an account on its identity key. When the key
	// already exists the stored row's id is kept and written back to acc.ID.
	Upsert(ctx context.Context, acc *model.SocialAccount) error
	// UpdateTokens stores re-encrypted tokens and a new expiry after refresh.
	// An empty refreshTokenEnc keeps the stored refresh token in place.
	UpdateTokens(ctx context.Context, accountID uuid.UUID, accessTokenEnc, refreshTokenEnc string, expiresAt time.Time) error
	// SetStatus moves an account through its auth lifecycle.
	SetStatus(ctx context.Context, accountID uuid.UUID, status model.AuthStatus) error
	// TouchSynced records a successful sync time.
	TouchSynced(ctx context.Context, accountID uuid.UUID, at time.Time) error
	// ListNearingExpiry returns active accounts whose token expires within
	// threshold, excluding demo tenants.
	ListNearingExpiry(ctx context.Context, threshold time.Duration) ([]model.SocialAccount, error)
	// ListForTenant returns a tenant's accounts, optionally one platform only.
	ListForTenant(ctx context.Context, tenantID uuid.UUID, platform model.Platform) ([]model.SocialAccount, error)
}
