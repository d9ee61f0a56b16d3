package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `
id, tenant_id, platform, external_id, display_name, status,
access_token_enc, refresh_token_enc, token_expires_at, last_synced_at,
created_at, updated_at`

func scanAccount(row pgx.Row) (*model.SocialAccount, error) {
	var a model.SocialAccount
	err := row.Scan(
		&a.ID, &a.TenantID, &a.Platform, &a.ExternalID, &a.DisplayName, &a.Status,
		&a.AccessTokenEnc, &a.RefreshTokenEnc, &a.TokenExpiresAt, &a.LastSyncedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Get selects an account by its identity key.
func (r *AccountRepo) Get(ctx context.Context, tenantID uuid.UUID, platform model.Platform, externalID string) (*model.SocialAccount, error) {
	const q = `
SELECT ` + accountColumns + `
FROM social_accounts WHERE tenant_id=$1 AND platform=$2 AND external_id=$3`
	return scanAccount(r.db.Pool.QueryRow(ctx, q, tenantID, platform, externalID))
}

// Upsert inserts or updates an account on (tenant_id, platform, external_id).
// On conflict the existing row keeps its id; RETURNING writes the stored id
// back into a so callers always see the canonical one. COALESCE on
// refresh_token_enc keeps the stored refresh token when the new value is
// empty; a refresh token, once present, is never erased by accident.
func (r *AccountRepo) Upsert(ctx context.Context, a *model.SocialAccount) error {
	const q = `
INSERT INTO social_accounts
  (id, tenant_id, platform, external_id, display_name, status,
   access_token_enc, refresh_token_enc, token_expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (tenant_id, platform, external_id) DO UPDATE SET
  display_name=EXCLUDED.display_name,
  status=EXCLUDED.status,
  access_token_enc=EXCLUDED.access_token_enc,
  refresh_token_enc=COALESCE(NULLIF(EXCLUDED.refresh_token_enc,''), social_accounts.refresh_token_enc),
  token_expires_at=EXCLUDED.token_expires_at,
  updated_at=now()
RETURNING id`
	return r.db.Pool.QueryRow(ctx, q,
		a.ID, a.TenantID, a.Platform, a.ExternalID, a.DisplayName, a.Status,
		a.AccessTokenEnc, a.RefreshTokenEnc, a.TokenExpiresAt,
	).Scan(&a.ID)
}

// UpdateTokens stores re-encrypted tokens after a successful refresh.
func (r *AccountRepo) UpdateTokens(ctx context.Context, accountID uuid.UUID, accessTokenEnc, refreshTokenEnc string, expiresAt time.Time) error {
	const q = `
UPDATE social_accounts SET
  access_token_enc=$2,
  refresh_token_enc=COALESCE(NULLIF($3,''), refresh_token_enc),
  token_expires_at=$4,
  updated_at=now()
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, accountID, accessTokenEnc, refreshTokenEnc, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetStatus moves an account through its auth lifecycle.
func (r *AccountRepo) SetStatus(ctx context.Context, accountID uuid.UUID, status model.AuthStatus) error {
	const q = `UPDATE social_accounts SET status=$2, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, accountID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// TouchSynced records a successful sync time.
func (r *AccountRepo) TouchSynced(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	const q = `UPDATE social_accounts SET last_synced_at=$2, updated_at=now() WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, accountID, at)
	return err
}

// ListNearingExpiry returns active accounts expiring within threshold,
// excluding demo tenants (their credentials are synthetic by policy).
func (r *AccountRepo) ListNearingExpiry(ctx context.Context, threshold time.Duration) ([]model.SocialAccount, error) {
	const q = `
SELECT ` + accountColumns + `
FROM social_accounts
JOIN tenants ON tenants.id = social_accounts.tenant_id
WHERE social_accounts.status='active'
  AND tenants.active=true AND tenants.demo=false
  AND token_expires_at <= now() + $1::interval
ORDER BY token_expires_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// ListForTenant returns a tenant's accounts; platform narrows to one network
// when non-empty.
func (r *AccountRepo) ListForTenant(ctx context.Context, tenantID uuid.UUID, platform model.Platform) ([]model.SocialAccount, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if platform == "" {
		const q = `
SELECT ` + accountColumns + `
FROM social_accounts WHERE tenant_id=$1 ORDER BY platform, external_id`
		rows, err = r.db.Pool.Query(ctx, q, tenantID)
	} else {
		const q = `
SELECT ` + accountColumns + `
FROM social_accounts WHERE tenant_id=$1 AND platform=$2 ORDER BY external_id`
		rows, err = r.db.Pool.Query(ctx, q, tenantID, platform)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]model.SocialAccount, error) {
	var out []model.SocialAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
