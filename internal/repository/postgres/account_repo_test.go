package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var accountCols = []string{
	"id", "tenant_id", "platform", "external_id", "display_name", "status",
	"access_token_enc", "refresh_token_enc", "token_expires_at", "last_synced_at",
	"created_at", "updated_at",
}

func accountRow(id, tenantID uuid.UUID) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(accountCols).AddRow(
		id, tenantID, model.PlatformInstagram, "ig-1", "Brand", model.AuthActive,
		"enc-at", "enc-rt", now.Add(time.Hour), now.Add(-time.Hour),
		now.Add(-48*time.Hour), now,
	)
}

func TestAccountRepo_Get_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	id := uuid.Must(uuid.NewV4())
	tenantID := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT (.+) FROM social_accounts WHERE tenant_id=\$1 AND platform=\$2 AND external_id=\$3`).
		WithArgs(tenantID, model.PlatformInstagram, "ig-1").
		WillReturnRows(accountRow(id, tenantID))

	acc, err := r.Get(context.Background(), tenantID, model.PlatformInstagram, "ig-1")
	require.NoError(t, err)
	require.Equal(t, id, acc.ID)
	require.Equal(t, model.AuthActive, acc.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	tenantID := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`SELECT (.+) FROM social_accounts`).
		WithArgs(tenantID, model.PlatformTikTok, "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), tenantID, model.PlatformTikTok, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	a := &model.SocialAccount{
		ID:             uuid.Must(uuid.NewV4()),
		TenantID:       uuid.Must(uuid.NewV4()),
		Platform:       model.PlatformYouTube,
		ExternalID:     "UC123",
		DisplayName:    "Channel",
		Status:         model.AuthActive,
		AccessTokenEnc: "enc-at",
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
	mock.ExpectQuery(`INSERT INTO social_accounts(.+)ON CONFLICT \(tenant_id, platform, external_id\) DO UPDATE(.+)RETURNING id`).
		WithArgs(a.ID, a.TenantID, a.Platform, a.ExternalID, a.DisplayName, a.Status,
			a.AccessTokenEnc, a.RefreshTokenEnc, a.TokenExpiresAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(a.ID))

	require.NoError(t, r.Upsert(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Upsert_ConflictKeepsStoredID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	storedID := uuid.Must(uuid.NewV4())
	a := &model.SocialAccount{
		ID:             uuid.Must(uuid.NewV4()),
		TenantID:       uuid.Must(uuid.NewV4()),
		Platform:       model.PlatformYouTube,
		ExternalID:     "UC123",
		Status:         model.AuthActive,
		AccessTokenEnc: "enc-at",
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
	mock.ExpectQuery(`INSERT INTO social_accounts(.+)RETURNING id`).
		WithArgs(a.ID, a.TenantID, a.Platform, a.ExternalID, a.DisplayName, a.Status,
			a.AccessTokenEnc, a.RefreshTokenEnc, a.TokenExpiresAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(storedID))

	require.NoError(t, r.Upsert(context.Background(), a))
	require.Equal(t, storedID, a.ID, "existing row's id wins over the candidate")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateTokens_KeepsRefreshWhenEmpty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	id := uuid.Must(uuid.NewV4())
	exp := time.Now().Add(30 * 24 * time.Hour)
	mock.ExpectExec(`UPDATE social_accounts SET\s+access_token_enc=\$2,\s+refresh_token_enc=COALESCE\(NULLIF\(\$3,''\), refresh_token_enc\)`).
		WithArgs(id, "new-enc-at", "", exp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, r.UpdateTokens(context.Background(), id, "new-enc-at", "", exp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateTokens_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`UPDATE social_accounts SET`).
		WithArgs(id, "enc", "enc-rt", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := r.UpdateTokens(context.Background(), id, "enc", "enc-rt", time.Now())
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_SetStatus(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`UPDATE social_accounts SET status=\$2`).
		WithArgs(id, model.AuthRevoked).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, r.SetStatus(context.Background(), id, model.AuthRevoked))
}

func TestAccountRepo_ListNearingExpiry(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	id := uuid.Must(uuid.NewV4())
	tenantID := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`FROM social_accounts\s+JOIN tenants ON tenants.id = social_accounts.tenant_id`).
		WithArgs(24 * time.Hour).
		WillReturnRows(accountRow(id, tenantID))

	accs, err := r.ListNearingExpiry(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, accs, 1)
	require.Equal(t, id, accs[0].ID)
}

func TestAccountRepo_ListForTenant_PlatformFilter(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	tenantID := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`FROM social_accounts WHERE tenant_id=\$1 AND platform=\$2`).
		WithArgs(tenantID, model.PlatformLinkedIn).
		WillReturnRows(pgxmock.NewRows(accountCols))

	accs, err := r.ListForTenant(context.Background(), tenantID, model.PlatformLinkedIn)
	require.NoError(t, err)
	require.Empty(t, accs)
}
