package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/model"
)

// TenantRepo implements TenantRepository using PostgreSQL.
type TenantRepo struct{ db *DB }

// NewTenantRepo constructs a tenant repository.
func NewTenantRepo(db *DB) *TenantRepo { return &TenantRepo{db: db} }

// Get selects a tenant by id.
func (r *TenantRepo) Get(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	const q = `
SELECT id, name, active, demo, created_at
FROM tenants WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var t model.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Active, &t.Demo, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListActiveNonDemo returns tenant ids eligible for a global sync run.
func (r *TenantRepo) ListActiveNonDemo(ctx context.Context) ([]uuid.UUID, error) {
	const q = `
SELECT id FROM tenants
WHERE active=true AND demo=false
ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
