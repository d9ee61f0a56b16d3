package demo

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/model"
)

type fakeTenantRepo struct {
	tenants map[uuid.UUID]*model.Tenant
	calls   int
}

func (f *fakeTenantRepo) Get(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	f.calls++
	t, ok := f.tenants[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return t, nil
}

func (f *fakeTenantRepo) ListActiveNonDemo(context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func TestGuard_IsDemoTenant(t *testing.T) {
	t.Parallel()
	demoID := uuid.Must(uuid.NewV4())
	realID := uuid.Must(uuid.NewV4())
	repo := &fakeTenantRepo{tenants: map[uuid.UUID]*model.Tenant{
		demoID: {ID: demoID, Demo: true},
		realID: {ID: realID, Demo: false},
	}}
	g := NewGuard(repo)
	ctx := context.Background()

	isDemo, err := g.IsDemoTenant(ctx, demoID)
	require.NoError(t, err)
	require.True(t, isDemo)

	isDemo, err = g.IsDemoTenant(ctx, realID)
	require.NoError(t, err)
	require.False(t, isDemo)
}

func TestGuard_CachesLookups(t *testing.T) {
	t.Parallel()
	id := uuid.Must(uuid.NewV4())
	repo := &fakeTenantRepo{tenants: map[uuid.UUID]*model.Tenant{id: {ID: id, Demo: true}}}
	g := NewGuard(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.IsDemoTenant(ctx, id)
		require.NoError(t, err)
	}
	require.Equal(t, 1, repo.calls, "repeated lookups hit the cache")
}

func TestGuard_AssertNotDemoWritable(t *testing.T) {
	t.Parallel()
	demoID := uuid.Must(uuid.NewV4())
	realID := uuid.Must(uuid.NewV4())
	repo := &fakeTenantRepo{tenants: map[uuid.UUID]*model.Tenant{
		demoID: {ID: demoID, Demo: true},
		realID: {ID: realID, Demo: false},
	}}
	g := NewGuard(repo)
	ctx := context.Background()

	require.NoError(t, g.AssertNotDemoWritable(ctx, realID))
	require.ErrorIs(t, g.AssertNotDemoWritable(ctx, demoID), errs.ErrDemoWriteBlocked)
}

func TestGuard_UnknownTenant(t *testing.T) {
	t.Parallel()
	g := NewGuard(&fakeTenantRepo{tenants: map[uuid.UUID]*model.Tenant{}})
	_, err := g.IsDemoTenant(context.Background(), uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)
}
