// Package demo blocks mutating operations against sandboxed demo tenants.
// Demo tenants carry synthetic data; nothing real may ever be written to them.
package demo

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/repository"
)

// Guard answers the demo-tenant predicate from tenant metadata. Results are
// cached for the process lifetime: the demo flag is set at tenant creation
// and never flips in production.
type Guard struct {
	tenants repository.TenantRepository

	mu    sync.RWMutex
	cache map[uuid.UUID]bool
}

// NewGuard constructs a guard over the tenant repository.
func NewGuard(tenants repository.TenantRepository) *Guard {
	return &Guard{tenants: tenants, cache: make(map[uuid.UUID]bool)}
}

// IsDemoTenant reports whether the tenant is a demo sandbox.
func (g *Guard) IsDemoTenant(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	g.mu.RLock()
	isDemo, ok := g.cache[tenantID]
	g.mu.RUnlock()
	if ok {
		return isDemo, nil
	}

	t, err := g.tenants.Get(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("demo guard: %w", err)
	}

	g.mu.Lock()
	g.cache[tenantID] = t.Demo
	g.mu.Unlock()
	return t.Demo, nil
}

// AssertNotDemoWritable fails with ErrDemoWriteBlocked for demo tenants.
// Used as a guard clause before every mutating operation.
func (g *Guard) AssertNotDemoWritable(ctx context.Context, tenantID uuid.UUID) error {
	isDemo, err := g.IsDemoTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if isDemo {
		return fmt.Errorf("tenant %s: %w", tenantID, errs.ErrDemoWriteBlocked)
	}
	return nil
}
