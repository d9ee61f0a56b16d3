// Package repository declares persistence contracts consumed by the services.
// The relational store itself (schema ownership, row-level security) is a
// collaborator; these interfaces are the only surface the core touches.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/socialpulse/syncd/internal/model"
)

// TenantRepository reads tenant metadata.
type TenantRepository interface {
	// Get returns a tenant by id.
	Get(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	// ListActiveNonDemo returns ids of tenants eligible for a global sync.
	ListActiveNonDemo(ctx context.Context) ([]uuid.UUID, error)
}
