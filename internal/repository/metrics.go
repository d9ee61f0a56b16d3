package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/socialpulse/syncd/internal/model"
)

// MetricsRepository flattens sync results into per-tenant storage. Both
// writes are idempotent upserts: metrics key on (tenant, platform, date),
// posts on (tenant, platform, external id).
type MetricsRepository interface {
	UpsertDailyMetrics(ctx context.Context, tenantID uuid.UUID, platform model.Platform, rows []model.DailyMetricRow) error
	UpsertPosts(ctx context.Context, tenantID uuid.UUID, platform model.Platform, rows []model.PostRow) error
}
