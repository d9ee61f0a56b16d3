package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/socialpulse/syncd/internal/model"
)

// MetricsRepo implements MetricsRepository using PostgreSQL.
type MetricsRepo struct{ db *DB }

// NewMetricsRepo constructs a metrics repository.
func NewMetricsRepo(db *DB) *MetricsRepo { return &MetricsRepo{db: db} }

// UpsertDailyMetrics writes one row per (tenant, platform, date) atomically.
// Re-running a sync overwrites values instead of duplicating rows.
func (r *MetricsRepo) UpsertDailyMetrics(
	ctx context.Context, tenantID uuid.UUID, platform model.Platform, metricRows []model.DailyMetricRow,
) (err error) {
	if len(metricRows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	const q = `
INSERT INTO daily_metrics
  (tenant_id, platform, metric_date, followers, impressions, reach,
   engagements, views, watch_time_s, post_count)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (tenant_id, platform, metric_date) DO UPDATE SET
  followers=EXCLUDED.followers,
  impressions=EXCLUDED.impressions,
  reach=EXCLUDED.reach,
  engagements=EXCLUDED.engagements,
  views=EXCLUDED.views,
  watch_time_s=EXCLUDED.watch_time_s,
  post_count=EXCLUDED.post_count,
  updated_at=now()`
	for _, row := range metricRows {
		if _, err = tx.Exec(ctx, q,
			tenantID, platform, row.Date,
			row.Followers, row.Impressions, row.Reach,
			row.Engagements, row.Views, row.WatchTimeS, row.PostCount,
		); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPosts writes one row per (tenant, platform, external id) atomically.
func (r *MetricsRepo) UpsertPosts(
	ctx context.Context, tenantID uuid.UUID, platform model.Platform, postRows []model.PostRow,
) (err error) {
	if len(postRows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	const q = `
INSERT INTO posts
  (tenant_id, platform, external_id, published_at, caption,
   likes, comments, shares, views)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (tenant_id, platform, external_id) DO UPDATE SET
  published_at=EXCLUDED.published_at,
  caption=EXCLUDED.caption,
  likes=EXCLUDED.likes,
  comments=EXCLUDED.comments,
  shares=EXCLUDED.shares,
  views=EXCLUDED.views,
  updated_at=now()`
	for _, row := range postRows {
		if _, err = tx.Exec(ctx, q,
			tenantID, platform, row.ExternalID, row.PublishedAt, row.Caption,
			row.Likes, row.Comments, row.Shares, row.Views,
		); err != nil {
			return err
		}
	}
	return nil
}
