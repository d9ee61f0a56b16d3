package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/socialpulse/syncd/internal/connector"
	"github.com/socialpulse/syncd/internal/demo"
	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/model"
	"github.com/socialpulse/syncd/internal/monitoring"
	"github.com/socialpulse/syncd/internal/repository"
	"github.com/socialpulse/syncd/internal/vault"
)

// SyncConfig bounds a sync run.
type SyncConfig struct {
	WindowDays  int           // trailing pull window
	Concurrency int           // max in-flight tenant/account pairs
	PairTimeout time.Duration // budget per pair, fetch plus persist
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.WindowDays <= 0 {
		c.WindowDays = 30
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.PairTimeout <= 0 {
		c.PairTimeout = 2 * time.Minute
	}
	return c
}

// PairResult records one (tenant, account) pull.
type PairResult struct {
	TenantID  uuid.UUID
	AccountID uuid.UUID
	Platform  model.Platform
	Err       error // nil on success
}

// SyncSummary aggregates one orchestrator run. SkippedDemo is set when a
// tenant-scoped run short-circuited on the demo guard.
type SyncSummary struct {
	Scope       string // "global" or "tenant:<id>"
	Platform    string // "all" or one platform
	Synced      int
	Failed      int
	SkippedDemo bool
	Results     []PairResult
	Duration    time.Duration
}

// SyncService fans data pulls out across tenants and platforms with bounded
// concurrency and per-pair failure isolation.
type SyncService struct {
	tenants  repository.TenantRepository
	accounts repository.AccountRepository
	metrics  repository.MetricsRepository
	registry *connector.Registry
	vault    *vault.Vault
	guard    *demo.Guard
	cfg      SyncConfig
	log      *zap.Logger
	nowFn    func() time.Time
}

// NewSyncService constructs the orchestrator.
func NewSyncService(
	tenants repository.TenantRepository,
	accounts repository.AccountRepository,
	metrics repository.MetricsRepository,
	registry *connector.Registry,
	v *vault.Vault,
	guard *demo.Guard,
	cfg SyncConfig,
	log *zap.Logger,
) *SyncService {
	return &SyncService{
		tenants:  tenants,
		accounts: accounts,
		metrics:  metrics,
		registry: registry,
		vault:    v,
		guard:    guard,
		cfg:      cfg.withDefaults(),
		log:      log,
		nowFn:    time.Now,
	}
}

type pair struct {
	tenantID uuid.UUID
	account  model.SocialAccount
}

// SyncTenant pulls one tenant's accounts, optionally narrowed to a platform.
// Demo tenants are skipped before any persistence is touched.
func (s *SyncService) SyncTenant(ctx context.Context, tenantID uuid.UUID, platform model.Platform) (SyncSummary, error) {
	start := s.nowFn()
	sum := SyncSummary{Scope: "tenant:" + tenantID.String(), Platform: platformLabel(platform)}

	isDemo, err := s.guard.IsDemoTenant(ctx, tenantID)
	if err != nil {
		return sum, fmt.Errorf("sync: %w", err)
	}
	if isDemo {
		sum.SkippedDemo = true
		sum.Duration = s.nowFn().Sub(start)
		monitoring.SyncPairs.WithLabelValues("skipped_demo").Inc()
		return sum, nil
	}

	accounts, err := s.accounts.ListForTenant(ctx, tenantID, platform)
	if err != nil {
		return sum, fmt.Errorf("sync: list accounts: %w", err)
	}
	pairs := make([]pair, 0, len(accounts))
	for _, acc := range accounts {
		pairs = append(pairs, pair{tenantID: tenantID, account: acc})
	}

	s.runPairs(ctx, pairs, &sum)
	sum.Duration = s.nowFn().Sub(start)
	monitoring.JobDuration.WithLabelValues("sync_tenant").Observe(sum.Duration.Seconds())
	return sum, nil
}

// SyncAll pulls every active non-demo tenant. Pairs run under a bounded
// worker pool; once cancellation is observed no new pair starts, though
// in-flight pairs are allowed to finish.
func (s *SyncService) SyncAll(ctx context.Context, platform model.Platform) (SyncSummary, error) {
	start := s.nowFn()
	sum := SyncSummary{Scope: "global", Platform: platformLabel(platform)}

	tenantIDs, err := s.tenants.ListActiveNonDemo(ctx)
	if err != nil {
		return sum, fmt.Errorf("sync: list tenants: %w", err)
	}

	var pairs []pair
	for _, tid := range tenantIDs {
		accounts, err := s.accounts.ListForTenant(ctx, tid, platform)
		if err != nil {
			// Resolution failure for one tenant is isolated like a pair failure.
			sum.Failed++
			sum.Results = append(sum.Results, PairResult{TenantID: tid, Err: err})
			continue
		}
		for _, acc := range accounts {
			pairs = append(pairs, pair{tenantID: tid, account: acc})
		}
	}

	s.runPairs(ctx, pairs, &sum)
	sum.Duration = s.nowFn().Sub(start)
	monitoring.JobDuration.WithLabelValues("sync_global").Observe(sum.Duration.Seconds())
	s.log.Info("global sync finished",
		zap.Int("synced", sum.Synced),
		zap.Int("failed", sum.Failed),
		zap.Duration("dur", sum.Duration),
	)
	return sum, nil
}

// runPairs executes pairs with bounded concurrency and records results.
// Workers never return an error to the group: failures are isolated per pair.
func (s *SyncService) runPairs(ctx context.Context, pairs []pair, sum *SyncSummary) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)

	for _, p := range pairs {
		if ctx.Err() != nil {
			break // cancellation observed: no new pairs
		}
		p := p
		g.Go(func() error {
			res := PairResult{TenantID: p.tenantID, AccountID: p.account.ID, Platform: p.account.Platform}
			res.Err = s.syncPair(ctx, p)

			mu.Lock()
			sum.Results = append(sum.Results, res)
			if res.Err != nil {
				sum.Failed++
			} else {
				sum.Synced++
			}
			mu.Unlock()

			if res.Err != nil {
				monitoring.SyncPairs.WithLabelValues("failed").Inc()
				monitoring.ConnectorErrors.WithLabelValues(string(p.account.Platform), reasonFor(res.Err)).Inc()
				s.log.Warn("pair sync failed",
					zap.Stringer("tenant", p.tenantID),
					zap.Stringer("account", p.account.ID),
					zap.String("platform", string(p.account.Platform)),
					zap.String("reason", reasonFor(res.Err)),
				)
			} else {
				monitoring.SyncPairs.WithLabelValues("synced").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
}

// syncPair fetches and persists one account under the per-pair budget.
// Fetch completes before the corresponding upsert is issued.
func (s *SyncService) syncPair(ctx context.Context, p pair) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PairTimeout)
	defer cancel()

	acc := p.account
	if acc.Status != model.AuthActive {
		return fmt.Errorf("account %s: status %s: %w", acc.ID, acc.Status, errs.ErrAuth)
	}

	conn, err := s.registry.Resolve(acc.Platform)
	if err != nil {
		return err
	}
	creds, err := decryptCredentials(s.vault, acc)
	if err != nil {
		if errors.Is(err, errs.ErrIntegrity) {
			if serr := s.accounts.SetStatus(ctx, acc.ID, model.AuthExpired); serr != nil {
				s.log.Error("mark account expired", zap.Stringer("account", acc.ID), zap.Error(serr))
			}
		}
		return err
	}

	window := model.TrailingWindow(s.nowFn(), s.cfg.WindowDays)
	rows, err := conn.FetchDailyMetrics(ctx, acc, creds, window)
	if err != nil {
		return s.noteFetchErr(ctx, acc, err)
	}
	posts, err := conn.FetchPosts(ctx, acc, creds, window)
	if err != nil {
		return s.noteFetchErr(ctx, acc, err)
	}

	// Last line of defense: nothing below this point may run for a demo
	// tenant even if the target set was computed elsewhere.
	if err := s.guard.AssertNotDemoWritable(ctx, p.tenantID); err != nil {
		return err
	}
	if err := s.metrics.UpsertDailyMetrics(ctx, p.tenantID, acc.Platform, rows); err != nil {
		return fmt.Errorf("persist metrics: %w", err)
	}
	if err := s.metrics.UpsertPosts(ctx, p.tenantID, acc.Platform, posts); err != nil {
		return fmt.Errorf("persist posts: %w", err)
	}
	if err := s.accounts.TouchSynced(ctx, acc.ID, s.nowFn()); err != nil {
		s.log.Error("touch synced", zap.Stringer("account", acc.ID), zap.Error(err))
	}
	return nil
}

// noteFetchErr demotes the account on terminal auth failures; a token that
// went stale mid-run is retried on the next cycle once refresh catches up.
func (s *SyncService) noteFetchErr(ctx context.Context, acc model.SocialAccount, err error) error {
	if errors.Is(err, errs.ErrAuth) {
		if serr := s.accounts.SetStatus(ctx, acc.ID, model.AuthExpired); serr != nil {
			s.log.Error("mark account expired", zap.Stringer("account", acc.ID), zap.Error(serr))
		}
	}
	return err
}

func platformLabel(p model.Platform) string {
	if p == "" {
		return "all"
	}
	return string(p)
}
