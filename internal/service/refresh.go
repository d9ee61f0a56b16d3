// Package service contains the application jobs: token refresh, tenant sync
// and account management.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/socialpulse/syncd/internal/connector"
	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/model"
	"github.com/socialpulse/syncd/internal/monitoring"
	"github.com/socialpulse/syncd/internal/repository"
	"github.com/socialpulse/syncd/internal/vault"
)

// DefaultRefreshThreshold is how close to expiry a token must be before the
// scheduler refreshes it.
const DefaultRefreshThreshold = 24 * time.Hour

// RefreshSummary aggregates one scheduler run.
type RefreshSummary struct {
	Refreshed int
	Failed    int
	Skipped   int
	Outcomes  []model.RefreshOutcome
	Duration  time.Duration
}

// RefreshService scans accounts nearing expiry and refreshes their tokens
// through the matching connector. One account's failure never aborts the
// scan; there is no in-process retry, the next scheduled run picks up
// transient failures.
type RefreshService struct {
	accounts  repository.AccountRepository
	registry  *connector.Registry
	vault     *vault.Vault
	threshold time.Duration
	log       *zap.Logger
	nowFn     func() time.Time
}

// NewRefreshService constructs the scheduler job.
func NewRefreshService(accounts repository.AccountRepository, registry *connector.Registry, v *vault.Vault, threshold time.Duration, log *zap.Logger) *RefreshService {
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	return &RefreshService{
		accounts:  accounts,
		registry:  registry,
		vault:     v,
		threshold: threshold,
		log:       log,
		nowFn:     time.Now,
	}
}

// Run visits every qualifying account once. Demo-tenant accounts never appear
// in the scan; their credentials are synthetic and non-expiring by policy.
func (s *RefreshService) Run(ctx context.Context) (RefreshSummary, error) {
	start := s.nowFn()
	accounts, err := s.accounts.ListNearingExpiry(ctx, s.threshold)
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("refresh: list accounts: %w", err)
	}

	var sum RefreshSummary
	for i := range accounts {
		if ctx.Err() != nil {
			break
		}
		out := s.RefreshOne(ctx, accounts[i])
		sum.Outcomes = append(sum.Outcomes, out)
		switch out.Status {
		case model.RefreshRefreshed:
			sum.Refreshed++
		case model.RefreshFailed:
			sum.Failed++
		default:
			sum.Skipped++
		}
		monitoring.RefreshOutcomes.WithLabelValues(string(out.Status)).Inc()
	}

	sum.Duration = s.nowFn().Sub(start)
	monitoring.JobDuration.WithLabelValues("token_refresh").Observe(sum.Duration.Seconds())
	s.log.Info("token refresh run finished",
		zap.Int("refreshed", sum.Refreshed),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("dur", sum.Duration),
	)
	return sum, nil
}

// RefreshOne drives the per-account state machine for a single scheduler
// visit.
func (s *RefreshService) RefreshOne(ctx context.Context, acc model.SocialAccount) model.RefreshOutcome {
	out := model.RefreshOutcome{AccountID: acc.ID, Platform: acc.Platform}

	if acc.Status != model.AuthActive {
		out.Status = model.RefreshSkipped
		return out
	}
	if acc.TokenExpiresAt.Sub(s.nowFn()) > s.threshold {
		out.Status = model.RefreshSkipped
		return out
	}

	err := s.refreshTokens(ctx, acc)
	if err == nil {
		out.Status = model.RefreshRefreshed
		return out
	}

	out.Status = model.RefreshFailed
	out.Reason = reasonFor(err)
	monitoring.ConnectorErrors.WithLabelValues(string(acc.Platform), out.Reason).Inc()

	switch {
	case errors.Is(err, errs.ErrAuth):
		// The refresh token itself is dead; stop trying until the tenant
		// re-authorizes.
		if serr := s.accounts.SetStatus(ctx, acc.ID, model.AuthRevoked); serr != nil {
			s.log.Error("mark account revoked", zap.Stringer("account", acc.ID), zap.Error(serr))
		}
	case errors.Is(err, errs.ErrIntegrity):
		// Stored payload is corrupt; the credential is unusable.
		if serr := s.accounts.SetStatus(ctx, acc.ID, model.AuthExpired); serr != nil {
			s.log.Error("mark account expired", zap.Stringer("account", acc.ID), zap.Error(serr))
		}
	}

	s.log.Warn("token refresh failed",
		zap.Stringer("account", acc.ID),
		zap.String("platform", string(acc.Platform)),
		zap.String("reason", out.Reason),
	)
	return out
}

// refreshTokens decrypts, refreshes and re-encrypts one account's grant.
func (s *RefreshService) refreshTokens(ctx context.Context, acc model.SocialAccount) error {
	conn, err := s.registry.Resolve(acc.Platform)
	if err != nil {
		return err
	}
	creds, err := decryptCredentials(s.vault, acc)
	if err != nil {
		return err
	}

	tok, err := conn.RefreshAccessToken(ctx, acc, creds)
	if err != nil {
		return err
	}

	accessEnc, err := s.vault.Encrypt(tok.AccessToken)
	if err != nil {
		return err
	}
	refreshEnc := ""
	if tok.RefreshToken != "" {
		if refreshEnc, err = s.vault.Encrypt(tok.RefreshToken); err != nil {
			return err
		}
	}
	// Empty refreshEnc keeps the previously stored refresh token.
	return s.accounts.UpdateTokens(ctx, acc.ID, accessEnc, refreshEnc, tok.ExpiresAt)
}

// decryptCredentials opens both stored token payloads. The plaintext lives
// only for the duration of the surrounding network call.
func decryptCredentials(v *vault.Vault, acc model.SocialAccount) (model.Credentials, error) {
	access, err := v.Decrypt(acc.AccessTokenEnc)
	if err != nil {
		return model.Credentials{}, err
	}
	creds := model.Credentials{AccessToken: access, ExpiresAt: acc.TokenExpiresAt}
	if acc.RefreshTokenEnc != "" {
		refresh, err := v.Decrypt(acc.RefreshTokenEnc)
		if err != nil {
			return model.Credentials{}, err
		}
		creds.RefreshToken = refresh
	}
	return creds, nil
}

// reasonFor maps taxonomy sentinels onto stable outcome reasons.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, errs.ErrAuth):
		return "auth"
	case errors.Is(err, errs.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errs.ErrIntegrity):
		return "integrity"
	case errors.Is(err, errs.ErrConfig):
		return "config"
	case errors.Is(err, errs.ErrUnknownPlatform):
		return "unknown_platform"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transient"
	}
}
