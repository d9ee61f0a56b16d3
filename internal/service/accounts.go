package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/socialpulse/syncd/internal/connector"
	"github.com/socialpulse/syncd/internal/demo"
	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/limiter"
	"github.com/socialpulse/syncd/internal/model"
	"github.com/socialpulse/syncd/internal/repository"
	"github.com/socialpulse/syncd/internal/vault"
)

const stateTTL = 15 * time.Minute

// callbackGate throttles OAuth callback handling per remote address.
var callbackGate = limiter.Config{Max: 10, Window: time.Minute, Block: 5 * time.Minute}

// stateClaims binds an OAuth state token to one tenant and platform.
type stateClaims struct {
	TenantID string `json:"tid"`
	Platform string `json:"pfm"`
	jwt.RegisteredClaims
}

// CompleteConnectInput carries the OAuth callback parameters. External id and
// display name are resolved by the front-end collaborator from the platform's
// profile call.
type CompleteConnectInput struct {
	State       string
	Code        string
	ExternalID  string
	DisplayName string
	RemoteIP    string
}

// AccountService manages the connect/callback account lifecycle.
type AccountService struct {
	accounts    repository.AccountRepository
	guard       *demo.Guard
	vault       *vault.Vault
	gate        connector.Gate
	apps        map[model.Platform]connector.App
	signKey     []byte
	redirectURL string
	log         *zap.Logger
	nowFn       func() time.Time
	endpointFn  func(model.Platform) (oauth2.Endpoint, error)
}

// NewAccountService constructs the account management service.
func NewAccountService(
	accounts repository.AccountRepository,
	guard *demo.Guard,
	v *vault.Vault,
	gate connector.Gate,
	apps map[model.Platform]connector.App,
	signKey []byte,
	redirectURL string,
	log *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts:    accounts,
		guard:       guard,
		vault:       v,
		gate:        gate,
		apps:        apps,
		signKey:     signKey,
		redirectURL: redirectURL,
		log:         log,
		nowFn:       time.Now,
		endpointFn:  connector.OAuthEndpoint,
	}
}

func (s *AccountService) oauthConfig(p model.Platform) (oauth2.Config, error) {
	app, ok := s.apps[p]
	if !ok || app.ClientID == "" {
		return oauth2.Config{}, fmt.Errorf("platform %s app not configured: %w", p, errs.ErrConfig)
	}
	ep, err := s.endpointFn(p)
	if err != nil {
		return oauth2.Config{}, err
	}
	return oauth2.Config{
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		Endpoint:     ep,
		RedirectURL:  s.redirectURL,
		Scopes:       connector.OAuthScopes(p),
	}, nil
}

// BeginConnect returns the platform authorize URL with a signed state token.
// Demo tenants cannot connect real accounts.
func (s *AccountService) BeginConnect(ctx context.Context, tenantID uuid.UUID, platform model.Platform) (string, error) {
	if !platform.Valid() || platform == model.PlatformMock {
		return "", fmt.Errorf("connect: %q: %w", platform, errs.ErrUnknownPlatform)
	}
	if err := s.guard.AssertNotDemoWritable(ctx, tenantID); err != nil {
		return "", err
	}

	cfg, err := s.oauthConfig(platform)
	if err != nil {
		return "", err
	}

	now := s.nowFn()
	claims := stateClaims{
		TenantID: tenantID.String(),
		Platform: string(platform),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// CompleteConnect verifies the state, exchanges the code, encrypts the grant
// and upserts the account on its identity key. Auth status becomes active.
func (s *AccountService) CompleteConnect(ctx context.Context, in CompleteConnectInput) (*model.SocialAccount, error) {
	if res := s.gate.Check("oauth:"+in.RemoteIP, callbackGate); !res.Allowed {
		return nil, fmt.Errorf("connect: retry in %s: %w", res.RetryAfter, errs.ErrRateLimited)
	}

	tenantID, platform, err := s.verifyState(in.State)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ExternalID) == "" {
		return nil, fmt.Errorf("connect: empty external id: %w", errs.ErrAuth)
	}
	if err := s.guard.AssertNotDemoWritable(ctx, tenantID); err != nil {
		return nil, err
	}

	cfg, err := s.oauthConfig(platform)
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, in.Code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, fmt.Errorf("connect: code exchange status %d: %w", rerr.Response.StatusCode, errs.ErrAuth)
		}
		return nil, fmt.Errorf("connect: code exchange: %v: %w", err, errs.ErrTransient)
	}

	accessEnc, err := s.vault.Encrypt(tok.AccessToken)
	if err != nil {
		return nil, err
	}
	refreshEnc := ""
	if tok.RefreshToken != "" {
		if refreshEnc, err = s.vault.Encrypt(tok.RefreshToken); err != nil {
			return nil, err
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	acc := &model.SocialAccount{
		ID:              id,
		TenantID:        tenantID,
		Platform:        platform,
		ExternalID:      strings.TrimSpace(in.ExternalID),
		DisplayName:     strings.TrimSpace(in.DisplayName),
		Status:          model.AuthActive,
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		TokenExpiresAt:  tok.Expiry,
	}
	if err := s.accounts.Upsert(ctx, acc); err != nil {
		return nil, fmt.Errorf("connect: store account: %w", err)
	}
	s.log.Info("account connected",
		zap.Stringer("tenant", tenantID),
		zap.String("platform", string(platform)),
		zap.String("external_id", acc.ExternalID),
	)
	return acc, nil
}

// verifyState checks the HS256 signature and TTL on the state token.
func (s *AccountService) verifyState(state string) (uuid.UUID, model.Platform, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("connect: bad state: %w", errs.ErrAuth)
	}
	tenantID, err := uuid.FromString(claims.TenantID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("connect: bad state subject: %w", errs.ErrAuth)
	}
	p := model.Platform(claims.Platform)
	if !p.Valid() {
		return uuid.Nil, "", fmt.Errorf("connect: bad state platform: %w", errs.ErrAuth)
	}
	return tenantID, p, nil
}
