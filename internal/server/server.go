// Package server exposes the job trigger surface over HTTP: token refresh,
// sync orchestration and the OAuth connect flow. Endpoints under /v1 require
// the shared trigger secret; the OAuth completion route authenticates through
// its signed state instead.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/model"
	"github.com/socialpulse/syncd/internal/service"
)

// RefreshJob runs one token refresh pass.
type RefreshJob interface {
	Run(ctx context.Context) (service.RefreshSummary, error)
}

// SyncJob runs sync passes at tenant or global scope.
type SyncJob interface {
	SyncTenant(ctx context.Context, tenantID uuid.UUID, platform model.Platform) (service.SyncSummary, error)
	SyncAll(ctx context.Context, platform model.Platform) (service.SyncSummary, error)
}

// AccountFlow drives the OAuth connect handshake.
type AccountFlow interface {
	BeginConnect(ctx context.Context, tenantID uuid.UUID, platform model.Platform) (string, error)
	CompleteConnect(ctx context.Context, in service.CompleteConnectInput) (*model.SocialAccount, error)
}

// Config carries the server's listen address and trigger secret.
type Config struct {
	Addr          string
	TriggerSecret string
}

// Server is the HTTP trigger surface.
type Server struct {
	app *fiber.App
	cfg Config
	log *zap.Logger

	refresh  RefreshJob
	sync     SyncJob
	accounts AccountFlow
}

// New wires routes and middleware into a ready-to-listen server.
func New(cfg Config, refresh RefreshJob, sync SyncJob, accounts AccountFlow, log *zap.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "syncd",
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
		}),
		cfg:      cfg,
		log:      log,
		refresh:  refresh,
		sync:     sync,
		accounts: accounts,
	}

	s.app.Use(s.requestLog)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public by design: the browser redirect cannot carry the trigger secret.
	// The signed state inside the payload is the authentication.
	s.app.Post("/oauth/complete", s.handleCompleteConnect)

	v1 := s.app.Group("/v1", s.requireTriggerSecret)
	v1.Post("/jobs/refresh-tokens", s.handleRefresh)
	v1.Post("/jobs/sync", s.handleSync)
	v1.Post("/tenants/:tenantID/connect/:platform", s.handleBeginConnect)

	return s
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(5 * time.Second)
	case err := <-errCh:
		return err
	}
}

// App exposes the underlying fiber app for in-process tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) requestLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Info("http request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("dur", time.Since(start)),
	)
	return err
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	sum, err := s.refresh.Run(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"refreshed":   sum.Refreshed,
		"failed":      sum.Failed,
		"skipped":     sum.Skipped,
		"duration_ms": sum.Duration.Milliseconds(),
	})
}

type syncRequest struct {
	TenantID string `json:"tenant_id"`
	Platform string `json:"platform"`
}

func (s *Server) handleSync(c *fiber.Ctx) error {
	req := syncRequest{
		TenantID: c.Query("tenant"),
		Platform: c.Query("platform"),
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
		}
	}

	platform := model.Platform(req.Platform)
	if req.Platform != "" && !platform.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown platform"})
	}

	var (
		sum service.SyncSummary
		err error
	)
	if req.TenantID != "" {
		tenantID, perr := uuid.FromString(req.TenantID)
		if perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed tenant id"})
		}
		sum, err = s.sync.SyncTenant(c.Context(), tenantID, platform)
	} else {
		sum, err = s.sync.SyncAll(c.Context(), platform)
	}
	if err != nil {
		return s.fail(c, err)
	}

	if sum.SkippedDemo {
		return c.JSON(fiber.Map{"scope": sum.Scope, "skipped": "demo_tenant"})
	}
	return c.JSON(fiber.Map{
		"scope":       sum.Scope,
		"platform":    sum.Platform,
		"synced":      sum.Synced,
		"failed":      sum.Failed,
		"duration_ms": sum.Duration.Milliseconds(),
	})
}

func (s *Server) handleBeginConnect(c *fiber.Ctx) error {
	tenantID, err := uuid.FromString(c.Params("tenantID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed tenant id"})
	}
	platform := model.Platform(c.Params("platform"))

	authorizeURL, err := s.accounts.BeginConnect(c.Context(), tenantID, platform)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"authorize_url": authorizeURL})
}

type completeConnectRequest struct {
	State       string `json:"state"`
	Code        string `json:"code"`
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleCompleteConnect(c *fiber.Ctx) error {
	var req completeConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	acc, err := s.accounts.CompleteConnect(c.Context(), service.CompleteConnectInput{
		State:       req.State,
		Code:        req.Code,
		ExternalID:  req.ExternalID,
		DisplayName: req.DisplayName,
		RemoteIP:    c.IP(),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"account_id":   acc.ID.String(),
		"platform":     string(acc.Platform),
		"external_id":  acc.ExternalID,
		"display_name": acc.DisplayName,
		"status":       string(acc.Status),
	})
}

// fail maps taxonomy sentinels to status codes. Responses never echo error
// details that could carry token material.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status, msg = fiber.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrUnknownPlatform):
		status, msg = fiber.StatusBadRequest, "unknown platform"
	case errors.Is(err, errs.ErrDemoWriteBlocked):
		status, msg = fiber.StatusForbidden, "demo tenant is read only"
	case errors.Is(err, errs.ErrAuth):
		status, msg = fiber.StatusUnauthorized, "authorization failed"
	case errors.Is(err, errs.ErrRateLimited):
		status, msg = fiber.StatusTooManyRequests, "rate limited"
	case errors.Is(err, errs.ErrConfig):
		status, msg = fiber.StatusInternalServerError, "misconfigured"
	}
	s.log.Warn("request failed",
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.String("reason", msg),
	)
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
