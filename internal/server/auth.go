package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Query parameter names that callers sometimes use to smuggle credentials.
// URLs end up in access logs and proxy caches, so any of these is rejected
// outright rather than honored.
var forbiddenQueryKeys = []string{"token", "secret", "access_token", "api_key", "apikey"}

// requireTriggerSecret admits requests bearing the shared secret in the
// Authorization header and nothing else.
func (s *Server) requireTriggerSecret(c *fiber.Ctx) error {
	for _, key := range forbiddenQueryKeys {
		if len(c.Query(key)) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "credentials are not accepted in the query string",
			})
		}
	}

	if s.cfg.TriggerSecret == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "misconfigured"})
	}

	auth := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authorization required"})
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.TriggerSecret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authorization required"})
	}
	return c.Next()
}
