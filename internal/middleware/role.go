package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/serviexpress/backend/internal/utils"
)

// RequireRoles rejects the request unless the session role is one of
// the allowed ones.
func RequireRoles(allowed ...string) fiber.Handler {
	allowedSet := map[string]bool{}
	for _, r := range allowed {
		allowedSet[strings.ToLower(r)] = true
	}

	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*utils.Claims)
		if !ok || claims == nil {
			return fiber.ErrUnauthorized
		}

		rol := strings.ToLower(strings.TrimSpace(claims.Rol))
		if !allowedSet[rol] {
			return fiber.NewError(fiber.StatusForbidden, "rol insuficiente")
		}

		return c.Next()
	}
}
