package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/serviexpress/backend/internal/utils"
)

// AttachJWTLocals copies the user id and role out of the validated
// claims into plain locals so handlers don't deal with token types.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*utils.Claims)
		if !ok || claims == nil {
			return fiber.ErrUnauthorized
		}

		uid := strings.TrimSpace(claims.UserID)
		rol := strings.ToLower(strings.TrimSpace(claims.Rol))

		if uid == "" {
			return fiber.ErrUnauthorized
		}

		c.Locals("userId", uid)
		c.Locals("rol", rol)

		return c.Next()
	}
}
