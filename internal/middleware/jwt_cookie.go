package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/serviexpress/backend/internal/utils"
)

const AuthCookie = "se_token"

// JWTFromCookie reads and validates the session token from the auth
// cookie and stores the parsed claims for downstream middleware.
func JWTFromCookie(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(AuthCookie)
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}

		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}
