package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/serviexpress/backend/internal/models"
)

var errSinSesion = errors.New("sesión no válida")

// currentUserUUID reads the authenticated user id set by the JWT
// middleware.
func currentUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, ok := c.Locals("userId").(string)
	if !ok || raw == "" {
		return uuid.Nil, errSinSesion
	}
	return uuid.Parse(raw)
}

func currentRol(c *fiber.Ctx) models.Rol {
	raw, _ := c.Locals("rol").(string)
	return models.Rol(raw)
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": msg,
	})
}

func ok(c *fiber.Ctx, msg string, data interface{}) error {
	body := fiber.Map{"success": true, "message": msg}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(body)
}
