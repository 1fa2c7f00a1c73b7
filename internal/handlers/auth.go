package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/serviexpress/backend/internal/middleware"
	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int
}

type RegisterReq struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Telefono string `json:"telefono"`
	Ciudad   string `json:"ciudad"`
	Rol      string `json:"rol"` // cliente / proveedor (admin no se crea desde aquí)
}

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": false,
		"message": "Error de validación",
		"errors":  errs,
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Cuerpo de la petición inválido",
		})
	}

	nombre := strings.TrimSpace(req.Nombre)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	telefono := strings.TrimSpace(req.Telefono)
	ciudad := strings.TrimSpace(req.Ciudad)
	password := strings.TrimSpace(req.Password)

	rol := models.RolCliente
	if strings.ToLower(strings.TrimSpace(req.Rol)) == string(models.RolProveedor) {
		rol = models.RolProveedor
	}

	errors := FieldErrors{}

	if nombre == "" {
		errors.Add("nombre", "El nombre es obligatorio")
	}
	if email == "" {
		errors.Add("email", "El email es obligatorio")
	} else if !strings.Contains(email, "@") {
		errors.Add("email", "Formato de email inválido")
	}
	if password == "" {
		errors.Add("password", "La contraseña es obligatoria")
	} else if len(password) < 6 {
		errors.Add("password", "La contraseña debe tener al menos 6 caracteres")
	}
	if telefono != "" && len(telefono) < 7 {
		errors.Add("telefono", "Teléfono inválido")
	}

	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	var existing models.Usuario
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		errs := FieldErrors{}
		errs.Add("email", "El email ya está registrado")
		return validationFail(c, errs)
	} else if err != nil && err != gorm.ErrRecordNotFound {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Error interno del servidor",
		})
	}

	pw, err := utils.HashPassword(password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "No se pudo procesar la contraseña",
		})
	}

	u := models.Usuario{
		Nombre:   nombre,
		Email:    email,
		Password: pw,
		Rol:      rol,
		Telefono: telefono,
		Ciudad:   ciudad,
		Activo:   true,
	}

	if err := h.DB.Create(&u).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No se pudo completar el registro",
		})
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Rol), h.Expires)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "No se pudo generar el token",
		})
	}

	setAuthCookie(c, token, h.Expires)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registro exitoso",
		"data": fiber.Map{
			"usuario": fiber.Map{
				"id":       u.ID,
				"nombre":   u.Nombre,
				"email":    u.Email,
				"telefono": u.Telefono,
				"ciudad":   u.Ciudad,
				"rol":      u.Rol,
			},
		},
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": false,
			"message": "Cuerpo de la petición inválido",
		})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)

	errors := FieldErrors{}
	if email == "" {
		errors.Add("email", "El email es obligatorio")
	}
	if password == "" {
		errors.Add("password", "La contraseña es obligatoria")
	}

	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	var u models.Usuario
	err := h.DB.Where("email = ?", email).First(&u).Error

	if err != nil {
		// Email no registrado -> 200 igual para no filtrar cuentas
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": false,
			"message": "Email o contraseña incorrectos",
		})
	}

	if !u.Activo {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": false,
			"message": "La cuenta está inactiva",
		})
	}

	if !utils.CheckPassword(u.Password, password) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": false,
			"message": "Email o contraseña incorrectos",
		})
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Rol), h.Expires)
	if err != nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": false,
			"message": "No se pudo generar el token",
		})
	}

	setAuthCookie(c, token, h.Expires)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Inicio de sesión exitoso",
		"data": fiber.Map{
			"usuario": fiber.Map{
				"id":     u.ID,
				"nombre": u.Nombre,
				"email":  u.Email,
				"rol":    u.Rol,
			},
		},
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Sesión cerrada",
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var u models.Usuario
	if err := h.DB.First(&u, "id = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Usuario no encontrado",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    u,
	})
}

func setAuthCookie(c *fiber.Ctx, token string, expiresMin int) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   expiresMin * 60,
	})
}
