package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/utils"
)

// UsuarioHandler is the admin-side user management surface.
type UsuarioHandler struct {
	DB *gorm.DB
}

func NewUsuarioHandler(db *gorm.DB) *UsuarioHandler {
	return &UsuarioHandler{DB: db}
}

func (h *UsuarioHandler) List(c *fiber.Ctx) error {
	q := h.DB.Order("created_at DESC")

	if rol := strings.TrimSpace(c.Query("rol")); rol != "" {
		q = q.Where("rol = ?", strings.ToLower(rol))
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(nombre) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var usuarios []models.Usuario
	if err := q.Find(&usuarios).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudieron listar los usuarios")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    usuarios,
	})
}

type createUsuarioReq struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Telefono string `json:"telefono"`
	Ciudad   string `json:"ciudad"`
	Rol      string `json:"rol"`
}

func (h *UsuarioHandler) Create(c *fiber.Ctx) error {
	var req createUsuarioReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}

	nombre := strings.TrimSpace(req.Nombre)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)
	rol := models.Rol(strings.ToLower(strings.TrimSpace(req.Rol)))

	errors := FieldErrors{}
	if nombre == "" {
		errors.Add("nombre", "El nombre es obligatorio")
	}
	if email == "" || !strings.Contains(email, "@") {
		errors.Add("email", "Email inválido")
	}
	if len(password) < 6 {
		errors.Add("password", "La contraseña debe tener al menos 6 caracteres")
	}
	switch rol {
	case models.RolAdmin, models.RolCliente, models.RolProveedor:
	default:
		errors.Add("rol", "Rol desconocido")
	}
	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	var existing models.Usuario
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		errs := FieldErrors{}
		errs.Add("email", "El email ya está registrado")
		return validationFail(c, errs)
	}

	pw, err := utils.HashPassword(password)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
	}

	u := models.Usuario{
		Nombre:   nombre,
		Email:    email,
		Password: pw,
		Rol:      rol,
		Telefono: strings.TrimSpace(req.Telefono),
		Ciudad:   strings.TrimSpace(req.Ciudad),
		Activo:   true,
	}
	if err := h.DB.Create(&u).Error; err != nil {
		return fail(c, fiber.StatusBadRequest, "No se pudo crear el usuario")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Usuario creado",
		"data":    u,
	})
}

type updateUsuarioReq struct {
	Nombre   *string `json:"nombre"`
	Telefono *string `json:"telefono"`
	Ciudad   *string `json:"ciudad"`
	Rol      *string `json:"rol"`
	Activo   *bool   `json:"activo"`
}

func (h *UsuarioHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	var u models.Usuario
	if err := h.DB.First(&u, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Usuario no encontrado")
	}

	var req updateUsuarioReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}

	if req.Nombre != nil && strings.TrimSpace(*req.Nombre) != "" {
		u.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Telefono != nil {
		u.Telefono = strings.TrimSpace(*req.Telefono)
	}
	if req.Ciudad != nil {
		u.Ciudad = strings.TrimSpace(*req.Ciudad)
	}
	if req.Rol != nil {
		rol := models.Rol(strings.ToLower(strings.TrimSpace(*req.Rol)))
		switch rol {
		case models.RolAdmin, models.RolCliente, models.RolProveedor:
			u.Rol = rol
		default:
			return fail(c, fiber.StatusBadRequest, "Rol desconocido")
		}
	}
	if req.Activo != nil {
		u.Activo = *req.Activo
	}

	if err := h.DB.Save(&u).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo actualizar el usuario")
	}

	return ok(c, "Usuario actualizado", u)
}

// Delete removes a user. Users referenced by servicios, solicitudes or
// calificaciones cannot be removed; the FK violation comes back as a
// friendly message instead of a 500.
func (h *UsuarioHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	var u models.Usuario
	if err := h.DB.First(&u, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Usuario no encontrado")
	}

	if err := h.DB.Delete(&u).Error; err != nil {
		return fail(c, fiber.StatusConflict,
			"No se puede eliminar: el usuario tiene servicios, solicitudes o calificaciones asociadas")
	}

	return ok(c, "Usuario eliminado", nil)
}
