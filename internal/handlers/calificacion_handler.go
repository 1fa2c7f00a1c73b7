package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/services/ranking"
)

type CalificacionHandler struct {
	DB      *gorm.DB
	Ranking *ranking.Service
}

func NewCalificacionHandler(db *gorm.DB, rankingSvc *ranking.Service) *CalificacionHandler {
	return &CalificacionHandler{DB: db, Ranking: rankingSvc}
}

func (h *CalificacionHandler) List(c *fiber.Ctx) error {
	q := h.DB.Preload("Cliente").Preload("Proveedor").Preload("Servicio").
		Order("fecha DESC")

	if rating := c.QueryInt("rating", 0); rating >= 1 && rating <= 5 {
		q = q.Where("puntuacion = ?", rating)
	}
	if prov := strings.TrimSpace(c.Query("proveedor")); prov != "" {
		provID, err := uuid.Parse(prov)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "ID de proveedor inválido")
		}
		q = q.Where("proveedor_id = ?", provID)
	}

	var calificaciones []models.Calificacion
	if err := q.Find(&calificaciones).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudieron listar las calificaciones")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    calificaciones,
	})
}

// ListMine lists the session client's own calificaciones.
func (h *CalificacionHandler) ListMine(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var calificaciones []models.Calificacion
	if err := h.DB.Preload("Proveedor").Preload("Servicio").
		Where("cliente_id = ?", uid).
		Order("fecha DESC").
		Find(&calificaciones).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudieron listar las calificaciones")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    calificaciones,
	})
}

type crearCalificacionReq struct {
	ProveedorID string `json:"proveedor_id"`
	ServicioID  *uint  `json:"servicio_id"`
	Puntuacion  int    `json:"puntuacion"`
	Comentario  string `json:"comentario"`
}

// Create records a rating. Requires a FINALIZADO solicitud between
// cliente and proveedor (optionally scoped to the given servicio), and
// at most one rating per (cliente, proveedor, servicio).
func (h *CalificacionHandler) Create(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req crearCalificacionReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}

	errors := FieldErrors{}
	provID, errParse := uuid.Parse(strings.TrimSpace(req.ProveedorID))
	if errParse != nil {
		errors.Add("proveedor_id", "El proveedor es obligatorio")
	}
	if req.Puntuacion < 1 || req.Puntuacion > 5 {
		errors.Add("puntuacion", "La puntuación debe estar entre 1 y 5")
	}
	if len(req.Comentario) > 500 {
		errors.Add("comentario", "El comentario no puede superar 500 caracteres")
	}
	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	var proveedor models.Usuario
	if err := h.DB.First(&proveedor, "id = ? AND rol = ?", provID, models.RolProveedor).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Proveedor no encontrado")
	}

	// Debe existir una solicitud FINALIZADO entre las partes.
	finalizadas := h.DB.Model(&models.Solicitud{}).
		Joins("JOIN servicios ON servicios.id = solicitudes.servicio_id").
		Where("solicitudes.cliente_id = ? AND servicios.proveedor_id = ? AND solicitudes.estado = ?",
			uid, provID, models.SolicitudFinalizado)
	if req.ServicioID != nil {
		finalizadas = finalizadas.Where("solicitudes.servicio_id = ?", *req.ServicioID)
	}
	var terminadas int64
	if err := finalizadas.Count(&terminadas).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo verificar la solicitud")
	}
	if terminadas == 0 {
		return fail(c, fiber.StatusConflict,
			"Solo se puede calificar después de un servicio finalizado")
	}

	// Una calificación por (cliente, proveedor, servicio).
	dup := h.DB.Model(&models.Calificacion{}).
		Where("cliente_id = ? AND proveedor_id = ?", uid, provID)
	if req.ServicioID != nil {
		dup = dup.Where("servicio_id = ?", *req.ServicioID)
	} else {
		dup = dup.Where("servicio_id IS NULL")
	}
	var repetidas int64
	if err := dup.Count(&repetidas).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo verificar la calificación")
	}
	if repetidas > 0 {
		return fail(c, fiber.StatusConflict, "Ya calificó a este proveedor")
	}

	calificacion := models.Calificacion{
		ClienteID:   uid,
		ProveedorID: provID,
		ServicioID:  req.ServicioID,
		Puntuacion:  req.Puntuacion,
		Comentario:  strings.TrimSpace(req.Comentario),
	}
	if err := h.DB.Create(&calificacion).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo guardar la calificación")
	}

	if h.Ranking != nil {
		h.Ranking.Invalidate(c.Context())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Calificación registrada",
		"data":    calificacion,
	})
}

// TopProveedores exposes the cached provider ranking.
func (h *CalificacionHandler) TopProveedores(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	minResenas := c.QueryInt("min", 3)

	top, err := h.Ranking.TopProveedores(c.Context(), limit, int64(minResenas))
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo calcular el ranking")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    top,
	})
}
