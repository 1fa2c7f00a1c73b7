package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/realtime"
)

type ProveedorHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

func NewProveedorHandler(db *gorm.DB, hub *realtime.Hub) *ProveedorHandler {
	return &ProveedorHandler{DB: db, Hub: hub}
}

type disponibilidadReq struct {
	Disponibilidad bool `json:"disponibilidad"`
}

func (h *ProveedorHandler) SetDisponibilidad(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req disponibilidadReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}

	if err := h.DB.Model(&models.Usuario{}).
		Where("id = ?", uid).
		Update("disponibilidad", req.Disponibilidad).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo actualizar la disponibilidad")
	}

	return ok(c, "Disponibilidad actualizada", fiber.Map{
		"disponibilidad": req.Disponibilidad,
	})
}

type tarifaReq struct {
	Tarifa int64 `json:"tarifa"` // COP por hora
}

func (h *ProveedorHandler) SetTarifa(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req tarifaReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}
	if req.Tarifa < 0 {
		errs := FieldErrors{}
		errs.Add("tarifa", "La tarifa no puede ser negativa")
		return validationFail(c, errs)
	}

	if err := h.DB.Model(&models.Usuario{}).
		Where("id = ?", uid).
		Update("tarifa", req.Tarifa).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo actualizar la tarifa")
	}

	return ok(c, "Tarifa actualizada", fiber.Map{
		"tarifa": req.Tarifa,
	})
}

// SolicitudesPendientes lists the open solicitudes over the session
// provider's servicios.
func (h *ProveedorHandler) SolicitudesPendientes(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var solicitudes []models.Solicitud
	if err := h.DB.Preload("Servicio").Preload("Cliente").
		Joins("JOIN servicios ON servicios.id = solicitudes.servicio_id").
		Where("servicios.proveedor_id = ?", uid).
		Where("solicitudes.estado IN ?", []models.EstadoSolicitud{
			models.SolicitudPendiente,
			models.SolicitudPagoEnProceso,
			models.SolicitudPagoAceptado,
		}).
		Order("solicitudes.fecha_solicitud DESC").
		Find(&solicitudes).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudieron listar las solicitudes")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    solicitudes,
	})
}

// AceptarSolicitud marks the solicitud's servicio as ACEPTADA, telling
// the cliente the provider will take the job.
func (h *ProveedorHandler) AceptarSolicitud(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	var solicitud models.Solicitud
	if err := h.DB.Preload("Servicio").First(&solicitud, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Solicitud no encontrada")
	}
	if solicitud.Servicio == nil || solicitud.Servicio.ProveedorID != uid {
		return fail(c, fiber.StatusForbidden, "La solicitud pertenece a otro proveedor")
	}

	servicio := solicitud.Servicio
	servicio.Estado = models.ServicioAceptada
	if err := h.DB.Save(servicio).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo aceptar la solicitud")
	}

	if h.Hub != nil {
		h.Hub.SendToUser(solicitud.ClienteID, fiber.Map{
			"type":         "solicitud_aceptada",
			"solicitud_id": solicitud.ID,
			"servicio_id":  servicio.ID,
		})
	}

	return ok(c, "Solicitud aceptada", solicitud)
}
