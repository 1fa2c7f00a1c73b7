package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviexpress/backend/internal/lifecycle"
	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/realtime"
	"github.com/serviexpress/backend/internal/services/pagos"
)

type SolicitudHandler struct {
	DB    *gorm.DB
	Hub   *realtime.Hub
	Pagos *pagos.Service
}

func NewSolicitudHandler(db *gorm.DB, hub *realtime.Hub, pagosSvc *pagos.Service) *SolicitudHandler {
	return &SolicitudHandler{DB: db, Hub: hub, Pagos: pagosSvc}
}

type crearSolicitudReq struct {
	ServicioID       uint   `json:"servicio_id"`
	Detalles         string `json:"detalles"`
	DireccionEntrega string `json:"direccion_entrega"`
	FechaEstimada    string `json:"fecha_estimada"` // RFC3339, opcional
}

// Create opens a solicitud over a DISPONIBLE servicio. The servicio
// moves to OCUPADO with the requesting cliente attached.
func (h *SolicitudHandler) Create(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req crearSolicitudReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}
	if req.ServicioID == 0 {
		errs := FieldErrors{}
		errs.Add("servicio_id", "El servicio es obligatorio")
		return validationFail(c, errs)
	}

	var fechaEstimada *time.Time
	if strings.TrimSpace(req.FechaEstimada) != "" {
		t, err := time.Parse(time.RFC3339, req.FechaEstimada)
		if err != nil {
			errs := FieldErrors{}
			errs.Add("fecha_estimada", "Formato de fecha inválido (se espera RFC3339)")
			return validationFail(c, errs)
		}
		fechaEstimada = &t
	}

	var solicitud models.Solicitud
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var servicio models.Servicio
		if err := tx.First(&servicio, "id = ?", req.ServicioID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Servicio no encontrado")
		}
		if servicio.Estado != models.ServicioDisponible {
			return fiber.NewError(fiber.StatusConflict, "El servicio no está disponible")
		}

		solicitud = models.Solicitud{
			FechaSolicitud:   time.Now(),
			Estado:           models.SolicitudPendiente,
			Detalles:         strings.TrimSpace(req.Detalles),
			DireccionEntrega: strings.TrimSpace(req.DireccionEntrega),
			FechaEstimada:    fechaEstimada,
			ServicioID:       servicio.ID,
			ClienteID:        uid,
		}
		if err := tx.Create(&solicitud).Error; err != nil {
			return err
		}

		servicio.Estado = models.ServicioOcupado
		servicio.ClienteID = &uid
		return tx.Save(&servicio).Error
	})
	if err != nil {
		if fe, okErr := err.(*fiber.Error); okErr {
			return fail(c, fe.Code, fe.Message)
		}
		return fail(c, fiber.StatusInternalServerError, "No se pudo crear la solicitud")
	}

	h.notificarSolicitud(&solicitud, "solicitud_creada")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Solicitud creada",
		"data":    solicitud,
	})
}

// Historial lists solicitudes for the session: all for admin, own
// servicios' for proveedor, own for cliente.
func (h *SolicitudHandler) Historial(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	q := h.DB.Preload("Servicio").Preload("Cliente").Preload("Pago").
		Order("fecha_solicitud DESC")

	switch currentRol(c) {
	case models.RolAdmin:
		// sin filtro
	case models.RolProveedor:
		q = q.Joins("JOIN servicios ON servicios.id = solicitudes.servicio_id").
			Where("servicios.proveedor_id = ?", uid)
	default:
		q = q.Where("cliente_id = ?", uid)
	}

	if estado := strings.TrimSpace(c.Query("estado")); estado != "" {
		q = q.Where("solicitudes.estado = ?", strings.ToUpper(estado))
	}

	var solicitudes []models.Solicitud
	if err := q.Find(&solicitudes).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudieron listar las solicitudes")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    solicitudes,
	})
}

func (h *SolicitudHandler) Detalle(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	var solicitud models.Solicitud
	if err := h.DB.Preload("Servicio").Preload("Cliente").Preload("Pago").
		First(&solicitud, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Solicitud no encontrada")
	}

	if !h.puedeVer(c, &solicitud, uid) {
		return fail(c, fiber.StatusForbidden, "No tiene acceso a esta solicitud")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    solicitud,
	})
}

// Pagar starts the hosted checkout for a solicitud owned by the
// session cliente.
func (h *SolicitudHandler) Pagar(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	var solicitud models.Solicitud
	if err := h.DB.First(&solicitud, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Solicitud no encontrada")
	}
	if solicitud.ClienteID != uid {
		return fail(c, fiber.StatusForbidden, "La solicitud pertenece a otro cliente")
	}

	var req struct {
		Metodo      string `json:"metodo"`
		Descripcion string `json:"descripcion"`
		Email       string `json:"email"`
	}
	_ = c.BodyParser(&req) // cuerpo opcional

	session, err := h.Pagos.IniciarCheckout(pagos.CheckoutInit{
		SolicitudID: solicitud.ID,
		Metodo:      models.MetodoPago(strings.ToUpper(req.Metodo)),
		Descripcion: strings.TrimSpace(req.Descripcion),
		Email:       strings.TrimSpace(req.Email),
	})
	if err != nil {
		return fail(c, pagoErrorStatus(err), err.Error())
	}

	return ok(c, "Checkout iniciado", session)
}

// Cancelar frees the servicio back to DISPONIBLE and removes the
// solicitud. Only the owning cliente can cancel, and only before a
// payment was approved.
func (h *SolicitudHandler) Cancelar(c *fiber.Ctx) error {
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
	if solicitud.ClienteID != uid && currentRol(c) != models.RolAdmin {
		return fail(c, fiber.StatusForbidden, "La solicitud pertenece a otro cliente")
	}

	switch solicitud.Estado {
	case models.SolicitudPagoAceptado, models.SolicitudEnProceso, models.SolicitudFinalizado:
		return fail(c, fiber.StatusConflict, "La solicitud ya tiene un pago aceptado y no se puede cancelar")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if solicitud.Servicio != nil {
			servicio := solicitud.Servicio
			servicio.Estado = models.ServicioDisponible
			servicio.ClienteID = nil
			if err := tx.Save(servicio).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("solicitud_id = ?", solicitud.ID).Delete(&models.Pago{}).Error; err != nil {
			return err
		}
		return tx.Delete(&solicitud).Error
	})
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo cancelar la solicitud")
	}

	h.notificarSolicitud(&solicitud, "solicitud_cancelada")

	return ok(c, "Solicitud cancelada", nil)
}

type cambiarEstadoReq struct {
	Estado string `json:"estado"`
}

// CambiarEstado applies a lifecycle transition on behalf of the
// session role. Invalid transitions are rejected with the reason.
func (h *SolicitudHandler) CambiarEstado(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	var req cambiarEstadoReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}
	destino := models.EstadoSolicitud(strings.ToUpper(strings.TrimSpace(req.Estado)))
	if destino == "" {
		errs := FieldErrors{}
		errs.Add("estado", "El estado es obligatorio")
		return validationFail(c, errs)
	}

	var solicitud models.Solicitud
	if err := h.DB.Preload("Servicio").First(&solicitud, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Solicitud no encontrada")
	}

	var actor string
	switch currentRol(c) {
	case models.RolAdmin:
		actor = lifecycle.ActorAdmin
	case models.RolProveedor:
		actor = lifecycle.ActorProveedor
		if solicitud.Servicio == nil || solicitud.Servicio.ProveedorID != uid {
			return fail(c, fiber.StatusForbidden, "La solicitud pertenece a otro proveedor")
		}
	default:
		actor = lifecycle.ActorCliente
		if solicitud.ClienteID != uid {
			return fail(c, fiber.StatusForbidden, "La solicitud pertenece a otro cliente")
		}
	}

	if err := lifecycle.CanTransition(solicitud.Estado, destino, actor); err != nil {
		return fail(c, fiber.StatusConflict, err.Error())
	}

	solicitud.Estado = destino
	if err := h.DB.Save(&solicitud).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo actualizar la solicitud")
	}

	h.notificarSolicitud(&solicitud, "solicitud_actualizada")

	return ok(c, "Estado actualizado", solicitud)
}

func (h *SolicitudHandler) puedeVer(c *fiber.Ctx, s *models.Solicitud, uid uuid.UUID) bool {
	switch currentRol(c) {
	case models.RolAdmin:
		return true
	case models.RolProveedor:
		return s.Servicio != nil && s.Servicio.ProveedorID == uid
	default:
		return s.ClienteID == uid
	}
}

func (h *SolicitudHandler) notificarSolicitud(s *models.Solicitud, tipo string) {
	if h.Hub == nil {
		return
	}
	evento := fiber.Map{
		"type":         tipo,
		"solicitud_id": s.ID,
		"estado":       s.Estado,
	}
	if s.Servicio != nil {
		h.Hub.SendToSolicitud(s.ClienteID, s.Servicio.ProveedorID, evento)
		return
	}
	h.Hub.SendToUser(s.ClienteID, evento)
}
