package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/services/pagos"
)

type PagoHandler struct {
	Pagos *pagos.Service
}

func NewPagoHandler(svc *pagos.Service) *PagoHandler {
	return &PagoHandler{Pagos: svc}
}

type checkoutReq struct {
	SolicitudID uint   `json:"solicitud_id"`
	Metodo      string `json:"metodo"`
	Descripcion string `json:"descripcion"`
	Email       string `json:"email"`
}

// Checkout starts the hosted-checkout flow for a solicitud.
func (h *PagoHandler) Checkout(c *fiber.Ctx) error {
	var req checkoutReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}
	if req.SolicitudID == 0 {
		errs := FieldErrors{}
		errs.Add("solicitud_id", "La solicitud es obligatoria")
		return validationFail(c, errs)
	}

	session, err := h.Pagos.IniciarCheckout(pagos.CheckoutInit{
		SolicitudID: req.SolicitudID,
		Metodo:      models.MetodoPago(strings.ToUpper(strings.TrimSpace(req.Metodo))),
		Descripcion: strings.TrimSpace(req.Descripcion),
		Email:       strings.TrimSpace(req.Email),
	})
	if err != nil {
		return fail(c, pagoErrorStatus(err), err.Error())
	}

	return ok(c, "Checkout iniciado", session)
}

// Webhook receives gateway events. The checksum travels in the
// X-Event-Checksum header (or inside the body's signature block).
func (h *PagoHandler) Webhook(c *fiber.Ctx) error {
	checksum := c.Get("X-Event-Checksum")
	body := c.Body()

	if err := h.Pagos.ProcesarWebhook(checksum, body); err != nil {
		return fail(c, pagoErrorStatus(err), err.Error())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Evento procesado",
	})
}

func (h *PagoHandler) GetOne(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	pago, err := h.Pagos.GetByID(id)
	if err != nil {
		return fail(c, pagoErrorStatus(err), err.Error())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    pago,
	})
}

// List is the admin listing.
func (h *PagoHandler) List(c *fiber.Ctx) error {
	lista, err := h.Pagos.ListAll()
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudieron listar los pagos")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    lista,
	})
}

// GetByToken resolves a public checkout token without a session.
func (h *PagoHandler) GetByToken(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		return fail(c, fiber.StatusBadRequest, "Token inválido")
	}

	pago, err := h.Pagos.GetByToken(token)
	if err != nil {
		return fail(c, pagoErrorStatus(err), err.Error())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"referencia":   pago.ReferenciaExterna,
			"monto_cents":  pago.Monto,
			"moneda":       pago.Moneda,
			"estado":       pago.Estado,
			"descripcion":  pago.Descripcion,
			"solicitud_id": pago.SolicitudID,
			"expira_en":    pago.TokenExpiraEn,
		},
	})
}

func pagoErrorStatus(err error) int {
	switch {
	case errors.Is(err, pagos.ErrSolicitudNoEncontrada),
		errors.Is(err, pagos.ErrPagoNoEncontrado):
		return fiber.StatusNotFound
	case errors.Is(err, pagos.ErrEventoInvalido):
		return fiber.StatusBadRequest
	case errors.Is(err, pagos.ErrFirmaInvalida):
		return fiber.StatusUnauthorized
	case errors.Is(err, pagos.ErrMontoNoCoincide),
		errors.Is(err, pagos.ErrPagoYaAprobado):
		return fiber.StatusConflict
	case errors.Is(err, pagos.ErrTokenExpirado):
		return fiber.StatusGone
	default:
		return fiber.StatusConflict
	}
}
