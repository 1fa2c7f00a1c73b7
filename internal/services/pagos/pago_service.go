// Package pagos implements checkout initiation against the Wompi
// hosted checkout and the webhook reconciliation that moves a
// solicitud through its payment states.
package pagos

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/serviexpress/backend/internal/lifecycle"
	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/queue"
	"github.com/serviexpress/backend/internal/realtime"
	"github.com/serviexpress/backend/internal/services/wompi"
	"github.com/serviexpress/backend/internal/utils"
)

var (
	ErrSolicitudNoEncontrada = errors.New("solicitud no encontrada")
	ErrPagoNoEncontrado      = errors.New("pago no encontrado")
	ErrPagoYaAprobado        = errors.New("la solicitud ya tiene un pago aprobado")
	ErrFirmaInvalida         = errors.New("firma del evento inválida")
	ErrMontoNoCoincide       = errors.New("el monto del evento no coincide con el pago")
	ErrTokenExpirado         = errors.New("el token de pago expiró")
	ErrEventoInvalido        = errors.New("cuerpo del evento inválido")
)

type Service struct {
	DB    *gorm.DB
	Wompi *wompi.Service
	Hub   *realtime.Hub

	// PublishEventos can be disabled in tests or when no broker runs.
	PublishEventos bool
}

func NewService(db *gorm.DB, w *wompi.Service, hub *realtime.Hub) *Service {
	return &Service{DB: db, Wompi: w, Hub: hub, PublishEventos: true}
}

type CheckoutInit struct {
	SolicitudID uint
	Metodo      models.MetodoPago
	Descripcion string
	Email       string
}

type CheckoutSession struct {
	CheckoutURL string    `json:"checkout_url"`
	Referencia  string    `json:"referencia"`
	Token       string    `json:"token"`
	MontoCents  int64     `json:"monto_cents"`
	Moneda      string    `json:"moneda"`
	ExpiraEn    time.Time `json:"expira_en"`
}

// IniciarCheckout computes the total for a solicitud, signs a checkout
// reference and persists the (single) PENDIENTE pago for it. The
// solicitud moves to PAGO_EN_PROCESO. Retrying after a failed payment
// reuses the existing pago row with a fresh reference and token.
func (s *Service) IniciarCheckout(init CheckoutInit) (*CheckoutSession, error) {
	var solicitud models.Solicitud
	if err := s.DB.Preload("Servicio").Preload("Cliente").
		First(&solicitud, "id = ?", init.SolicitudID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSolicitudNoEncontrada
		}
		return nil, err
	}
	if solicitud.Servicio == nil {
		return nil, ErrSolicitudNoEncontrada
	}

	if err := lifecycle.CanTransition(solicitud.Estado, models.SolicitudPagoEnProceso, lifecycle.ActorCliente); err != nil {
		return nil, err
	}

	baseCents := s.Wompi.ToCents(solicitud.Servicio.Precio)
	totalCents := s.Wompi.TotalCents(baseCents)

	now := time.Now()
	referencia := s.Wompi.BuildReference(solicitud.ID)
	expISO := s.Wompi.ExpirationISO(now)
	firma := s.Wompi.IntegritySignatureWithExpiration(referencia, totalCents, expISO)
	token := utils.NewPaymentToken()
	expiraEn, _ := time.Parse("2006-01-02T15:04:05.000Z", expISO)

	metodo := init.Metodo
	if metodo == "" {
		metodo = models.MetodoTarjeta
	}
	email := init.Email
	if email == "" && solicitud.Cliente != nil {
		email = solicitud.Cliente.Email
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var pago models.Pago
		err := tx.Where("solicitud_id = ?", solicitud.ID).First(&pago).Error
		switch {
		case err == nil:
			if pago.Estado == models.PagoAprobado {
				return ErrPagoYaAprobado
			}
			pago.Monto = totalCents
			pago.Metodo = metodo
			pago.Estado = models.PagoPendiente
			pago.Descripcion = init.Descripcion
			pago.ReferenciaExterna = referencia
			pago.PaymentToken = token
			pago.TokenExpiraEn = &expiraEn
			pago.EmailCliente = email
			pago.FechaPago = now
			if err := tx.Save(&pago).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			pago = models.Pago{
				SolicitudID:       solicitud.ID,
				Monto:             totalCents,
				Metodo:            metodo,
				Estado:            models.PagoPendiente,
				Moneda:            s.Wompi.Currency(),
				Descripcion:       init.Descripcion,
				ReferenciaExterna: referencia,
				PaymentToken:      token,
				TokenExpiraEn:     &expiraEn,
				EmailCliente:      email,
				FechaPago:         now,
			}
			if err := tx.Create(&pago).Error; err != nil {
				return err
			}
		default:
			return err
		}

		solicitud.Estado = models.SolicitudPagoEnProceso
		solicitud.PagoID = &pago.ID
		return tx.Save(&solicitud).Error
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutSession{
		CheckoutURL: s.Wompi.CheckoutURL(referencia, totalCents, expISO, firma),
		Referencia:  referencia,
		Token:       token,
		MontoCents:  totalCents,
		Moneda:      s.Wompi.Currency(),
		ExpiraEn:    expiraEn,
	}, nil
}

// Evento is the webhook body the gateway posts. Only the transaction
// fields the reconciliation needs are decoded; the raw body is stored
// whole for audit.
type Evento struct {
	Event string `json:"event"`
	Data  struct {
		Transaction EventoTransaccion `json:"transaction"`
	} `json:"data"`
	Signature struct {
		Properties []string `json:"properties"`
		Checksum   string   `json:"checksum"`
	} `json:"signature"`
	Timestamp int64 `json:"timestamp"`
}

type EventoTransaccion struct {
	ID            string `json:"id"`
	AmountInCents int64  `json:"amount_in_cents"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method_type"`
	CustomerEmail string `json:"customer_email"`
}

// ProcesarWebhook verifies the event checksum, maps the gateway status
// and reconciles pago and solicitud. Re-delivery of an already applied
// event returns nil without touching the database.
func (s *Service) ProcesarWebhook(checksum string, payload []byte) error {
	var ev Evento
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ErrEventoInvalido
	}
	if checksum == "" {
		checksum = ev.Signature.Checksum
	}

	values := make([]string, 0, len(ev.Signature.Properties))
	for _, prop := range ev.Signature.Properties {
		values = append(values, propertyValue(ev.Data.Transaction, prop))
	}
	if !s.Wompi.ValidateEventChecksum(checksum, values, ev.Timestamp) {
		return ErrFirmaInvalida
	}

	tx := ev.Data.Transaction
	nuevoEstado := mapEstado(tx.Status)

	var pago models.Pago
	if err := s.DB.Where("referencia_externa = ?", tx.Reference).First(&pago).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPagoNoEncontrado
		}
		return err
	}

	if pago.Estado == nuevoEstado {
		return nil // duplicate delivery
	}
	if pago.Estado == models.PagoAprobado && nuevoEstado != models.PagoReembolsado {
		// late DECLINED/ERROR after an approval; only a refund can
		// move an approved pago
		log.Printf("pagos: evento %s ignorado, pago %s ya aprobado", tx.Status, pago.ID)
		return nil
	}
	if tx.AmountInCents != pago.Monto {
		return ErrMontoNoCoincide
	}

	var solicitud models.Solicitud
	err := s.DB.Transaction(func(dtx *gorm.DB) error {
		pago.Estado = nuevoEstado
		pago.GatewayPayload = datatypes.JSON(payload)
		if nuevoEstado == models.PagoAprobado {
			now := time.Now()
			pago.ConfirmadoEn = &now
		}
		if err := dtx.Save(&pago).Error; err != nil {
			return err
		}

		if err := dtx.Preload("Servicio").First(&solicitud, "id = ?", pago.SolicitudID).Error; err != nil {
			return err
		}

		var destino models.EstadoSolicitud
		switch nuevoEstado {
		case models.PagoAprobado:
			destino = models.SolicitudPagoAceptado
		case models.PagoFallido:
			destino = models.SolicitudPagoFallido
		default:
			return nil
		}

		if err := lifecycle.CanTransition(solicitud.Estado, destino, lifecycle.ActorSistema); err != nil {
			// already reconciled by an admin or an earlier event
			log.Printf("pagos: solicitud %d no reconciliada: %v", solicitud.ID, err)
			return nil
		}
		solicitud.Estado = destino
		return dtx.Save(&solicitud).Error
	})
	if err != nil {
		return err
	}

	s.notificar(&solicitud, &pago)

	if nuevoEstado == models.PagoAprobado && s.PublishEventos {
		servicioNombre := ""
		if solicitud.Servicio != nil {
			servicioNombre = solicitud.Servicio.Nombre
		}
		confirmado := ""
		if pago.ConfirmadoEn != nil {
			confirmado = pago.ConfirmadoEn.UTC().Format(time.RFC3339)
		}
		_ = queue.PublishPagoAprobado(context.Background(), queue.PagoAprobadoEvent{
			PagoID:       pago.ID.String(),
			SolicitudID:  solicitud.ID,
			Referencia:   pago.ReferenciaExterna,
			MontoCents:   pago.Monto,
			Moneda:       pago.Moneda,
			EmailCliente: pago.EmailCliente,
			Servicio:     servicioNombre,
			ConfirmadoEn: confirmado,
		})
	}

	return nil
}

func (s *Service) notificar(solicitud *models.Solicitud, pago *models.Pago) {
	if s.Hub == nil || solicitud == nil {
		return
	}
	proveedorID := uuid.Nil
	if solicitud.Servicio != nil {
		proveedorID = solicitud.Servicio.ProveedorID
	}
	s.Hub.SendToSolicitud(solicitud.ClienteID, proveedorID, map[string]interface{}{
		"type":         "pago_actualizado",
		"solicitud_id": solicitud.ID,
		"estado":       solicitud.Estado,
		"pago_estado":  pago.Estado,
	})
}

// GetByID returns one pago.
func (s *Service) GetByID(id uuid.UUID) (*models.Pago, error) {
	var pago models.Pago
	if err := s.DB.Preload("Solicitud").First(&pago, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPagoNoEncontrado
		}
		return nil, err
	}
	return &pago, nil
}

// GetByToken resolves the public checkout token, rejecting expired ones.
func (s *Service) GetByToken(token string) (*models.Pago, error) {
	var pago models.Pago
	if err := s.DB.Preload("Solicitud").Where("payment_token = ?", token).First(&pago).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPagoNoEncontrado
		}
		return nil, err
	}
	if pago.TokenExpiraEn != nil && time.Now().After(*pago.TokenExpiraEn) && pago.Estado == models.PagoPendiente {
		return nil, ErrTokenExpirado
	}
	return &pago, nil
}

// ListAll is the admin listing, newest first.
func (s *Service) ListAll() ([]models.Pago, error) {
	var pagos []models.Pago
	if err := s.DB.Order("created_at DESC").Find(&pagos).Error; err != nil {
		return nil, err
	}
	return pagos, nil
}

func mapEstado(status string) models.EstadoPago {
	switch status {
	case "APPROVED", "APROBADO":
		return models.PagoAprobado
	case "DECLINED", "ERROR", "FALLIDO":
		return models.PagoFallido
	case "VOIDED", "REFUNDED", "REEMBOLSADO":
		return models.PagoReembolsado
	default:
		return models.PagoPendiente
	}
}

func propertyValue(tx EventoTransaccion, prop string) string {
	switch prop {
	case "transaction.id":
		return tx.ID
	case "transaction.status":
		return tx.Status
	case "transaction.amount_in_cents":
		return strconv.FormatInt(tx.AmountInCents, 10)
	case "transaction.reference":
		return tx.Reference
	case "transaction.currency":
		return tx.Currency
	default:
		return ""
	}
}
