package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MetodoPago string

const (
	MetodoEfectivo      MetodoPago = "EFECTIVO"
	MetodoTarjeta       MetodoPago = "TARJETA"
	MetodoPSE           MetodoPago = "PSE"
	MetodoTransferencia MetodoPago = "TRANSFERENCIA"
	MetodoPayU          MetodoPago = "PAYU"
	MetodoStripe        MetodoPago = "STRIPE"
	MetodoOtro          MetodoPago = "OTRO"
)

type EstadoPago string

const (
	PagoPendiente   EstadoPago = "PENDIENTE"
	PagoAprobado    EstadoPago = "APROBADO"
	PagoFallido     EstadoPago = "FALLIDO"
	PagoReembolsado EstadoPago = "REEMBOLSADO"
)

type Pago struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	SolicitudID uint `gorm:"not null;uniqueIndex" json:"solicitud_id"`

	Monto  int64      `gorm:"not null" json:"monto"` // centavos COP
	Metodo MetodoPago `gorm:"type:varchar(20);not null" json:"metodo"`
	Estado EstadoPago `gorm:"type:varchar(20);not null;default:'PENDIENTE';index" json:"estado"`
	Moneda string     `gorm:"type:varchar(3);not null;default:'COP'" json:"moneda"`

	Descripcion string `gorm:"type:varchar(140)" json:"descripcion"`

	// Reference sent to the gateway, used to reconcile webhook events.
	ReferenciaExterna string `gorm:"type:varchar(120);uniqueIndex" json:"referencia_externa"`

	// Raw webhook body, kept for audit.
	GatewayPayload datatypes.JSON `json:"gateway_payload,omitempty"`

	// Public checkout token, distinct from the internal ID.
	PaymentToken  string     `gorm:"type:varchar(64);uniqueIndex" json:"payment_token"`
	TokenExpiraEn *time.Time `json:"token_expira_en,omitempty"`

	EmailCliente string     `gorm:"type:varchar(120)" json:"email_cliente"`
	FechaPago    time.Time  `json:"fecha_pago"`
	ConfirmadoEn *time.Time `json:"confirmado_en,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Solicitud *Solicitud `gorm:"foreignKey:SolicitudID" json:"solicitud,omitempty"`
}

func (p *Pago) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.FechaPago.IsZero() {
		p.FechaPago = time.Now()
	}
	if p.Estado == "" {
		p.Estado = PagoPendiente
	}
	return
}

func (Pago) TableName() string { return "pagos" }
