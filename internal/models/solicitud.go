package models

import (
	"time"

	"github.com/google/uuid"
)

type EstadoSolicitud string

const (
	SolicitudPendiente     EstadoSolicitud = "PENDIENTE"
	SolicitudPagoEnProceso EstadoSolicitud = "PAGO_EN_PROCESO"
	SolicitudPagoAceptado  EstadoSolicitud = "PAGO_ACEPTADO"
	SolicitudPagoFallido   EstadoSolicitud = "PAGO_FALLIDO"
	SolicitudEnProceso     EstadoSolicitud = "EN_PROCESO"
	SolicitudFinalizado    EstadoSolicitud = "FINALIZADO"
)

// Solicitud is a client's request to engage a specific service.
type Solicitud struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	FechaSolicitud time.Time       `json:"fecha_solicitud"`
	Estado         EstadoSolicitud `gorm:"type:varchar(40);not null;default:'PENDIENTE';index" json:"estado"`

	Detalles         string     `gorm:"type:varchar(500)" json:"detalles"`
	DireccionEntrega string     `gorm:"type:varchar(180)" json:"direccion_entrega"`
	FechaEstimada    *time.Time `json:"fecha_estimada,omitempty"`

	ServicioID uint      `gorm:"not null;index" json:"servicio_id"`
	ClienteID  uuid.UUID `gorm:"type:uuid;not null;index" json:"cliente_id"`

	// A solicitud holds at most one payment.
	PagoID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"pago_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Servicio *Servicio `gorm:"foreignKey:ServicioID" json:"servicio,omitempty"`
	Cliente  *Usuario  `gorm:"foreignKey:ClienteID" json:"cliente,omitempty"`
	Pago     *Pago     `gorm:"foreignKey:PagoID" json:"pago,omitempty"`
}

func (Solicitud) TableName() string { return "solicitudes" }
