package models

import (
	"time"

	"github.com/google/uuid"
)

type EstadoServicio string

const (
	ServicioPendiente  EstadoServicio = "PENDIENTE"
	ServicioDisponible EstadoServicio = "DISPONIBLE"
	ServicioOcupado    EstadoServicio = "OCUPADO"
	ServicioAceptada   EstadoServicio = "ACEPTADA"
	ServicioRechazada  EstadoServicio = "RECHAZADA"
	ServicioCancelada  EstadoServicio = "CANCELADA"
	ServicioCompletada EstadoServicio = "COMPLETADA"
)

type Servicio struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Nombre      string `gorm:"type:varchar(200);not null" json:"nombre"`
	Descripcion string `gorm:"type:varchar(200);not null" json:"descripcion"`

	Precio int64 `gorm:"not null" json:"precio"` // COP, no negativo

	Estado EstadoServicio `gorm:"type:varchar(20);not null;default:'PENDIENTE';index" json:"estado"`

	ProveedorID uuid.UUID  `gorm:"type:uuid;not null;index" json:"proveedor_id"`
	ClienteID   *uuid.UUID `gorm:"type:uuid;index" json:"cliente_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Proveedor *Usuario `gorm:"foreignKey:ProveedorID" json:"proveedor,omitempty"`
	Cliente   *Usuario `gorm:"foreignKey:ClienteID" json:"cliente,omitempty"`
}

func (Servicio) TableName() string { return "servicios" }
