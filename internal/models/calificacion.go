package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Calificacion is a 1-5 star rating left by a client for a provider,
// optionally tied to a specific service. Uniqueness per
// (cliente, proveedor, servicio) is enforced at creation time.
type Calificacion struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ClienteID   uuid.UUID `gorm:"type:uuid;not null;index" json:"cliente_id"`
	ProveedorID uuid.UUID `gorm:"type:uuid;not null;index" json:"proveedor_id"`
	ServicioID  *uint     `gorm:"index" json:"servicio_id,omitempty"`

	Puntuacion int       `gorm:"not null" json:"puntuacion"` // 1-5
	Comentario string    `gorm:"type:varchar(500)" json:"comentario"`
	Fecha      time.Time `gorm:"not null" json:"fecha"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Cliente   *Usuario  `gorm:"foreignKey:ClienteID" json:"cliente,omitempty"`
	Proveedor *Usuario  `gorm:"foreignKey:ProveedorID" json:"proveedor,omitempty"`
	Servicio  *Servicio `gorm:"foreignKey:ServicioID" json:"servicio,omitempty"`
}

func (c *Calificacion) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Fecha.IsZero() {
		c.Fecha = time.Now()
	}
	return
}

func (Calificacion) TableName() string { return "calificaciones" }
