package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Rol string

const (
	RolAdmin     Rol = "admin"
	RolCliente   Rol = "cliente"
	RolProveedor Rol = "proveedor"
)

// Usuario covers both sides of the marketplace. Providers additionally
// carry disponibilidad and tarifa; those fields stay zero for clients.
type Usuario struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nombre string    `gorm:"not null" json:"nombre"`
	Email  string    `gorm:"uniqueIndex;not null" json:"email"`

	Password string `gorm:"not null" json:"-"`
	Rol      Rol    `gorm:"type:varchar(20);not null;index" json:"rol"`

	Telefono string `gorm:"type:varchar(30)" json:"telefono"`
	Ciudad   string `gorm:"type:varchar(120)" json:"ciudad"`

	// Proveedor only
	Disponibilidad bool  `gorm:"default:false" json:"disponibilidad"`
	Tarifa         int64 `gorm:"default:0" json:"tarifa"` // COP por hora

	Activo bool `gorm:"default:true" json:"activo"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *Usuario) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

func (Usuario) TableName() string { return "usuarios" }
