package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides the integer primary key and creation time of every table
type BaseModel struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"-" gorm:"autoCreateTime"`
}

// Persona is a person who can log in and book rooms or items
type Persona struct {
	BaseModel
	Nombre       string `gorm:"type:varchar(100);not null"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
	IsActive     bool   `gorm:"not null;default:true"`
}

func (Persona) TableName() string { return "personas" }

// Sala is a bookable room
type Sala struct {
	BaseModel
	Nombre    string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Capacidad int    `gorm:"not null"`
}

func (Sala) TableName() string { return "salas" }

// Articulo is a bookable item with a stock of Cantidad units
type Articulo struct {
	BaseModel
	Nombre      string  `gorm:"type:varchar(100);not null"`
	Descripcion *string `gorm:"type:text"`
	Categoria   *string `gorm:"type:varchar(50)"`
	Cantidad    int     `gorm:"not null;default:1"`
	Disponible  bool    `gorm:"not null;default:true"`
}

func (Articulo) TableName() string { return "articulos" }

// Reserva books exactly one of a room or an item for a person
type Reserva struct {
	BaseModel
	IDPersona       int       `gorm:"column:id_persona;not null;index"`
	FechaHoraInicio time.Time `gorm:"column:fecha_hora_inicio;not null"`
	FechaHoraFin    time.Time `gorm:"column:fecha_hora_fin;not null"`
	IDArticulo      *int      `gorm:"column:id_articulo;index"`
	IDSala          *int      `gorm:"column:id_sala;index"`

	Persona  Persona   `gorm:"foreignKey:IDPersona;constraint:OnDelete:CASCADE"`
	Articulo *Articulo `gorm:"foreignKey:IDArticulo;constraint:OnDelete:CASCADE"`
	Sala     *Sala     `gorm:"foreignKey:IDSala;constraint:OnDelete:CASCADE"`
}

func (Reserva) TableName() string { return "reservas" }

// ReservaArticulo attaches units of an item to a room reservation
type ReservaArticulo struct {
	BaseModel
	IDReserva  int `gorm:"column:id_reserva;not null;uniqueIndex:idx_reserva_articulo"`
	IDArticulo int `gorm:"column:id_articulo;not null;uniqueIndex:idx_reserva_articulo"`
	Cantidad   int `gorm:"not null;default:1"`

	Reserva  Reserva  `gorm:"foreignKey:IDReserva;constraint:OnDelete:CASCADE"`
	Articulo Articulo `gorm:"foreignKey:IDArticulo;constraint:OnDelete:CASCADE"`
}

func (ReservaArticulo) TableName() string { return "reserva_articulos" }

// AutoMigrate runs all model migrations
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&Persona{}, &Sala{}, &Articulo{}, &Reserva{}, &ReservaArticulo{},
	}

	return db.AutoMigrate(models...)
}

// FindByID finds a record by its integer ID
func FindByID[T any](db *gorm.DB, id int, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
