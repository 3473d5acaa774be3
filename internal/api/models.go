package api

import (
	"fmt"
	"strings"
	"time"
)

// Persona is a person account
type Persona struct {
	ID       int    `json:"id"`
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

// PersonaCreate is the body of a new person
type PersonaCreate struct {
	Nombre   string `json:"nombre" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

// PersonaUpdate changes only the fields that are set
type PersonaUpdate struct {
	Nombre   *string `json:"nombre,omitempty" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=128"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Sala is a bookable room
type Sala struct {
	ID        int    `json:"id"`
	Nombre    string `json:"nombre"`
	Capacidad int    `json:"capacidad"`
}

// SalaInput is the body of a new room
type SalaInput struct {
	Nombre    string `json:"nombre" validate:"required,min=2,max=100"`
	Capacidad int    `json:"capacidad" validate:"required,gt=0,lte=1000"`
}

// SalaUpdate changes only the fields that are set
type SalaUpdate struct {
	Nombre    *string `json:"nombre,omitempty" validate:"omitempty,min=2,max=100"`
	Capacidad *int    `json:"capacidad,omitempty" validate:"omitempty,gt=0,lte=1000"`
}

// Articulo is a bookable item
type Articulo struct {
	ID         int    `json:"id"`
	Nombre     string `json:"nombre"`
	Disponible bool   `json:"disponible"`
}

// ArticuloInput is the body of a new item
type ArticuloInput struct {
	Nombre     string `json:"nombre" validate:"required,min=2,max=100"`
	Disponible bool   `json:"disponible"`
}

// ArticuloUpdate changes only the fields that are set
type ArticuloUpdate struct {
	Nombre     *string `json:"nombre,omitempty" validate:"omitempty,min=2,max=100"`
	Disponible *bool   `json:"disponible,omitempty"`
}

// Reserva books either a room or an item for a person
type Reserva struct {
	ID              int       `json:"id"`
	IDPersona       int       `json:"id_persona"`
	FechaHoraInicio Timestamp `json:"fecha_hora_inicio"`
	FechaHoraFin    Timestamp `json:"fecha_hora_fin"`
	IDArticulo      *int      `json:"id_articulo"`
	IDSala          *int      `json:"id_sala"`
}

// Target describes what the reservation books
func (r Reserva) Target() string {
	switch {
	case r.IDSala != nil:
		return fmt.Sprintf("sala %d", *r.IDSala)
	case r.IDArticulo != nil:
		return fmt.Sprintf("articulo %d", *r.IDArticulo)
	default:
		return "-"
	}
}

// ReservaInput is the body of a new reservation. Exactly one of IDSala and
// IDArticulo must be set, and the end must come after the start.
type ReservaInput struct {
	IDPersona       int       `json:"id_persona" validate:"required,gt=0"`
	FechaHoraInicio Timestamp `json:"fecha_hora_inicio"`
	FechaHoraFin    Timestamp `json:"fecha_hora_fin"`
	IDArticulo      *int      `json:"id_articulo,omitempty" validate:"omitempty,gt=0"`
	IDSala          *int      `json:"id_sala,omitempty" validate:"omitempty,gt=0"`
}

// ReservaUpdate changes only the fields that are set
type ReservaUpdate struct {
	IDPersona       *int       `json:"id_persona,omitempty" validate:"omitempty,gt=0"`
	FechaHoraInicio *Timestamp `json:"fecha_hora_inicio,omitempty"`
	FechaHoraFin    *Timestamp `json:"fecha_hora_fin,omitempty"`
	IDArticulo      *int       `json:"id_articulo,omitempty" validate:"omitempty,gt=0"`
	IDSala          *int       `json:"id_sala,omitempty" validate:"omitempty,gt=0"`
}

// ReservaArticulo is an item attached to a room reservation
type ReservaArticulo struct {
	ID          int     `json:"id"`
	Nombre      string  `json:"nombre"`
	Descripcion *string `json:"descripcion"`
	Categoria   *string `json:"categoria"`
	Cantidad    int     `json:"cantidad"`
}

// Message is the body of endpoints answering with a plain message
type Message struct {
	Message string `json:"message"`
}

// DashboardMetrics is the summary shown on the main page
type DashboardMetrics struct {
	OcupacionSalas    []SalaOcupacion    `json:"ocupacion_salas"`
	TendenciaReservas TendenciaReservas  `json:"tendencia_reservas"`
	TopUsuarios       []UsuarioActividad `json:"top_usuarios"`
	Metricas          MetricasGenerales  `json:"metricas"`
}

type SalaOcupacion struct {
	Sala          string  `json:"sala"`
	Reservas      int     `json:"reservas"`
	HorasPromedio float64 `json:"horas_promedio"`
}

type TendenciaReservas struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

type UsuarioActividad struct {
	Nombre   string `json:"nombre"`
	Reservas int    `json:"reservas"`
}

type MetricasGenerales struct {
	ReservasHoy       int     `json:"reservas_hoy"`
	OcupacionPromedio float64 `json:"ocupacion_promedio"`
	SalasDisponibles  int     `json:"salas_disponibles"`
}

// Predicciones is the demand forecast for the coming days
type Predicciones struct {
	Predicciones []Prediccion `json:"predicciones"`
}

// Prediccion is the expected number of reservations on one day
type Prediccion struct {
	Fecha              string  `json:"fecha"`
	DiaSemana          string  `json:"dia_semana"`
	PrediccionReservas int     `json:"prediccion_reservas"`
	Confianza          float64 `json:"confianza"`
}

// ArticuloDisponibilidad is how many units of an item are free in a period
type ArticuloDisponibilidad struct {
	ID                     int     `json:"id"`
	Nombre                 string  `json:"nombre"`
	Descripcion            *string `json:"descripcion"`
	Categoria              *string `json:"categoria"`
	CantidadTotal          int     `json:"cantidad_total"`
	CantidadReservadaOtros int     `json:"cantidad_reservada_otros"`
	CantidadAsignada       int     `json:"cantidad_asignada_en_reserva"`
	CantidadDisponible     int     `json:"cantidad_disponible"`
	DisponibleParaAgregar  int     `json:"cantidad_disponible_para_agregar"`
}

// Timestamp is a reservation date. The backend stores naive local times, so
// both RFC 3339 and zone-less ISO 8601 values are accepted.
type Timestamp struct {
	time.Time
}

// TimestampLayout is how timestamps are sent and displayed
const TimestampLayout = "2006-01-02T15:04:05"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	TimestampLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp parses s in any accepted layout, in the local zone when s
// carries none.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DDTHH:MM", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Local().Format(TimestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
