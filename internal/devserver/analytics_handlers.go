package devserver

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reservas-dev/reservas/internal/models"
)

const (
	maxTrendDays = 30
	topUsuarios  = 5
)

// DashboardMetrics is the summary served to the dashboard page
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

func (s *Server) dashboardMetrics(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []validationIssue{{
			Loc:  []any{"query", "days"},
			Msg:  "days must be between 1 and 365",
			Type: "value_error",
		}}})
		return
	}

	now := s.now().Local()
	since := now.AddDate(0, 0, -days)

	var reservas []models.Reserva
	if err := s.db.Where("fecha_hora_inicio >= ?", since).Find(&reservas).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load reservas for metrics")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to compute metrics", "")
		return
	}

	var salas []models.Sala
	if err := s.db.Order("id").Find(&salas).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load salas for metrics")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to compute metrics", "")
		return
	}

	var personas []models.Persona
	if err := s.db.Find(&personas).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load personas for metrics")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to compute metrics", "")
		return
	}

	// Rooms with a reservation in progress right now
	var busyNow []int
	if err := s.db.Model(&models.Reserva{}).
		Where("id_sala IS NOT NULL AND fecha_hora_inicio <= ? AND fecha_hora_fin > ?", now, now).
		Distinct().Pluck("id_sala", &busyNow).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load busy salas")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to compute metrics", "")
		return
	}

	c.JSON(http.StatusOK, computeMetrics(now, days, reservas, salas, personas, len(busyNow)))
}

// computeMetrics builds the dashboard from reservations starting in the window
func computeMetrics(now time.Time, days int, reservas []models.Reserva, salas []models.Sala, personas []models.Persona, busySalas int) DashboardMetrics {
	metrics := DashboardMetrics{
		OcupacionSalas: make([]SalaOcupacion, 0, len(salas)),
		TopUsuarios:    []UsuarioActividad{},
	}

	var totalHours float64
	for _, r := range reservas {
		totalHours += r.FechaHoraFin.Sub(r.FechaHoraInicio).Hours()
	}

	for _, sala := range salas {
		var count int
		var hours float64
		for _, r := range reservas {
			if r.IDSala != nil && *r.IDSala == sala.ID {
				count++
				hours += r.FechaHoraFin.Sub(r.FechaHoraInicio).Hours()
			}
		}
		avg := 0.0
		if count > 0 {
			avg = round1(hours / float64(count))
		}
		metrics.OcupacionSalas = append(metrics.OcupacionSalas, SalaOcupacion{Sala: sala.Nombre, Reservas: count, HorasPromedio: avg})
	}

	trendDays := min(days, maxTrendDays)
	for i := trendDays; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 0, 1)

		count := 0
		for _, r := range reservas {
			t := r.FechaHoraInicio.In(now.Location())
			if !t.Before(start) && t.Before(end) {
				count++
			}
		}
		metrics.TendenciaReservas.Labels = append(metrics.TendenciaReservas.Labels, day.Format("02/01"))
		metrics.TendenciaReservas.Values = append(metrics.TendenciaReservas.Values, count)
	}

	names := make(map[int]string, len(personas))
	for _, p := range personas {
		names[p.ID] = p.Nombre
	}
	perPersona := map[int]int{}
	for _, r := range reservas {
		perPersona[r.IDPersona]++
	}
	for id, count := range perPersona {
		if name, ok := names[id]; ok {
			metrics.TopUsuarios = append(metrics.TopUsuarios, UsuarioActividad{Nombre: name, Reservas: count})
		}
	}
	sort.Slice(metrics.TopUsuarios, func(i, j int) bool {
		a, b := metrics.TopUsuarios[i], metrics.TopUsuarios[j]
		if a.Reservas != b.Reservas {
			return a.Reservas > b.Reservas
		}
		return a.Nombre < b.Nombre
	})
	if len(metrics.TopUsuarios) > topUsuarios {
		metrics.TopUsuarios = metrics.TopUsuarios[:topUsuarios]
	}

	today := now.Format("2006-01-02")
	for _, r := range reservas {
		if r.FechaHoraInicio.In(now.Location()).Format("2006-01-02") == today {
			metrics.Metricas.ReservasHoy++
		}
	}

	if available := float64(len(salas) * 24 * days); available > 0 {
		metrics.Metricas.OcupacionPromedio = round1(totalHours / available * 100)
	}
	metrics.Metricas.SalasDisponibles = len(salas) - busySalas

	return metrics
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

const maxPrediccionDays = 30

// Predicciones is the demand forecast for the coming days
type Predicciones struct {
	Predicciones []Prediccion `json:"predicciones"`
}

type Prediccion struct {
	Fecha              string  `json:"fecha"`
	DiaSemana          string  `json:"dia_semana"`
	PrediccionReservas int     `json:"prediccion_reservas"`
	Confianza          float64 `json:"confianza"`
}

var diasSemana = [7]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

func (s *Server) predicciones(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("dias", "7"))
	if err != nil || days < 1 || days > maxPrediccionDays {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []validationIssue{{
			Loc:  []any{"query", "dias"},
			Msg:  "dias must be between 1 and 30",
			Type: "value_error",
		}}})
		return
	}

	var starts []time.Time
	if err := s.db.Model(&models.Reserva{}).Pluck("fecha_hora_inicio", &starts).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load reservas for predictions")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to compute predictions", "")
		return
	}

	c.JSON(http.StatusOK, computePredicciones(s.now().Local(), days, starts))
}

// computePredicciones expects, for each of the next days days, as many
// reservations as have historically started on that weekday
func computePredicciones(now time.Time, days int, starts []time.Time) Predicciones {
	var perWeekday [7]int
	for _, t := range starts {
		perWeekday[t.In(now.Location()).Weekday()]++
	}

	out := Predicciones{Predicciones: make([]Prediccion, 0, days)}
	for i := 1; i <= days; i++ {
		day := now.AddDate(0, 0, i)
		expected := perWeekday[day.Weekday()]
		confidence := 0.3
		if expected > 0 {
			confidence = 0.75
		}
		out.Predicciones = append(out.Predicciones, Prediccion{
			Fecha:              day.Format("2006-01-02"),
			DiaSemana:          diasSemana[day.Weekday()],
			PrediccionReservas: expected,
			Confianza:          confidence,
		})
	}
	return out
}
