package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reservas-dev/reservas/internal/models"
)

// SalaDetail represents a room returned in responses
type SalaDetail struct {
	ID        int    `json:"id"`
	Nombre    string `json:"nombre"`
	Capacidad int    `json:"capacidad"`
}

// SalaRequest is the body of a new room
type SalaRequest struct {
	Nombre    string `json:"nombre" validate:"required,min=2,max=100"`
	Capacidad int    `json:"capacidad" validate:"required,gt=0,lte=1000"`
}

// UpdateSalaRequest changes only the fields present
type UpdateSalaRequest struct {
	Nombre    *string `json:"nombre" validate:"omitempty,min=2,max=100"`
	Capacidad *int    `json:"capacidad" validate:"omitempty,gt=0,lte=1000"`
}

func salaDetail(s *models.Sala) SalaDetail {
	return SalaDetail{ID: s.ID, Nombre: s.Nombre, Capacidad: s.Capacidad}
}

func (s *Server) listSalas(c *gin.Context) {
	var salas []models.Sala
	if err := s.db.Order("id").Find(&salas).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list salas")
		abortWithDetail(c, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	details := make([]SalaDetail, len(salas))
	for i := range salas {
		details[i] = salaDetail(&salas[i])
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) getSala(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var sala models.Sala
	if err := models.FindByID(s.db, id, &sala); err != nil {
		s.dbFailure(c, err, "Sala", id)
		return
	}
	c.JSON(http.StatusOK, salaDetail(&sala))
}

func (s *Server) createSala(c *gin.Context) {
	var req SalaRequest
	if !s.bindJSON(c, &req) {
		return
	}

	sala := &models.Sala{Nombre: req.Nombre, Capacidad: req.Capacidad}
	if err := s.db.Create(sala).Error; err != nil {
		if isUniqueViolation(err) {
			abortWithDetail(c, http.StatusBadRequest, "A sala with that name already exists", "")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create sala")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to create sala", "")
		return
	}

	s.logger.Info().Int("sala_id", sala.ID).Str("nombre", sala.Nombre).Msg("Sala created")
	c.JSON(http.StatusCreated, salaDetail(sala))
}

func (s *Server) updateSala(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateSalaRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var sala models.Sala
	if err := models.FindByID(s.db, id, &sala); err != nil {
		s.dbFailure(c, err, "Sala", id)
		return
	}

	if req.Nombre != nil {
		sala.Nombre = *req.Nombre
	}
	if req.Capacidad != nil {
		sala.Capacidad = *req.Capacidad
	}
	if err := s.db.Save(&sala).Error; err != nil {
		if isUniqueViolation(err) {
			abortWithDetail(c, http.StatusBadRequest, "A sala with that name already exists", "")
			return
		}
		s.logger.Error().Err(err).Int("sala_id", id).Msg("Failed to update sala")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to update sala", "")
		return
	}

	c.JSON(http.StatusOK, salaDetail(&sala))
}

// deleteSala refuses rooms that still have reservations
func (s *Server) deleteSala(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var sala models.Sala
	if err := models.FindByID(s.db, id, &sala); err != nil {
		s.dbFailure(c, err, "Sala", id)
		return
	}

	var count int64
	if err := s.db.Model(&models.Reserva{}).Where("id_sala = ?", id).Count(&count).Error; err != nil {
		s.dbFailure(c, err, "Sala", id)
		return
	}
	if count > 0 {
		abortWithDetail(c, http.StatusConflict, "The sala has reservations and cannot be deleted", "")
		return
	}

	if err := s.db.Delete(&sala).Error; err != nil {
		s.dbFailure(c, err, "Sala", id)
		return
	}

	s.logger.Info().Int("sala_id", id).Msg("Sala deleted")
	c.Status(http.StatusNoContent)
}

// salaBusy reports whether another reservation of the room overlaps [start, end)
func salaBusy(tx *gorm.DB, salaID, excludeID int, r *models.Reserva) (bool, error) {
	var count int64
	err := tx.Model(&models.Reserva{}).
		Where("id_sala = ? AND id <> ?", salaID, excludeID).
		Where("fecha_hora_inicio < ? AND fecha_hora_fin > ?", r.FechaHoraFin, r.FechaHoraInicio).
		Count(&count).Error
	return count > 0, err
}
