package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reservas-dev/reservas/internal/auth"
	"github.com/reservas-dev/reservas/internal/models"
)

// ReservaDetail represents a reservation returned in responses
type ReservaDetail struct {
	ID              int       `json:"id"`
	IDPersona       int       `json:"id_persona"`
	FechaHoraInicio LocalTime `json:"fecha_hora_inicio"`
	FechaHoraFin    LocalTime `json:"fecha_hora_fin"`
	IDArticulo      *int      `json:"id_articulo"`
	IDSala          *int      `json:"id_sala"`
}

// ReservaRequest is the body of a new reservation
type ReservaRequest struct {
	IDPersona       int        `json:"id_persona" validate:"required,gt=0"`
	FechaHoraInicio *LocalTime `json:"fecha_hora_inicio" validate:"required"`
	FechaHoraFin    *LocalTime `json:"fecha_hora_fin" validate:"required"`
	IDArticulo      *int       `json:"id_articulo" validate:"omitempty,gt=0"`
	IDSala          *int       `json:"id_sala" validate:"omitempty,gt=0"`
}

// UpdateReservaRequest changes only the fields present. Setting one target
// clears the other.
type UpdateReservaRequest struct {
	IDPersona       *int       `json:"id_persona" validate:"omitempty,gt=0"`
	FechaHoraInicio *LocalTime `json:"fecha_hora_inicio"`
	FechaHoraFin    *LocalTime `json:"fecha_hora_fin"`
	IDArticulo      *int       `json:"id_articulo" validate:"omitempty,gt=0"`
	IDSala          *int       `json:"id_sala" validate:"omitempty,gt=0"`
}

// ReservaArticuloDetail is an item attached to a room reservation
type ReservaArticuloDetail struct {
	ID          int     `json:"id"`
	Nombre      string  `json:"nombre"`
	Descripcion *string `json:"descripcion"`
	Categoria   *string `json:"categoria"`
	Cantidad    int     `json:"cantidad"`
}

// reservaConflict is a business rule violation reported with its status
type reservaConflict struct {
	status int
	detail string
}

func (e *reservaConflict) Error() string { return e.detail }

func conflict(status int, format string, args ...any) error {
	return &reservaConflict{status: status, detail: fmt.Sprintf(format, args...)}
}

func reservaDetail(r *models.Reserva) ReservaDetail {
	return ReservaDetail{
		ID:              r.ID,
		IDPersona:       r.IDPersona,
		FechaHoraInicio: LocalTime{r.FechaHoraInicio},
		FechaHoraFin:    LocalTime{r.FechaHoraFin},
		IDArticulo:      r.IDArticulo,
		IDSala:          r.IDSala,
	}
}

// canManage reports whether the session may act on reservations of personaID
func canManage(sessionData *auth.SessionData, personaID int) bool {
	return sessionData.IsAdmin || sessionData.UserID == personaID
}

// listReservas returns every reservation to administrators and only their
// own to everybody else
func (s *Server) listReservas(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	query := s.db.Order("fecha_hora_inicio DESC, id DESC")
	if !sessionData.IsAdmin {
		query = query.Where("id_persona = ?", sessionData.UserID)
	}

	var reservas []models.Reserva
	if err := query.Find(&reservas).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list reservas")
		abortWithDetail(c, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	details := make([]ReservaDetail, len(reservas))
	for i := range reservas {
		details[i] = reservaDetail(&reservas[i])
	}
	c.JSON(http.StatusOK, details)
}

// loadReserva finds a reservation the session may act on, answering the
// request when it cannot
func (s *Server) loadReserva(c *gin.Context, id int) (*models.Reserva, bool) {
	var reserva models.Reserva
	if err := models.FindByID(s.db, id, &reserva); err != nil {
		s.dbFailure(c, err, "Reserva", id)
		return nil, false
	}

	sessionData, _ := GetSessionData(c)
	if !canManage(sessionData, reserva.IDPersona) {
		abortInsufficientPrivilege(c)
		return nil, false
	}
	return &reserva, true
}

func (s *Server) getReserva(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	reserva, ok := s.loadReserva(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reservaDetail(reserva))
}

func (s *Server) createReserva(c *gin.Context) {
	var req ReservaRequest
	if !s.bindJSON(c, &req) {
		return
	}

	sessionData, _ := GetSessionData(c)
	if !canManage(sessionData, req.IDPersona) {
		abortInsufficientPrivilege(c)
		return
	}

	reserva := &models.Reserva{
		IDPersona:       req.IDPersona,
		FechaHoraInicio: req.FechaHoraInicio.Time,
		FechaHoraFin:    req.FechaHoraFin.Time,
		IDArticulo:      req.IDArticulo,
		IDSala:          req.IDSala,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := checkReserva(tx, reserva, 0); err != nil {
			return err
		}
		return tx.Omit("Persona", "Articulo", "Sala").Create(reserva).Error
	})
	if err != nil {
		s.reservaFailure(c, err, 0)
		return
	}

	s.logger.Info().Int("reserva_id", reserva.ID).Int("persona_id", reserva.IDPersona).Msg("Reserva created")
	c.JSON(http.StatusCreated, reservaDetail(reserva))
}

func (s *Server) updateReserva(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateReservaRequest
	if !s.bindJSON(c, &req) {
		return
	}

	reserva, ok := s.loadReserva(c, id)
	if !ok {
		return
	}

	sessionData, _ := GetSessionData(c)
	if req.IDPersona != nil {
		if !canManage(sessionData, *req.IDPersona) {
			abortInsufficientPrivilege(c)
			return
		}
		reserva.IDPersona = *req.IDPersona
	}
	if req.FechaHoraInicio != nil {
		reserva.FechaHoraInicio = req.FechaHoraInicio.Time
	}
	if req.FechaHoraFin != nil {
		reserva.FechaHoraFin = req.FechaHoraFin.Time
	}
	switch {
	case req.IDSala != nil && req.IDArticulo != nil:
		reserva.IDSala, reserva.IDArticulo = req.IDSala, req.IDArticulo
	case req.IDSala != nil:
		reserva.IDSala, reserva.IDArticulo = req.IDSala, nil
	case req.IDArticulo != nil:
		reserva.IDSala, reserva.IDArticulo = nil, req.IDArticulo
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := checkReserva(tx, reserva, reserva.ID); err != nil {
			return err
		}
		if reserva.IDSala == nil {
			if err := tx.Where("id_reserva = ?", reserva.ID).Delete(&models.ReservaArticulo{}).Error; err != nil {
				return err
			}
		}
		return tx.Omit("Persona", "Articulo", "Sala").Save(reserva).Error
	})
	if err != nil {
		s.reservaFailure(c, err, id)
		return
	}

	c.JSON(http.StatusOK, reservaDetail(reserva))
}

func (s *Server) deleteReserva(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	reserva, ok := s.loadReserva(c, id)
	if !ok {
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id_reserva = ?", reserva.ID).Delete(&models.ReservaArticulo{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Reserva{}, reserva.ID).Error
	})
	if err != nil {
		s.dbFailure(c, err, "Reserva", id)
		return
	}

	s.logger.Info().Int("reserva_id", id).Msg("Reserva deleted")
	c.Status(http.StatusNoContent)
}

// checkReserva applies the booking rules: a valid period, exactly one target,
// existing references, an available item and no overlap on the room
func checkReserva(tx *gorm.DB, r *models.Reserva, excludeID int) error {
	if !r.FechaHoraFin.After(r.FechaHoraInicio) {
		return conflict(http.StatusBadRequest, "The end must be after the start")
	}
	if (r.IDSala == nil) == (r.IDArticulo == nil) {
		return conflict(http.StatusBadRequest, "Exactly one of id_sala or id_articulo is required")
	}

	var persona models.Persona
	if err := models.FindByID(tx, r.IDPersona, &persona); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conflict(http.StatusBadRequest, "Persona %d does not exist", r.IDPersona)
		}
		return err
	}

	if r.IDSala != nil {
		var sala models.Sala
		if err := models.FindByID(tx, *r.IDSala, &sala); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return conflict(http.StatusBadRequest, "Sala %d does not exist", *r.IDSala)
			}
			return err
		}
		busy, err := salaBusy(tx, sala.ID, excludeID, r)
		if err != nil {
			return err
		}
		if busy {
			return conflict(http.StatusConflict, "Sala '%s' is already booked in that period", sala.Nombre)
		}
		return nil
	}

	var articulo models.Articulo
	if err := models.FindByID(tx, *r.IDArticulo, &articulo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conflict(http.StatusBadRequest, "Articulo %d does not exist", *r.IDArticulo)
		}
		return err
	}
	if !articulo.Disponible {
		return conflict(http.StatusBadRequest, "Articulo '%s' is not available for reservations", articulo.Nombre)
	}
	return nil
}

func (s *Server) reservaFailure(c *gin.Context, err error, id int) {
	var rc *reservaConflict
	if errors.As(err, &rc) {
		abortWithDetail(c, rc.status, rc.detail, "")
		return
	}
	s.dbFailure(c, err, "Reserva", id)
}

func (s *Server) listReservaArticulos(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if _, ok := s.loadReserva(c, id); !ok {
		return
	}

	var rows []ReservaArticuloDetail
	err := s.db.Table("reserva_articulos AS ra").
		Select("a.id, a.nombre, a.descripcion, a.categoria, ra.cantidad").
		Joins("JOIN articulos a ON ra.id_articulo = a.id").
		Where("ra.id_reserva = ?", id).
		Order("a.id").
		Scan(&rows).Error
	if err != nil {
		s.dbFailure(c, err, "Reserva", id)
		return
	}
	if rows == nil {
		rows = []ReservaArticuloDetail{}
	}
	c.JSON(http.StatusOK, rows)
}

// addReservaArticulo attaches units of an item to a room reservation. modo
// sumar adds to what is attached, reemplazar sets the quantity. Stock used by
// overlapping reservations counts against the item.
func (s *Server) addReservaArticulo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	articuloID, ok := pathID(c, "articulo_id")
	if !ok {
		return
	}

	var query struct {
		Cantidad int    `form:"cantidad,default=1" json:"cantidad" validate:"gte=1"`
		Modo     string `form:"modo,default=sumar" json:"modo" validate:"oneof=sumar reemplazar"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error(), "")
		return
	}
	if err := s.validator.Struct(query); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []validationIssue{{
			Loc:  []any{"query", "cantidad"},
			Msg:  "cantidad must be at least 1 and modo one of sumar, reemplazar",
			Type: "value_error",
		}}})
		return
	}

	reserva, ok := s.loadReserva(c, id)
	if !ok {
		return
	}
	if reserva.IDSala == nil {
		abortWithDetail(c, http.StatusBadRequest, "Items can only be attached to room reservations", "")
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var articulo models.Articulo
		if err := models.FindByID(tx, articuloID, &articulo); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return conflict(http.StatusNotFound, "Articulo %d not found", articuloID)
			}
			return err
		}
		if !articulo.Disponible {
			return conflict(http.StatusBadRequest, "Articulo '%s' is not available for reservations", articulo.Nombre)
		}

		var existing models.ReservaArticulo
		err := tx.Where("id_reserva = ? AND id_articulo = ?", reserva.ID, articuloID).First(&existing).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		reservedElsewhere, err := reservedUnits(tx, articuloID, reserva.ID, reserva.FechaHoraInicio, reserva.FechaHoraFin)
		if err != nil {
			return err
		}
		available := articulo.Cantidad - reservedElsewhere

		wanted := query.Cantidad
		if found && query.Modo == "sumar" {
			wanted += existing.Cantidad
		}
		if wanted > available {
			return conflict(http.StatusBadRequest,
				"Not enough units available. Requested: %d, available: %d (stock %d, reserved elsewhere %d)",
				wanted, available, articulo.Cantidad, reservedElsewhere)
		}

		if found {
			return tx.Model(&existing).Update("cantidad", wanted).Error
		}
		return tx.Omit("Reserva", "Articulo").Create(&models.ReservaArticulo{
			IDReserva:  reserva.ID,
			IDArticulo: articuloID,
			Cantidad:   wanted,
		}).Error
	})
	if err != nil {
		s.reservaFailure(c, err, id)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item added to the reservation"})
}

// reservedUnits counts units of an item held by reservations other than
// excludeID that overlap [start, end): one per direct item reservation plus
// attached quantities
func reservedUnits(tx *gorm.DB, articuloID, excludeID int, start, end time.Time) (int, error) {
	var direct int64
	err := tx.Model(&models.Reserva{}).
		Where("id_articulo = ? AND id <> ?", articuloID, excludeID).
		Where("fecha_hora_fin > ? AND fecha_hora_inicio < ?", start, end).
		Count(&direct).Error
	if err != nil {
		return 0, err
	}

	var attached struct{ Total int }
	err = tx.Table("reserva_articulos AS ra").
		Select("COALESCE(SUM(ra.cantidad), 0) AS total").
		Joins("JOIN reservas r ON ra.id_reserva = r.id").
		Where("ra.id_articulo = ? AND ra.id_reserva <> ?", articuloID, excludeID).
		Where("r.fecha_hora_fin > ? AND r.fecha_hora_inicio < ?", start, end).
		Scan(&attached).Error
	if err != nil {
		return 0, err
	}

	return int(direct) + attached.Total, nil
}

func (s *Server) removeReservaArticulo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	articuloID, ok := pathID(c, "articulo_id")
	if !ok {
		return
	}

	if _, ok := s.loadReserva(c, id); !ok {
		return
	}

	result := s.db.Where("id_reserva = ? AND id_articulo = ?", id, articuloID).Delete(&models.ReservaArticulo{})
	if result.Error != nil {
		s.dbFailure(c, result.Error, "Reserva", id)
		return
	}
	if result.RowsAffected == 0 {
		abortWithDetail(c, http.StatusNotFound, "The item is not attached to the reservation", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removed from the reservation"})
}
