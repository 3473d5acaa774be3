package devserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reservas-dev/reservas/internal/models"
)

// ArticuloDetail represents an item returned in responses
type ArticuloDetail struct {
	ID          int     `json:"id"`
	Nombre      string  `json:"nombre"`
	Descripcion *string `json:"descripcion"`
	Categoria   *string `json:"categoria"`
	Cantidad    int     `json:"cantidad"`
	Disponible  bool    `json:"disponible"`
}

// ArticuloRequest is the body of a new item. Missing disponible means true,
// missing cantidad means a single unit.
type ArticuloRequest struct {
	Nombre      string  `json:"nombre" validate:"required,min=2,max=100"`
	Descripcion *string `json:"descripcion" validate:"omitempty,max=500"`
	Categoria   *string `json:"categoria" validate:"omitempty,max=50"`
	Cantidad    *int    `json:"cantidad" validate:"omitempty,gte=1"`
	Disponible  *bool   `json:"disponible"`
}

// UpdateArticuloRequest changes only the fields present
type UpdateArticuloRequest struct {
	Nombre      *string `json:"nombre" validate:"omitempty,min=2,max=100"`
	Descripcion *string `json:"descripcion" validate:"omitempty,max=500"`
	Categoria   *string `json:"categoria" validate:"omitempty,max=50"`
	Cantidad    *int    `json:"cantidad" validate:"omitempty,gte=1"`
	Disponible  *bool   `json:"disponible"`
}

func articuloDetail(a *models.Articulo) ArticuloDetail {
	return ArticuloDetail{
		ID:          a.ID,
		Nombre:      a.Nombre,
		Descripcion: a.Descripcion,
		Categoria:   a.Categoria,
		Cantidad:    a.Cantidad,
		Disponible:  a.Disponible,
	}
}

func (s *Server) listArticulos(c *gin.Context) {
	var articulos []models.Articulo
	if err := s.db.Order("id").Find(&articulos).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list articulos")
		abortWithDetail(c, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	details := make([]ArticuloDetail, len(articulos))
	for i := range articulos {
		details[i] = articuloDetail(&articulos[i])
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) getArticulo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var articulo models.Articulo
	if err := models.FindByID(s.db, id, &articulo); err != nil {
		s.dbFailure(c, err, "Articulo", id)
		return
	}
	c.JSON(http.StatusOK, articuloDetail(&articulo))
}

func (s *Server) createArticulo(c *gin.Context) {
	var req ArticuloRequest
	if !s.bindJSON(c, &req) {
		return
	}

	articulo := &models.Articulo{
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Categoria:   req.Categoria,
		Cantidad:    1,
		Disponible:  req.Disponible == nil || *req.Disponible,
	}
	if req.Cantidad != nil {
		articulo.Cantidad = *req.Cantidad
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(articulo).Error; err != nil {
			return err
		}
		// The column default would turn an explicit false into true on insert
		if !articulo.Disponible {
			return tx.Model(articulo).Update("disponible", false).Error
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create articulo")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to create articulo", "")
		return
	}

	s.logger.Info().Int("articulo_id", articulo.ID).Str("nombre", articulo.Nombre).Msg("Articulo created")
	c.JSON(http.StatusCreated, articuloDetail(articulo))
}

func (s *Server) updateArticulo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateArticuloRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var articulo models.Articulo
	if err := models.FindByID(s.db, id, &articulo); err != nil {
		s.dbFailure(c, err, "Articulo", id)
		return
	}

	if req.Nombre != nil {
		articulo.Nombre = *req.Nombre
	}
	if req.Descripcion != nil {
		articulo.Descripcion = req.Descripcion
	}
	if req.Categoria != nil {
		articulo.Categoria = req.Categoria
	}
	if req.Cantidad != nil {
		articulo.Cantidad = *req.Cantidad
	}
	if req.Disponible != nil {
		articulo.Disponible = *req.Disponible
	}
	if err := s.db.Save(&articulo).Error; err != nil {
		s.logger.Error().Err(err).Int("articulo_id", id).Msg("Failed to update articulo")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to update articulo", "")
		return
	}

	c.JSON(http.StatusOK, articuloDetail(&articulo))
}

func (s *Server) toggleArticulo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var articulo models.Articulo
	if err := models.FindByID(s.db, id, &articulo); err != nil {
		s.dbFailure(c, err, "Articulo", id)
		return
	}

	articulo.Disponible = !articulo.Disponible
	if err := s.db.Model(&articulo).Update("disponible", articulo.Disponible).Error; err != nil {
		s.dbFailure(c, err, "Articulo", id)
		return
	}

	s.logger.Info().Int("articulo_id", id).Bool("disponible", articulo.Disponible).Msg("Articulo availability toggled")
	c.JSON(http.StatusOK, articuloDetail(&articulo))
}

func (s *Server) deleteArticulo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id_articulo = ?", id).Delete(&models.ReservaArticulo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id_articulo = ?", id).Delete(&models.Reserva{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Articulo{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		s.dbFailure(c, err, "Articulo", id)
		return
	}

	s.logger.Info().Int("articulo_id", id).Msg("Articulo deleted")
	c.Status(http.StatusNoContent)
}

// ArticuloDisponibilidad is the free stock of an item over a period
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

// articuloDisponibilidad reports the free units of every available item
// between fecha_inicio and fecha_fin. reserva_id leaves that reservation out
// of the reserved count and reports what it already holds separately.
func (s *Server) articuloDisponibilidad(c *gin.Context) {
	start, errStart := parseLocalTime(c.Query("fecha_inicio"))
	end, errEnd := parseLocalTime(c.Query("fecha_fin"))
	if errStart != nil || errEnd != nil {
		abortWithDetail(c, http.StatusBadRequest, "Invalid date format. Use ISO format (YYYY-MM-DDTHH:MM:SS)", "")
		return
	}
	if !end.After(start.Time) {
		abortWithDetail(c, http.StatusBadRequest, "The end must be after the start", "")
		return
	}

	reservaID := 0
	if raw := c.Query("reserva_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []validationIssue{{
				Loc:  []any{"query", "reserva_id"},
				Msg:  "reserva_id must be a positive integer",
				Type: "value_error",
			}}})
			return
		}
		reservaID = id
	}

	var articulos []models.Articulo
	if err := s.db.Where("disponible = ?", true).Order("id").Find(&articulos).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list articulos")
		abortWithDetail(c, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	result := make([]ArticuloDisponibilidad, 0, len(articulos))
	for _, a := range articulos {
		others, err := reservedUnits(s.db, a.ID, reservaID, start.Time, end.Time)
		if err != nil {
			s.logger.Error().Err(err).Int("articulo_id", a.ID).Msg("Failed to count reserved units")
			abortWithDetail(c, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		var mine struct{ Total int }
		if reservaID > 0 {
			err := s.db.Model(&models.ReservaArticulo{}).
				Select("COALESCE(SUM(cantidad), 0) AS total").
				Where("id_reserva = ? AND id_articulo = ?", reservaID, a.ID).
				Scan(&mine).Error
			if err != nil {
				s.logger.Error().Err(err).Int("articulo_id", a.ID).Msg("Failed to count attached units")
				abortWithDetail(c, http.StatusInternalServerError, "Internal server error", "")
				return
			}
		}

		result = append(result, ArticuloDisponibilidad{
			ID:                     a.ID,
			Nombre:                 a.Nombre,
			Descripcion:            a.Descripcion,
			Categoria:              a.Categoria,
			CantidadTotal:          a.Cantidad,
			CantidadReservadaOtros: others,
			CantidadAsignada:       mine.Total,
			CantidadDisponible:     max(0, a.Cantidad-others),
			DisponibleParaAgregar:  max(0, a.Cantidad-others-mine.Total),
		})
	}

	c.JSON(http.StatusOK, result)
}
