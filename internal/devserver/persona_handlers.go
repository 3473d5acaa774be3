package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reservas-dev/reservas/internal/auth"
	"github.com/reservas-dev/reservas/internal/models"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	User        *PersonaDetail `json:"user"`
}

// PersonaDetail represents a person returned in responses
type PersonaDetail struct {
	ID       int    `json:"id"`
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

// CreatePersonaRequest represents a request to create a person
type CreatePersonaRequest struct {
	Nombre   string `json:"nombre" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive *bool  `json:"is_active"`
}

// UpdatePersonaRequest changes only the fields present
type UpdatePersonaRequest struct {
	Nombre   *string `json:"nombre" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6,max=128"`
	IsAdmin  *bool   `json:"is_admin"`
	IsActive *bool   `json:"is_active"`
}

func personaDetail(p *models.Persona) *PersonaDetail {
	return &PersonaDetail{
		ID:       p.ID,
		Nombre:   p.Nombre,
		Email:    p.Email,
		IsAdmin:  p.IsAdmin,
		IsActive: p.IsActive,
	}
}

// webLogin checks the credentials and returns a token with the person. The
// token is also set as a cookie for browser clients.
func (s *Server) webLogin(c *gin.Context) {
	var req LoginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var persona models.Persona
	if err := s.db.Where("email = ?", strings.ToLower(req.Email)).First(&persona).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			abortWithDetail(c, http.StatusUnauthorized, "Incorrect email or password", "")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find persona")
		abortWithDetail(c, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	if err := auth.VerifyPassword(req.Password, persona.PasswordHash); err != nil {
		abortWithDetail(c, http.StatusUnauthorized, "Incorrect email or password", "")
		return
	}

	if !persona.IsActive {
		abortWithDetail(c, http.StatusBadRequest, "Inactive user", "")
		return
	}

	token, err := s.tokens.GenerateToken(persona.ID, persona.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to generate token", "")
		return
	}

	maxAge := int(s.config.DevServer.TokenLifetime.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookieName, token, maxAge, "/", "", false, true)

	s.logger.Info().Int("persona_id", persona.ID).Str("email", persona.Email).Msg("Persona logged in")

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        personaDetail(&persona),
	})
}

func (s *Server) getCurrentPersona(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var persona models.Persona
	if err := models.FindByID(s.db, sessionData.UserID, &persona); err != nil {
		s.dbFailure(c, err, "Persona", sessionData.UserID)
		return
	}

	c.JSON(http.StatusOK, personaDetail(&persona))
}

func (s *Server) listPersonas(c *gin.Context) {
	var personas []models.Persona
	if err := s.db.Order("id").Find(&personas).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list personas")
		abortWithDetail(c, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	details := make([]*PersonaDetail, len(personas))
	for i := range personas {
		details[i] = personaDetail(&personas[i])
	}
	c.JSON(http.StatusOK, details)
}

// getPersona is open to administrators and to the person themselves
func (s *Server) getPersona(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sessionData, _ := GetSessionData(c)
	if !sessionData.IsAdmin && sessionData.UserID != id {
		abortInsufficientPrivilege(c)
		return
	}

	var persona models.Persona
	if err := models.FindByID(s.db, id, &persona); err != nil {
		s.dbFailure(c, err, "Persona", id)
		return
	}
	c.JSON(http.StatusOK, personaDetail(&persona))
}

func (s *Server) createPersona(c *gin.Context) {
	var req CreatePersonaRequest
	if !s.bindJSON(c, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to create persona", "")
		return
	}

	persona := &models.Persona{
		Nombre:       req.Nombre,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if err := s.db.Create(persona).Error; err != nil {
		if isUniqueViolation(err) {
			abortWithDetail(c, http.StatusBadRequest, "Email already registered", "")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create persona")
		abortWithDetail(c, http.StatusInternalServerError, "Failed to create persona", "")
		return
	}

	// The column default would turn an explicit false into true on insert
	if !persona.IsActive {
		s.db.Model(persona).Update("is_active", false)
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().
		Int("persona_id", persona.ID).
		Str("email", persona.Email).
		Int("created_by", sessionData.UserID).
		Msg("Persona created")

	c.JSON(http.StatusCreated, personaDetail(persona))
}

func (s *Server) updatePersona(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdatePersonaRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var persona models.Persona
	if err := models.FindByID(s.db, id, &persona); err != nil {
		s.dbFailure(c, err, "Persona", id)
		return
	}

	updates := map[string]any{}
	if req.Nombre != nil {
		updates["nombre"] = *req.Nombre
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(*req.Email)
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			abortWithDetail(c, http.StatusInternalServerError, "Failed to update persona", "")
			return
		}
		updates["password_hash"] = hash
	}
	if req.IsAdmin != nil {
		updates["is_admin"] = *req.IsAdmin
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(&persona).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				abortWithDetail(c, http.StatusBadRequest, "Email already registered", "")
				return
			}
			s.logger.Error().Err(err).Int("persona_id", id).Msg("Failed to update persona")
			abortWithDetail(c, http.StatusInternalServerError, "Failed to update persona", "")
			return
		}
	}

	if err := models.FindByID(s.db, id, &persona); err != nil {
		s.dbFailure(c, err, "Persona", id)
		return
	}
	c.JSON(http.StatusOK, personaDetail(&persona))
}

func (s *Server) deletePersona(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sessionData, _ := GetSessionData(c)
	if sessionData.UserID == id {
		abortWithDetail(c, http.StatusBadRequest, "You cannot delete your own account", "")
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		reservas := tx.Model(&models.Reserva{}).Select("id").Where("id_persona = ?", id)
		if err := tx.Where("id_reserva IN (?)", reservas).Delete(&models.ReservaArticulo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id_persona = ?", id).Delete(&models.Reserva{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Persona{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		s.dbFailure(c, err, "Persona", id)
		return
	}

	s.logger.Info().Int("persona_id", id).Int("deleted_by", sessionData.UserID).Msg("Persona deleted")
	c.Status(http.StatusNoContent)
}
