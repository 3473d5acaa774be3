package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/reservas-dev/reservas/internal/auth"
	"github.com/reservas-dev/reservas/internal/models"
	"github.com/reservas-dev/reservas/internal/pipeline"
)

const (
	bearerPrefix    = "Bearer "
	tokenCookieName = "access_token"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the authenticated person of the request
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// requestToken reads the bearer header, falling back to the login cookie
func requestToken(c *gin.Context) (string, string, error) {
	token, err := extractBearerToken(c.GetHeader("Authorization"))
	if err == nil {
		return token, "bearer", nil
	}
	if errors.Is(err, ErrMissingAuthHeader) {
		if cookie, cerr := c.Cookie(tokenCookieName); cerr == nil && cookie != "" {
			return cookie, "cookie", nil
		}
	}
	return "", "", err
}

// JWTAuthMiddleware validates the access token and loads its person. Bad or
// expired tokens answer 401; inactive accounts answer 403 account_inactive.
func JWTAuthMiddleware(db *gorm.DB, tokens *auth.TokenIssuer, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, method, err := requestToken(c)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Request without credentials")
			abortWithDetail(c, http.StatusUnauthorized, "Not authenticated", "")
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to validate JWT token")
			if errors.Is(err, auth.ErrTokenExpired) {
				abortWithDetail(c, http.StatusUnauthorized, "Token has expired", pipeline.CodeTokenExpired)
				return
			}
			abortWithDetail(c, http.StatusUnauthorized, "Could not validate credentials", pipeline.CodeTokenInvalid)
			return
		}

		var persona models.Persona
		if err := models.FindByID(db, claims.UserID, &persona); err != nil {
			log.Warn().Err(err).Int("user_id", claims.UserID).Msg("Token for unknown persona")
			abortWithDetail(c, http.StatusUnauthorized, "Could not validate credentials", pipeline.CodeTokenInvalid)
			return
		}

		if !persona.IsActive {
			log.Warn().Int("user_id", persona.ID).Msg("Inactive persona used a token")
			abortWithDetail(c, http.StatusForbidden, "Inactive user", pipeline.CodeAccountInactive)
			return
		}

		setSession(c, &auth.SessionData{
			UserID:     persona.ID,
			Email:      persona.Email,
			IsAdmin:    persona.IsAdmin,
			AuthMethod: method,
		})

		c.Next()
	}
}

// AdminOnlyMiddleware ensures the authenticated person is an administrator
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			abortWithDetail(c, http.StatusUnauthorized, "Not authenticated", "")
			return
		}

		if !sessionData.IsAdmin {
			log.Warn().Int("user_id", sessionData.UserID).Str("path", c.Request.URL.Path).Msg("Admin access denied")
			abortInsufficientPrivilege(c)
			return
		}

		c.Next()
	}
}

func abortInsufficientPrivilege(c *gin.Context) {
	abortWithDetail(c, http.StatusForbidden, "Administrator privileges required", pipeline.CodeInsufficientPrivilege)
}
