// Package devserver is a development backend speaking the reservation API
// consumed by the CLI. It keeps everything in SQLite and signs its own tokens.
package devserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/reservas-dev/reservas/internal/auth"
	"github.com/reservas-dev/reservas/internal/config"
	"github.com/reservas-dev/reservas/internal/models"
)

const apiPrefix = "/api/v1"

// Server represents the development HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	tokens    *auth.TokenIssuer
	now       func() time.Time
}

// New creates a server, migrates its database and seeds the admin account
func New(cfg *config.Config, zlog zerolog.Logger) (*Server, error) {
	db, err := initDatabase(cfg.DevServer.DatabaseURL, zlog)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	secret := cfg.DevServer.JWTSecret
	if secret == "" {
		// Tokens from a previous run stop validating, which is fine for development
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		zlog.Warn().Msg("DEVSERVER_JWT_SECRET not set - using a random secret for this run")
	}

	tokens, err := auth.NewTokenIssuer(secret, cfg.DevServer.TokenLifetime)
	if err != nil {
		return nil, err
	}

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: newValidator(),
		tokens:    tokens,
		now:       time.Now,
	}

	if err := server.seedAdmin(cfg.DevServer.AdminEmail, cfg.DevServer.AdminPassword); err != nil {
		return nil, err
	}

	server.setupRouter()

	return server, nil
}

// newValidator reports fields by their JSON name
func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// initDatabase opens SQLite with the same pragmas the production service uses
func initDatabase(url string, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 5 * time.Minute
		busyTimeout     = 5000
	)

	db, err := gorm.Open(sqlite.Open(url), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Every connection to an in-memory database is a different database
	if strings.Contains(url, ":memory:") || strings.Contains(url, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// seedAdmin creates the first administrator when no person exists yet
func (s *Server) seedAdmin(email, password string) error {
	var count int64
	if err := s.db.Model(&models.Persona{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count personas: %w", err)
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		buf := make([]byte, 9)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("failed to generate admin password: %w", err)
		}
		password = hex.EncodeToString(buf)
		s.logger.Warn().Str("email", email).Str("password", password).Msg("DEVSERVER_ADMIN_PASSWORD not set - generated one")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &models.Persona{
		Nombre:       "Administrador",
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		IsAdmin:      true,
		IsActive:     true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info().Int("persona_id", admin.ID).Str("email", admin.Email).Msg("Seeded admin account")
	return nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)

	api := s.router.Group(apiPrefix)
	api.POST("/personas/web-login", s.webLogin)

	authed := api.Group("")
	authed.Use(JWTAuthMiddleware(s.db, s.tokens, s.logger))
	admin := AdminOnlyMiddleware(s.logger)
	{
		authed.GET("/personas/me", s.getCurrentPersona)
		authed.GET("/personas/", admin, s.listPersonas)
		authed.POST("/personas/", admin, s.createPersona)
		authed.GET("/personas/:id", s.getPersona)
		authed.PUT("/personas/:id", admin, s.updatePersona)
		authed.DELETE("/personas/:id", admin, s.deletePersona)

		authed.GET("/salas/", s.listSalas)
		authed.GET("/salas/:id", s.getSala)
		authed.POST("/salas/", admin, s.createSala)
		authed.PUT("/salas/:id", admin, s.updateSala)
		authed.DELETE("/salas/:id", admin, s.deleteSala)

		authed.GET("/articulos/", s.listArticulos)
		authed.GET("/articulos/disponibilidad", s.articuloDisponibilidad)
		authed.GET("/articulos/:id", s.getArticulo)
		authed.POST("/articulos/", admin, s.createArticulo)
		authed.PUT("/articulos/:id", admin, s.updateArticulo)
		authed.PATCH("/articulos/:id/toggle-disponibilidad", admin, s.toggleArticulo)
		authed.DELETE("/articulos/:id", admin, s.deleteArticulo)

		authed.GET("/reservas/", s.listReservas)
		authed.POST("/reservas/", s.createReserva)
		authed.GET("/reservas/:id", s.getReserva)
		authed.PUT("/reservas/:id", s.updateReserva)
		authed.DELETE("/reservas/:id", s.deleteReserva)
		authed.GET("/reservas/:id/articulos", s.listReservaArticulos)
		authed.POST("/reservas/:id/articulos/:articulo_id", s.addReservaArticulo)
		authed.DELETE("/reservas/:id/articulos/:articulo_id", s.removeReservaArticulo)

		authed.GET("/analytics/dashboard-metrics", s.dashboardMetrics)
		authed.GET("/analytics/ocupacion-prediccion", s.predicciones)
		authed.GET("/predicciones", s.predicciones)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "reservas-devserver",
	})
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// DB returns the database connection
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *Server) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start serves on the configured address until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.DevServer.Addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	} else {
		s.logger.Info().Msg("Database closed successfully")
	}

	return nil
}
