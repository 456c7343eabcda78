// Package api provides the HTTP API server for srvadm.
// It uses the Echo framework to serve the inventory REST endpoints and a
// WebSocket change feed.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/hiroakis/host-management-app/docs" // Import generated docs
	"github.com/hiroakis/host-management-app/internal/config"
	"github.com/hiroakis/host-management-app/internal/integrity"
	"github.com/hiroakis/host-management-app/internal/inventory"
	"github.com/hiroakis/host-management-app/internal/scheduler"
	"github.com/hiroakis/host-management-app/internal/storage"
	"github.com/hiroakis/host-management-app/internal/version"
)

// Server represents the srvadm API server.
type Server struct {
	echo      *echo.Echo
	storage   *storage.Storage
	inventory *inventory.Service
	integrity *integrity.Service
	config    *config.Config
	logger    *slog.Logger
	wsHub     *Hub // WebSocket hub for change events
	scheduler *scheduler.Scheduler
}

// New creates a new API server instance.
func New(cfg *config.Config, store *storage.Storage, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Server.Debug

	// Set custom error handler
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.API.LegacyStatus, logger)

	// Create WebSocket hub
	hub := NewHub(logger)

	server := &Server{
		echo:    e,
		storage: store,
		inventory: inventory.NewService(store,
			inventory.WithLogger(logger),
			inventory.WithPublisher(hub),
		),
		integrity: integrity.NewService(store, logger),
		config:    cfg,
		logger:    logger,
		wsHub:     hub,
	}

	if cfg.Integrity.ScanInterval > 0 {
		server.scheduler = scheduler.New(server.integrity, scheduler.Options{
			Interval:   cfg.Integrity.ScanInterval,
			AutoRepair: cfg.Integrity.AutoRepair,
			Publisher:  hub,
			Logger:     logger,
		})
	}

	// Start WebSocket hub in background
	go hub.Run()

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	// Request ID first so the request logger can report it
	s.echo.Use(middleware.RequestID())

	s.echo.Use(RequestLogger(s.logger))

	s.echo.Use(middleware.Recover())

	s.echo.Use(SecurityHeaders)

	origins := s.config.Security.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		MaxAge:       21600,
	}))

	if s.config.Security.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(s.config.Security.RateLimit),
		)))
	}

	s.echo.Use(middleware.BodyLimit("1M"))

	s.echo.Use(ValidateContentType)
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	// Swagger UI documentation
	s.echo.GET("/docs/*", echoSwagger.WrapHandler)

	api := s.echo.Group("/api")

	// Plain lists, rendered per ?format=
	list := api.Group("/list")
	list.GET("/ip", s.listIPs)
	list.GET("/ip/used", s.listUsedIPs)
	list.GET("/ip/unused", s.listUnusedIPs)
	list.GET("/ip/role/:role_name", s.listIPsByRole)
	list.GET("/role", s.listRoles)
	list.GET("/host", s.listHosts)

	// IP records
	api.GET("/ip", s.allIPs)
	api.GET("/ip/:ip", s.searchByIP)
	api.POST("/ip", s.addIP)
	api.PUT("/ip/:ip", s.updateIP)
	api.DELETE("/ip/:ip", s.deleteIP)

	// Role records
	api.GET("/role", s.allRoles)
	api.GET("/role/:role_name", s.searchByRole)
	api.POST("/role", s.addRole)
	api.PUT("/role/:role_name", s.updateRole)
	api.DELETE("/role/:role_name", s.deleteRole)

	// Host records
	api.GET("/host", s.allHosts)
	api.GET("/host/:host_name", s.searchByHost)
	api.POST("/host", s.addHost)
	api.PUT("/host/:host_name", s.updateHost)
	api.DELETE("/host/:host_name", s.deleteHost)

	api.GET("/hosts_output/:role_name", s.outputHosts)

	api.GET("/stats", s.getStatistics)

	api.GET("/integrity", s.scanIntegrity)
	api.GET("/integrity/last", s.lastIntegrity)
	api.POST("/integrity/repair", s.repairIntegrity)

	ws := api.Group("/ws")
	ws.GET("/events", s.HandleWebSocket)
	ws.GET("/stats", s.GetWebSocketStats)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()

	s.logger.Info("starting srvadm API server",
		slog.String("address", addr),
		slog.String("database", s.storage.Driver()),
		slog.Bool("debug", s.config.Server.Debug),
		slog.Bool("tls", s.config.Server.TLSEnabled),
	)

	// Configure server timeouts
	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout

	if s.scheduler != nil {
		s.scheduler.Start(context.Background())
	}

	if s.config.Server.TLSEnabled {
		return s.echo.StartTLS(addr, s.config.Server.TLSCert, s.config.Server.TLSKey)
	}

	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down srvadm API server")

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	s.wsHub.Stop()

	if err := s.storage.Close(); err != nil {
		return fmt.Errorf("error closing storage: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// ServeHTTP lets the server be mounted in tests and other muxes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// healthCheck handles health check requests.
// @Summary Health check
// @Description Pings the database
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (s *Server) healthCheck(c echo.Context) error {
	resp := HealthResponse{
		Status:   "healthy",
		Service:  "srvadm",
		Version:  version.GetVersion(),
		Database: s.storage.Driver(),
	}

	if err := s.storage.Ping(c.Request().Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Error = "database connection failed"
		if s.config.Server.Debug {
			resp.Details = err.Error()
		}
		return c.JSON(http.StatusServiceUnavailable, resp)
	}

	return c.JSON(http.StatusOK, resp)
}
