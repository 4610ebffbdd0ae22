// Package http is the HTTP adapter: it translates REST requests into
// application service calls and maps service errors onto status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/application/service"
	"github.com/unitms/army-ums/internal/config"
	"github.com/unitms/army-ums/internal/models"
	"github.com/unitms/army-ums/pkg/database"
)

// Server is the HTTP server adapter
type Server struct {
	cfg        config.ServerConfig
	authCfg    config.AuthConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     *zap.Logger
}

// NewServer creates a new HTTP server wired to the application services
func NewServer(
	cfg config.ServerConfig,
	authCfg config.AuthConfig,
	db *database.DB,
	authService service.AuthService,
	profileService service.ProfileService,
	requestService service.RequestService,
	reportService service.ReportService,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		cfg:     cfg,
		authCfg: authCfg,
		router:  gin.New(),
		handlers: NewHandlers(
			db,
			authService,
			profileService,
			requestService,
			reportService,
			logger,
		),
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("latency", time.Since(start).String()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	api.GET("/health", s.handlers.HealthCheck)

	// Session endpoints
	api.POST("/signup", s.withCookie(s.handlers.Signup))
	api.POST("/login", s.withCookie(s.handlers.Login))
	api.POST("/logout", s.withCookie(s.handlers.Logout))

	authed := api.Group("", s.authRequired())
	{
		authed.GET("/me", s.handlers.Me)

		// Owner profile edits, approval-free
		authed.GET("/profile", s.handlers.GetOwnProfile)
		authed.PUT("/profile/:section", s.handlers.UpdateOwnProfileSection)
	}

	manager := api.Group("/manager", s.authRequired(), s.requireRole(models.RoleManager))
	{
		manager.GET("/users", s.handlers.ListUsers)
		manager.GET("/users/:id/profile", s.handlers.GetUserProfile)
		manager.POST("/requests/leave", s.handlers.CreateLeaveRequest)
		manager.POST("/requests/outpass", s.handlers.CreateOutpassRequest)
		manager.POST("/requests/salary", s.handlers.CreateSalaryRequest)
		manager.POST("/requests/profile-edit", s.handlers.CreateProfileEditRequest)
		manager.GET("/requests", s.handlers.ListOwnRequests)
		manager.POST("/requests/:id/resubmit", s.handlers.ResubmitRequest)
	}

	admin := api.Group("/admin", s.authRequired(), s.requireRole(models.RoleAdmin))
	{
		admin.GET("/requests", s.handlers.ListAllRequests)
		admin.GET("/requests/export", s.handlers.ExportRequests)
		admin.POST("/requests/:id/approve", s.handlers.ApproveRequest)
		admin.POST("/requests/:id/reject", s.handlers.RejectRequest)
		admin.GET("/users", s.handlers.ListUsers)
		admin.GET("/users/:id/profile", s.handlers.GetUserProfile)
	}
}

// withCookie lets session handlers set the auth cookie through the server's
// token settings
func (s *Server) withCookie(handler func(*gin.Context, *cookieIssuer)) gin.HandlerFunc {
	issuer := &cookieIssuer{cfg: s.authCfg}
	return func(c *gin.Context) {
		handler(c, issuer)
	}
}

// Start starts the HTTP server and blocks until the context is cancelled or
// the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
