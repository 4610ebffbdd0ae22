package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/application/service"
	"github.com/unitms/army-ums/pkg/database"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	db             *database.DB
	authService    service.AuthService
	profileService service.ProfileService
	requestService service.RequestService
	reportService  service.ReportService
	logger         *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	db *database.DB,
	authService service.AuthService,
	profileService service.ProfileService,
	requestService service.RequestService,
	reportService service.ReportService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		db:             db,
		authService:    authService,
		profileService: profileService,
		requestService: requestService,
		reportService:  reportService,
		logger:         logger,
	}
}

// HealthCheck handles GET /api/health
func (h *Handlers) HealthCheck(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// respondError maps service errors onto status codes with their distinct
// messages, so a precondition failure always tells the caller why
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRequestNotPending),
		errors.Is(err, service.ErrRequestNotRejected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotRequestOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyRemark),
		errors.Is(err, service.ErrEmptyResponse),
		errors.Is(err, service.ErrInvalidRequestType),
		errors.Is(err, service.ErrInvalidSection),
		errors.Is(err, service.ErrMissingPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
