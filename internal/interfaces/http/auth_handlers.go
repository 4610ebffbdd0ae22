package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// Signup handles POST /api/signup
func (h *Handlers) Signup(c *gin.Context, issuer *cookieIssuer) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := issuer.issue(c, user.ID, user.Role); err != nil {
		h.logger.Error("Failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, user.Summary())
}

// Login handles POST /api/login
func (h *Handlers) Login(c *gin.Context, issuer *cookieIssuer) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	user, err := h.authService.Login(c.Request.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := issuer.issue(c, user.ID, user.Role); err != nil {
		h.logger.Error("Failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, user.Summary())
}

// Logout handles POST /api/logout
func (h *Handlers) Logout(c *gin.Context, issuer *cookieIssuer) {
	issuer.clear(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me handles GET /api/me
func (h *Handlers) Me(c *gin.Context) {
	claims := principal(c)
	user, err := h.authService.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Summary())
}
