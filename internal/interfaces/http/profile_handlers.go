package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unitms/army-ums/internal/models"
)

// GetOwnProfile handles GET /api/profile
func (h *Handlers) GetOwnProfile(c *gin.Context) {
	claims := principal(c)
	profile, err := h.profileService.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateOwnProfileSection handles PUT /api/profile/:section. The body is the
// new section content verbatim; owner edits are not subject to approval.
func (h *Handlers) UpdateOwnProfileSection(c *gin.Context) {
	claims := principal(c)
	section := c.Param("section")

	if _, ok := models.SectionColumn(section); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid section"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	profile, err := h.profileService.UpdateSection(c.Request.Context(), claims.UserID, section, body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, section: profile.Section(section)})
}

// GetUserProfile handles GET /api/manager/users/:id/profile and
// GET /api/admin/users/:id/profile — a read-only view of another user's
// record
func (h *Handlers) GetUserProfile(c *gin.Context) {
	userID := c.Param("id")

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	profile, err := h.profileService.Get(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user.Summary(),
		"profile": profile,
	})
}

// ListUsers handles GET /api/manager/users and GET /api/admin/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, user.Summary())
	}
	c.JSON(http.StatusOK, summaries)
}
