package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unitms/army-ums/internal/application/port"
)

type rejectRequestBody struct {
	Reason string `json:"reason"`
}

// ListAllRequests handles GET /api/admin/requests, optionally filtered by
// status and type, with target user summaries resolved
func (h *Handlers) ListAllRequests(c *gin.Context) {
	requests, err := h.requestService.ListWithTargets(c.Request.Context(), port.RequestFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "requests": requests})
}

// ApproveRequest handles POST /api/admin/requests/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	request, err := h.requestService.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "request": request})
}

// RejectRequest handles POST /api/admin/requests/:id/reject. The remark is
// mandatory.
func (h *Handlers) RejectRequest(c *gin.Context) {
	var body rejectRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	request, err := h.requestService.Reject(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "request": request})
}

// ExportRequests handles GET /api/admin/requests/export, streaming the
// request register as a workbook
func (h *Handlers) ExportRequests(c *gin.Context) {
	content, err := h.reportService.ExportRequests(c.Request.Context(), port.RequestFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("requests-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}
