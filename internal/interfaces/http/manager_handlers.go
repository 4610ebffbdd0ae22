package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unitms/army-ums/internal/application/port"
	"github.com/unitms/army-ums/internal/models"
)

type leaveRequestBody struct {
	UserID string                 `json:"userId" binding:"required"`
	Leave  map[string]interface{} `json:"leave" binding:"required"`
}

type outpassRequestBody struct {
	UserID  string                 `json:"userId" binding:"required"`
	Outpass map[string]interface{} `json:"outpass" binding:"required"`
}

type salaryRequestBody struct {
	UserID string                 `json:"userId" binding:"required"`
	Salary map[string]interface{} `json:"salary" binding:"required"`
}

type profileEditRequestBody struct {
	UserID  string      `json:"userId" binding:"required"`
	Section string      `json:"section" binding:"required"`
	Data    interface{} `json:"data"`
}

type resubmitRequestBody struct {
	Response    string                 `json:"response"`
	UpdatedData map[string]interface{} `json:"updatedData"`
}

// CreateLeaveRequest handles POST /api/manager/requests/leave
func (h *Handlers) CreateLeaveRequest(c *gin.Context) {
	var body leaveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId or leave"})
		return
	}

	h.createRequest(c, models.RequestTypeLeave, map[string]interface{}{
		"userId": body.UserID,
		"leave":  body.Leave,
	})
}

// CreateOutpassRequest handles POST /api/manager/requests/outpass
func (h *Handlers) CreateOutpassRequest(c *gin.Context) {
	var body outpassRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId or outpass"})
		return
	}

	h.createRequest(c, models.RequestTypeOutpass, map[string]interface{}{
		"userId":  body.UserID,
		"outpass": body.Outpass,
	})
}

// CreateSalaryRequest handles POST /api/manager/requests/salary
func (h *Handlers) CreateSalaryRequest(c *gin.Context) {
	var body salaryRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId or salary"})
		return
	}

	h.createRequest(c, models.RequestTypeSalary, map[string]interface{}{
		"userId": body.UserID,
		"salary": body.Salary,
	})
}

// CreateProfileEditRequest handles POST /api/manager/requests/profile-edit
func (h *Handlers) CreateProfileEditRequest(c *gin.Context) {
	var body profileEditRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId, section or data"})
		return
	}

	h.createRequest(c, models.RequestTypeProfileUpdate, map[string]interface{}{
		"userId":  body.UserID,
		"section": body.Section,
		"data":    body.Data,
	})
}

func (h *Handlers) createRequest(c *gin.Context, requestType models.RequestType, payload map[string]interface{}) {
	claims := principal(c)

	request, err := h.requestService.Create(c.Request.Context(), claims.UserID, requestType, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "request": request})
}

// ListOwnRequests handles GET /api/manager/requests. Managers only see the
// requests they created.
func (h *Handlers) ListOwnRequests(c *gin.Context) {
	claims := principal(c)

	requests, err := h.requestService.List(c.Request.Context(), port.RequestFilter{
		Status:      c.Query("status"),
		Type:        c.Query("type"),
		RequesterID: claims.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "requests": requests})
}

// ResubmitRequest handles POST /api/manager/requests/:id/resubmit
func (h *Handlers) ResubmitRequest(c *gin.Context) {
	claims := principal(c)

	var body resubmitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	request, err := h.requestService.Resubmit(c.Request.Context(), c.Param("id"), claims.UserID, body.Response, body.UpdatedData)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "request": request})
}
