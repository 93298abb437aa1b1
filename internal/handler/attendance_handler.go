package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkamdem/assoflow-api/internal/service"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
	"github.com/mkamdem/assoflow-api/pkg/response"
)

// AttendanceHandler exposes attendance recording endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Set godoc
// @Summary Set one enrollment's attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param memberId path string true "Member ID"
// @Param payload body service.SetAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/attendance/{memberId} [put]
func (h *AttendanceHandler) Set(c *gin.Context) {
	var req service.SetAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.attendance.SetAttendance(c.Request.Context(), c.Param("id"), c.Param("memberId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// BulkSet godoc
// @Summary Apply a session attendance sheet
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.BulkAttendanceRequest true "Attendance sheet"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/attendance [post]
func (h *AttendanceHandler) BulkSet(c *gin.Context) {
	var req service.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.attendance.BulkSetAttendance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
