package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkamdem/assoflow-api/internal/models"
	"github.com/mkamdem/assoflow-api/internal/service"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
	"github.com/mkamdem/assoflow-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	payments    *service.PaymentService
	metrics     *service.MetricsService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, payments *service.PaymentService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, payments: payments, metrics: metrics}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param memberId query string false "Filter by member"
// @Param paymentStatus query string false "Filter by payment status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.CourseID = c.Query("courseId")
	filter.MemberID = c.Query("memberId")
	filter.PaymentStatus = models.PaymentStatus(c.Query("paymentStatus"))
	filter.Page, filter.PageSize = pageParams(c)

	// members only ever see their own enrollments
	if claims := claimsFromContext(c); claims != nil && claims.Role != models.RoleAdmin {
		filter.MemberID = claims.MemberID
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Enroll godoc
// @Summary Enroll a member into a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	// a member can only enroll themselves
	if claims := claimsFromContext(c); claims != nil && claims.Role != models.RoleAdmin {
		req.MemberID = claims.MemberID
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		var typed *appErrors.Error
		if errors.As(err, &typed) && typed.Status == http.StatusConflict {
			h.metrics.RecordCapacityConflict()
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollment()
	response.Created(c, enrollment)
}

// Get godoc
// @Summary Get one enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Param memberId path string true "Member ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/enrollments/{memberId} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Cancel godoc
// @Summary Cancel a pending enrollment
// @Tags Enrollments
// @Param id path string true "Course ID"
// @Param memberId path string true "Member ID"
// @Success 204
// @Security BearerAuth
// @Router /courses/{id}/enrollments/{memberId} [delete]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	if err := h.enrollments.Cancel(c.Request.Context(), c.Param("memberId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordPayment godoc
// @Summary Mark a course enrollment paid
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param memberId path string true "Member ID"
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/enrollments/{memberId}/payment [post]
func (h *EnrollmentHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.payments.RecordEnrollmentPayment(c.Request.Context(), c.Param("id"), c.Param("memberId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordPayment(string(models.PaymentSourceCourse))
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Exempt godoc
// @Summary Exempt a course fee
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Param memberId path string true "Member ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/enrollments/{memberId}/exempt [post]
func (h *EnrollmentHandler) Exempt(c *gin.Context) {
	enrollment, err := h.payments.ExemptEnrollment(c.Request.Context(), c.Param("id"), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// RevertPayment godoc
// @Summary Revert a paid enrollment to pending
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Param memberId path string true "Member ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/enrollments/{memberId}/payment [delete]
func (h *EnrollmentHandler) RevertPayment(c *gin.Context) {
	enrollment, err := h.payments.RevertEnrollmentPayment(c.Request.Context(), c.Param("id"), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
