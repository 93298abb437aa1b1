package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mkamdem/assoflow-api/internal/models"
	"github.com/mkamdem/assoflow-api/internal/service"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
	"github.com/mkamdem/assoflow-api/pkg/response"
)

// RegistrationHandler exposes annual membership dues endpoints.
type RegistrationHandler struct {
	payments *service.PaymentService
	metrics  *service.MetricsService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(payments *service.PaymentService, metrics *service.MetricsService) *RegistrationHandler {
	return &RegistrationHandler{payments: payments, metrics: metrics}
}

// List godoc
// @Summary List annual registrations
// @Tags Registrations
// @Produce json
// @Param memberId query string false "Filter by member"
// @Param year query int false "Filter by year"
// @Param status query string false "Filter by payment status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	var filter models.AnnualRegistrationFilter
	filter.MemberID = c.Query("memberId")
	if v, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = v
	}
	filter.Status = models.PaymentStatus(c.Query("status"))
	filter.Page, filter.PageSize = pageParams(c)

	// members only ever see their own dues
	if claims := claimsFromContext(c); claims != nil && claims.Role != models.RoleAdmin {
		filter.MemberID = claims.MemberID
	}

	registrations, pagination, err := h.payments.ListRegistrations(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, pagination)
}

// Create godoc
// @Summary Open a member's dues record for a year
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.CreateRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req service.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	registration, err := h.payments.CreateRegistration(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// RecordPayment godoc
// @Summary Mark annual dues paid
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/payment [post]
func (h *RegistrationHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	registration, err := h.payments.RecordRegistrationPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordPayment(string(models.PaymentSourceAnnualRegistration))
	response.JSON(c, http.StatusOK, registration, nil)
}

// Exempt godoc
// @Summary Exempt annual dues with a reason
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body service.ExemptRegistrationRequest true "Exemption payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/exempt [post]
func (h *RegistrationHandler) Exempt(c *gin.Context) {
	var req service.ExemptRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	registration, err := h.payments.ExemptRegistration(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// RevertPayment godoc
// @Summary Revert paid annual dues to pending
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/payment [delete]
func (h *RegistrationHandler) RevertPayment(c *gin.Context) {
	registration, err := h.payments.RevertRegistrationPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}
