package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkamdem/assoflow-api/internal/service"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
	"github.com/mkamdem/assoflow-api/pkg/response"
)

// FinanceHandler exposes aggregation and report export endpoints.
type FinanceHandler struct {
	finance *service.FinanceService
	exports *service.ExportService
	metrics *service.MetricsService
}

// NewFinanceHandler constructs FinanceHandler.
func NewFinanceHandler(finance *service.FinanceService, exports *service.ExportService, metrics *service.MetricsService) *FinanceHandler {
	return &FinanceHandler{finance: finance, exports: exports, metrics: metrics}
}

// Summary godoc
// @Summary Period profit and loss snapshot
// @Tags Finance
// @Produce json
// @Param from query string false "Period start (YYYY-MM-DD), defaults to Jan 1"
// @Param to query string false "Period end (YYYY-MM-DD), defaults to Dec 31"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/summary [get]
func (h *FinanceHandler) Summary(c *gin.Context) {
	start, end, err := periodParams(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid period dates"))
		return
	}
	summary, err := h.finance.Summarize(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Monthly godoc
// @Summary Twelve-month revenue and expense series
// @Tags Finance
// @Produce json
// @Param year query int false "Year, defaults to current"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/monthly [get]
func (h *FinanceHandler) Monthly(c *gin.Context) {
	year := time.Now().UTC().Year()
	if v, err := strconv.Atoi(c.Query("year")); err == nil {
		year = v
	}
	series, err := h.finance.MonthlySeries(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, series, nil)
}

// MemberLedger godoc
// @Summary Per-member financial position for a year
// @Tags Finance
// @Produce json
// @Param memberId path string true "Member ID"
// @Param year query int false "Year, defaults to current"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/members/{memberId} [get]
func (h *FinanceHandler) MemberLedger(c *gin.Context) {
	year := time.Now().UTC().Year()
	if v, err := strconv.Atoi(c.Query("year")); err == nil {
		year = v
	}
	ledger, err := h.finance.MemberLedger(c.Request.Context(), c.Param("memberId"), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger, nil)
}

// Report godoc
// @Summary Export the detailed financial report
// @Tags Finance
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param from query string false "Period start (YYYY-MM-DD)"
// @Param to query string false "Period end (YYYY-MM-DD)"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /finance/report [get]
func (h *FinanceHandler) Report(c *gin.Context) {
	start, end, err := periodParams(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid period dates"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "json"))

	result, err := h.exports.FinancialReport(c.Request.Context(), start, end, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordExport(string(result.Format))

	if result.Format == service.FormatJSON {
		response.JSON(c, http.StatusOK, result.Report, nil)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Body)
}
