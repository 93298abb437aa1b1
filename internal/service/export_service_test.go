package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkamdem/assoflow-api/internal/dto"
	"github.com/mkamdem/assoflow-api/internal/models"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
	"github.com/mkamdem/assoflow-api/pkg/export"
)

type mockReportBuilder struct {
	report *dto.DetailedReport
}

func (m *mockReportBuilder) DetailedReport(ctx context.Context, start, end time.Time) (*dto.DetailedReport, error) {
	return m.report, nil
}

func fixtureDetailedReport() *dto.DetailedReport {
	method := "cash"
	reference := "ENR-20240120-AB12"
	return &dto.DetailedReport{
		Summary: dto.FinanceSummary{
			PeriodStart:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			TotalRevenue:  25000,
			TotalExpenses: 8000,
			NetProfit:     17000,
			ProfitMargin:  0.68,
		},
		Registrations: []models.PaidRegistrationRow{
			{RegistrationID: "r1", MemberName: "Awa Mbala", Year: 2024, Amount: 10000,
				PaymentDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Method: &method},
		},
		Enrollments: []models.PaidEnrollmentRow{
			{EnrollmentID: "e1", MemberName: "Blaise, Nkolo", CourseTitle: "Sewing basics", Fee: 5000,
				PaymentDate: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), Method: &method, Reference: &reference},
		},
		Expenses: []models.PaidExpenseRow{
			{ExpenseID: "x1", Category: "rent", Description: "Workshop space", Amount: 8000,
				PaidDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func reportPeriod() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
}

func TestExportServiceJSONPassThrough(t *testing.T) {
	report := fixtureDetailedReport()
	svc := NewExportService(&mockReportBuilder{report: report}, export.NewCSVExporter(), nil, zap.NewNop())
	start, end := reportPeriod()

	result, err := svc.FinancialReport(context.Background(), start, end, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, result.Format)
	assert.Equal(t, "application/json", result.ContentType)
	assert.Equal(t, "financial-report-20240101-20241231.json", result.Filename)
	assert.Same(t, report, result.Report)
	assert.Nil(t, result.Body)
}

func TestExportServiceDefaultsToJSON(t *testing.T) {
	svc := NewExportService(&mockReportBuilder{report: fixtureDetailedReport()}, export.NewCSVExporter(), nil, zap.NewNop())
	start, end := reportPeriod()

	result, err := svc.FinancialReport(context.Background(), start, end, "")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, result.Format)
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(&mockReportBuilder{report: fixtureDetailedReport()}, export.NewCSVExporter(), nil, zap.NewNop())
	start, end := reportPeriod()

	result, err := svc.FinancialReport(context.Background(), start, end, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "financial-report-20240101-20241231.csv", result.Filename)

	body := string(result.Body)
	for _, section := range []string{"Summary", "Annual registrations", "Course enrollments", "Expenses"} {
		assert.Contains(t, body, section)
	}
	assert.Contains(t, body, "Sewing basics")
	assert.Contains(t, body, "ENR-20240120-AB12")
	// a member name containing the delimiter comes out quoted
	assert.Contains(t, body, `"Blaise, Nkolo"`)
	assert.Contains(t, body, "68.00%")
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(&mockReportBuilder{report: fixtureDetailedReport()}, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop())
	start, end := reportPeriod()

	result, err := svc.FinancialReport(context.Background(), start, end, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Body), "%PDF"))
}

func TestExportServicePDFDisabled(t *testing.T) {
	svc := NewExportService(&mockReportBuilder{report: fixtureDetailedReport()}, export.NewCSVExporter(), nil, zap.NewNop())
	start, end := reportPeriod()

	_, err := svc.FinancialReport(context.Background(), start, end, FormatPDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDF export is disabled")
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&mockReportBuilder{report: fixtureDetailedReport()}, export.NewCSVExporter(), nil, zap.NewNop())
	start, end := reportPeriod()

	_, err := svc.FinancialReport(context.Background(), start, end, ExportFormat("xlsx"))
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}
