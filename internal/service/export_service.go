package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkamdem/assoflow-api/internal/dto"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
	"github.com/mkamdem/assoflow-api/pkg/export"
	"github.com/mkamdem/assoflow-api/pkg/money"
)

type reportBuilder interface {
	DetailedReport(ctx context.Context, start, end time.Time) (*dto.DetailedReport, error)
}

type csvRenderer interface {
	RenderReport(report export.Report) ([]byte, error)
}

type pdfRenderer interface {
	RenderReport(report export.Report) ([]byte, error)
}

// ExportFormat selects the report rendering.
type ExportFormat string

// Supported export formats.
const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatPDF  ExportFormat = "pdf"
)

// ExportResult carries rendered report bytes with their content type, or
// the structured report for JSON pass-through.
type ExportResult struct {
	Format      ExportFormat
	ContentType string
	Filename    string
	Body        []byte
	Report      *dto.DetailedReport
}

// ExportService turns an aggregation result into a downloadable report.
// Purely presentational: it flattens rows into labeled sections and
// defers all business logic to the finance service.
type ExportService struct {
	finance reportBuilder
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs ExportService. pdf may be nil when PDF
// exports are disabled.
func NewExportService(finance reportBuilder, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{finance: finance, csv: csv, pdf: pdf, logger: logger}
}

// FinancialReport builds the detailed report for a period and renders it
// in the requested format.
func (s *ExportService) FinancialReport(ctx context.Context, start, end time.Time, format ExportFormat) (*ExportResult, error) {
	report, err := s.finance.DetailedReport(ctx, start, end)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("financial-report-%s-%s", start.Format("20060102"), end.Format("20060102"))

	switch format {
	case FormatJSON, "":
		return &ExportResult{
			Format:      FormatJSON,
			ContentType: "application/json",
			Filename:    filename + ".json",
			Report:      report,
		}, nil
	case FormatCSV:
		body, err := s.csv.RenderReport(buildReport(report))
		if err != nil {
			return nil, serviceError(err, "failed to render CSV report")
		}
		return &ExportResult{
			Format:      FormatCSV,
			ContentType: "text/csv",
			Filename:    filename + ".csv",
			Body:        body,
		}, nil
	case FormatPDF:
		if s.pdf == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "PDF export is disabled")
		}
		body, err := s.pdf.RenderReport(buildReport(report))
		if err != nil {
			return nil, serviceError(err, "failed to render PDF report")
		}
		return &ExportResult{
			Format:      FormatPDF,
			ContentType: "application/pdf",
			Filename:    filename + ".pdf",
			Body:        body,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// buildReport flattens a detailed report into labeled sections: the
// summary first, then one section per itemized list.
func buildReport(report *dto.DetailedReport) export.Report {
	summary := export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows: []map[string]string{
			{"Metric": "Period start", "Value": report.Summary.PeriodStart.Format("2006-01-02")},
			{"Metric": "Period end", "Value": report.Summary.PeriodEnd.Format("2006-01-02")},
			{"Metric": "Total revenue", "Value": money.Format(report.Summary.TotalRevenue)},
			{"Metric": "Total expenses", "Value": money.Format(report.Summary.TotalExpenses)},
			{"Metric": "Net profit", "Value": money.Format(report.Summary.NetProfit)},
			{"Metric": "Profit margin", "Value": fmt.Sprintf("%.2f%%", report.Summary.ProfitMargin*100)},
		},
	}

	registrations := export.Dataset{
		Headers: []string{"Member", "Year", "Amount", "Payment date", "Method", "Reference"},
	}
	for _, row := range report.Registrations {
		registrations.Rows = append(registrations.Rows, map[string]string{
			"Member":       row.MemberName,
			"Year":         fmt.Sprintf("%d", row.Year),
			"Amount":       money.Format(row.Amount),
			"Payment date": row.PaymentDate.Format("2006-01-02"),
			"Method":       deref(row.Method),
			"Reference":    deref(row.Reference),
		})
	}

	enrollments := export.Dataset{
		Headers: []string{"Member", "Course", "Course date", "Fee", "Payment date", "Method", "Reference"},
	}
	for _, row := range report.Enrollments {
		courseDate := ""
		if row.CourseDate != nil {
			courseDate = row.CourseDate.Format("2006-01-02")
		}
		enrollments.Rows = append(enrollments.Rows, map[string]string{
			"Member":       row.MemberName,
			"Course":       row.CourseTitle,
			"Course date":  courseDate,
			"Fee":          money.Format(row.Fee),
			"Payment date": row.PaymentDate.Format("2006-01-02"),
			"Method":       deref(row.Method),
			"Reference":    deref(row.Reference),
		})
	}

	expenses := export.Dataset{
		Headers: []string{"Category", "Description", "Amount", "Paid date"},
	}
	for _, row := range report.Expenses {
		expenses.Rows = append(expenses.Rows, map[string]string{
			"Category":    row.Category,
			"Description": row.Description,
			"Amount":      money.Format(row.Amount),
			"Paid date":   row.PaidDate.Format("2006-01-02"),
		})
	}

	return export.Report{
		Title: "Financial report",
		Sections: []export.Section{
			{Name: "Summary", Dataset: summary},
			{Name: "Annual registrations", Dataset: registrations},
			{Name: "Course enrollments", Dataset: enrollments},
			{Name: "Expenses", Dataset: expenses},
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
