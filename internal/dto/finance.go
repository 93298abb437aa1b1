package dto

import (
	"time"

	"github.com/mkamdem/assoflow-api/internal/models"
)

// FinanceSummary is the period-scoped profit and loss snapshot.
type FinanceSummary struct {
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	TotalRevenue  int64     `json:"total_revenue"`
	TotalExpenses int64     `json:"total_expenses"`
	NetProfit     int64     `json:"net_profit"`
	ProfitMargin  float64   `json:"profit_margin"`
}

// MonthlyBucket is one month of the yearly revenue/expense series.
type MonthlyBucket struct {
	Month               time.Month `json:"month"`
	RegistrationRevenue int64      `json:"registration_revenue"`
	CourseRevenue       int64      `json:"course_revenue"`
	Expenses            int64      `json:"expenses"`
	NetProfit           int64      `json:"net_profit"`
}

// MonthlySeries carries the twelve Jan-Dec buckets for a year.
type MonthlySeries struct {
	Year    int             `json:"year"`
	Buckets []MonthlyBucket `json:"buckets"`
}

// LedgerRegistration summarizes a member's annual dues standing.
type LedgerRegistration struct {
	Status models.PaymentStatus `json:"status"`
	Amount int64                `json:"amount"`
}

// MemberLedger is the per-member financial position for a year.
type MemberLedger struct {
	MemberID           string              `json:"member_id"`
	Year               int                 `json:"year"`
	AnnualRegistration *LedgerRegistration `json:"annual_registration,omitempty"`
	CoursesEnrolled    int                 `json:"courses_enrolled"`
	TotalPaid          int64               `json:"total_paid"`
	TotalOwed          int64               `json:"total_owed"`
}

// DetailedReport couples the summary with itemized paid records, each row
// carrying the identifying fields exports need.
type DetailedReport struct {
	Summary       FinanceSummary               `json:"summary"`
	Registrations []models.PaidRegistrationRow `json:"registrations"`
	Enrollments   []models.PaidEnrollmentRow   `json:"enrollments"`
	Expenses      []models.PaidExpenseRow      `json:"expenses"`
}
