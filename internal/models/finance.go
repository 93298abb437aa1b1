package models

import "time"

// MonthlyFinanceRow is one month bucket produced by grouped aggregation.
type MonthlyFinanceRow struct {
	Month               int   `db:"month" json:"month"`
	RegistrationRevenue int64 `db:"registration_revenue" json:"registration_revenue"`
	CourseRevenue       int64 `db:"course_revenue" json:"course_revenue"`
	Expenses            int64 `db:"expenses" json:"expenses"`
}

// PaidRegistrationRow is an itemized paid annual registration for reports.
type PaidRegistrationRow struct {
	RegistrationID string    `db:"registration_id" json:"registration_id"`
	MemberID       string    `db:"member_id" json:"member_id"`
	MemberName     string    `db:"member_name" json:"member_name"`
	Year           int       `db:"year" json:"year"`
	Amount         int64     `db:"amount" json:"amount"`
	PaymentDate    time.Time `db:"payment_date" json:"payment_date"`
	Method         *string   `db:"method" json:"method,omitempty"`
	Reference      *string   `db:"reference" json:"reference,omitempty"`
}

// PaidEnrollmentRow is an itemized paid course enrollment joined with its
// course. Courses deleted from under a live enrollment surface with the
// sentinel title and a zero fee instead of failing the report.
type PaidEnrollmentRow struct {
	EnrollmentID string     `db:"enrollment_id" json:"enrollment_id"`
	MemberID     string     `db:"member_id" json:"member_id"`
	MemberName   string     `db:"member_name" json:"member_name"`
	CourseTitle  string     `db:"course_title" json:"course_title"`
	CourseDate   *time.Time `db:"course_date" json:"course_date,omitempty"`
	Fee          int64      `db:"fee" json:"fee"`
	PaymentDate  time.Time  `db:"payment_date" json:"payment_date"`
	Method       *string    `db:"method" json:"method,omitempty"`
	Reference    *string    `db:"reference" json:"reference,omitempty"`
}

// PaidExpenseRow is an itemized paid expense for reports.
type PaidExpenseRow struct {
	ExpenseID   string    `db:"expense_id" json:"expense_id"`
	Category    string    `db:"category" json:"category"`
	Description string    `db:"description" json:"description,omitempty"`
	Amount      int64     `db:"amount" json:"amount"`
	PaidDate    time.Time `db:"paid_date" json:"paid_date"`
}

// LedgerTotals carries the per-member aggregation scalars.
type LedgerTotals struct {
	CoursesEnrolled int   `db:"courses_enrolled"`
	TotalPaid       int64 `db:"total_paid"`
	TotalOwed       int64 `db:"total_owed"`
}

// DeletedCourseLabel is substituted when an enrollment references a course
// that no longer exists; aggregation degrades instead of failing.
const DeletedCourseLabel = "deleted course"
