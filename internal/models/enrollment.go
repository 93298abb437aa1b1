package models

import "time"

// PaymentStatus is the payment lifecycle shared by course enrollments and
// annual registrations: pending -> paid, pending -> exempted, and
// paid -> pending only through administrative correction.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusExempted PaymentStatus = "exempted"
)

// Valid reports whether the status is a known payment lifecycle value.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusExempted:
		return true
	}
	return false
}

// PaymentMethod identifies how a recorded payment was settled.
type PaymentMethod string

// Accepted payment methods.
const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
)

// Valid reports whether the method is accepted.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMobileMoney, PaymentMethodBankTransfer, PaymentMethodCheck:
		return true
	}
	return false
}

// Enrollment links one Member to one Course instance. At most one
// enrollment exists per (course, member) pair, enforced by a store-level
// unique index.
type Enrollment struct {
	ID               string         `db:"id" json:"id"`
	CourseID         string         `db:"course_id" json:"course_id"`
	MemberID         string         `db:"member_id" json:"member_id"`
	Attended         bool           `db:"attended" json:"attended"`
	PaymentStatus    PaymentStatus  `db:"payment_status" json:"payment_status"`
	PaymentDate      *time.Time     `db:"payment_date" json:"payment_date,omitempty"`
	PaymentMethod    *PaymentMethod `db:"payment_method" json:"payment_method,omitempty"`
	PaymentReference *string        `db:"payment_reference" json:"payment_reference,omitempty"`
	Notes            *string        `db:"notes" json:"notes,omitempty"`
	EnrolledAt       time.Time      `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with member and course info.
type EnrollmentDetail struct {
	Enrollment
	MemberName    string    `db:"member_name" json:"member_name"`
	MemberEmail   string    `db:"member_email" json:"member_email"`
	CourseTitle   string    `db:"course_title" json:"course_title"`
	CourseStartAt time.Time `db:"course_starts_at" json:"course_starts_at"`
	CourseFee     int64     `db:"course_fee" json:"course_fee"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	CourseID      string
	MemberID      string
	PaymentStatus PaymentStatus
	Attended      *bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
