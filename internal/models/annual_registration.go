package models

import "time"

// AnnualRegistration is a member's yearly membership-dues record. At most
// one exists per (member, year), enforced by a store-level unique index.
type AnnualRegistration struct {
	ID               string         `db:"id" json:"id"`
	MemberID         string         `db:"member_id" json:"member_id"`
	Year             int            `db:"year" json:"year"`
	Amount           int64          `db:"amount" json:"amount"`
	Status           PaymentStatus  `db:"status" json:"status"`
	PaymentDate      *time.Time     `db:"payment_date" json:"payment_date,omitempty"`
	PaymentMethod    *PaymentMethod `db:"payment_method" json:"payment_method,omitempty"`
	PaymentReference *string        `db:"payment_reference" json:"payment_reference,omitempty"`
	ExemptionReason  *string        `db:"exemption_reason" json:"exemption_reason,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// AnnualRegistrationDetail enriches the registration with member info.
type AnnualRegistrationDetail struct {
	AnnualRegistration
	MemberName  string `db:"member_name" json:"member_name"`
	MemberEmail string `db:"member_email" json:"member_email"`
}

// AnnualRegistrationFilter provides filters for listing registrations.
type AnnualRegistrationFilter struct {
	MemberID  string
	Year      int
	Status    PaymentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
