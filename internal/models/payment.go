package models

// PaymentSource identifies the record family a payment fact came from.
// Payment facts are materialized on demand from enrollments and annual
// registrations; they are never persisted separately.
type PaymentSource string

// Payment fact sources.
const (
	PaymentSourceCourse             PaymentSource = "course"
	PaymentSourceAnnualRegistration PaymentSource = "annual_registration"
)
