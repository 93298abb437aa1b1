package models

import "time"

// ExpenseType distinguishes one-off outlays from recurring ones.
type ExpenseType string

// Possible expense types.
const (
	ExpenseTypeOneTime   ExpenseType = "one_time"
	ExpenseTypeRecurring ExpenseType = "recurring"
)

// ExpenseStatus represents the stored expense lifecycle. Overdue is never
// stored: it is derived from a pending expense whose due date has passed.
type ExpenseStatus string

// Possible expense statuses.
const (
	ExpenseStatusPending   ExpenseStatus = "pending"
	ExpenseStatusPaid      ExpenseStatus = "paid"
	ExpenseStatusOverdue   ExpenseStatus = "overdue"
	ExpenseStatusCancelled ExpenseStatus = "cancelled"
)

// RecurringFrequency is the unit a recurring schedule advances by.
type RecurringFrequency string

// Supported recurrence frequencies.
const (
	FrequencyDaily   RecurringFrequency = "daily"
	FrequencyWeekly  RecurringFrequency = "weekly"
	FrequencyMonthly RecurringFrequency = "monthly"
	FrequencyYearly  RecurringFrequency = "yearly"
)

// Valid reports whether the frequency is supported.
func (f RecurringFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringSchedule describes how a recurring expense repeats.
type RecurringSchedule struct {
	Frequency RecurringFrequency `db:"frequency" json:"frequency"`
	Interval  int                `db:"interval" json:"interval"`
	EndDate   *time.Time         `db:"end_date" json:"end_date,omitempty"`
}

// Advance returns the date moved forward by one recurrence step.
func (s RecurringSchedule) Advance(from time.Time) time.Time {
	interval := s.Interval
	if interval < 1 {
		interval = 1
	}
	switch s.Frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, interval)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7*interval)
	case FrequencyYearly:
		return from.AddDate(interval, 0, 0)
	default:
		return from.AddDate(0, interval, 0)
	}
}

// Expense is an organizational outlay; it is organization-scoped, never
// tied to a member.
type Expense struct {
	ID          string        `db:"id" json:"id"`
	Amount      int64         `db:"amount" json:"amount"`
	Category    string        `db:"category" json:"category"`
	Type        ExpenseType   `db:"type" json:"type"`
	Status      ExpenseStatus `db:"status" json:"status"`
	Description string        `db:"description" json:"description,omitempty"`
	Date        time.Time     `db:"date" json:"date"`
	DueDate     *time.Time    `db:"due_date" json:"due_date,omitempty"`
	PaidDate    *time.Time    `db:"paid_date" json:"paid_date,omitempty"`

	RecurringFrequency *RecurringFrequency `db:"recurring_frequency" json:"recurring_frequency,omitempty"`
	RecurringInterval  *int                `db:"recurring_interval" json:"recurring_interval,omitempty"`
	RecurringEndDate   *time.Time          `db:"recurring_end_date" json:"recurring_end_date,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Schedule returns the recurring schedule when the expense carries one.
func (e *Expense) Schedule() *RecurringSchedule {
	if e.Type != ExpenseTypeRecurring || e.RecurringFrequency == nil {
		return nil
	}
	interval := 1
	if e.RecurringInterval != nil {
		interval = *e.RecurringInterval
	}
	return &RecurringSchedule{
		Frequency: *e.RecurringFrequency,
		Interval:  interval,
		EndDate:   e.RecurringEndDate,
	}
}

// EffectiveStatus derives the reporting status: a pending expense past its
// due date reads as overdue. The stored status is never rewritten.
func (e *Expense) EffectiveStatus(now time.Time) ExpenseStatus {
	if e.Status == ExpenseStatusPending && e.DueDate != nil && e.DueDate.Before(now) {
		return ExpenseStatusOverdue
	}
	return e.Status
}

// ExpenseFilter provides filters for listing expenses.
type ExpenseFilter struct {
	Category  string
	Type      ExpenseType
	Status    ExpenseStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
