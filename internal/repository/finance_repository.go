package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkamdem/assoflow-api/internal/models"
)

// FinanceRepository exposes read-only aggregation queries over payment
// facts and expenses. It never writes.
//
// Paid records missing a payment date are bucketed by their creation
// time (enrolled_at for enrollments, created_at for registrations). This
// is a documented approximation applied consistently across every query,
// replacing the per-endpoint inconsistency of the legacy system.
type FinanceRepository struct {
	db *sqlx.DB
}

// NewFinanceRepository instantiates the repository.
func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

// RegistrationRevenue sums paid annual registration amounts in the period.
func (r *FinanceRepository) RegistrationRevenue(ctx context.Context, start, end time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT COALESCE(SUM(amount), 0) FROM annual_registrations
        WHERE status = $1 AND COALESCE(payment_date, created_at) >= $2
        AND COALESCE(payment_date, created_at) <= $3`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, models.PaymentStatusPaid, start, end); err != nil {
		return 0, wrapStore("sum registration revenue", err)
	}
	return total, nil
}

// CourseRevenue sums the course fee of each paid enrollment in the
// period. The fee is read from the course at aggregation time; a missing
// course contributes zero instead of failing the query.
func (r *FinanceRepository) CourseRevenue(ctx context.Context, start, end time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT COALESCE(SUM(COALESCE(c.fee, 0)), 0)
        FROM enrollments e
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.payment_status = $1 AND COALESCE(e.payment_date, e.enrolled_at) >= $2
        AND COALESCE(e.payment_date, e.enrolled_at) <= $3`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, models.PaymentStatusPaid, start, end); err != nil {
		return 0, wrapStore("sum course revenue", err)
	}
	return total, nil
}

// PaidExpenses sums paid expense amounts with a paid date in the period.
func (r *FinanceRepository) PaidExpenses(ctx context.Context, start, end time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT COALESCE(SUM(amount), 0) FROM expenses
        WHERE status = $1 AND paid_date >= $2 AND paid_date <= $3`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, models.ExpenseStatusPaid, start, end); err != nil {
		return 0, wrapStore("sum paid expenses", err)
	}
	return total, nil
}

// MonthlyRows groups the three record sets by month for a year. Months
// with no activity are absent; the service fills the twelve buckets.
func (r *FinanceRepository) MonthlyRows(ctx context.Context, year int) ([]models.MonthlyFinanceRow, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT month,
        COALESCE(SUM(registration_revenue), 0) AS registration_revenue,
        COALESCE(SUM(course_revenue), 0) AS course_revenue,
        COALESCE(SUM(expenses), 0) AS expenses
        FROM (
            SELECT EXTRACT(MONTH FROM COALESCE(payment_date, created_at))::INT AS month,
                amount AS registration_revenue, 0 AS course_revenue, 0 AS expenses
            FROM annual_registrations
            WHERE status = $1 AND EXTRACT(YEAR FROM COALESCE(payment_date, created_at)) = $2
            UNION ALL
            SELECT EXTRACT(MONTH FROM COALESCE(e.payment_date, e.enrolled_at))::INT AS month,
                0, COALESCE(c.fee, 0), 0
            FROM enrollments e
            LEFT JOIN courses c ON c.id = e.course_id
            WHERE e.payment_status = $1 AND EXTRACT(YEAR FROM COALESCE(e.payment_date, e.enrolled_at)) = $2
            UNION ALL
            SELECT EXTRACT(MONTH FROM paid_date)::INT AS month, 0, 0, amount
            FROM expenses
            WHERE status = $3 AND EXTRACT(YEAR FROM paid_date) = $2
        ) facts
        GROUP BY month ORDER BY month`
	var rows []models.MonthlyFinanceRow
	if err := r.db.SelectContext(ctx, &rows, query, models.PaymentStatusPaid, year, models.ExpenseStatusPaid); err != nil {
		return nil, wrapStore("group monthly finance", err)
	}
	return rows, nil
}

// PaidRegistrations itemizes paid annual registrations in the period.
func (r *FinanceRepository) PaidRegistrations(ctx context.Context, start, end time.Time) ([]models.PaidRegistrationRow, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT ar.id AS registration_id, ar.member_id,
        COALESCE(m.full_name, '') AS member_name, ar.year, ar.amount,
        COALESCE(ar.payment_date, ar.created_at) AS payment_date,
        ar.payment_method AS method, ar.payment_reference AS reference
        FROM annual_registrations ar
        LEFT JOIN members m ON m.id = ar.member_id
        WHERE ar.status = $1 AND COALESCE(ar.payment_date, ar.created_at) >= $2
        AND COALESCE(ar.payment_date, ar.created_at) <= $3
        ORDER BY payment_date`
	var rows []models.PaidRegistrationRow
	if err := r.db.SelectContext(ctx, &rows, query, models.PaymentStatusPaid, start, end); err != nil {
		return nil, wrapStore("itemize paid registrations", err)
	}
	return rows, nil
}

// PaidEnrollments itemizes paid enrollments joined with course info. The
// sentinel title and zero fee stand in for courses deleted from under a
// live enrollment.
func (r *FinanceRepository) PaidEnrollments(ctx context.Context, start, end time.Time) ([]models.PaidEnrollmentRow, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT e.id AS enrollment_id, e.member_id,
        COALESCE(m.full_name, '') AS member_name,
        COALESCE(c.title, '` + models.DeletedCourseLabel + `') AS course_title,
        c.starts_at AS course_date, COALESCE(c.fee, 0) AS fee,
        COALESCE(e.payment_date, e.enrolled_at) AS payment_date,
        e.payment_method AS method, e.payment_reference AS reference
        FROM enrollments e
        LEFT JOIN members m ON m.id = e.member_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.payment_status = $1 AND COALESCE(e.payment_date, e.enrolled_at) >= $2
        AND COALESCE(e.payment_date, e.enrolled_at) <= $3
        ORDER BY payment_date`
	var rows []models.PaidEnrollmentRow
	if err := r.db.SelectContext(ctx, &rows, query, models.PaymentStatusPaid, start, end); err != nil {
		return nil, wrapStore("itemize paid enrollments", err)
	}
	return rows, nil
}

// PaidExpenseRows itemizes paid expenses in the period.
func (r *FinanceRepository) PaidExpenseRows(ctx context.Context, start, end time.Time) ([]models.PaidExpenseRow, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT id AS expense_id, category, COALESCE(description, '') AS description,
        amount, paid_date
        FROM expenses
        WHERE status = $1 AND paid_date >= $2 AND paid_date <= $3
        ORDER BY paid_date`
	var rows []models.PaidExpenseRow
	if err := r.db.SelectContext(ctx, &rows, query, models.ExpenseStatusPaid, start, end); err != nil {
		return nil, wrapStore("itemize paid expenses", err)
	}
	return rows, nil
}

// LedgerTotals aggregates a member's course standing for a year:
// enrollment count, fees paid, and fees still owed on pending enrollments.
func (r *FinanceRepository) LedgerTotals(ctx context.Context, memberID string, year int) (*models.LedgerTotals, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT COUNT(*) AS courses_enrolled,
        COALESCE(SUM(CASE WHEN e.payment_status = $3 THEN COALESCE(c.fee, 0) ELSE 0 END), 0) AS total_paid,
        COALESCE(SUM(CASE WHEN e.payment_status = $4 THEN COALESCE(c.fee, 0) ELSE 0 END), 0) AS total_owed
        FROM enrollments e
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.member_id = $1 AND EXTRACT(YEAR FROM e.enrolled_at) = $2`
	var totals models.LedgerTotals
	if err := r.db.GetContext(ctx, &totals, query, memberID, year,
		models.PaymentStatusPaid, models.PaymentStatusPending); err != nil {
		return nil, wrapStore("aggregate member ledger", err)
	}
	return &totals, nil
}
