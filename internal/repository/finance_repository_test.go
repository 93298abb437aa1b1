package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/mkamdem/assoflow-api/internal/models"
)

func financePeriod() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
}

func TestFinanceRepositoryRegistrationRevenue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)
	start, end := financePeriod()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(amount), 0) FROM annual_registrations`)).
		WithArgs(models.PaymentStatusPaid, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(20000))

	total, err := repo.RegistrationRevenue(context.Background(), start, end)
	require.NoError(t, err)
	require.Equal(t, int64(20000), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Course revenue is read through a LEFT JOIN so enrollments whose course
// was deleted contribute zero instead of breaking the sum.
func TestFinanceRepositoryCourseRevenue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)
	start, end := financePeriod()

	mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN courses c ON c.id = e.course_id`)).
		WithArgs(models.PaymentStatusPaid, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(15000))

	total, err := repo.CourseRevenue(context.Background(), start, end)
	require.NoError(t, err)
	require.Equal(t, int64(15000), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceRepositoryMonthlyRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	rows := sqlmock.NewRows([]string{"month", "registration_revenue", "course_revenue", "expenses"}).
		AddRow(1, 10000, 5000, 8000).
		AddRow(3, 10000, 0, 0)
	mock.ExpectQuery("GROUP BY month ORDER BY month").
		WithArgs(models.PaymentStatusPaid, 2024, models.ExpenseStatusPaid).
		WillReturnRows(rows)

	got, err := repo.MonthlyRows(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 1, got[0].Month)
	require.Equal(t, int64(5000), got[0].CourseRevenue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceRepositoryPaidEnrollmentsDeletedCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)
	start, end := financePeriod()

	rows := sqlmock.NewRows([]string{"enrollment_id", "member_id", "member_name", "course_title",
		"course_date", "fee", "payment_date", "method", "reference"}).
		AddRow("enr-1", "mem-1", "Awa Mbala", models.DeletedCourseLabel, nil, 0,
			time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "cash", "ENR-20240601-AB12")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT e.id AS enrollment_id`)).
		WithArgs(models.PaymentStatusPaid, start, end).
		WillReturnRows(rows)

	got, err := repo.PaidEnrollments(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, models.DeletedCourseLabel, got[0].CourseTitle)
	require.Zero(t, got[0].Fee)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceRepositoryLedgerTotals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	rows := sqlmock.NewRows([]string{"courses_enrolled", "total_paid", "total_owed"}).
		AddRow(3, 10000, 5000)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) AS courses_enrolled`)).
		WithArgs("mem-1", 2024, models.PaymentStatusPaid, models.PaymentStatusPending).
		WillReturnRows(rows)

	totals, err := repo.LedgerTotals(context.Background(), "mem-1", 2024)
	require.NoError(t, err)
	require.Equal(t, 3, totals.CoursesEnrolled)
	require.Equal(t, int64(10000), totals.TotalPaid)
	require.Equal(t, int64(5000), totals.TotalOwed)
	require.NoError(t, mock.ExpectationsWereMet())
}
