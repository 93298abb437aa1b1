package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/mkamdem/assoflow-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT max_participants FROM courses WHERE id = $1 FOR UPDATE`)).
		WithArgs("crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`)).
		WithArgs("crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{CourseID: "crs-1", MemberID: "mem-1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.PaymentStatusPending, enrollment.PaymentStatus)
	require.False(t, enrollment.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

// The capacity check runs inside the transaction that holds the course
// row lock, so a full course can never accept an insert.
func TestEnrollmentRepositoryCreateCapacityExceeded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT max_participants FROM courses WHERE id = $1 FOR UPDATE`)).
		WithArgs("crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`)).
		WithArgs("crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Enrollment{CourseID: "crs-1", MemberID: "mem-1"})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT max_participants FROM courses WHERE id = $1 FOR UPDATE`)).
		WithArgs("crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`)).
		WithArgs("crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Enrollment{CourseID: "crs-1", MemberID: "mem-1"})
	require.ErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateMissingCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT max_participants FROM courses WHERE id = $1 FOR UPDATE`)).
		WithArgs("crs-absent").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Enrollment{CourseID: "crs-absent", MemberID: "mem-1"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByCourseAndMember(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "member_id", "attended", "payment_status",
		"payment_date", "payment_method", "payment_reference", "notes", "enrolled_at"}).
		AddRow("enr-1", "crs-1", "mem-1", false, models.PaymentStatusPending, nil, nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM enrollments WHERE course_id = $1 AND member_id = $2`)).
		WithArgs("crs-1", "mem-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByCourseAndMember(context.Background(), "crs-1", "mem-1")
	require.NoError(t, err)
	require.Equal(t, "enr-1", enrollment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdatePayment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	paidAt := time.Now().UTC()
	method := models.PaymentMethodCash
	reference := "ENR-20240120-AB12"
	mock.ExpectExec("UPDATE enrollments SET payment_status").
		WithArgs("enr-1", models.PaymentStatusPaid, paidAt, &method, &reference).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePayment(context.Background(), "enr-1", models.PaymentStatusPaid, &paidAt, &method, &reference)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateAttendanceKeepsNotes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET attended = $2, notes = COALESCE($3, notes) WHERE id = $1`)).
		WithArgs("enr-1", true, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateAttendance(context.Background(), "enr-1", true, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
