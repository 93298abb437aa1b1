package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkamdem/assoflow-api/internal/models"
)

// Store-level enrollment outcomes the service layer maps to domain errors.
var (
	ErrCapacityExceeded    = errors.New("course capacity reached")
	ErrDuplicateEnrollment = errors.New("member already enrolled in course")
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments joined with member and course info.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	base := `FROM enrollments e
LEFT JOIN members m ON m.id = e.member_id
LEFT JOIN courses c ON c.id = e.course_id`
	where := []string{"1=1"}
	var args []interface{}

	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.MemberID != "" {
		where = append(where, fmt.Sprintf("e.member_id = $%d", len(args)+1))
		args = append(args, filter.MemberID)
	}
	if filter.PaymentStatus != "" {
		where = append(where, fmt.Sprintf("e.payment_status = $%d", len(args)+1))
		args = append(args, filter.PaymentStatus)
	}
	if filter.Attended != nil {
		where = append(where, fmt.Sprintf("e.attended = $%d", len(args)+1))
		args = append(args, *filter.Attended)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"member_name":  "m.full_name",
		"course_title": "c.title",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "enrolled_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.course_id, e.member_id, e.attended, e.payment_status,
        e.payment_date, e.payment_method, e.payment_reference, e.notes, e.enrolled_at,
        COALESCE(m.full_name, '') AS member_name, COALESCE(m.email, '') AS member_email,
        COALESCE(c.title, '') AS course_title, COALESCE(c.starts_at, e.enrolled_at) AS course_starts_at,
        COALESCE(c.fee, 0) AS course_fee
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, wrapStore("list enrollments", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, wrapStore("count enrollments", err)
	}
	return enrollments, total, nil
}

// FindByCourseAndMember returns the enrollment for a (course, member) pair.
func (r *EnrollmentRepository) FindByCourseAndMember(ctx context.Context, courseID, memberID string) (*models.Enrollment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT id, course_id, member_id, attended, payment_status, payment_date,
        payment_method, payment_reference, notes, enrolled_at
        FROM enrollments WHERE course_id = $1 AND member_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, courseID, memberID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT id, course_id, member_id, attended, payment_status, payment_date,
        payment_method, payment_reference, notes, enrolled_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create inserts an enrollment while holding the course row lock, so the
// capacity check and the insert are one atomic unit. A plain count-then-
// insert across two round-trips could overbook the course under concurrent
// load; the lock plus the (course_id, member_id) unique index make both
// the capacity and uniqueness invariants store-enforced.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.PaymentStatus == "" {
		enrollment.PaymentStatus = models.PaymentStatusPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapStore("begin enrollment tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var maxParticipants int
	if err := tx.GetContext(ctx, &maxParticipants,
		`SELECT max_participants FROM courses WHERE id = $1 FOR UPDATE`, enrollment.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return wrapStore("lock course", err)
	}

	var current int
	if err := tx.GetContext(ctx, &current,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, enrollment.CourseID); err != nil {
		return wrapStore("count enrollments", err)
	}
	if current >= maxParticipants {
		return ErrCapacityExceeded
	}

	const insert = `INSERT INTO enrollments (id, course_id, member_id, attended, payment_status,
        payment_date, payment_method, payment_reference, notes, enrolled_at)
        VALUES (:id, :course_id, :member_id, :attended, :payment_status,
        :payment_date, :payment_method, :payment_reference, :notes, :enrolled_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEnrollment
		}
		return wrapStore("create enrollment", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapStore("commit enrollment", err)
	}
	return nil
}

// Delete removes an enrollment record.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return wrapStore("delete enrollment", err)
	}
	return nil
}

// UpdateAttendance rewrites attended and notes in one statement.
func (r *EnrollmentRepository) UpdateAttendance(ctx context.Context, id string, attended bool, notes *string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `UPDATE enrollments SET attended = $2, notes = COALESCE($3, notes) WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, attended, notes); err != nil {
		return wrapStore("update attendance", err)
	}
	return nil
}

// UpdatePayment rewrites the payment fields in one statement.
func (r *EnrollmentRepository) UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, paymentDate *time.Time, method *models.PaymentMethod, reference *string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `UPDATE enrollments SET payment_status = $2, payment_date = $3,
        payment_method = $4, payment_reference = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, paymentDate, method, reference); err != nil {
		return wrapStore("update enrollment payment", err)
	}
	return nil
}

// CountByCourse returns the enrollment count for a course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, wrapStore("count enrollments", err)
	}
	return count, nil
}

// ListByCourse returns all enrollments for a course.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT id, course_id, member_id, attended, payment_status, payment_date,
        payment_method, payment_reference, notes, enrolled_at
        FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, wrapStore("list course enrollments", err)
	}
	return enrollments, nil
}
