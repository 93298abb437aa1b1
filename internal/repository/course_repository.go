package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkamdem/assoflow-api/internal/models"
)

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses with their enrollment counts, filtered by criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	base := `FROM courses c
LEFT JOIN (SELECT course_id, COUNT(*) AS cnt FROM enrollments GROUP BY course_id) ec ON ec.course_id = c.id`
	where := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("c.starts_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("c.starts_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(c.title ILIKE $%d OR c.location ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"starts_at": "c.starts_at",
		"title":     "c.title",
		"fee":       "c.fee",
		"status":    "c.status",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "starts_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "c.starts_at"
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

	query := fmt.Sprintf(`SELECT c.id, c.title, c.starts_at, c.duration_minutes, c.location, c.fee,
        c.max_participants, c.instructor_id, c.status, c.created_at, c.updated_at,
        COALESCE(ec.cnt, 0) AS enrolled_count
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, orderBy, order, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, wrapStore("list courses", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, wrapStore("count courses", err)
	}
	return courses, total, nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT id, title, starts_at, duration_minutes, location, fee, max_participants,
        instructor_id, status, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.Status == "" {
		course.Status = models.CourseStatusPlanned
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, title, starts_at, duration_minutes, location, fee,
        max_participants, instructor_id, status, created_at, updated_at)
        VALUES (:id, :title, :starts_at, :duration_minutes, :location, :fee,
        :max_participants, :instructor_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return wrapStore("create course", err)
	}
	return nil
}

// Update rewrites the mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, starts_at = :starts_at,
        duration_minutes = :duration_minutes, location = :location, fee = :fee,
        max_participants = :max_participants, instructor_id = :instructor_id,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return wrapStore("update course", err)
	}
	return nil
}

// UpdateStatus moves the course to a new lifecycle status.
func (r *CourseRepository) UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `UPDATE courses SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return wrapStore("update course status", err)
	}
	return nil
}

// CompleteIfPlanned transitions a planned course to completed; it is a
// no-op for any other status. Returns whether the transition happened.
func (r *CourseRepository) CompleteIfPlanned(ctx context.Context, id string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `UPDATE courses SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.CourseStatusCompleted, time.Now().UTC(), models.CourseStatusPlanned)
	if err != nil {
		return false, wrapStore("complete course", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, wrapStore("complete course", err)
	}
	return affected > 0, nil
}

// CountEnrollments returns the number of enrollments for a course.
func (r *CourseRepository) CountEnrollments(ctx context.Context, id string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, wrapStore("count course enrollments", err)
	}
	return count, nil
}

// Delete removes a course. The service refuses deletion while
// enrollments reference it.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `DELETE FROM courses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return wrapStore("delete course", err)
	}
	return nil
}
