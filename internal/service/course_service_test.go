package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkamdem/assoflow-api/internal/models"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
)

type mockCourseRepo struct {
	courses     map[string]*models.Course
	enrollments map[string]int
	deleted     []string
}

func newMockCourseRepo(courses ...*models.Course) *mockCourseRepo {
	repo := &mockCourseRepo{courses: make(map[string]*models.Course), enrollments: make(map[string]int)}
	for _, c := range courses {
		repo.courses[c.ID] = c
	}
	return repo
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	details := make([]models.CourseDetail, 0, len(m.courses))
	for _, c := range m.courses {
		details = append(details, models.CourseDetail{Course: *c, EnrolledCount: m.enrollments[c.ID]})
	}
	return details, len(details), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *course
	return &copied, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "crs-new"
	}
	stored := *course
	m.courses[course.ID] = &stored
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	stored := *course
	m.courses[course.ID] = &stored
	return nil
}

func (m *mockCourseRepo) UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error {
	m.courses[id].Status = status
	return nil
}

func (m *mockCourseRepo) CountEnrollments(ctx context.Context, id string) (int, error) {
	return m.enrollments[id], nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func courseWithStatus(id string, status models.CourseStatus) *models.Course {
	return &models.Course{
		ID:              id,
		Title:           "Sewing basics",
		StartsAt:        time.Now().Add(48 * time.Hour).UTC(),
		DurationMinutes: 90,
		Location:        "Room 2",
		Fee:             5000,
		MaxParticipants: 10,
		Status:          status,
	}
}

func newTestCourseService(repo *mockCourseRepo) *CourseService {
	return NewCourseService(repo, validator.New(), zap.NewNop())
}

func validUpdateRequest(course *models.Course) UpdateCourseRequest {
	return UpdateCourseRequest{
		Title:           course.Title,
		StartsAt:        course.StartsAt,
		DurationMinutes: course.DurationMinutes,
		Location:        course.Location,
		Fee:             course.Fee,
		MaxParticipants: course.MaxParticipants,
	}
}

func TestCourseServiceCreateStartsPlanned(t *testing.T) {
	repo := newMockCourseRepo()
	svc := newTestCourseService(repo)

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:           "Embroidery workshop",
		StartsAt:        time.Now().Add(72 * time.Hour),
		DurationMinutes: 120,
		Location:        "Room 1",
		Fee:             7500,
		MaxParticipants: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusPlanned, course.Status)
	assert.NotEmpty(t, course.ID)
}

func TestCourseServiceCreateRejectsBadDuration(t *testing.T) {
	svc := newTestCourseService(newMockCourseRepo())

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:           "Too short",
		StartsAt:        time.Now().Add(72 * time.Hour),
		DurationMinutes: 5,
		Location:        "Room 1",
		MaxParticipants: 8,
	})
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestCourseServiceStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    models.CourseStatus
		to      models.CourseStatus
		allowed bool
	}{
		{"planned to ongoing", models.CourseStatusPlanned, models.CourseStatusOngoing, true},
		{"planned to cancelled", models.CourseStatusPlanned, models.CourseStatusCancelled, true},
		{"planned to completed blocked", models.CourseStatusPlanned, models.CourseStatusCompleted, false},
		{"ongoing to completed", models.CourseStatusOngoing, models.CourseStatusCompleted, true},
		{"ongoing to cancelled", models.CourseStatusOngoing, models.CourseStatusCancelled, true},
		{"ongoing to planned blocked", models.CourseStatusOngoing, models.CourseStatusPlanned, false},
		{"completed is terminal", models.CourseStatusCompleted, models.CourseStatusOngoing, false},
		{"cancelled is terminal", models.CourseStatusCancelled, models.CourseStatusPlanned, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockCourseRepo(courseWithStatus("crs-1", tc.from))
			svc := newTestCourseService(repo)

			course, err := svc.UpdateStatus(context.Background(), "crs-1", tc.to)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, course.Status)
				assert.Equal(t, tc.to, repo.courses["crs-1"].Status)
			} else {
				require.Error(t, err)
				var typed *appErrors.Error
				require.ErrorAs(t, err, &typed)
				assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
				assert.Equal(t, tc.from, repo.courses["crs-1"].Status)
			}
		})
	}
}

func TestCourseServiceUpdateStatusSameStatusNoop(t *testing.T) {
	repo := newMockCourseRepo(courseWithStatus("crs-1", models.CourseStatusOngoing))
	svc := newTestCourseService(repo)

	course, err := svc.UpdateStatus(context.Background(), "crs-1", models.CourseStatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusOngoing, course.Status)
}

func TestCourseServiceUpdateStatusUnknownStatus(t *testing.T) {
	svc := newTestCourseService(newMockCourseRepo(courseWithStatus("crs-1", models.CourseStatusPlanned)))

	_, err := svc.UpdateStatus(context.Background(), "crs-1", models.CourseStatus("ARCHIVED"))
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestCourseServiceUpdateFrozenCourse(t *testing.T) {
	for _, status := range []models.CourseStatus{models.CourseStatusCompleted, models.CourseStatusCancelled} {
		course := courseWithStatus("crs-1", status)
		svc := newTestCourseService(newMockCourseRepo(course))

		_, err := svc.Update(context.Background(), "crs-1", validUpdateRequest(course))
		require.Error(t, err, string(status))
		var typed *appErrors.Error
		require.ErrorAs(t, err, &typed)
		assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	}
}

func TestCourseServiceUpdateCapacityBelowEnrollments(t *testing.T) {
	course := courseWithStatus("crs-1", models.CourseStatusPlanned)
	repo := newMockCourseRepo(course)
	repo.enrollments["crs-1"] = 6
	svc := newTestCourseService(repo)

	req := validUpdateRequest(course)
	req.MaxParticipants = 5
	_, err := svc.Update(context.Background(), "crs-1", req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity cannot be lower")

	// shrinking down to the exact current count is allowed
	req.MaxParticipants = 6
	updated, err := svc.Update(context.Background(), "crs-1", req)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.MaxParticipants)
}

func TestCourseServiceDeleteGuardedByEnrollments(t *testing.T) {
	repo := newMockCourseRepo(courseWithStatus("crs-1", models.CourseStatusPlanned))
	repo.enrollments["crs-1"] = 1
	svc := newTestCourseService(repo)

	err := svc.Delete(context.Background(), "crs-1")
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Empty(t, repo.deleted)

	repo.enrollments["crs-1"] = 0
	require.NoError(t, svc.Delete(context.Background(), "crs-1"))
	assert.Equal(t, []string{"crs-1"}, repo.deleted)
}

func TestCourseServiceGetMissing(t *testing.T) {
	svc := newTestCourseService(newMockCourseRepo())

	_, err := svc.Get(context.Background(), "crs-absent")
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

func TestCourseServiceGetIncludesEnrolledCount(t *testing.T) {
	repo := newMockCourseRepo(courseWithStatus("crs-1", models.CourseStatusPlanned))
	repo.enrollments["crs-1"] = 4
	svc := newTestCourseService(repo)

	detail, err := svc.Get(context.Background(), "crs-1")
	require.NoError(t, err)
	assert.Equal(t, 4, detail.EnrolledCount)
	assert.Equal(t, "Sewing basics", detail.Title)
}
