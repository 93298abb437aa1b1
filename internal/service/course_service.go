package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mkamdem/assoflow-api/internal/models"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error
	CountEnrollments(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// CreateCourseRequest carries the fields to schedule a course.
type CreateCourseRequest struct {
	Title           string    `json:"title" validate:"required,min=2,max=200"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gte=15,lte=1440"`
	Location        string    `json:"location" validate:"required"`
	Fee             int64     `json:"fee" validate:"gte=0"`
	MaxParticipants int       `json:"max_participants" validate:"required,gte=1"`
	InstructorID    *string   `json:"instructor_id"`
}

// UpdateCourseRequest carries the editable course fields.
type UpdateCourseRequest struct {
	Title           string    `json:"title" validate:"required,min=2,max=200"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gte=15,lte=1440"`
	Location        string    `json:"location" validate:"required"`
	Fee             int64     `json:"fee" validate:"gte=0"`
	MaxParticipants int       `json:"max_participants" validate:"required,gte=1"`
	InstructorID    *string   `json:"instructor_id"`
}

// manualTransitions lists the administrator-driven status changes.
// planned -> completed happens only through attendance recording.
var manualTransitions = map[models.CourseStatus][]models.CourseStatus{
	models.CourseStatusPlanned: {models.CourseStatusOngoing, models.CourseStatusCancelled},
	models.CourseStatusOngoing: {models.CourseStatusCompleted, models.CourseStatusCancelled},
}

// CourseService manages the course catalog and its lifecycle.
type CourseService struct {
	courses   courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, validator: validate, logger: logger}
}

// List returns courses with enrollment counts and pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, serviceError(err, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a course with its current enrollment count.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.courses.CountEnrollments(ctx, id)
	if err != nil {
		return nil, serviceError(err, "failed to count enrollments")
	}
	return &models.CourseDetail{Course: *course, EnrolledCount: count}, nil
}

// Create schedules a new course in planned status.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		Title:           req.Title,
		StartsAt:        req.StartsAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		Fee:             req.Fee,
		MaxParticipants: req.MaxParticipants,
		InstructorID:    req.InstructorID,
		Status:          models.CourseStatusPlanned,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, serviceError(err, "failed to create course")
	}

	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("title", course.Title))
	return course, nil
}

// Update edits course fields. Completed and cancelled courses are
// frozen; capacity can never drop below the current enrollment count.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Status == models.CourseStatusCompleted || course.Status == models.CourseStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "completed or cancelled courses cannot be edited")
	}

	count, err := s.courses.CountEnrollments(ctx, id)
	if err != nil {
		return nil, serviceError(err, "failed to count enrollments")
	}
	if req.MaxParticipants < count {
		return nil, appErrors.Clone(appErrors.ErrConflict, "capacity cannot be lower than current enrollments")
	}

	course.Title = req.Title
	course.StartsAt = req.StartsAt.UTC()
	course.DurationMinutes = req.DurationMinutes
	course.Location = req.Location
	course.Fee = req.Fee
	course.MaxParticipants = req.MaxParticipants
	course.InstructorID = req.InstructorID

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, serviceError(err, "failed to update course")
	}
	return course, nil
}

// UpdateStatus applies an administrator-driven lifecycle transition.
func (s *CourseService) UpdateStatus(ctx context.Context, id string, status models.CourseStatus) (*models.Course, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown course status")
	}

	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Status == status {
		return course, nil
	}
	if !transitionAllowed(course.Status, status) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course status transition not allowed")
	}

	if err := s.courses.UpdateStatus(ctx, id, status); err != nil {
		return nil, serviceError(err, "failed to update course status")
	}
	course.Status = status

	s.logger.Info("course status changed",
		zap.String("course_id", id),
		zap.String("status", string(status)),
	)
	return course, nil
}

// Delete removes a course. A course with enrollments is never
// hard-deleted; cancel it instead.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	count, err := s.courses.CountEnrollments(ctx, id)
	if err != nil {
		return serviceError(err, "failed to count enrollments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course has enrollments and cannot be deleted")
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return serviceError(err, "failed to delete course")
	}
	return nil
}

func (s *CourseService) load(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, serviceError(err, "failed to load course")
	}
	return course, nil
}

func transitionAllowed(from, to models.CourseStatus) bool {
	for _, allowed := range manualTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
