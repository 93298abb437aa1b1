package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mkamdem/assoflow-api/internal/models"
	"github.com/mkamdem/assoflow-api/internal/repository"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByCourseAndMember(ctx context.Context, courseID, memberID string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type memberReader interface {
	FindByID(ctx context.Context, id string) (*models.Member, error)
}

// EnrollRequest describes the enrollment creation payload.
type EnrollRequest struct {
	MemberID string `json:"member_id" validate:"required"`
	CourseID string `json:"course_id" validate:"required"`
}

// EnrollmentServiceConfig tunes enrollment rules.
type EnrollmentServiceConfig struct {
	// CancellationWindow is the minimum lead time before course start for
	// a self-service cancellation.
	CancellationWindow time.Duration
}

// EnrollmentService governs a member's relationship to a course instance.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	members   memberReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       EnrollmentServiceConfig
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, members memberReader, cfg EnrollmentServiceConfig, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CancellationWindow <= 0 {
		cfg.CancellationWindow = 24 * time.Hour
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		members:   members,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, serviceError(err, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Enroll registers a member to a course. Preconditions are checked in
// order, first failure wins: course exists, enrollment is open, no
// duplicate, seat available. The duplicate and capacity checks are
// re-validated inside the store transaction, so concurrent requests
// cannot overbook the course.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, serviceError(err, "failed to load course")
	}
	if !course.IsEnrollmentOpen(s.now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course is not open for enrollment")
	}

	if _, err := s.members.FindByID(ctx, req.MemberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, serviceError(err, "failed to load member")
	}

	if _, err := s.repo.FindByCourseAndMember(ctx, req.CourseID, req.MemberID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "member already enrolled in this course")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, serviceError(err, "failed to check existing enrollment")
	}

	enrollment := &models.Enrollment{
		CourseID:      req.CourseID,
		MemberID:      req.MemberID,
		PaymentStatus: models.PaymentStatusPending,
		EnrolledAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityExceeded):
			return nil, appErrors.Clone(appErrors.ErrConflict, "course is full")
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			return nil, appErrors.Clone(appErrors.ErrConflict, "member already enrolled in this course")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, serviceError(err, "failed to create enrollment")
	}

	s.logger.Info("member enrolled",
		zap.String("member_id", req.MemberID),
		zap.String("course_id", req.CourseID),
	)
	return enrollment, nil
}

// Cancel removes a pending enrollment while the cancellation window is
// open. Paid enrollments require administrative override and are never
// cancelled here.
func (s *EnrollmentService) Cancel(ctx context.Context, memberID, courseID string) error {
	enrollment, err := s.repo.FindByCourseAndMember(ctx, courseID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return serviceError(err, "failed to load enrollment")
	}

	if enrollment.PaymentStatus == models.PaymentStatusPaid {
		return appErrors.Clone(appErrors.ErrConflict, "paid enrollments cannot be cancelled")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return serviceError(err, "failed to load course")
	}
	if course.StartsAt.Sub(s.now().UTC()) < s.cfg.CancellationWindow {
		return appErrors.Clone(appErrors.ErrConflict, "cancellation window closed")
	}

	if err := s.repo.Delete(ctx, enrollment.ID); err != nil {
		return serviceError(err, "failed to cancel enrollment")
	}

	s.logger.Info("enrollment cancelled",
		zap.String("member_id", memberID),
		zap.String("course_id", courseID),
	)
	return nil
}

// Get returns an enrollment by (course, member) pair.
func (s *EnrollmentService) Get(ctx context.Context, courseID, memberID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByCourseAndMember(ctx, courseID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, serviceError(err, "failed to load enrollment")
	}
	return enrollment, nil
}
