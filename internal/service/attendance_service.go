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
	"github.com/mkamdem/assoflow-api/pkg/reference"
)

type attendanceEnrollmentRepository interface {
	FindByCourseAndMember(ctx context.Context, courseID, memberID string) (*models.Enrollment, error)
	UpdateAttendance(ctx context.Context, id string, attended bool, notes *string) error
	UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, paymentDate *time.Time, method *models.PaymentMethod, ref *string) error
}

type attendanceCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	CompleteIfPlanned(ctx context.Context, id string) (bool, error)
}

// SetAttendanceRequest updates a single enrollment's attendance fields.
type SetAttendanceRequest struct {
	Attended bool    `json:"attended"`
	Notes    *string `json:"notes"`
}

// BulkAttendanceEntry is one row of a session sheet. Payment fields are
// optional: a treasurer can settle a fee at the door while taking
// attendance.
type BulkAttendanceEntry struct {
	MemberID         string  `json:"member_id" validate:"required"`
	Attended         bool    `json:"attended"`
	Notes            *string `json:"notes"`
	PaymentStatus    *string `json:"payment_status"`
	PaymentMethod    *string `json:"payment_method"`
	PaymentReference *string `json:"payment_reference"`
}

// BulkAttendanceRequest applies a full session sheet in one call.
type BulkAttendanceRequest struct {
	Entries []BulkAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// BulkAttendanceOutcome reports one entry's fate.
type BulkAttendanceOutcome struct {
	MemberID string `json:"member_id"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// BulkAttendanceResult summarizes a sheet application. Entries are
// applied independently; a skipped or failed entry never aborts the
// rest of the sheet.
type BulkAttendanceResult struct {
	Updated         int                     `json:"updated"`
	Skipped         int                     `json:"skipped"`
	Failed          int                     `json:"failed"`
	CourseCompleted bool                    `json:"course_completed"`
	Outcomes        []BulkAttendanceOutcome `json:"outcomes"`
}

const (
	outcomeUpdated = "updated"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// AttendanceService records who showed up to a course session and drives
// the one automatic course transition: a planned course with at least
// one attendee becomes completed.
type AttendanceService struct {
	enrollments attendanceEnrollmentRepository
	courses     attendanceCourseRepository
	refs        referenceGenerator
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(enrollments attendanceEnrollmentRepository, courses attendanceCourseRepository, refs referenceGenerator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if refs == nil {
		refs = reference.NewGenerator()
	}
	return &AttendanceService{
		enrollments: enrollments,
		courses:     courses,
		refs:        refs,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// SetAttendance updates one enrollment's attended flag and notes.
func (s *AttendanceService) SetAttendance(ctx context.Context, courseID, memberID string, req SetAttendanceRequest) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByCourseAndMember(ctx, courseID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member is not enrolled in this course")
		}
		return nil, serviceError(err, "failed to load enrollment")
	}

	if err := s.enrollments.UpdateAttendance(ctx, enrollment.ID, req.Attended, req.Notes); err != nil {
		return nil, serviceError(err, "failed to update attendance")
	}
	enrollment.Attended = req.Attended
	if req.Notes != nil {
		enrollment.Notes = req.Notes
	}

	if req.Attended {
		if err := s.completeCourse(ctx, courseID); err != nil {
			return nil, err
		}
	}
	return enrollment, nil
}

// BulkSetAttendance applies a session sheet best-effort. Entries for
// members without an enrollment are skipped and excluded from the
// success count; only a malformed batch as a whole is rejected.
func (s *AttendanceService) BulkSetAttendance(ctx context.Context, courseID string, req BulkAttendanceRequest) (*BulkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance sheet")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, serviceError(err, "failed to load course")
	}

	result := &BulkAttendanceResult{Outcomes: make([]BulkAttendanceOutcome, 0, len(req.Entries))}
	anyAttended := false

	for _, entry := range req.Entries {
		outcome := s.applyEntry(ctx, courseID, entry)
		result.Outcomes = append(result.Outcomes, outcome)
		switch outcome.Status {
		case outcomeUpdated:
			result.Updated++
			if entry.Attended {
				anyAttended = true
			}
		case outcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}

	if anyAttended {
		completed, err := s.courses.CompleteIfPlanned(ctx, courseID)
		if err != nil {
			return nil, serviceError(err, "failed to update course status")
		}
		result.CourseCompleted = completed
		if completed {
			s.logger.Info("course completed by attendance", zap.String("course_id", courseID))
		}
	}
	return result, nil
}

func (s *AttendanceService) applyEntry(ctx context.Context, courseID string, entry BulkAttendanceEntry) BulkAttendanceOutcome {
	enrollment, err := s.enrollments.FindByCourseAndMember(ctx, courseID, entry.MemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BulkAttendanceOutcome{MemberID: entry.MemberID, Status: outcomeSkipped, Reason: "not enrolled"}
		}
		return BulkAttendanceOutcome{MemberID: entry.MemberID, Status: outcomeFailed, Reason: "enrollment lookup failed"}
	}

	if err := s.enrollments.UpdateAttendance(ctx, enrollment.ID, entry.Attended, entry.Notes); err != nil {
		return BulkAttendanceOutcome{MemberID: entry.MemberID, Status: outcomeFailed, Reason: "attendance update failed"}
	}

	if entry.PaymentStatus != nil {
		if reason := s.applyEntryPayment(ctx, enrollment, entry); reason != "" {
			return BulkAttendanceOutcome{MemberID: entry.MemberID, Status: outcomeFailed, Reason: reason}
		}
	}
	return BulkAttendanceOutcome{MemberID: entry.MemberID, Status: outcomeUpdated}
}

// applyEntryPayment runs the same pending -> paid / pending -> exempted
// rules as the payment tracker, scoped to one sheet row. Returns an
// empty string on success.
func (s *AttendanceService) applyEntryPayment(ctx context.Context, enrollment *models.Enrollment, entry BulkAttendanceEntry) string {
	target := models.PaymentStatus(*entry.PaymentStatus)
	if !target.Valid() {
		return "unknown payment status"
	}
	if enrollment.PaymentStatus == target {
		return ""
	}

	switch target {
	case models.PaymentStatusPaid:
		if enrollment.PaymentStatus == models.PaymentStatusExempted {
			return "exempted enrollment cannot be marked paid"
		}
		if entry.PaymentMethod == nil {
			return "payment method is required"
		}
		method := models.PaymentMethod(*entry.PaymentMethod)
		if !method.Valid() {
			return "unknown payment method"
		}
		paymentDate := enrollment.PaymentDate
		if paymentDate == nil {
			now := s.now().UTC()
			paymentDate = &now
		}
		ref := enrollment.PaymentReference
		if ref == nil || *ref == "" {
			if entry.PaymentReference != nil && *entry.PaymentReference != "" {
				ref = entry.PaymentReference
			} else {
				generated := s.refs.Generate(reference.KindCourse)
				ref = &generated
			}
		}
		if err := s.enrollments.UpdatePayment(ctx, enrollment.ID, models.PaymentStatusPaid, paymentDate, &method, ref); err != nil {
			return "payment update failed"
		}
	case models.PaymentStatusExempted:
		if enrollment.PaymentStatus != models.PaymentStatusPending {
			return "only pending enrollments can be exempted"
		}
		if err := s.enrollments.UpdatePayment(ctx, enrollment.ID, models.PaymentStatusExempted, nil, nil, enrollment.PaymentReference); err != nil {
			return "payment update failed"
		}
	default:
		return "reverting to pending is not allowed from an attendance sheet"
	}
	return ""
}

func (s *AttendanceService) completeCourse(ctx context.Context, courseID string) error {
	completed, err := s.courses.CompleteIfPlanned(ctx, courseID)
	if err != nil {
		return serviceError(err, "failed to update course status")
	}
	if completed {
		s.logger.Info("course completed by attendance", zap.String("course_id", courseID))
	}
	return nil
}
