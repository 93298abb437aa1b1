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
	"github.com/mkamdem/assoflow-api/pkg/reference"
)

type paymentEnrollmentRepository interface {
	FindByCourseAndMember(ctx context.Context, courseID, memberID string) (*models.Enrollment, error)
	UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, paymentDate *time.Time, method *models.PaymentMethod, ref *string) error
}

type registrationRepository interface {
	List(ctx context.Context, filter models.AnnualRegistrationFilter) ([]models.AnnualRegistrationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.AnnualRegistration, error)
	FindByMemberAndYear(ctx context.Context, memberID string, year int) (*models.AnnualRegistration, error)
	Create(ctx context.Context, registration *models.AnnualRegistration) error
	UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, paymentDate *time.Time, method *models.PaymentMethod, ref *string, exemptionReason *string) error
}

type referenceGenerator interface {
	Generate(kind reference.Kind) string
}

// RecordPaymentRequest carries the fields for a pending -> paid transition.
type RecordPaymentRequest struct {
	Method    string  `json:"method" validate:"required"`
	Reference *string `json:"reference"`
}

// ExemptRegistrationRequest waives annual dues with a documented reason.
type ExemptRegistrationRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CreateRegistrationRequest opens a member's dues record for a year.
type CreateRegistrationRequest struct {
	MemberID string `json:"member_id" validate:"required"`
	Year     int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Amount   int64  `json:"amount" validate:"gte=0"`
}

// PaymentServiceConfig tunes dues defaults.
type PaymentServiceConfig struct {
	AnnualFee int64
}

// PaymentService governs the payment lifecycle shared by course
// enrollments and annual registrations: pending -> paid,
// pending -> exempted, and paid -> pending as administrative correction.
type PaymentService struct {
	enrollments   paymentEnrollmentRepository
	registrations registrationRepository
	refs          referenceGenerator
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
	cfg           PaymentServiceConfig
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(enrollments paymentEnrollmentRepository, registrations registrationRepository, refs referenceGenerator, cfg PaymentServiceConfig, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if refs == nil {
		refs = reference.NewGenerator()
	}
	return &PaymentService{
		enrollments:   enrollments,
		registrations: registrations,
		refs:          refs,
		validator:     validate,
		logger:        logger,
		now:           time.Now,
		cfg:           cfg,
	}
}

// RecordEnrollmentPayment marks a course enrollment as paid. The
// transition is idempotent with respect to the payment date and
// reference: re-submitting paid changes nothing.
func (s *PaymentService) RecordEnrollmentPayment(ctx context.Context, courseID, memberID string, req RecordPaymentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	method := models.PaymentMethod(req.Method)
	if !method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method")
	}

	enrollment, err := s.loadEnrollment(ctx, courseID, memberID)
	if err != nil {
		return nil, err
	}

	if enrollment.PaymentStatus == models.PaymentStatusPaid {
		return enrollment, nil
	}
	if enrollment.PaymentStatus == models.PaymentStatusExempted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "exempted enrollment cannot be marked paid")
	}

	paymentDate := enrollment.PaymentDate
	if paymentDate == nil {
		now := s.now().UTC()
		paymentDate = &now
	}
	ref := s.resolveReference(enrollment.PaymentReference, req.Reference, reference.KindCourse)

	if err := s.enrollments.UpdatePayment(ctx, enrollment.ID, models.PaymentStatusPaid, paymentDate, &method, ref); err != nil {
		return nil, serviceError(err, "failed to record payment")
	}

	enrollment.PaymentStatus = models.PaymentStatusPaid
	enrollment.PaymentDate = paymentDate
	enrollment.PaymentMethod = &method
	enrollment.PaymentReference = ref

	s.logger.Info("enrollment payment recorded",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("reference", *ref),
	)
	return enrollment, nil
}

// ExemptEnrollment waives a pending course fee.
func (s *PaymentService) ExemptEnrollment(ctx context.Context, courseID, memberID string) (*models.Enrollment, error) {
	enrollment, err := s.loadEnrollment(ctx, courseID, memberID)
	if err != nil {
		return nil, err
	}
	if enrollment.PaymentStatus != models.PaymentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only pending enrollments can be exempted")
	}

	if err := s.enrollments.UpdatePayment(ctx, enrollment.ID, models.PaymentStatusExempted, nil, nil, enrollment.PaymentReference); err != nil {
		return nil, serviceError(err, "failed to exempt enrollment")
	}
	enrollment.PaymentStatus = models.PaymentStatusExempted
	return enrollment, nil
}

// RevertEnrollmentPayment is the administrative paid -> pending
// correction. The payment date and method are cleared; an existing
// reference is never regenerated, so it stays on the record.
func (s *PaymentService) RevertEnrollmentPayment(ctx context.Context, courseID, memberID string) (*models.Enrollment, error) {
	enrollment, err := s.loadEnrollment(ctx, courseID, memberID)
	if err != nil {
		return nil, err
	}
	if enrollment.PaymentStatus != models.PaymentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only paid enrollments can be reverted")
	}

	if err := s.enrollments.UpdatePayment(ctx, enrollment.ID, models.PaymentStatusPending, nil, nil, enrollment.PaymentReference); err != nil {
		return nil, serviceError(err, "failed to revert payment")
	}
	enrollment.PaymentStatus = models.PaymentStatusPending
	enrollment.PaymentDate = nil
	enrollment.PaymentMethod = nil
	return enrollment, nil
}

// CreateRegistration opens the yearly dues record for a member. The
// configured annual fee applies when no amount is given.
func (s *PaymentService) CreateRegistration(ctx context.Context, req CreateRegistrationRequest) (*models.AnnualRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	amount := req.Amount
	if amount == 0 {
		amount = s.cfg.AnnualFee
	}

	registration := &models.AnnualRegistration{
		MemberID: req.MemberID,
		Year:     req.Year,
		Amount:   amount,
		Status:   models.PaymentStatusPending,
	}
	if err := s.registrations.Create(ctx, registration); err != nil {
		if errors.Is(err, repository.ErrDuplicateRegistration) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration already exists for this year")
		}
		return nil, serviceError(err, "failed to create registration")
	}
	return registration, nil
}

// ListRegistrations returns dues records with pagination metadata.
func (s *PaymentService) ListRegistrations(ctx context.Context, filter models.AnnualRegistrationFilter) ([]models.AnnualRegistrationDetail, *models.Pagination, error) {
	registrations, total, err := s.registrations.List(ctx, filter)
	if err != nil {
		return nil, nil, serviceError(err, "failed to list registrations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return registrations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// RecordRegistrationPayment marks annual dues as paid, idempotently.
func (s *PaymentService) RecordRegistrationPayment(ctx context.Context, id string, req RecordPaymentRequest) (*models.AnnualRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	method := models.PaymentMethod(req.Method)
	if !method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method")
	}

	registration, err := s.loadRegistration(ctx, id)
	if err != nil {
		return nil, err
	}

	if registration.Status == models.PaymentStatusPaid {
		return registration, nil
	}
	if registration.Status == models.PaymentStatusExempted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "exempted registration cannot be marked paid")
	}

	paymentDate := registration.PaymentDate
	if paymentDate == nil {
		now := s.now().UTC()
		paymentDate = &now
	}
	ref := s.resolveReference(registration.PaymentReference, req.Reference, reference.KindAnnualRegistration)

	if err := s.registrations.UpdatePayment(ctx, registration.ID, models.PaymentStatusPaid, paymentDate, &method, ref, registration.ExemptionReason); err != nil {
		return nil, serviceError(err, "failed to record payment")
	}

	registration.Status = models.PaymentStatusPaid
	registration.PaymentDate = paymentDate
	registration.PaymentMethod = &method
	registration.PaymentReference = ref

	s.logger.Info("registration payment recorded",
		zap.String("registration_id", registration.ID),
		zap.String("reference", *ref),
	)
	return registration, nil
}

// ExemptRegistration waives pending annual dues; a human-readable reason
// is required.
func (s *PaymentService) ExemptRegistration(ctx context.Context, id string, req ExemptRegistrationRequest) (*models.AnnualRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "exemption reason is required")
	}

	registration, err := s.loadRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if registration.Status != models.PaymentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only pending registrations can be exempted")
	}

	if err := s.registrations.UpdatePayment(ctx, registration.ID, models.PaymentStatusExempted, nil, nil, registration.PaymentReference, &req.Reason); err != nil {
		return nil, serviceError(err, "failed to exempt registration")
	}
	registration.Status = models.PaymentStatusExempted
	registration.ExemptionReason = &req.Reason
	return registration, nil
}

// RevertRegistrationPayment is the administrative paid -> pending
// correction for annual dues.
func (s *PaymentService) RevertRegistrationPayment(ctx context.Context, id string) (*models.AnnualRegistration, error) {
	registration, err := s.loadRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if registration.Status != models.PaymentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only paid registrations can be reverted")
	}

	if err := s.registrations.UpdatePayment(ctx, registration.ID, models.PaymentStatusPending, nil, nil, registration.PaymentReference, registration.ExemptionReason); err != nil {
		return nil, serviceError(err, "failed to revert payment")
	}
	registration.Status = models.PaymentStatusPending
	registration.PaymentDate = nil
	registration.PaymentMethod = nil
	return registration, nil
}

func (s *PaymentService) loadEnrollment(ctx context.Context, courseID, memberID string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByCourseAndMember(ctx, courseID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, serviceError(err, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *PaymentService) loadRegistration(ctx context.Context, id string) (*models.AnnualRegistration, error) {
	registration, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, serviceError(err, "failed to load registration")
	}
	return registration, nil
}

// resolveReference keeps an existing reference, then a caller-supplied
// one, and only generates when neither exists.
func (s *PaymentService) resolveReference(existing, supplied *string, kind reference.Kind) *string {
	if existing != nil && *existing != "" {
		return existing
	}
	if supplied != nil && *supplied != "" {
		return supplied
	}
	generated := s.refs.Generate(kind)
	return &generated
}
