package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkamdem/assoflow-api/internal/models"
	"github.com/mkamdem/assoflow-api/internal/repository"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
	"github.com/mkamdem/assoflow-api/pkg/reference"
)

type mockPaymentEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
}

func (m *mockPaymentEnrollmentRepo) FindByCourseAndMember(ctx context.Context, courseID, memberID string) (*models.Enrollment, error) {
	for _, e := range m.enrollments {
		if e.CourseID == courseID && e.MemberID == memberID {
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentEnrollmentRepo) UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, paymentDate *time.Time, method *models.PaymentMethod, ref *string) error {
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.PaymentStatus = status
	e.PaymentDate = paymentDate
	e.PaymentMethod = method
	e.PaymentReference = ref
	m.enrollments[id] = e
	return nil
}

type mockRegistrationRepo struct {
	registrations map[string]models.AnnualRegistration
}

func (m *mockRegistrationRepo) List(ctx context.Context, filter models.AnnualRegistrationFilter) ([]models.AnnualRegistrationDetail, int, error) {
	return nil, 0, nil
}

func (m *mockRegistrationRepo) FindByID(ctx context.Context, id string) (*models.AnnualRegistration, error) {
	if r, ok := m.registrations[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationRepo) FindByMemberAndYear(ctx context.Context, memberID string, year int) (*models.AnnualRegistration, error) {
	for _, r := range m.registrations {
		if r.MemberID == memberID && r.Year == year {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationRepo) Create(ctx context.Context, registration *models.AnnualRegistration) error {
	if m.registrations == nil {
		m.registrations = make(map[string]models.AnnualRegistration)
	}
	for _, r := range m.registrations {
		if r.MemberID == registration.MemberID && r.Year == registration.Year {
			return repository.ErrDuplicateRegistration
		}
	}
	if registration.ID == "" {
		registration.ID = fmt.Sprintf("%s-%d", registration.MemberID, registration.Year)
	}
	m.registrations[registration.ID] = *registration
	return nil
}

func (m *mockRegistrationRepo) UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, paymentDate *time.Time, method *models.PaymentMethod, ref *string, exemptionReason *string) error {
	r, ok := m.registrations[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Status = status
	r.PaymentDate = paymentDate
	r.PaymentMethod = method
	r.PaymentReference = ref
	r.ExemptionReason = exemptionReason
	m.registrations[id] = r
	return nil
}

func newTestPaymentService(enrollments *mockPaymentEnrollmentRepo, registrations *mockRegistrationRepo) *PaymentService {
	return NewPaymentService(enrollments, registrations, reference.NewGenerator(),
		PaymentServiceConfig{AnnualFee: 10000}, validator.New(), zap.NewNop())
}

func TestPaymentServiceRecordEnrollmentPayment(t *testing.T) {
	repo := &mockPaymentEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "c1", MemberID: "m1", PaymentStatus: models.PaymentStatusPending},
	}}
	svc := newTestPaymentService(repo, &mockRegistrationRepo{})

	enrollment, err := svc.RecordEnrollmentPayment(context.Background(), "c1", "m1", RecordPaymentRequest{Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, enrollment.PaymentStatus)
	require.NotNil(t, enrollment.PaymentDate)
	require.NotNil(t, enrollment.PaymentReference)
	assert.Contains(t, *enrollment.PaymentReference, "ENR")
}

func TestPaymentServiceRecordEnrollmentPaymentIdempotent(t *testing.T) {
	repo := &mockPaymentEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "c1", MemberID: "m1", PaymentStatus: models.PaymentStatusPending},
	}}
	svc := newTestPaymentService(repo, &mockRegistrationRepo{})

	first, err := svc.RecordEnrollmentPayment(context.Background(), "c1", "m1", RecordPaymentRequest{Method: "cash"})
	require.NoError(t, err)
	firstDate := *first.PaymentDate
	firstRef := *first.PaymentReference

	second, err := svc.RecordEnrollmentPayment(context.Background(), "c1", "m1", RecordPaymentRequest{Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, firstDate, *second.PaymentDate)
	assert.Equal(t, firstRef, *second.PaymentReference)
}

func TestPaymentServiceRecordEnrollmentPaymentRequiresMethod(t *testing.T) {
	repo := &mockPaymentEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "c1", MemberID: "m1", PaymentStatus: models.PaymentStatusPending},
	}}
	svc := newTestPaymentService(repo, &mockRegistrationRepo{})

	_, err := svc.RecordEnrollmentPayment(context.Background(), "c1", "m1", RecordPaymentRequest{})
	require.Error(t, err)

	_, err = svc.RecordEnrollmentPayment(context.Background(), "c1", "m1", RecordPaymentRequest{Method: "barter"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown payment method")
}

func TestPaymentServiceExemptedEnrollmentCannotBePaid(t *testing.T) {
	repo := &mockPaymentEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "c1", MemberID: "m1", PaymentStatus: models.PaymentStatusExempted},
	}}
	svc := newTestPaymentService(repo, &mockRegistrationRepo{})

	_, err := svc.RecordEnrollmentPayment(context.Background(), "c1", "m1", RecordPaymentRequest{Method: "cash"})
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
}

func TestPaymentServiceRevertEnrollmentPayment(t *testing.T) {
	now := time.Now().UTC()
	ref := "ENR-TEST-ABC"
	method := models.PaymentMethodCash
	repo := &mockPaymentEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "c1", MemberID: "m1", PaymentStatus: models.PaymentStatusPaid,
			PaymentDate: &now, PaymentMethod: &method, PaymentReference: &ref},
	}}
	svc := newTestPaymentService(repo, &mockRegistrationRepo{})

	enrollment, err := svc.RevertEnrollmentPayment(context.Background(), "c1", "m1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, enrollment.PaymentStatus)
	assert.Nil(t, enrollment.PaymentDate)
	assert.Nil(t, enrollment.PaymentMethod)
	// the reference survives the correction, it is never regenerated
	require.NotNil(t, enrollment.PaymentReference)
	assert.Equal(t, ref, *enrollment.PaymentReference)

	_, err = svc.RevertEnrollmentPayment(context.Background(), "c1", "m1")
	require.Error(t, err)
}

func TestPaymentServiceCreateRegistration(t *testing.T) {
	registrations := &mockRegistrationRepo{}
	svc := newTestPaymentService(&mockPaymentEnrollmentRepo{}, registrations)

	registration, err := svc.CreateRegistration(context.Background(), CreateRegistrationRequest{MemberID: "m1", Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), registration.Amount)
	assert.Equal(t, models.PaymentStatusPending, registration.Status)

	_, err = svc.CreateRegistration(context.Background(), CreateRegistrationRequest{MemberID: "m1", Year: 2024})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = svc.CreateRegistration(context.Background(), CreateRegistrationRequest{MemberID: "m1", Year: 2025})
	require.NoError(t, err)
}

func TestPaymentServiceRecordRegistrationPaymentGeneratesReference(t *testing.T) {
	registrations := &mockRegistrationRepo{registrations: map[string]models.AnnualRegistration{
		"r1": {ID: "r1", MemberID: "m1", Year: 2024, Amount: 10000, Status: models.PaymentStatusPending},
		"r2": {ID: "r2", MemberID: "m2", Year: 2024, Amount: 10000, Status: models.PaymentStatusPending},
	}}
	svc := newTestPaymentService(&mockPaymentEnrollmentRepo{}, registrations)

	first, err := svc.RecordRegistrationPayment(context.Background(), "r1", RecordPaymentRequest{Method: "mobile_money"})
	require.NoError(t, err)
	second, err := svc.RecordRegistrationPayment(context.Background(), "r2", RecordPaymentRequest{Method: "mobile_money"})
	require.NoError(t, err)

	require.NotNil(t, first.PaymentReference)
	require.NotNil(t, second.PaymentReference)
	assert.NotEmpty(t, *first.PaymentReference)
	assert.Contains(t, *first.PaymentReference, "REG")
	assert.NotEqual(t, *first.PaymentReference, *second.PaymentReference)
}

func TestPaymentServiceExemptRegistrationRequiresReason(t *testing.T) {
	registrations := &mockRegistrationRepo{registrations: map[string]models.AnnualRegistration{
		"r1": {ID: "r1", MemberID: "m1", Year: 2024, Amount: 10000, Status: models.PaymentStatusPending},
	}}
	svc := newTestPaymentService(&mockPaymentEnrollmentRepo{}, registrations)

	_, err := svc.ExemptRegistration(context.Background(), "r1", ExemptRegistrationRequest{})
	require.Error(t, err)

	registration, err := svc.ExemptRegistration(context.Background(), "r1", ExemptRegistrationRequest{Reason: "founding member"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusExempted, registration.Status)
	require.NotNil(t, registration.ExemptionReason)
	assert.Equal(t, "founding member", *registration.ExemptionReason)

	// exempted dues never become payable
	_, err = svc.RecordRegistrationPayment(context.Background(), "r1", RecordPaymentRequest{Method: "cash"})
	require.Error(t, err)
}

func TestPaymentServiceRevertRegistrationPayment(t *testing.T) {
	registrations := &mockRegistrationRepo{registrations: map[string]models.AnnualRegistration{
		"r1": {ID: "r1", MemberID: "m1", Year: 2024, Amount: 10000, Status: models.PaymentStatusPending},
	}}
	svc := newTestPaymentService(&mockPaymentEnrollmentRepo{}, registrations)

	paid, err := svc.RecordRegistrationPayment(context.Background(), "r1", RecordPaymentRequest{Method: "check"})
	require.NoError(t, err)
	ref := *paid.PaymentReference

	reverted, err := svc.RevertRegistrationPayment(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, reverted.Status)
	assert.Nil(t, reverted.PaymentDate)
	require.NotNil(t, reverted.PaymentReference)
	assert.Equal(t, ref, *reverted.PaymentReference)
}

func TestPaymentServiceMissingRecords(t *testing.T) {
	svc := newTestPaymentService(&mockPaymentEnrollmentRepo{}, &mockRegistrationRepo{})

	_, err := svc.RecordEnrollmentPayment(context.Background(), "c1", "m1", RecordPaymentRequest{Method: "cash"})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)

	_, err = svc.RecordRegistrationPayment(context.Background(), "r1", RecordPaymentRequest{Method: "cash"})
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}
