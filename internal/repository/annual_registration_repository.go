package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkamdem/assoflow-api/internal/models"
)

// ErrDuplicateRegistration is returned when a (member, year) registration
// already exists.
var ErrDuplicateRegistration = errors.New("registration already exists for member and year")

// AnnualRegistrationRepository handles persistence of yearly dues records.
type AnnualRegistrationRepository struct {
	db *sqlx.DB
}

// NewAnnualRegistrationRepository constructs the repository.
func NewAnnualRegistrationRepository(db *sqlx.DB) *AnnualRegistrationRepository {
	return &AnnualRegistrationRepository{db: db}
}

// List returns registrations joined with member info.
func (r *AnnualRegistrationRepository) List(ctx context.Context, filter models.AnnualRegistrationFilter) ([]models.AnnualRegistrationDetail, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	base := `FROM annual_registrations ar
LEFT JOIN members m ON m.id = ar.member_id`
	where := []string{"1=1"}
	var args []interface{}

	if filter.MemberID != "" {
		where = append(where, fmt.Sprintf("ar.member_id = $%d", len(args)+1))
		args = append(args, filter.MemberID)
	}
	if filter.Year != 0 {
		where = append(where, fmt.Sprintf("ar.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("ar.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"year":        "ar.year",
		"member_name": "m.full_name",
		"created_at":  "ar.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "year"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "ar.year"
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

	query := fmt.Sprintf(`SELECT ar.id, ar.member_id, ar.year, ar.amount, ar.status,
        ar.payment_date, ar.payment_method, ar.payment_reference, ar.exemption_reason,
        ar.created_at, ar.updated_at,
        COALESCE(m.full_name, '') AS member_name, COALESCE(m.email, '') AS member_email
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, orderBy, order, size, offset)

	var registrations []models.AnnualRegistrationDetail
	if err := r.db.SelectContext(ctx, &registrations, query, args...); err != nil {
		return nil, 0, wrapStore("list registrations", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, wrapStore("count registrations", err)
	}
	return registrations, total, nil
}

// FindByID returns a registration by its ID.
func (r *AnnualRegistrationRepository) FindByID(ctx context.Context, id string) (*models.AnnualRegistration, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT id, member_id, year, amount, status, payment_date, payment_method,
        payment_reference, exemption_reason, created_at, updated_at
        FROM annual_registrations WHERE id = $1`
	var registration models.AnnualRegistration
	if err := r.db.GetContext(ctx, &registration, query, id); err != nil {
		return nil, err
	}
	return &registration, nil
}

// FindByMemberAndYear returns the registration for a (member, year) pair.
func (r *AnnualRegistrationRepository) FindByMemberAndYear(ctx context.Context, memberID string, year int) (*models.AnnualRegistration, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT id, member_id, year, amount, status, payment_date, payment_method,
        payment_reference, exemption_reason, created_at, updated_at
        FROM annual_registrations WHERE member_id = $1 AND year = $2`
	var registration models.AnnualRegistration
	if err := r.db.GetContext(ctx, &registration, query, memberID, year); err != nil {
		return nil, err
	}
	return &registration, nil
}

// Create persists a new registration; the (member_id, year) unique index
// backs the one-per-year invariant.
func (r *AnnualRegistrationRepository) Create(ctx context.Context, registration *models.AnnualRegistration) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	if registration.Status == "" {
		registration.Status = models.PaymentStatusPending
	}
	if registration.CreatedAt.IsZero() {
		registration.CreatedAt = now
	}
	registration.UpdatedAt = now

	const query = `INSERT INTO annual_registrations (id, member_id, year, amount, status,
        payment_date, payment_method, payment_reference, exemption_reason, created_at, updated_at)
        VALUES (:id, :member_id, :year, :amount, :status,
        :payment_date, :payment_method, :payment_reference, :exemption_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, registration); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRegistration
		}
		return wrapStore("create registration", err)
	}
	return nil
}

// UpdatePayment rewrites the payment fields in one statement.
func (r *AnnualRegistrationRepository) UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, paymentDate *time.Time, method *models.PaymentMethod, reference *string, exemptionReason *string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `UPDATE annual_registrations SET status = $2, payment_date = $3,
        payment_method = $4, payment_reference = $5, exemption_reason = $6, updated_at = $7
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, paymentDate, method, reference, exemptionReason, time.Now().UTC()); err != nil {
		return wrapStore("update registration payment", err)
	}
	return nil
}
