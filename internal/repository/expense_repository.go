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

// ExpenseRepository handles persistence of organizational expenses.
type ExpenseRepository struct {
	db *sqlx.DB
}

// NewExpenseRepository constructs the repository.
func NewExpenseRepository(db *sqlx.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// List returns expenses filtered by the provided criteria.
func (r *ExpenseRepository) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where := []string{"1=1"}
	var args []interface{}

	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Status != "" && filter.Status != models.ExpenseStatusOverdue {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	// Overdue is derived, not stored: filter on pending past due date.
	if filter.Status == models.ExpenseStatusOverdue {
		where = append(where, fmt.Sprintf("status = $%d AND due_date < $%d", len(args)+1, len(args)+2))
		args = append(args, models.ExpenseStatusPending, time.Now().UTC())
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"date":     "date",
		"amount":   "amount",
		"category": "category",
		"due_date": "due_date",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "date"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "date"
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

	query := fmt.Sprintf(`SELECT id, amount, category, type, status, description, date, due_date,
        paid_date, recurring_frequency, recurring_interval, recurring_end_date, created_at, updated_at
        FROM expenses WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, whereClause, orderBy, order, size, offset)

	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, 0, wrapStore("list expenses", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM expenses WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, wrapStore("count expenses", err)
	}
	return expenses, total, nil
}

// FindByID returns an expense by its ID.
func (r *ExpenseRepository) FindByID(ctx context.Context, id string) (*models.Expense, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `SELECT id, amount, category, type, status, description, date, due_date,
        paid_date, recurring_frequency, recurring_interval, recurring_end_date, created_at, updated_at
        FROM expenses WHERE id = $1`
	var expense models.Expense
	if err := r.db.GetContext(ctx, &expense, query, id); err != nil {
		return nil, err
	}
	return &expense, nil
}

// Create persists a new expense record.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	if expense.Status == "" {
		expense.Status = models.ExpenseStatusPending
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = now

	const query = `INSERT INTO expenses (id, amount, category, type, status, description, date,
        due_date, paid_date, recurring_frequency, recurring_interval, recurring_end_date,
        created_at, updated_at)
        VALUES (:id, :amount, :category, :type, :status, :description, :date,
        :due_date, :paid_date, :recurring_frequency, :recurring_interval, :recurring_end_date,
        :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return wrapStore("create expense", err)
	}
	return nil
}

// MarkPaid records the payment and, when a follow-up occurrence exists,
// inserts it in the same transaction so paying a recurring expense and
// spawning its successor is atomic.
func (r *ExpenseRepository) MarkPaid(ctx context.Context, id string, paidDate time.Time, next *models.Expense) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapStore("begin expense tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE expenses SET status = $2, paid_date = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, id, models.ExpenseStatusPaid, paidDate, time.Now().UTC()); err != nil {
		return wrapStore("mark expense paid", err)
	}

	if next != nil {
		now := time.Now().UTC()
		if next.ID == "" {
			next.ID = uuid.NewString()
		}
		next.CreatedAt = now
		next.UpdatedAt = now
		const insert = `INSERT INTO expenses (id, amount, category, type, status, description, date,
            due_date, paid_date, recurring_frequency, recurring_interval, recurring_end_date,
            created_at, updated_at)
            VALUES (:id, :amount, :category, :type, :status, :description, :date,
            :due_date, :paid_date, :recurring_frequency, :recurring_interval, :recurring_end_date,
            :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, next); err != nil {
			return wrapStore("create next occurrence", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapStore("commit expense", err)
	}
	return nil
}

// UpdateStatus rewrites the stored status, e.g. cancellation.
func (r *ExpenseRepository) UpdateStatus(ctx context.Context, id string, status models.ExpenseStatus) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	const query = `UPDATE expenses SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return wrapStore("update expense status", err)
	}
	return nil
}
