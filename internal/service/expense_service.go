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

type expenseRepository interface {
	List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error)
	FindByID(ctx context.Context, id string) (*models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
	MarkPaid(ctx context.Context, id string, paidDate time.Time, next *models.Expense) error
	UpdateStatus(ctx context.Context, id string, status models.ExpenseStatus) error
}

// CreateExpenseRequest carries the fields for a new outlay.
type CreateExpenseRequest struct {
	Amount      int64      `json:"amount" validate:"required,gt=0"`
	Category    string     `json:"category" validate:"required"`
	Type        string     `json:"type" validate:"required,oneof=one_time recurring"`
	Description string     `json:"description"`
	Date        time.Time  `json:"date" validate:"required"`
	DueDate     *time.Time `json:"due_date"`

	RecurringFrequency *string    `json:"recurring_frequency"`
	RecurringInterval  *int       `json:"recurring_interval"`
	RecurringEndDate   *time.Time `json:"recurring_end_date"`
}

// ExpenseService manages organizational outlays. Paying a recurring
// expense spawns its next occurrence in the same transaction.
type ExpenseService struct {
	expenses  expenseRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewExpenseService constructs ExpenseService.
func NewExpenseService(expenses expenseRepository, validate *validator.Validate, logger *zap.Logger) *ExpenseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseService{expenses: expenses, validator: validate, logger: logger, now: time.Now}
}

// List returns expenses with derived overdue statuses applied.
func (s *ExpenseService) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	expenses, total, err := s.expenses.List(ctx, filter)
	if err != nil {
		return nil, nil, serviceError(err, "failed to list expenses")
	}
	now := s.now().UTC()
	for i := range expenses {
		expenses[i].Status = expenses[i].EffectiveStatus(now)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return expenses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one expense with its derived status.
func (s *ExpenseService) Get(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	expense.Status = expense.EffectiveStatus(s.now().UTC())
	return expense, nil
}

// Create records a new expense in pending status.
func (s *ExpenseService) Create(ctx context.Context, req CreateExpenseRequest) (*models.Expense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}

	expense := &models.Expense{
		Amount:      req.Amount,
		Category:    req.Category,
		Type:        models.ExpenseType(req.Type),
		Status:      models.ExpenseStatusPending,
		Description: req.Description,
		Date:        req.Date.UTC(),
		DueDate:     req.DueDate,
	}

	if expense.Type == models.ExpenseTypeRecurring {
		if req.RecurringFrequency == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "recurring expenses require a frequency")
		}
		frequency := models.RecurringFrequency(*req.RecurringFrequency)
		if !frequency.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown recurrence frequency")
		}
		if req.RecurringInterval != nil && *req.RecurringInterval < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "recurrence interval must be at least 1")
		}
		expense.RecurringFrequency = &frequency
		expense.RecurringInterval = req.RecurringInterval
		expense.RecurringEndDate = req.RecurringEndDate
	}

	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, serviceError(err, "failed to create expense")
	}

	s.logger.Info("expense created",
		zap.String("expense_id", expense.ID),
		zap.String("category", expense.Category),
		zap.Int64("amount", expense.Amount),
	)
	return expense, nil
}

// MarkPaid settles a pending expense. For a recurring expense whose
// schedule has not ended, the next occurrence is created atomically with
// the settlement.
func (s *ExpenseService) MarkPaid(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense.Status == models.ExpenseStatusPaid {
		return expense, nil
	}
	if expense.Status == models.ExpenseStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cancelled expenses cannot be paid")
	}

	paidDate := s.now().UTC()
	next := s.nextOccurrence(expense, paidDate)

	if err := s.expenses.MarkPaid(ctx, id, paidDate, next); err != nil {
		return nil, serviceError(err, "failed to mark expense paid")
	}
	expense.Status = models.ExpenseStatusPaid
	expense.PaidDate = &paidDate

	if next != nil {
		s.logger.Info("recurring expense advanced",
			zap.String("expense_id", id),
			zap.Time("next_date", next.Date),
		)
	}
	return expense, nil
}

// Cancel drops a pending expense from the books.
func (s *ExpenseService) Cancel(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense.Status != models.ExpenseStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only pending expenses can be cancelled")
	}
	if err := s.expenses.UpdateStatus(ctx, id, models.ExpenseStatusCancelled); err != nil {
		return nil, serviceError(err, "failed to cancel expense")
	}
	expense.Status = models.ExpenseStatusCancelled
	return expense, nil
}

// nextOccurrence builds the follow-up record for a recurring expense, or
// nil when there is no schedule or the schedule has ended.
func (s *ExpenseService) nextOccurrence(expense *models.Expense, paidDate time.Time) *models.Expense {
	schedule := expense.Schedule()
	if schedule == nil {
		return nil
	}
	nextDate := schedule.Advance(expense.Date)
	if schedule.EndDate != nil && nextDate.After(*schedule.EndDate) {
		return nil
	}

	next := &models.Expense{
		Amount:             expense.Amount,
		Category:           expense.Category,
		Type:               models.ExpenseTypeRecurring,
		Status:             models.ExpenseStatusPending,
		Description:        expense.Description,
		Date:               nextDate,
		RecurringFrequency: expense.RecurringFrequency,
		RecurringInterval:  expense.RecurringInterval,
		RecurringEndDate:   expense.RecurringEndDate,
	}
	if expense.DueDate != nil {
		due := schedule.Advance(*expense.DueDate)
		next.DueDate = &due
	}
	return next
}

func (s *ExpenseService) load(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.expenses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return nil, serviceError(err, "failed to load expense")
	}
	return expense, nil
}
