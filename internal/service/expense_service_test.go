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

type mockExpenseRepo struct {
	expenses map[string]*models.Expense
	spawned  []*models.Expense
}

func newMockExpenseRepo(expenses ...*models.Expense) *mockExpenseRepo {
	repo := &mockExpenseRepo{expenses: make(map[string]*models.Expense)}
	for _, e := range expenses {
		repo.expenses[e.ID] = e
	}
	return repo
}

func (m *mockExpenseRepo) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	out := make([]models.Expense, 0, len(m.expenses))
	for _, e := range m.expenses {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *mockExpenseRepo) FindByID(ctx context.Context, id string) (*models.Expense, error) {
	expense, ok := m.expenses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *expense
	return &copied, nil
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = "exp-new"
	}
	stored := *expense
	m.expenses[expense.ID] = &stored
	return nil
}

func (m *mockExpenseRepo) MarkPaid(ctx context.Context, id string, paidDate time.Time, next *models.Expense) error {
	expense := m.expenses[id]
	expense.Status = models.ExpenseStatusPaid
	expense.PaidDate = &paidDate
	if next != nil {
		spawned := *next
		spawned.ID = "exp-spawned"
		m.expenses[spawned.ID] = &spawned
		m.spawned = append(m.spawned, &spawned)
	}
	return nil
}

func (m *mockExpenseRepo) UpdateStatus(ctx context.Context, id string, status models.ExpenseStatus) error {
	m.expenses[id].Status = status
	return nil
}

func newTestExpenseService(repo *mockExpenseRepo, now time.Time) *ExpenseService {
	svc := NewExpenseService(repo, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func monthlyRent(id string, date time.Time) *models.Expense {
	frequency := models.FrequencyMonthly
	interval := 1
	due := date.AddDate(0, 0, 5)
	return &models.Expense{
		ID:                 id,
		Amount:             8000,
		Category:           "rent",
		Type:               models.ExpenseTypeRecurring,
		Status:             models.ExpenseStatusPending,
		Date:               date,
		DueDate:            &due,
		RecurringFrequency: &frequency,
		RecurringInterval:  &interval,
	}
}

func TestExpenseServiceCreateOneTime(t *testing.T) {
	repo := newMockExpenseRepo()
	svc := newTestExpenseService(repo, time.Now().UTC())

	expense, err := svc.Create(context.Background(), CreateExpenseRequest{
		Amount:   4500,
		Category: "supplies",
		Type:     "one_time",
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusPending, expense.Status)
	assert.Nil(t, expense.RecurringFrequency)
}

func TestExpenseServiceCreateRecurringRequiresFrequency(t *testing.T) {
	svc := newTestExpenseService(newMockExpenseRepo(), time.Now().UTC())

	_, err := svc.Create(context.Background(), CreateExpenseRequest{
		Amount:   8000,
		Category: "rent",
		Type:     "recurring",
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frequency")
}

func TestExpenseServiceCreateRejectsUnknownFrequency(t *testing.T) {
	svc := newTestExpenseService(newMockExpenseRepo(), time.Now().UTC())
	frequency := "fortnightly"

	_, err := svc.Create(context.Background(), CreateExpenseRequest{
		Amount:             8000,
		Category:           "rent",
		Type:               "recurring",
		Date:               time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		RecurringFrequency: &frequency,
	})
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestExpenseServiceMarkPaidSpawnsNextOccurrence(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := newMockExpenseRepo(monthlyRent("exp-1", date))
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	svc := newTestExpenseService(repo, now)

	paid, err := svc.MarkPaid(context.Background(), "exp-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)
	assert.Equal(t, now, *paid.PaidDate)

	require.Len(t, repo.spawned, 1)
	next := repo.spawned[0]
	assert.Equal(t, models.ExpenseStatusPending, next.Status)
	assert.Equal(t, date.AddDate(0, 1, 0), next.Date)
	require.NotNil(t, next.DueDate)
	assert.Equal(t, date.AddDate(0, 1, 5), *next.DueDate)
	assert.Equal(t, int64(8000), next.Amount)
}

func TestExpenseServiceMarkPaidStopsAtEndDate(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	expense := monthlyRent("exp-1", date)
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	expense.RecurringEndDate = &end
	repo := newMockExpenseRepo(expense)
	svc := newTestExpenseService(repo, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))

	_, err := svc.MarkPaid(context.Background(), "exp-1")
	require.NoError(t, err)
	assert.Empty(t, repo.spawned)
}

func TestExpenseServiceMarkPaidOneTimeSpawnsNothing(t *testing.T) {
	expense := &models.Expense{
		ID:       "exp-1",
		Amount:   4500,
		Category: "supplies",
		Type:     models.ExpenseTypeOneTime,
		Status:   models.ExpenseStatusPending,
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	repo := newMockExpenseRepo(expense)
	svc := newTestExpenseService(repo, time.Now().UTC())

	_, err := svc.MarkPaid(context.Background(), "exp-1")
	require.NoError(t, err)
	assert.Empty(t, repo.spawned)
}

func TestExpenseServiceMarkPaidIdempotent(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := newMockExpenseRepo(monthlyRent("exp-1", date))
	svc := newTestExpenseService(repo, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))

	_, err := svc.MarkPaid(context.Background(), "exp-1")
	require.NoError(t, err)
	_, err = svc.MarkPaid(context.Background(), "exp-1")
	require.NoError(t, err)

	// second settlement does not spawn another occurrence
	assert.Len(t, repo.spawned, 1)
}

func TestExpenseServiceMarkPaidCancelledRefused(t *testing.T) {
	expense := monthlyRent("exp-1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	expense.Status = models.ExpenseStatusCancelled
	svc := newTestExpenseService(newMockExpenseRepo(expense), time.Now().UTC())

	_, err := svc.MarkPaid(context.Background(), "exp-1")
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
}

func TestExpenseServiceDerivedOverdue(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := newMockExpenseRepo(monthlyRent("exp-1", date))
	// past the due date of March 6th
	svc := newTestExpenseService(repo, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))

	expense, err := svc.Get(context.Background(), "exp-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusOverdue, expense.Status)
	// the stored status stays pending
	assert.Equal(t, models.ExpenseStatusPending, repo.expenses["exp-1"].Status)

	listed, _, err := svc.List(context.Background(), models.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, models.ExpenseStatusOverdue, listed[0].Status)
}

func TestExpenseServiceCancelPendingOnly(t *testing.T) {
	expense := monthlyRent("exp-1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	repo := newMockExpenseRepo(expense)
	svc := newTestExpenseService(repo, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	cancelled, err := svc.Cancel(context.Background(), "exp-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(context.Background(), "exp-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only pending expenses")
}

func TestExpenseServiceMissingExpense(t *testing.T) {
	svc := newTestExpenseService(newMockExpenseRepo(), time.Now().UTC())

	_, err := svc.MarkPaid(context.Background(), "exp-absent")
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}
