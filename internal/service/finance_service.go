package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkamdem/assoflow-api/internal/dto"
	"github.com/mkamdem/assoflow-api/internal/models"
	appErrors "github.com/mkamdem/assoflow-api/pkg/errors"
)

type financeRepository interface {
	RegistrationRevenue(ctx context.Context, start, end time.Time) (int64, error)
	CourseRevenue(ctx context.Context, start, end time.Time) (int64, error)
	PaidExpenses(ctx context.Context, start, end time.Time) (int64, error)
	MonthlyRows(ctx context.Context, year int) ([]models.MonthlyFinanceRow, error)
	PaidRegistrations(ctx context.Context, start, end time.Time) ([]models.PaidRegistrationRow, error)
	PaidEnrollments(ctx context.Context, start, end time.Time) ([]models.PaidEnrollmentRow, error)
	PaidExpenseRows(ctx context.Context, start, end time.Time) ([]models.PaidExpenseRow, error)
	LedgerTotals(ctx context.Context, memberID string, year int) (*models.LedgerTotals, error)
}

type ledgerRegistrationReader interface {
	FindByMemberAndYear(ctx context.Context, memberID string, year int) (*models.AnnualRegistration, error)
}

type financeCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// FinanceServiceConfig tunes dashboard caching.
type FinanceServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	AnnualFee    int64
}

// FinanceService is the read-only aggregation engine. It folds
// enrollment payments, annual registrations and expenses into summaries,
// monthly series and per-member ledgers; it never mutates source
// records. Cache failures degrade to a direct read, never to an error.
type FinanceService struct {
	finance       financeRepository
	registrations ledgerRegistrationReader
	cache         financeCache
	logger        *zap.Logger
	cfg           FinanceServiceConfig
}

// NewFinanceService constructs FinanceService. cache may be nil.
func NewFinanceService(finance financeRepository, registrations ledgerRegistrationReader, cache financeCache, cfg FinanceServiceConfig, logger *zap.Logger) *FinanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &FinanceService{
		finance:       finance,
		registrations: registrations,
		cache:         cache,
		logger:        logger,
		cfg:           cfg,
	}
}

// Summarize computes the profit and loss snapshot for a period.
func (s *FinanceService) Summarize(ctx context.Context, start, end time.Time) (*dto.FinanceSummary, error) {
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period end must be after period start")
	}

	key := fmt.Sprintf("finance:summary:%s:%s", start.UTC().Format("20060102"), end.UTC().Format("20060102"))
	var cached dto.FinanceSummary
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	summary, err := s.computeSummary(ctx, start, end)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, summary)
	return summary, nil
}

// MonthlySeries returns twelve Jan-Dec buckets for a year. Months with
// no activity are present with zero values.
func (s *FinanceService) MonthlySeries(ctx context.Context, year int) (*dto.MonthlySeries, error) {
	if year < 2000 || year > 2100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year out of range")
	}

	key := fmt.Sprintf("finance:monthly:%d", year)
	var cached dto.MonthlySeries
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.finance.MonthlyRows(ctx, year)
	if err != nil {
		return nil, serviceError(err, "failed to aggregate monthly series")
	}

	series := &dto.MonthlySeries{Year: year, Buckets: make([]dto.MonthlyBucket, 12)}
	for i := range series.Buckets {
		series.Buckets[i].Month = time.Month(i + 1)
	}
	for _, row := range rows {
		if row.Month < 1 || row.Month > 12 {
			continue
		}
		bucket := &series.Buckets[row.Month-1]
		bucket.RegistrationRevenue = row.RegistrationRevenue
		bucket.CourseRevenue = row.CourseRevenue
		bucket.Expenses = row.Expenses
		bucket.NetProfit = row.RegistrationRevenue + row.CourseRevenue - row.Expenses
	}

	s.cacheSet(ctx, key, series)
	return series, nil
}

// MemberLedger returns a member's financial position for a year: dues
// standing, enrolled course count, and paid/owed totals.
func (s *FinanceService) MemberLedger(ctx context.Context, memberID string, year int) (*dto.MemberLedger, error) {
	if memberID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "member id is required")
	}

	totals, err := s.finance.LedgerTotals(ctx, memberID, year)
	if err != nil {
		return nil, serviceError(err, "failed to aggregate member ledger")
	}

	ledger := &dto.MemberLedger{
		MemberID:        memberID,
		Year:            year,
		CoursesEnrolled: totals.CoursesEnrolled,
		TotalPaid:       totals.TotalPaid,
		TotalOwed:       totals.TotalOwed,
	}

	registration, err := s.registrations.FindByMemberAndYear(ctx, memberID, year)
	switch {
	case err == nil:
		ledger.AnnualRegistration = &dto.LedgerRegistration{Status: registration.Status, Amount: registration.Amount}
		switch registration.Status {
		case models.PaymentStatusPaid:
			ledger.TotalPaid += registration.Amount
		case models.PaymentStatusPending:
			ledger.TotalOwed += registration.Amount
		}
	case errors.Is(err, sql.ErrNoRows):
		// no dues record opened for this year
	default:
		return nil, serviceError(err, "failed to load annual registration")
	}

	return ledger, nil
}

// DetailedReport couples the period summary with every itemized paid
// registration, enrollment and expense.
func (s *FinanceService) DetailedReport(ctx context.Context, start, end time.Time) (*dto.DetailedReport, error) {
	summary, err := s.computeSummary(ctx, start, end)
	if err != nil {
		return nil, err
	}

	registrations, err := s.finance.PaidRegistrations(ctx, start, end)
	if err != nil {
		return nil, serviceError(err, "failed to list paid registrations")
	}
	enrollments, err := s.finance.PaidEnrollments(ctx, start, end)
	if err != nil {
		return nil, serviceError(err, "failed to list paid enrollments")
	}
	expenses, err := s.finance.PaidExpenseRows(ctx, start, end)
	if err != nil {
		return nil, serviceError(err, "failed to list paid expenses")
	}

	return &dto.DetailedReport{
		Summary:       *summary,
		Registrations: registrations,
		Enrollments:   enrollments,
		Expenses:      expenses,
	}, nil
}

func (s *FinanceService) computeSummary(ctx context.Context, start, end time.Time) (*dto.FinanceSummary, error) {
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period end must be after period start")
	}

	registrationRevenue, err := s.finance.RegistrationRevenue(ctx, start, end)
	if err != nil {
		return nil, serviceError(err, "failed to sum registration revenue")
	}
	courseRevenue, err := s.finance.CourseRevenue(ctx, start, end)
	if err != nil {
		return nil, serviceError(err, "failed to sum course revenue")
	}
	expenses, err := s.finance.PaidExpenses(ctx, start, end)
	if err != nil {
		return nil, serviceError(err, "failed to sum expenses")
	}

	revenue := registrationRevenue + courseRevenue
	net := revenue - expenses
	margin := 0.0
	if revenue > 0 {
		margin = float64(net) / float64(revenue)
	}

	return &dto.FinanceSummary{
		PeriodStart:   start,
		PeriodEnd:     end,
		TotalRevenue:  revenue,
		TotalExpenses: expenses,
		NetProfit:     net,
		ProfitMargin:  margin,
	}, nil
}

func (s *FinanceService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if !s.cfg.CacheEnabled || s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("finance cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *FinanceService) cacheSet(ctx context.Context, key string, value interface{}) {
	if !s.cfg.CacheEnabled || s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("finance cache write failed", zap.String("key", key), zap.Error(err))
	}
}
