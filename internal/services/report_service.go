package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/report"
)

// ErrInvalidPeriod is returned for an out-of-range year or month.
var ErrInvalidPeriod = errors.New("invalid report period")

// ReportService computes monthly summaries from a fresh storage snapshot.
// It holds no state; caching is the caller's concern.
type ReportService struct {
	transactions TransactionStore
	categories   CategoryStore
}

func NewReportService(transactions TransactionStore, categories CategoryStore) *ReportService {
	return &ReportService{
		transactions: transactions,
		categories:   categories,
	}
}

// Monthly aggregates one calendar month. The focus flow type picks which
// side gets the per-category breakdown.
func (s *ReportService) Monthly(ctx context.Context, year, month int, focus core.FlowType) (report.Report, error) {
	if year < 1 || month < 1 || month > 12 {
		return report.Report{}, fmt.Errorf("%w: %d-%d", ErrInvalidPeriod, year, month)
	}
	if !focus.Valid() {
		return report.Report{}, core.ErrInvalidFlowType
	}

	start, end := report.MonthRange(year, month)

	txns, err := s.transactions.TransactionsInRange(ctx, start, end)
	if err != nil {
		return report.Report{}, fmt.Errorf("load transactions: %w", err)
	}
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return report.Report{}, fmt.Errorf("load categories: %w", err)
	}

	return report.Aggregate(txns, categories, start, end, focus), nil
}

// CurrentMonth aggregates the month containing now.
func (s *ReportService) CurrentMonth(ctx context.Context, now time.Time, focus core.FlowType) (report.Report, error) {
	y, m, _ := now.UTC().Date()
	return s.Monthly(ctx, y, int(m), focus)
}
