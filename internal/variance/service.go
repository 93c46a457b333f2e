package variance

import (
	"context"
	"fmt"
	"time"

	"github.com/helix-dx/helix-erp/internal/deposits"
	"github.com/helix-dx/helix-erp/internal/ledger"
	"github.com/helix-dx/helix-erp/internal/shared"
)

// LedgerPort exposes the collection aggregates the engine reads.
type LedgerPort interface {
	Total(ctx context.Context, branchID int64, from, to time.Time) (ledger.RangeTotal, error)
	ByDay(ctx context.Context, branchID int64, from, to time.Time) ([]ledger.DayTotal, error)
}

// DepositPort exposes the deposit aggregates the engine reads.
type DepositPort interface {
	SumDeposited(ctx context.Context, branchID int64, from, to time.Time) (int64, int, error)
	CountByStatus(ctx context.Context, branchID int64, from, to time.Time, status deposits.Status) (int, error)
}

// Service computes reconciliation summaries. Reads are pure aggregation
// over the store; cached copies go through the versioned Redis cache when
// one is configured.
type Service struct {
	ledger   LedgerPort
	deposits DepositPort
	cache    *Cache
	now      func() time.Time
}

// NewService constructs the metrics engine.
func NewService(ledgerPort LedgerPort, depositPort DepositPort, cache *Cache) *Service {
	return &Service{ledger: ledgerPort, deposits: depositPort, cache: cache, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Summary computes the rollup for an arbitrary period.
func (s *Service) Summary(ctx context.Context, in PeriodInput) (Summary, error) {
	if err := in.Validate(); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	from := shared.BusinessDate(in.From)
	to := shared.BusinessDate(in.To)
	if s.cache == nil {
		return s.compute(ctx, in.BranchID, from, to)
	}
	key, err := s.cache.BuildKey(ctx, keySummary(in.BranchID, from, to)...)
	if err != nil {
		return s.compute(ctx, in.BranchID, from, to)
	}
	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		return s.compute(ctx, in.BranchID, from, to)
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// MonthToDate computes the rollup from the first of the current month
// through today. "Today" comes from the injected clock.
func (s *Service) MonthToDate(ctx context.Context, branchID int64) (Summary, error) {
	today := shared.BusinessDate(s.now())
	return s.Summary(ctx, PeriodInput{BranchID: branchID, From: shared.MonthStart(today), To: today})
}

// YearToDate computes the rollup from January 1 through today.
func (s *Service) YearToDate(ctx context.Context, branchID int64) (Summary, error) {
	today := shared.BusinessDate(s.now())
	return s.Summary(ctx, PeriodInput{BranchID: branchID, From: shared.YearStart(today), To: today})
}

// Warm bumps the cache version and precomputes the branch's MTD and YTD
// summaries so the first morning read is served hot.
func (s *Service) Warm(ctx context.Context, branchID int64) error {
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			return err
		}
	}
	if _, err := s.MonthToDate(ctx, branchID); err != nil {
		return err
	}
	_, err := s.YearToDate(ctx, branchID)
	return err
}

func (s *Service) compute(ctx context.Context, branchID int64, from, to time.Time) (Summary, error) {
	collected, err := s.ledger.Total(ctx, branchID, from, to)
	if err != nil {
		return Summary{}, err
	}
	daily, err := s.ledger.ByDay(ctx, branchID, from, to)
	if err != nil {
		return Summary{}, err
	}
	deposited, depositCount, err := s.deposits.SumDeposited(ctx, branchID, from, to)
	if err != nil {
		return Summary{}, err
	}
	verified, err := s.deposits.CountByStatus(ctx, branchID, from, to, deposits.StatusVerified)
	if err != nil {
		return Summary{}, err
	}
	flagged, err := s.deposits.CountByStatus(ctx, branchID, from, to, deposits.StatusFlagged)
	if err != nil {
		return Summary{}, err
	}
	return ComputeSummary(branchID, from, to, PeriodTotals{
		CashCollectedCents: collected.TotalAmountCents,
		TransactionCount:   collected.TransactionCount,
		CollectionDays:     len(daily),
		CashDepositedCents: deposited,
		DepositCount:       depositCount,
		VerifiedDeposits:   verified,
		FlaggedDeposits:    flagged,
	}), nil
}

func keySummary(branchID int64, from, to time.Time) []string {
	return []string{
		"variance", "summary",
		fmt.Sprintf("%d", branchID),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	}
}
