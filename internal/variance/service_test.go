package variance

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/helix-dx/helix-erp/internal/deposits"
	"github.com/helix-dx/helix-erp/internal/ledger"
)

type mockLedger struct {
	total      ledger.RangeTotal
	daily      []ledger.DayTotal
	totalCalls int
}

func (m *mockLedger) Total(ctx context.Context, branchID int64, from, to time.Time) (ledger.RangeTotal, error) {
	m.totalCalls++
	return m.total, nil
}

func (m *mockLedger) ByDay(ctx context.Context, branchID int64, from, to time.Time) ([]ledger.DayTotal, error) {
	return m.daily, nil
}

type mockDeposits struct {
	deposited int64
	count     int
	verified  int
	flagged   int
}

func (m *mockDeposits) SumDeposited(ctx context.Context, branchID int64, from, to time.Time) (int64, int, error) {
	return m.deposited, m.count, nil
}

func (m *mockDeposits) CountByStatus(ctx context.Context, branchID int64, from, to time.Time, status deposits.Status) (int, error) {
	if status == deposits.StatusVerified {
		return m.verified, nil
	}
	return m.flagged, nil
}

func newCachedService(t *testing.T, lg *mockLedger, dep *mockDeposits) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewService(lg, dep, NewCache(client, time.Minute))
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func fixedNow() time.Time {
	return time.Date(2025, time.March, 18, 14, 30, 0, 0, time.UTC)
}

func TestMonthToDateWindowBounds(t *testing.T) {
	lg := &mockLedger{total: ledger.RangeTotal{TotalAmountCents: 2_000_000, TransactionCount: 12}}
	dep := &mockDeposits{deposited: 1_800_000, count: 4, verified: 3, flagged: 1}
	svc := NewService(lg, dep, nil)
	svc.WithNow(fixedNow)

	sum, err := svc.MonthToDate(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), sum.PeriodStart)
	require.Equal(t, time.Date(2025, time.March, 18, 0, 0, 0, 0, time.UTC), sum.PeriodEnd)
	require.EqualValues(t, -200_000, sum.VarianceCents)
	require.Equal(t, deposits.ClassShortage, sum.Classification)
	require.Equal(t, 3, sum.VerifiedDeposits)
	require.Equal(t, 1, sum.FlaggedDeposits)
}

func TestYearToDateWindowBounds(t *testing.T) {
	svc := NewService(&mockLedger{}, &mockDeposits{}, nil)
	svc.WithNow(fixedNow)

	sum, err := svc.YearToDate(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), sum.PeriodStart)
	require.Equal(t, time.Date(2025, time.March, 18, 0, 0, 0, 0, time.UTC), sum.PeriodEnd)
}

func TestSummaryValidation(t *testing.T) {
	svc := NewService(&mockLedger{}, &mockDeposits{}, nil)
	_, err := svc.Summary(context.Background(), PeriodInput{BranchID: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Summary(context.Background(), PeriodInput{
		BranchID: 1,
		From:     time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSummaryServedFromCache(t *testing.T) {
	lg := &mockLedger{total: ledger.RangeTotal{TotalAmountCents: 500_000, TransactionCount: 5}}
	dep := &mockDeposits{deposited: 500_000, count: 2}
	svc, cleanup := newCachedService(t, lg, dep)
	defer cleanup()
	svc.WithNow(fixedNow)

	first, err := svc.MonthToDate(context.Background(), 7)
	require.NoError(t, err)
	second, err := svc.MonthToDate(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, lg.totalCalls)
}

func TestWarmBumpsVersionAndRecomputes(t *testing.T) {
	lg := &mockLedger{total: ledger.RangeTotal{TotalAmountCents: 100_000, TransactionCount: 1}}
	dep := &mockDeposits{deposited: 100_000, count: 1}
	svc, cleanup := newCachedService(t, lg, dep)
	defer cleanup()
	svc.WithNow(fixedNow)

	_, err := svc.MonthToDate(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, lg.totalCalls)

	// Underlying data changes; cached copy still serves the old number
	// until the version is bumped.
	lg.total.TotalAmountCents = 250_000
	stale, err := svc.MonthToDate(context.Background(), 7)
	require.NoError(t, err)
	require.EqualValues(t, 100_000, stale.CashCollectedCents)

	require.NoError(t, svc.Warm(context.Background(), 7))
	fresh, err := svc.MonthToDate(context.Background(), 7)
	require.NoError(t, err)
	require.EqualValues(t, 250_000, fresh.CashCollectedCents)
}
