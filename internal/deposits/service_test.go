package deposits

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helix-dx/helix-erp/internal/ledger"
)

type memoryDepositRepo struct {
	mu       sync.Mutex
	deposits map[int64]BankDeposit
	nextID   int64
}

func newMemoryDepositRepo() *memoryDepositRepo {
	return &memoryDepositRepo{deposits: make(map[int64]BankDeposit)}
}

func (r *memoryDepositRepo) Insert(ctx context.Context, dep BankDeposit) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	dep.ID = r.nextID
	r.deposits[dep.ID] = dep
	return dep.ID, nil
}

func (r *memoryDepositRepo) Get(ctx context.Context, id int64) (BankDeposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dep, ok := r.deposits[id]
	if !ok {
		return BankDeposit{}, ErrNotFound
	}
	return dep, nil
}

func (r *memoryDepositRepo) List(ctx context.Context, branchID int64, limit int) ([]BankDeposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BankDeposit
	for _, dep := range r.deposits {
		if branchID != 0 && dep.BranchID != branchID {
			continue
		}
		out = append(out, dep)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepositDate.Equal(out[j].DepositDate) {
			return out[i].DepositDate.After(out[j].DepositDate)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryDepositRepo) LatestForBranch(ctx context.Context, branchID int64) (BankDeposit, bool, error) {
	list, err := r.List(ctx, branchID, 1)
	if err != nil || len(list) == 0 {
		return BankDeposit{}, false, err
	}
	return list[0], true, nil
}

func (r *memoryDepositRepo) SetStatus(ctx context.Context, id int64, status Status, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dep, ok := r.deposits[id]
	if !ok {
		return ErrNotFound
	}
	dep.Status = status
	if notes != "" {
		dep.Notes = notes
	}
	r.deposits[id] = dep
	return nil
}

func (r *memoryDepositRepo) SumDeposited(ctx context.Context, branchID int64, from, to time.Time) (int64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	var count int
	for _, dep := range r.deposits {
		if dep.BranchID != branchID || dep.DepositDate.Before(from) || dep.DepositDate.After(to) {
			continue
		}
		total += dep.DepositAmountCents
		count++
	}
	return total, count, nil
}

func (r *memoryDepositRepo) CountByStatus(ctx context.Context, branchID int64, from, to time.Time, status Status) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, dep := range r.deposits {
		if dep.BranchID != branchID || dep.Status != status {
			continue
		}
		if dep.DepositDate.Before(from) || dep.DepositDate.After(to) {
			continue
		}
		count++
	}
	return count, nil
}

type fakeTx struct {
	day    time.Time
	amount int64
}

type fakeLedger struct {
	mu  sync.Mutex
	txs []fakeTx
}

func (l *fakeLedger) add(day time.Time, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs = append(l.txs, fakeTx{day: day, amount: amount})
}

func (l *fakeLedger) Total(ctx context.Context, branchID int64, from, to time.Time) (ledger.RangeTotal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total ledger.RangeTotal
	for _, tx := range l.txs {
		if tx.day.Before(from) || tx.day.After(to) {
			continue
		}
		total.TotalAmountCents += tx.amount
		total.TransactionCount++
	}
	return total, nil
}

func (l *fakeLedger) ByDay(ctx context.Context, branchID int64, from, to time.Time) ([]ledger.DayTotal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byDay := make(map[time.Time]*ledger.DayTotal)
	for _, tx := range l.txs {
		if tx.day.Before(from) || tx.day.After(to) {
			continue
		}
		day, ok := byDay[tx.day]
		if !ok {
			day = &ledger.DayTotal{BusinessDate: tx.day}
			byDay[tx.day] = day
		}
		day.TotalAmountCents += tx.amount
		day.TransactionCount++
	}
	var days []ledger.DayTotal
	for _, day := range byDay {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].BusinessDate.Before(days[j].BusinessDate) })
	return days, nil
}

func (l *fakeLedger) EarliestDate(ctx context.Context, branchID int64) (time.Time, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.txs) == 0 {
		return time.Time{}, false, nil
	}
	earliest := l.txs[0].day
	for _, tx := range l.txs[1:] {
		if tx.day.Before(earliest) {
			earliest = tx.day
		}
	}
	return earliest, true, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(repo *memoryDepositRepo, lg *fakeLedger, today time.Time) *Service {
	svc := NewService(repo, lg, nil)
	svc.WithNow(func() time.Time { return today })
	return svc
}

func TestLinkDailyCashSnapshotsSingleDay(t *testing.T) {
	lg := &fakeLedger{}
	day := date(2025, time.January, 10)
	lg.add(day, 300_000)
	lg.add(day, 450_000)
	lg.add(day, 200_000)
	lg.add(date(2025, time.January, 9), 999_999)

	svc := newTestService(newMemoryDepositRepo(), lg, date(2025, time.January, 11))
	dep, err := svc.Link(context.Background(), LinkInput{
		BranchID: 1, BankAccountID: 4, DepositAmountCents: 950_000,
		DepositDate: day, SourceType: SourceDailyCash, ActorID: 7,
	})
	require.NoError(t, err)
	require.EqualValues(t, 950_000, dep.LinkedCashAmountCents)
	require.EqualValues(t, 0, dep.VarianceCents)
	require.Equal(t, ClassBalanced, dep.Classification())
	require.Equal(t, StatusPending, dep.Status)
}

func TestLinkCumulativeCashSnapshotsWindow(t *testing.T) {
	repo := newMemoryDepositRepo()
	lg := &fakeLedger{}
	lg.add(date(2025, time.January, 8), 100_000)
	lg.add(date(2025, time.January, 9), 200_000)
	lg.add(date(2025, time.January, 10), 300_000)

	svc := newTestService(repo, lg, date(2025, time.January, 10))
	dep, err := svc.Link(context.Background(), LinkInput{
		BranchID: 1, BankAccountID: 4, DepositAmountCents: 550_000,
		DepositDate: date(2025, time.January, 10), SourceType: SourceCumulativeCash, ActorID: 7,
	})
	require.NoError(t, err)
	require.EqualValues(t, 600_000, dep.LinkedCashAmountCents)
	require.EqualValues(t, -50_000, dep.VarianceCents)
	require.Equal(t, ClassShortage, dep.Classification())
}

func TestLinkInvoicePaymentsNotTiedToLedger(t *testing.T) {
	lg := &fakeLedger{}
	lg.add(date(2025, time.January, 10), 550_000)

	svc := newTestService(newMemoryDepositRepo(), lg, date(2025, time.January, 10))
	dep, err := svc.Link(context.Background(), LinkInput{
		BranchID: 1, BankAccountID: 4, DepositAmountCents: 75_000,
		DepositDate: date(2025, time.January, 10), SourceType: SourceInvoicePayments, ActorID: 7,
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, dep.LinkedCashAmountCents)
	require.EqualValues(t, 75_000, dep.VarianceCents)
	require.Equal(t, ClassExcess, dep.Classification())
}

func TestSnapshotImmutableAfterBackfill(t *testing.T) {
	repo := newMemoryDepositRepo()
	lg := &fakeLedger{}
	day := date(2025, time.January, 10)
	lg.add(day, 500_000)

	svc := newTestService(repo, lg, date(2025, time.January, 11))
	dep, err := svc.Link(context.Background(), LinkInput{
		BranchID: 1, BankAccountID: 4, DepositAmountCents: 500_000,
		DepositDate: day, SourceType: SourceDailyCash, ActorID: 7,
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, dep.VarianceCents)

	// Back-dated posting lands after linking; the snapshot must not move.
	lg.add(day, 123_456)
	stored, err := svc.Get(context.Background(), dep.ID)
	require.NoError(t, err)
	require.EqualValues(t, 500_000, stored.LinkedCashAmountCents)
	require.EqualValues(t, 0, stored.VarianceCents)
}

func TestUndepositedWindowNoPriorDeposit(t *testing.T) {
	lg := &fakeLedger{}
	lg.add(date(2025, time.January, 5), 100)
	lg.add(date(2025, time.January, 7), 200)

	svc := newTestService(newMemoryDepositRepo(), lg, date(2025, time.January, 8))
	window, err := svc.UndepositedWindow(context.Background(), 1, true)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.January, 5), window.FromDate)
	require.Equal(t, date(2025, time.January, 8), window.ToDate)
	require.EqualValues(t, 300, window.TotalAmountCents)
	require.Equal(t, 2, window.TransactionCount)
	require.Len(t, window.Daily, 2)
}

func TestUndepositedWindowAdvancesAfterDeposit(t *testing.T) {
	repo := newMemoryDepositRepo()
	lg := &fakeLedger{}
	lg.add(date(2025, time.January, 8), 100_000)
	lg.add(date(2025, time.January, 9), 200_000)

	svc := newTestService(repo, lg, date(2025, time.January, 12))
	dep, err := svc.Link(context.Background(), LinkInput{
		BranchID: 1, BankAccountID: 4, DepositAmountCents: 300_000,
		DepositDate: date(2025, time.January, 9), SourceType: SourceCumulativeCash, ActorID: 7,
	})
	require.NoError(t, err)

	lg.add(date(2025, time.January, 10), 50_000)
	lg.add(date(2025, time.January, 9), 77_000) // on the deposit date, must be excluded

	window, err := svc.UndepositedWindow(context.Background(), 1, false)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.January, 10), window.FromDate)
	require.Equal(t, dep.DepositDate.AddDate(0, 0, 1), window.FromDate)
	require.EqualValues(t, 50_000, window.TotalAmountCents)
}

func TestUndepositedWindowSameDateTieBreak(t *testing.T) {
	repo := newMemoryDepositRepo()
	lg := &fakeLedger{}
	day := date(2025, time.January, 9)
	lg.add(day, 100)

	svc := newTestService(repo, lg, date(2025, time.January, 10))
	for i := 0; i < 2; i++ {
		_, err := svc.Link(context.Background(), LinkInput{
			BranchID: 1, BankAccountID: 4, DepositAmountCents: 50,
			DepositDate: day, SourceType: SourceCumulativeCash, ActorID: 7,
		})
		require.NoError(t, err)
	}

	latest, found, err := repo.LatestForBranch(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 2, latest.ID)

	window, err := svc.UndepositedWindow(context.Background(), 1, false)
	require.NoError(t, err)
	require.Equal(t, date(2025, time.January, 10), window.FromDate)
}

func TestUndepositedWindowEmptyWhenDepositedToday(t *testing.T) {
	repo := newMemoryDepositRepo()
	lg := &fakeLedger{}
	today := date(2025, time.January, 10)
	lg.add(today, 500)

	svc := newTestService(repo, lg, today)
	_, err := svc.Link(context.Background(), LinkInput{
		BranchID: 1, BankAccountID: 4, DepositAmountCents: 500,
		DepositDate: today, SourceType: SourceCumulativeCash, ActorID: 7,
	})
	require.NoError(t, err)

	window, err := svc.UndepositedWindow(context.Background(), 1, false)
	require.NoError(t, err)
	require.EqualValues(t, 0, window.TotalAmountCents)
	require.Equal(t, 0, window.TransactionCount)
}

func TestSetStatusValidatesAndPersists(t *testing.T) {
	repo := newMemoryDepositRepo()
	lg := &fakeLedger{}
	svc := newTestService(repo, lg, date(2025, time.January, 10))

	dep, err := svc.Link(context.Background(), LinkInput{
		BranchID: 1, BankAccountID: 4, DepositAmountCents: 500,
		DepositDate: date(2025, time.January, 9), SourceType: SourceOther, ActorID: 7,
	})
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), dep.ID, "DONE", "", 7)
	require.ErrorIs(t, err, ErrValidation)

	updated, err := svc.SetStatus(context.Background(), dep.ID, StatusVerified, "counted twice", 7)
	require.NoError(t, err)
	require.Equal(t, StatusVerified, updated.Status)
	require.Equal(t, "counted twice", updated.Notes)

	_, err = svc.SetStatus(context.Background(), 999, StatusVerified, "", 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLinkValidation(t *testing.T) {
	svc := newTestService(newMemoryDepositRepo(), &fakeLedger{}, date(2025, time.January, 10))
	_, err := svc.Link(context.Background(), LinkInput{
		BranchID: 1, BankAccountID: 4, DepositAmountCents: 0,
		DepositDate: date(2025, time.January, 9), SourceType: SourceOther, ActorID: 7,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Link(context.Background(), LinkInput{
		BranchID: 1, BankAccountID: 4, DepositAmountCents: 100,
		DepositDate: date(2025, time.January, 9), SourceType: "WIRE", ActorID: 7,
	})
	require.ErrorIs(t, err, ErrValidation)
}
