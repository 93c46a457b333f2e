package ledger

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryLedgerRepo struct {
	mu     sync.Mutex
	txs    map[int64]CashTransaction
	nextID int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{txs: make(map[int64]CashTransaction)}
}

func (r *memoryLedgerRepo) Insert(ctx context.Context, tx CashTransaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.Reference != "" {
		for _, existing := range r.txs {
			if existing.BranchID == tx.BranchID && existing.Reference == tx.Reference {
				return 0, ErrDuplicateReference
			}
		}
	}
	r.nextID++
	tx.ID = r.nextID
	r.txs[tx.ID] = tx
	return tx.ID, nil
}

func (r *memoryLedgerRepo) Get(ctx context.Context, id int64) (CashTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return CashTransaction{}, ErrNotFound
	}
	return tx, nil
}

func (r *memoryLedgerRepo) SetVerification(ctx context.Context, id int64, status VerificationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return ErrNotFound
	}
	tx.VerificationStatus = status
	r.txs[id] = tx
	return nil
}

func (r *memoryLedgerRepo) SumVerified(ctx context.Context, branchID int64, from, to time.Time) (RangeTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total RangeTotal
	for _, tx := range r.txs {
		if tx.BranchID != branchID || tx.VerificationStatus != VerificationVerified {
			continue
		}
		if tx.BusinessDate.Before(from) || tx.BusinessDate.After(to) {
			continue
		}
		total.TotalAmountCents += tx.AmountCents
		total.TransactionCount++
	}
	return total, nil
}

func (r *memoryLedgerRepo) SumVerifiedByDay(ctx context.Context, branchID int64, from, to time.Time) ([]DayTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDay := make(map[time.Time]*DayTotal)
	for _, tx := range r.txs {
		if tx.BranchID != branchID || tx.VerificationStatus != VerificationVerified {
			continue
		}
		if tx.BusinessDate.Before(from) || tx.BusinessDate.After(to) {
			continue
		}
		day, ok := byDay[tx.BusinessDate]
		if !ok {
			day = &DayTotal{BusinessDate: tx.BusinessDate}
			byDay[tx.BusinessDate] = day
		}
		day.TotalAmountCents += tx.AmountCents
		day.TransactionCount++
	}
	var days []DayTotal
	for _, day := range byDay {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].BusinessDate.Before(days[j].BusinessDate) })
	return days, nil
}

func (r *memoryLedgerRepo) EarliestBusinessDate(ctx context.Context, branchID int64) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var earliest time.Time
	found := false
	for _, tx := range r.txs {
		if tx.BranchID != branchID {
			continue
		}
		if !found || tx.BusinessDate.Before(earliest) {
			earliest = tx.BusinessDate
			found = true
		}
	}
	return earliest, found, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedTransaction(t *testing.T, svc *Service, repo *memoryLedgerRepo, day time.Time, amount int64, status VerificationStatus) int64 {
	t.Helper()
	tx, err := svc.Record(context.Background(), RecordInput{
		BranchID:      1,
		BusinessDate:  day,
		AmountCents:   amount,
		PaymentMethod: MethodCash,
		ActorID:       7,
	})
	require.NoError(t, err)
	if status != VerificationPending {
		require.NoError(t, repo.SetVerification(context.Background(), tx.ID, status))
	}
	return tx.ID
}

func TestTotalCountsOnlyVerified(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	day := date(2025, time.January, 10)

	seedTransaction(t, svc, repo, day, 300_000, VerificationVerified)
	seedTransaction(t, svc, repo, day, 450_000, VerificationVerified)
	seedTransaction(t, svc, repo, day, 200_000, VerificationVerified)
	seedTransaction(t, svc, repo, day, 999_999, VerificationPending)
	seedTransaction(t, svc, repo, day, 888_888, VerificationFlagged)

	total, err := svc.Total(context.Background(), 1, day, day)
	require.NoError(t, err)
	require.EqualValues(t, 950_000, total.TotalAmountCents)
	require.Equal(t, 3, total.TransactionCount)
}

func TestTotalIsIdempotent(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	day := date(2025, time.January, 10)
	seedTransaction(t, svc, repo, day, 125_000, VerificationVerified)

	first, err := svc.Total(context.Background(), 1, day, day)
	require.NoError(t, err)
	second, err := svc.Total(context.Background(), 1, day, day)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestByDayOrdersAscending(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	seedTransaction(t, svc, repo, date(2025, time.January, 12), 100, VerificationVerified)
	seedTransaction(t, svc, repo, date(2025, time.January, 10), 200, VerificationVerified)
	seedTransaction(t, svc, repo, date(2025, time.January, 10), 300, VerificationVerified)
	seedTransaction(t, svc, repo, date(2025, time.January, 11), 400, VerificationVerified)

	days, err := svc.ByDay(context.Background(), 1, date(2025, time.January, 1), date(2025, time.January, 31))
	require.NoError(t, err)
	require.Len(t, days, 3)
	require.Equal(t, date(2025, time.January, 10), days[0].BusinessDate)
	require.EqualValues(t, 500, days[0].TotalAmountCents)
	require.Equal(t, 2, days[0].TransactionCount)
	require.Equal(t, date(2025, time.January, 12), days[2].BusinessDate)
}

func TestRangeBoundsAreInclusive(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	seedTransaction(t, svc, repo, date(2025, time.January, 1), 10, VerificationVerified)
	seedTransaction(t, svc, repo, date(2025, time.January, 31), 20, VerificationVerified)
	seedTransaction(t, svc, repo, date(2025, time.February, 1), 40, VerificationVerified)

	total, err := svc.Total(context.Background(), 1, date(2025, time.January, 1), date(2025, time.January, 31))
	require.NoError(t, err)
	require.EqualValues(t, 30, total.TotalAmountCents)
}

func TestInvalidRange(t *testing.T) {
	svc := NewService(newMemoryLedgerRepo(), nil)
	_, err := svc.Total(context.Background(), 1, date(2025, time.February, 1), date(2025, time.January, 1))
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestRecordNormalisesBusinessDate(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	// A late-night posting at 23:45 belongs to its trading day.
	tx, err := svc.Record(context.Background(), RecordInput{
		BranchID:      1,
		BusinessDate:  time.Date(2025, time.January, 10, 23, 45, 0, 0, time.UTC),
		AmountCents:   100,
		PaymentMethod: MethodPOS,
		ActorID:       7,
	})
	require.NoError(t, err)
	require.Equal(t, date(2025, time.January, 10), tx.BusinessDate)
	require.Equal(t, VerificationPending, tx.VerificationStatus)
}

func TestSetVerificationValidatesStatus(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	id := seedTransaction(t, svc, repo, date(2025, time.January, 10), 100, VerificationPending)

	require.ErrorIs(t, svc.SetVerification(context.Background(), id, "DONE", 7), ErrValidation)
	require.NoError(t, svc.SetVerification(context.Background(), id, VerificationVerified, 7))
	require.ErrorIs(t, svc.SetVerification(context.Background(), 999, VerificationVerified, 7), ErrNotFound)
}

func TestRecordRejectsDuplicateReference(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	in := RecordInput{
		BranchID:      1,
		BusinessDate:  date(2025, time.January, 10),
		AmountCents:   100,
		PaymentMethod: MethodCash,
		Reference:     "RCPT-0042",
		ActorID:       7,
	}
	_, err := svc.Record(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), in)
	require.ErrorIs(t, err, ErrDuplicateReference)

	// Another branch may reuse the reference.
	in.BranchID = 2
	_, err = svc.Record(context.Background(), in)
	require.NoError(t, err)
}
