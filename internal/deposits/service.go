package deposits

import (
	"context"
	"fmt"
	"time"

	"github.com/helix-dx/helix-erp/internal/ledger"
	"github.com/helix-dx/helix-erp/internal/shared"
)

// RepositoryPort describes persistence operations used by Service.
type RepositoryPort interface {
	Insert(ctx context.Context, dep BankDeposit) (int64, error)
	Get(ctx context.Context, id int64) (BankDeposit, error)
	List(ctx context.Context, branchID int64, limit int) ([]BankDeposit, error)
	// LatestForBranch returns the most recent deposit by deposit_date,
	// ties broken by id descending; ok is false when none exists.
	LatestForBranch(ctx context.Context, branchID int64) (BankDeposit, bool, error)
	SetStatus(ctx context.Context, id int64, status Status, notes string) error
	SumDeposited(ctx context.Context, branchID int64, from, to time.Time) (int64, int, error)
	CountByStatus(ctx context.Context, branchID int64, from, to time.Time, status Status) (int, error)
}

// LedgerPort exposes the aggregator operations the linker needs.
type LedgerPort interface {
	Total(ctx context.Context, branchID int64, from, to time.Time) (ledger.RangeTotal, error)
	ByDay(ctx context.Context, branchID int64, from, to time.Time) ([]ledger.DayTotal, error)
	EarliestDate(ctx context.Context, branchID int64) (time.Time, bool, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service links bank deposits to cash-collection windows.
//
// Two deposits created concurrently for overlapping windows may both
// snapshot overlapping ledger totals. That is accepted: deposits are manual
// financial actions, and a reviewer sees the resulting variance instead of
// the system trying to serialise deposit creation globally.
type Service struct {
	repo   RepositoryPort
	ledger LedgerPort
	audit  AuditPort
	now    func() time.Time
}

// NewService constructs the deposit linker.
func NewService(repo RepositoryPort, ledgerPort LedgerPort, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledgerPort, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// UndepositedWindow computes the open window: the day after the most recent
// deposit (or the start of records) through today.
func (s *Service) UndepositedWindow(ctx context.Context, branchID int64, withDaily bool) (UndepositedWindow, error) {
	today := shared.BusinessDate(s.now())
	latest, found, err := s.repo.LatestForBranch(ctx, branchID)
	if err != nil {
		return UndepositedWindow{}, err
	}
	var from time.Time
	if found {
		from = shared.NextDay(latest.DepositDate)
	} else {
		earliest, ok, err := s.ledger.EarliestDate(ctx, branchID)
		if err != nil {
			return UndepositedWindow{}, err
		}
		if !ok {
			return UndepositedWindow{FromDate: today, ToDate: today}, nil
		}
		from = shared.BusinessDate(earliest)
	}
	window := UndepositedWindow{FromDate: from, ToDate: today}
	if from.After(today) {
		// Deposit already recorded for today; nothing is outstanding.
		return window, nil
	}
	total, err := s.ledger.Total(ctx, branchID, from, today)
	if err != nil {
		return UndepositedWindow{}, err
	}
	window.TotalAmountCents = total.TotalAmountCents
	window.TransactionCount = total.TransactionCount
	if withDaily {
		daily, err := s.ledger.ByDay(ctx, branchID, from, today)
		if err != nil {
			return UndepositedWindow{}, err
		}
		window.Daily = daily
	}
	return window, nil
}

// Link records a deposit and snapshots the ledger total it settles. The
// snapshot and its variance are written once and never recomputed, even if
// back-dated transactions later change the true ledger total: the deposit
// records what was known at deposit time.
func (s *Service) Link(ctx context.Context, in LinkInput) (BankDeposit, error) {
	if err := in.Validate(); err != nil {
		return BankDeposit{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	depositDate := shared.BusinessDate(in.DepositDate)
	var linked int64
	switch in.SourceType {
	case SourceDailyCash:
		total, err := s.ledger.Total(ctx, in.BranchID, depositDate, depositDate)
		if err != nil {
			return BankDeposit{}, err
		}
		linked = total.TotalAmountCents
	case SourceCumulativeCash:
		window, err := s.UndepositedWindow(ctx, in.BranchID, false)
		if err != nil {
			return BankDeposit{}, err
		}
		linked = window.TotalAmountCents
	default:
		linked = 0
	}
	dep := BankDeposit{
		BranchID:              in.BranchID,
		BankAccountID:         in.BankAccountID,
		DepositAmountCents:    in.DepositAmountCents,
		DepositDate:           depositDate,
		SourceType:            in.SourceType,
		LinkedCashAmountCents: linked,
		VarianceCents:         in.DepositAmountCents - linked,
		Status:                StatusPending,
		Notes:                 in.Notes,
		RecordedBy:            in.ActorID,
	}
	id, err := s.repo.Insert(ctx, dep)
	if err != nil {
		return BankDeposit{}, err
	}
	dep.ID = id
	s.recordAudit(ctx, in.ActorID, "DEPOSIT_LINK", id, map[string]any{
		"source_type":    in.SourceType,
		"amount_cents":   in.DepositAmountCents,
		"linked_cents":   linked,
		"variance_cents": dep.VarianceCents,
	})
	return dep, nil
}

// SetStatus verifies or flags a deposit. Only status and notes are mutable
// after creation.
func (s *Service) SetStatus(ctx context.Context, id int64, status Status, notes string, actorID int64) (BankDeposit, error) {
	switch status {
	case StatusVerified, StatusFlagged, StatusPending:
	default:
		return BankDeposit{}, fmt.Errorf("%w: unknown deposit status", ErrValidation)
	}
	if err := s.repo.SetStatus(ctx, id, status, notes); err != nil {
		return BankDeposit{}, err
	}
	dep, err := s.repo.Get(ctx, id)
	if err != nil {
		return BankDeposit{}, err
	}
	s.recordAudit(ctx, actorID, "DEPOSIT_STATUS", id, map[string]any{"status": status})
	return dep, nil
}

// Get returns a deposit by id.
func (s *Service) Get(ctx context.Context, id int64) (BankDeposit, error) {
	return s.repo.Get(ctx, id)
}

// List returns the branch's deposits, newest first.
func (s *Service) List(ctx context.Context, branchID int64, limit int) ([]BankDeposit, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, branchID, limit)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "bank_deposit",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
