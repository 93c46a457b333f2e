package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/helix-dx/helix-erp/internal/shared"
)

// RepositoryPort describes persistence operations used by Service.
type RepositoryPort interface {
	Insert(ctx context.Context, tx CashTransaction) (int64, error)
	Get(ctx context.Context, id int64) (CashTransaction, error)
	SetVerification(ctx context.Context, id int64, status VerificationStatus) error
	SumVerified(ctx context.Context, branchID int64, from, to time.Time) (RangeTotal, error)
	SumVerifiedByDay(ctx context.Context, branchID int64, from, to time.Time) ([]DayTotal, error)
	EarliestBusinessDate(ctx context.Context, branchID int64) (time.Time, bool, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service aggregates verified cash collections per business date. Totals
// are pure reads over stored rows: identical inputs with no intervening
// writes yield identical output.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Record persists a posting in PENDING verification state.
func (s *Service) Record(ctx context.Context, in RecordInput) (CashTransaction, error) {
	if err := in.Validate(); err != nil {
		return CashTransaction{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	tx := CashTransaction{
		BranchID:           in.BranchID,
		BusinessDate:       shared.BusinessDate(in.BusinessDate),
		AmountCents:        in.AmountCents,
		PaymentMethod:      in.PaymentMethod,
		VerificationStatus: VerificationPending,
		Reference:          in.Reference,
		RecordedBy:         in.ActorID,
	}
	id, err := s.repo.Insert(ctx, tx)
	if err != nil {
		return CashTransaction{}, err
	}
	tx.ID = id
	s.recordAudit(ctx, in.ActorID, "CASH_TX_RECORD", id, map[string]any{
		"amount_cents": in.AmountCents, "method": in.PaymentMethod,
	})
	return tx, nil
}

// SetVerification reclassifies a posting. Moving a row out of VERIFIED
// changes future aggregates but never rewrites deposit snapshots.
func (s *Service) SetVerification(ctx context.Context, id int64, status VerificationStatus, actorID int64) error {
	switch status {
	case VerificationVerified, VerificationFlagged, VerificationPending:
	default:
		return fmt.Errorf("%w: unknown verification status", ErrValidation)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetVerification(ctx, id, status); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "CASH_TX_VERIFY", id, map[string]any{"status": status})
	return nil
}

// Total sums verified transactions over [from, to] inclusive.
func (s *Service) Total(ctx context.Context, branchID int64, from, to time.Time) (RangeTotal, error) {
	from, to = shared.BusinessDate(from), shared.BusinessDate(to)
	if from.After(to) {
		return RangeTotal{}, ErrInvalidRange
	}
	return s.repo.SumVerified(ctx, branchID, from, to)
}

// EarliestDate returns the branch's first recorded business date.
func (s *Service) EarliestDate(ctx context.Context, branchID int64) (time.Time, bool, error) {
	return s.repo.EarliestBusinessDate(ctx, branchID)
}

// ByDay groups verified transactions per business date, ascending.
func (s *Service) ByDay(ctx context.Context, branchID int64, from, to time.Time) ([]DayTotal, error) {
	from, to = shared.BusinessDate(from), shared.BusinessDate(to)
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	return s.repo.SumVerifiedByDay(ctx, branchID, from, to)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "cash_transaction",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
