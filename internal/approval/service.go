package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helix-dx/helix-erp/internal/policy"
	"github.com/helix-dx/helix-erp/internal/shared"
)

// Decision captures the atomic write applied on approve/reject. The
// repository applies it only when the record is still PENDING_APPROVAL.
type Decision struct {
	Status   RecordStatus
	Locked   bool
	ActorID  int64
	Comments string
	At       time.Time
}

// ListFilter narrows record listings.
type ListFilter struct {
	BranchID int64
	Status   RecordStatus
	Kind     RecordKind
	Limit    int
}

// RepositoryPort describes persistence operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, rec Record) (int64, error)
	Get(ctx context.Context, id int64) (Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	// Decide performs a conditional update guarded by the pending status.
	// It reports false without error when no pending row matched.
	Decide(ctx context.Context, id int64, decision Decision) (bool, error)
	// UpdateEditable rewrites mutable fields while the record is still
	// DRAFT or PENDING_APPROVAL; reports false when no editable row matched.
	UpdateEditable(ctx context.Context, id int64, in EditInput, requiredLevel policy.Level) (bool, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// HistoryPort persists and lists the approval trail. Satisfied by
// *shared.ApprovalRecorder.
type HistoryPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	EnsureSubmit(ctx context.Context, module string, ref uuid.UUID, actorID int64, note string, at time.Time) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

const historyModule = "FIN_RECORD"

// Service governs the approval state machine for financial records.
type Service struct {
	repo    RepositoryPort
	history HistoryPort
	audit   AuditPort
	now     func() time.Time
}

// NewService constructs the approval service.
func NewService(repo RepositoryPort, history HistoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, history: history, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Submit creates a record and immediately routes it for approval. The
// required level is derived from the amount once, here, and stamped.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	now := s.now()
	rec := Record{
		Kind:          in.Kind,
		BranchID:      in.BranchID,
		TenantID:      in.TenantID,
		AmountCents:   in.AmountCents,
		Breakdown:     in.Breakdown,
		Description:   in.Description,
		Status:        StatusPending,
		RequiredLevel: policy.RequiredLevel(in.AmountCents),
		SubmittedBy:   in.ActorID,
		SubmittedAt:   now,
	}
	id, err := s.repo.Create(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	rec.ID = id
	if s.history != nil {
		_ = s.history.EnsureSubmit(ctx, historyModule, shared.ApprovalRef(historyModule, id), in.ActorID,
			fmt.Sprintf("%s submitted for level %d", rec.Kind, rec.RequiredLevel), now)
	}
	s.recordAudit(ctx, in.ActorID, "RECORD_SUBMIT", id, map[string]any{
		"kind": rec.Kind, "amount_cents": rec.AmountCents, "required_level": rec.RequiredLevel,
	})
	return rec, nil
}

// Approve transitions PENDING_APPROVAL to APPROVED and locks the record in
// the same conditional update. A losing racer observes ErrAlreadyDecided.
func (s *Service) Approve(ctx context.Context, id int64, actorID int64, actorLevel policy.Level, comments string) (Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Status.Terminal() {
		return Record{}, ErrAlreadyDecided
	}
	if rec.Status != StatusPending {
		return Record{}, ErrInvalidState
	}
	if !actorLevel.Authorises(rec.RequiredLevel) {
		return Record{}, ErrInsufficientAuthority
	}
	now := s.now()
	applied, err := s.repo.Decide(ctx, id, Decision{
		Status:   StatusApproved,
		Locked:   true,
		ActorID:  actorID,
		Comments: comments,
		At:       now,
	})
	if err != nil {
		return Record{}, err
	}
	if !applied {
		return Record{}, ErrAlreadyDecided
	}
	rec.Status = StatusApproved
	rec.IsLocked = true
	rec.DecidedBy = &actorID
	rec.DecidedAt = &now
	rec.DecisionComments = comments
	if s.history != nil {
		_ = s.history.Record(ctx, shared.ApprovalLog{
			Module: historyModule, RefID: shared.ApprovalRef(historyModule, id),
			ActorID: actorID, Action: shared.ApprovalApprove, Note: comments, At: now,
		})
	}
	s.recordAudit(ctx, actorID, "RECORD_APPROVE", id, map[string]any{"actor_level": actorLevel})
	return rec, nil
}

// Reject transitions PENDING_APPROVAL to REJECTED. Rejected records are
// terminal and never reopened; resubmission creates a new record.
func (s *Service) Reject(ctx context.Context, id int64, actorID int64, reason string) (Record, error) {
	if !RejectReasonValid(reason) {
		return Record{}, fmt.Errorf("%w: rejection reason required", ErrValidation)
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Status.Terminal() {
		return Record{}, ErrAlreadyDecided
	}
	if rec.Status != StatusPending {
		return Record{}, ErrInvalidState
	}
	now := s.now()
	applied, err := s.repo.Decide(ctx, id, Decision{
		Status:   StatusRejected,
		Locked:   false,
		ActorID:  actorID,
		Comments: reason,
		At:       now,
	})
	if err != nil {
		return Record{}, err
	}
	if !applied {
		return Record{}, ErrAlreadyDecided
	}
	rec.Status = StatusRejected
	rec.DecidedBy = &actorID
	rec.DecidedAt = &now
	rec.DecisionComments = reason
	if s.history != nil {
		_ = s.history.Record(ctx, shared.ApprovalLog{
			Module: historyModule, RefID: shared.ApprovalRef(historyModule, id),
			ActorID: actorID, Action: shared.ApprovalReject, Note: reason, At: now,
		})
	}
	s.recordAudit(ctx, actorID, "RECORD_REJECT", id, map[string]any{"reason": reason})
	return rec, nil
}

// Edit rewrites the mutable fields of a DRAFT or PENDING_APPROVAL record.
// Approved records fail with ErrRecordLocked, rejected with ErrRecordTerminal.
// The required level is restamped so it stays derived from the amount.
func (s *Service) Edit(ctx context.Context, id int64, in EditInput) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	switch rec.Status {
	case StatusApproved:
		return Record{}, ErrRecordLocked
	case StatusRejected:
		return Record{}, ErrRecordTerminal
	}
	level := policy.RequiredLevel(in.AmountCents)
	applied, err := s.repo.UpdateEditable(ctx, id, in, level)
	if err != nil {
		return Record{}, err
	}
	if !applied {
		// Lost a race against a concurrent decision.
		current, gerr := s.repo.Get(ctx, id)
		if gerr != nil {
			return Record{}, gerr
		}
		if current.Status == StatusApproved {
			return Record{}, ErrRecordLocked
		}
		return Record{}, ErrRecordTerminal
	}
	rec.AmountCents = in.AmountCents
	rec.Breakdown = in.Breakdown
	rec.Description = in.Description
	rec.RequiredLevel = level
	s.recordAudit(ctx, in.ActorID, "RECORD_EDIT", id, map[string]any{"amount_cents": in.AmountCents})
	return rec, nil
}

// Get returns a record by id.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	return s.repo.Get(ctx, id)
}

// History lists the approval trail for a record.
func (s *Service) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(ctx, historyModule, shared.ApprovalRef(historyModule, id))
}

// List returns records matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "approval_record",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
