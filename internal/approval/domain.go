package approval

import (
	"errors"
	"strings"
	"time"

	"github.com/helix-dx/helix-erp/internal/policy"
)

// RecordKind distinguishes the financial documents routed through approval.
type RecordKind string

const (
	KindPurchaseOrder RecordKind = "PURCHASE_ORDER"
	KindDailySummary  RecordKind = "DAILY_SUMMARY"
)

// RecordStatus enumerates the approval lifecycle.
type RecordStatus string

const (
	StatusDraft    RecordStatus = "DRAFT"
	StatusPending  RecordStatus = "PENDING_APPROVAL"
	StatusApproved RecordStatus = "APPROVED"
	StatusRejected RecordStatus = "REJECTED"
)

// Terminal reports whether no further transition may leave the status.
func (s RecordStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Record is a financial document subject to tiered approval. Once approved
// the record is locked: amount, breakdown and metadata become write-once.
type Record struct {
	ID               int64
	Kind             RecordKind
	BranchID         int64
	TenantID         int64
	AmountCents      int64
	Breakdown        map[string]int64
	Description      string
	Status           RecordStatus
	RequiredLevel    policy.Level
	SubmittedBy      int64
	SubmittedAt      time.Time
	DecidedBy        *int64
	DecidedAt        *time.Time
	DecisionComments string
	IsLocked         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SubmitInput captures creation payload. Submission stamps the required
// approval level at that instant; later threshold changes never alter a
// pending record.
type SubmitInput struct {
	Kind        RecordKind
	BranchID    int64
	TenantID    int64
	AmountCents int64
	Breakdown   map[string]int64
	Description string
	ActorID     int64
}

// Validate ensures correctness of a submission.
func (in SubmitInput) Validate() error {
	if in.Kind != KindPurchaseOrder && in.Kind != KindDailySummary {
		return errors.New("approval: unknown record kind")
	}
	if in.BranchID == 0 {
		return errors.New("approval: branch required")
	}
	if in.TenantID == 0 {
		return errors.New("approval: tenant required")
	}
	if in.ActorID == 0 {
		return errors.New("approval: actor required")
	}
	if in.AmountCents <= 0 {
		return errors.New("approval: amount must be positive")
	}
	if len(in.Breakdown) > 0 {
		var sum int64
		for _, v := range in.Breakdown {
			sum += v
		}
		if sum != in.AmountCents {
			return errors.New("approval: breakdown does not sum to amount")
		}
	}
	return nil
}

// EditInput carries the mutable fields of a draft or pending record.
type EditInput struct {
	AmountCents int64
	Breakdown   map[string]int64
	Description string
	ActorID     int64
}

// Validate ensures correctness of an edit.
func (in EditInput) Validate() error {
	if in.ActorID == 0 {
		return errors.New("approval: actor required")
	}
	if in.AmountCents <= 0 {
		return errors.New("approval: amount must be positive")
	}
	if len(in.Breakdown) > 0 {
		var sum int64
		for _, v := range in.Breakdown {
			sum += v
		}
		if sum != in.AmountCents {
			return errors.New("approval: breakdown does not sum to amount")
		}
	}
	return nil
}

// RejectReasonValid reports whether a rejection reason is acceptable.
func RejectReasonValid(reason string) bool {
	return strings.TrimSpace(reason) != ""
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("approval: record not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("approval: invalid input")
	// ErrInvalidState occurs when action violates the status workflow.
	ErrInvalidState = errors.New("approval: invalid state transition")
	// ErrInsufficientAuthority occurs when the actor's tier is below the
	// level the record requires.
	ErrInsufficientAuthority = errors.New("approval: insufficient authority")
	// ErrAlreadyDecided occurs when a decision races a prior decision.
	ErrAlreadyDecided = errors.New("approval: record already decided")
	// ErrRecordLocked occurs on mutation attempts against approved records.
	ErrRecordLocked = errors.New("approval: record locked")
	// ErrRecordTerminal occurs on mutation attempts against rejected records.
	ErrRecordTerminal = errors.New("approval: record terminal")
)
