package ledger

import (
	"errors"
	"time"
)

// PaymentMethod enumerates supported collection channels.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodPOS      PaymentMethod = "POS"
	MethodTransfer PaymentMethod = "TRANSFER"
)

// VerificationStatus tracks manual review of a posting. Only VERIFIED
// transactions feed the aggregator; flagged and pending rows stay out
// until reclassified.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationFlagged  VerificationStatus = "FLAGGED"
)

// CashTransaction is a single collection event. BusinessDate is the
// trading day the money belongs to, independent of created_at.
type CashTransaction struct {
	ID                 int64
	BranchID           int64
	BusinessDate       time.Time
	AmountCents        int64
	PaymentMethod      PaymentMethod
	VerificationStatus VerificationStatus
	Reference          string
	RecordedBy         int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RangeTotal aggregates verified cash over a date range.
type RangeTotal struct {
	TotalAmountCents int64 `json:"totalAmountCents"`
	TransactionCount int   `json:"transactionCount"`
}

// DayTotal aggregates verified cash for one business date.
type DayTotal struct {
	BusinessDate     time.Time `json:"businessDate"`
	TotalAmountCents int64     `json:"totalAmountCents"`
	TransactionCount int       `json:"transactionCount"`
}

// RecordInput captures a new posting.
type RecordInput struct {
	BranchID      int64
	BusinessDate  time.Time
	AmountCents   int64
	PaymentMethod PaymentMethod
	Reference     string
	ActorID       int64
}

// Validate ensures correctness.
func (in RecordInput) Validate() error {
	if in.BranchID == 0 {
		return errors.New("ledger: branch required")
	}
	if in.ActorID == 0 {
		return errors.New("ledger: actor required")
	}
	if in.AmountCents <= 0 {
		return errors.New("ledger: amount must be positive")
	}
	if in.BusinessDate.IsZero() {
		return errors.New("ledger: business date required")
	}
	switch in.PaymentMethod {
	case MethodCash, MethodPOS, MethodTransfer:
	default:
		return errors.New("ledger: unknown payment method")
	}
	return nil
}

var (
	// ErrNotFound indicates transaction missing.
	ErrNotFound = errors.New("ledger: transaction not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("ledger: invalid input")
	// ErrInvalidRange occurs when from is after to.
	ErrInvalidRange = errors.New("ledger: invalid date range")
	// ErrDuplicateReference occurs when a branch re-posts a reference.
	ErrDuplicateReference = errors.New("ledger: duplicate transaction reference")
)
