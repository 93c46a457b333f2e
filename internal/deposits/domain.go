package deposits

import (
	"errors"
	"time"

	"github.com/helix-dx/helix-erp/internal/ledger"
)

// SourceType describes which cash window a deposit settles.
type SourceType string

const (
	// SourceDailyCash settles a single trading day's verified cash.
	SourceDailyCash SourceType = "DAILY_CASH"
	// SourceCumulativeCash settles everything collected since the last deposit.
	SourceCumulativeCash SourceType = "CUMULATIVE_CASH"
	// SourceInvoicePayments is not tied to the verified-cash ledger.
	SourceInvoicePayments SourceType = "INVOICE_PAYMENTS"
	// SourceOther covers miscellaneous deposits.
	SourceOther SourceType = "OTHER"
)

// Status tracks reviewer verification of a deposit.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusFlagged  Status = "FLAGGED"
)

// Classification buckets a signed variance.
type Classification string

const (
	ClassBalanced Classification = "BALANCED"
	ClassExcess   Classification = "EXCESS"
	ClassShortage Classification = "SHORTAGE"
)

// Classify maps a signed variance to its bucket. Excess and shortage are
// reportable business states, not failures.
func Classify(varianceCents int64) Classification {
	switch {
	case varianceCents == 0:
		return ClassBalanced
	case varianceCents > 0:
		return ClassExcess
	default:
		return ClassShortage
	}
}

// BankDeposit records money handed to the bank. LinkedCashAmountCents is a
// snapshot of the ledger taken at linking time and is never recomputed, so
// the variance stays auditable even when transactions are backfilled later.
type BankDeposit struct {
	ID                    int64
	BranchID              int64
	BankAccountID         int64
	DepositAmountCents    int64
	DepositDate           time.Time
	SourceType            SourceType
	LinkedCashAmountCents int64
	VarianceCents         int64
	Status                Status
	Notes                 string
	RecordedBy            int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Classification buckets the persisted variance.
func (d BankDeposit) Classification() Classification {
	return Classify(d.VarianceCents)
}

// UndepositedWindow is the open range of verified cash not yet matched to
// a deposit. Derived on read, never stored.
type UndepositedWindow struct {
	FromDate         time.Time         `json:"fromDate"`
	ToDate           time.Time         `json:"toDate"`
	TotalAmountCents int64             `json:"totalAmountCents"`
	TransactionCount int               `json:"transactionCount"`
	Daily            []ledger.DayTotal `json:"daily,omitempty"`
}

// LinkInput captures a new deposit.
type LinkInput struct {
	BranchID           int64
	BankAccountID      int64
	DepositAmountCents int64
	DepositDate        time.Time
	SourceType         SourceType
	Notes              string
	ActorID            int64
}

// Validate ensures correctness.
func (in LinkInput) Validate() error {
	if in.BranchID == 0 {
		return errors.New("deposits: branch required")
	}
	if in.BankAccountID == 0 {
		return errors.New("deposits: bank account required")
	}
	if in.ActorID == 0 {
		return errors.New("deposits: actor required")
	}
	if in.DepositAmountCents <= 0 {
		return errors.New("deposits: amount must be positive")
	}
	if in.DepositDate.IsZero() {
		return errors.New("deposits: deposit date required")
	}
	switch in.SourceType {
	case SourceDailyCash, SourceCumulativeCash, SourceInvoicePayments, SourceOther:
	default:
		return errors.New("deposits: unknown source type")
	}
	return nil
}

var (
	// ErrNotFound indicates deposit missing.
	ErrNotFound = errors.New("deposits: deposit not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("deposits: invalid input")
)
