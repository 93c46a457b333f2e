package variance

import (
	"errors"
	"time"

	"github.com/helix-dx/helix-erp/internal/deposits"
)

// Summary is the reconciliation rollup for one branch over one period.
// All monetary fields are integer minor units; the variance identity
// CashDeposited - CashCollected == Variance holds exactly.
type Summary struct {
	BranchID           int64                   `json:"branchId"`
	PeriodStart        time.Time               `json:"periodStart"`
	PeriodEnd          time.Time               `json:"periodEnd"`
	CashCollectedCents int64                   `json:"cashCollectedCents"`
	CashDepositedCents int64                   `json:"cashDepositedCents"`
	VarianceCents      int64                   `json:"varianceCents"`
	VariancePercentage float64                 `json:"variancePercentage"`
	VerifiedDeposits   int                     `json:"verifiedDeposits"`
	FlaggedDeposits    int                     `json:"flaggedDeposits"`
	TransactionCount   int                     `json:"transactionCount"`
	DepositCount       int                     `json:"depositCount"`
	CollectionDays     int                     `json:"collectionDays"`
	Classification     deposits.Classification `json:"classification"`
}

// PeriodInput bounds a custom reporting range.
type PeriodInput struct {
	BranchID int64
	From     time.Time
	To       time.Time
}

// Validate ensures correctness.
func (in PeriodInput) Validate() error {
	if in.BranchID == 0 {
		return errors.New("variance: branch required")
	}
	if in.From.IsZero() || in.To.IsZero() {
		return errors.New("variance: period bounds required")
	}
	if in.To.Before(in.From) {
		return errors.New("variance: period end precedes start")
	}
	return nil
}

var (
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("variance: invalid input")
)
