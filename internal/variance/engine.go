package variance

import (
	"math"
	"time"

	"github.com/helix-dx/helix-erp/internal/deposits"
)

// PeriodTotals carries the raw aggregates a summary is computed from.
type PeriodTotals struct {
	CashCollectedCents int64
	TransactionCount   int
	CollectionDays     int
	CashDepositedCents int64
	DepositCount       int
	VerifiedDeposits   int
	FlaggedDeposits    int
}

// ComputeSummary derives the reconciliation summary from period totals.
// Variance is deposited minus collected in exact integer arithmetic; the
// percentage is reported as 0 when nothing was collected.
func ComputeSummary(branchID int64, from, to time.Time, totals PeriodTotals) Summary {
	variance := totals.CashDepositedCents - totals.CashCollectedCents
	var pct float64
	if totals.CashCollectedCents != 0 {
		pct = round2(float64(variance) / float64(totals.CashCollectedCents) * 100)
	}
	return Summary{
		BranchID:           branchID,
		PeriodStart:        from,
		PeriodEnd:          to,
		CashCollectedCents: totals.CashCollectedCents,
		CashDepositedCents: totals.CashDepositedCents,
		VarianceCents:      variance,
		VariancePercentage: pct,
		VerifiedDeposits:   totals.VerifiedDeposits,
		FlaggedDeposits:    totals.FlaggedDeposits,
		TransactionCount:   totals.TransactionCount,
		DepositCount:       totals.DepositCount,
		CollectionDays:     totals.CollectionDays,
		Classification:     deposits.Classify(variance),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
