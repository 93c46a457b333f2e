package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for cash transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a transaction and returns its id. A non-empty reference is
// unique per branch; re-posting one fails with ErrDuplicateReference.
func (r *Repository) Insert(ctx context.Context, tx CashTransaction) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO cash_transactions
(branch_id, business_date, amount_cents, payment_method, verification_status, reference, recorded_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`,
		tx.BranchID, tx.BusinessDate, tx.AmountCents, tx.PaymentMethod, tx.VerificationStatus, tx.Reference, tx.RecordedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateReference
		}
		return 0, err
	}
	return id, nil
}

// Get fetches a transaction by id.
func (r *Repository) Get(ctx context.Context, id int64) (CashTransaction, error) {
	var tx CashTransaction
	err := r.pool.QueryRow(ctx, `SELECT id, branch_id, business_date, amount_cents, payment_method, verification_status, reference, recorded_by, created_at, updated_at
FROM cash_transactions WHERE id=$1`, id).
		Scan(&tx.ID, &tx.BranchID, &tx.BusinessDate, &tx.AmountCents, &tx.PaymentMethod, &tx.VerificationStatus, &tx.Reference, &tx.RecordedBy, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CashTransaction{}, ErrNotFound
		}
		return CashTransaction{}, err
	}
	return tx, nil
}

// SetVerification updates the verification status.
func (r *Repository) SetVerification(ctx context.Context, id int64, status VerificationStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE cash_transactions SET verification_status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SumVerified totals verified rows for the branch over [from, to] inclusive.
func (r *Repository) SumVerified(ctx context.Context, branchID int64, from, to time.Time) (RangeTotal, error) {
	var total RangeTotal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount_cents), 0), COUNT(*)
FROM cash_transactions
WHERE branch_id=$1 AND verification_status=$2 AND business_date BETWEEN $3 AND $4`,
		branchID, VerificationVerified, from, to).Scan(&total.TotalAmountCents, &total.TransactionCount)
	if err != nil {
		return RangeTotal{}, err
	}
	return total, nil
}

// EarliestBusinessDate returns the first business date with any posting for
// the branch. ok is false when the branch has no transactions at all.
func (r *Repository) EarliestBusinessDate(ctx context.Context, branchID int64) (time.Time, bool, error) {
	var day *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MIN(business_date) FROM cash_transactions WHERE branch_id=$1`, branchID).Scan(&day)
	if err != nil {
		return time.Time{}, false, err
	}
	if day == nil {
		return time.Time{}, false, nil
	}
	return *day, true, nil
}

// SumVerifiedByDay groups verified rows per business date, ascending.
func (r *Repository) SumVerifiedByDay(ctx context.Context, branchID int64, from, to time.Time) ([]DayTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT business_date, COALESCE(SUM(amount_cents), 0), COUNT(*)
FROM cash_transactions
WHERE branch_id=$1 AND verification_status=$2 AND business_date BETWEEN $3 AND $4
GROUP BY business_date
ORDER BY business_date ASC`,
		branchID, VerificationVerified, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var days []DayTotal
	for rows.Next() {
		var day DayTotal
		if err := rows.Scan(&day.BusinessDate, &day.TotalAmountCents, &day.TransactionCount); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}
