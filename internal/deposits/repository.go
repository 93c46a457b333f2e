package deposits

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for bank deposits.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const depositColumns = `id, branch_id, bank_account_id, deposit_amount_cents, deposit_date, source_type,
linked_cash_amount_cents, variance_cents, status, notes, recorded_by, created_at, updated_at`

// Insert stores a deposit and returns its id. The linked amount and
// variance are written once here and never updated.
func (r *Repository) Insert(ctx context.Context, dep BankDeposit) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO bank_deposits
(branch_id, bank_account_id, deposit_amount_cents, deposit_date, source_type, linked_cash_amount_cents, variance_cents, status, notes, recorded_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()) RETURNING id`,
		dep.BranchID, dep.BankAccountID, dep.DepositAmountCents, dep.DepositDate, dep.SourceType,
		dep.LinkedCashAmountCents, dep.VarianceCents, dep.Status, dep.Notes, dep.RecordedBy).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get fetches a deposit by id.
func (r *Repository) Get(ctx context.Context, id int64) (BankDeposit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+depositColumns+` FROM bank_deposits WHERE id=$1`, id)
	dep, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankDeposit{}, ErrNotFound
		}
		return BankDeposit{}, err
	}
	return dep, nil
}

// List returns the branch's deposits, newest first.
func (r *Repository) List(ctx context.Context, branchID int64, limit int) ([]BankDeposit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+depositColumns+` FROM bank_deposits
WHERE ($1 = 0 OR branch_id = $1)
ORDER BY deposit_date DESC, id DESC
LIMIT $2`, branchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BankDeposit
	for rows.Next() {
		dep, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

// LatestForBranch returns the most recent deposit by deposit_date, ties
// broken by id descending.
func (r *Repository) LatestForBranch(ctx context.Context, branchID int64) (BankDeposit, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+depositColumns+` FROM bank_deposits
WHERE branch_id=$1
ORDER BY deposit_date DESC, id DESC
LIMIT 1`, branchID)
	dep, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankDeposit{}, false, nil
		}
		return BankDeposit{}, false, err
	}
	return dep, true, nil
}

// SetStatus updates status and notes, the only mutable fields.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status, notes string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE bank_deposits SET status=$2, notes=COALESCE(NULLIF($3, ''), notes), updated_at=NOW() WHERE id=$1`,
		id, status, notes)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SumDeposited totals deposit amounts with deposit_date in [from, to].
func (r *Repository) SumDeposited(ctx context.Context, branchID int64, from, to time.Time) (int64, int, error) {
	var total int64
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(deposit_amount_cents), 0), COUNT(*)
FROM bank_deposits WHERE branch_id=$1 AND deposit_date BETWEEN $2 AND $3`,
		branchID, from, to).Scan(&total, &count)
	if err != nil {
		return 0, 0, err
	}
	return total, count, nil
}

// CountByStatus counts deposits in the period with the given status.
func (r *Repository) CountByStatus(ctx context.Context, branchID int64, from, to time.Time, status Status) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bank_deposits
WHERE branch_id=$1 AND deposit_date BETWEEN $2 AND $3 AND status=$4`,
		branchID, from, to, status).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row rowScanner) (BankDeposit, error) {
	var dep BankDeposit
	if err := row.Scan(&dep.ID, &dep.BranchID, &dep.BankAccountID, &dep.DepositAmountCents,
		&dep.DepositDate, &dep.SourceType, &dep.LinkedCashAmountCents, &dep.VarianceCents,
		&dep.Status, &dep.Notes, &dep.RecordedBy, &dep.CreatedAt, &dep.UpdatedAt); err != nil {
		return BankDeposit{}, err
	}
	return dep, nil
}
