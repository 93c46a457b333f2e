package approval

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helix-dx/helix-erp/internal/policy"
)

// Repository provides PostgreSQL backed persistence for approval records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, kind, branch_id, tenant_id, amount_cents, breakdown, description, status,
required_level, submitted_by, submitted_at, decided_by, decided_at, decision_comments, is_locked,
created_at, updated_at`

// Create inserts a record and returns its id.
func (r *Repository) Create(ctx context.Context, rec Record) (int64, error) {
	breakdown, err := json.Marshal(rec.Breakdown)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx, `INSERT INTO approval_records
(kind, branch_id, tenant_id, amount_cents, breakdown, description, status, required_level, submitted_by, submitted_at, is_locked, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, NOW(), NOW()) RETURNING id`,
		rec.Kind, rec.BranchID, rec.TenantID, rec.AmountCents, breakdown, rec.Description,
		rec.Status, int(rec.RequiredLevel), rec.SubmittedBy, rec.SubmittedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get fetches a record by id.
func (r *Repository) Get(ctx context.Context, id int64) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM approval_records WHERE id=$1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// List returns records matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+` FROM approval_records
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = '' OR status = $2)
  AND ($3 = '' OR kind = $3)
ORDER BY submitted_at DESC, id DESC
LIMIT $4`, filter.BranchID, string(filter.Status), string(filter.Kind), filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Decide applies the decision only while the record is still pending. The
// status guard in the WHERE clause is what makes concurrent approvals safe:
// the loser matches zero rows.
func (r *Repository) Decide(ctx context.Context, id int64, decision Decision) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE approval_records
SET status=$2, is_locked=$3, decided_by=$4, decided_at=$5, decision_comments=$6, updated_at=NOW()
WHERE id=$1 AND status=$7`,
		id, decision.Status, decision.Locked, decision.ActorID, decision.At, decision.Comments, StatusPending)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// UpdateEditable rewrites mutable fields while the record is still editable.
func (r *Repository) UpdateEditable(ctx context.Context, id int64, in EditInput, requiredLevel policy.Level) (bool, error) {
	breakdown, err := json.Marshal(in.Breakdown)
	if err != nil {
		return false, err
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE approval_records
SET amount_cents=$2, breakdown=$3, description=$4, required_level=$5, updated_at=NOW()
WHERE id=$1 AND status IN ($6, $7)`,
		id, in.AmountCents, breakdown, in.Description, int(requiredLevel), StatusDraft, StatusPending)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var breakdown []byte
	var level int
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.BranchID, &rec.TenantID, &rec.AmountCents,
		&breakdown, &rec.Description, &rec.Status, &level, &rec.SubmittedBy, &rec.SubmittedAt,
		&rec.DecidedBy, &rec.DecidedAt, &rec.DecisionComments, &rec.IsLocked,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	rec.RequiredLevel = policy.Level(level)
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &rec.Breakdown); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}
