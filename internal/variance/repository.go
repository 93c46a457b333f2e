package variance

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository answers the branch sweep query for warmup runs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ActiveBranchIDs lists every branch that has recorded cash activity.
func (r *Repository) ActiveBranchIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT branch_id FROM cash_transactions ORDER BY branch_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
