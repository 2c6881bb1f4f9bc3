package postgres

import (
	"context"

	"cycle-backend/internal/repository"
)

type policyRepository struct {
	db DBTX
}

func NewPolicyRepository(db DBTX) repository.PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM admin_policies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, rows.Err()
}

func (r *policyRepository) Upsert(ctx context.Context, key, value string) error {
	query := `INSERT INTO admin_policies (key, value, updated_at) VALUES ($1, $2, now())
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	_, err := r.db.ExecContext(ctx, query, key, value)
	return err
}
