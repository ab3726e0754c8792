package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Get(ctx context.Context, key string, branchID *int64) (Setting, error)
	List(ctx context.Context, branchID *int64) ([]Setting, error)
	Upsert(ctx context.Context, s Setting) (Setting, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, key string, branchID *int64) (Setting, error) {
	var s Setting
	err := r.db.QueryRow(ctx, `SELECT key, value, branch_id, updated_by, updated_at
FROM app_settings WHERE key = $1 AND branch_id IS NOT DISTINCT FROM $2`, key, branchID).
		Scan(&s.Key, &s.Value, &s.BranchID, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, ErrSettingNotFound
		}
		return Setting{}, err
	}
	return s, nil
}

func (r *repository) List(ctx context.Context, branchID *int64) ([]Setting, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value, branch_id, updated_by, updated_at
FROM app_settings WHERE branch_id IS NOT DISTINCT FROM $1 ORDER BY key ASC`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.BranchID, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, s Setting) (Setting, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO app_settings (key, value, branch_id, updated_by, updated_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (key, branch_id) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
RETURNING updated_at`, s.Key, s.Value, s.BranchID, s.UpdatedBy).Scan(&s.UpdatedAt)
	if err != nil {
		return Setting{}, err
	}
	return s, nil
}
