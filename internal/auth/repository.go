package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcadia-retail/arcadia/internal/shared"
)

// Repository loads users and their granted permissions.
type Repository interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	PermissionsForUser(ctx context.Context, userID int64) ([]string, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return r.getUser(ctx, `SELECT id, username, full_name, role, branch_id, password_hash, is_active, created_at, updated_at
FROM users WHERE username = $1`, username)
}

func (r *repository) GetUserByID(ctx context.Context, id int64) (User, error) {
	return r.getUser(ctx, `SELECT id, username, full_name, role, branch_id, password_hash, is_active, created_at, updated_at
FROM users WHERE id = $1`, id)
}

func (r *repository) getUser(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := r.db.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &u.BranchID, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *repository) PermissionsForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT p.name
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN users u ON u.role = rp.role
WHERE u.id = $1
ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}
