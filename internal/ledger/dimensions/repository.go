package dimensions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcadia-retail/arcadia/internal/ledger"
)

type Repository interface {
	CreateDimension(ctx context.Context, d Dimension) (Dimension, error)
	ListDimensions(ctx context.Context) ([]Dimension, error)
	CreateValue(ctx context.Context, v Value) (Value, error)
	ListValues(ctx context.Context, dimensionID int64) ([]Value, error)
	RequirementsForAccount(ctx context.Context, accountID int64) ([]Requirement, error)
	InsertRequirement(ctx context.Context, req Requirement) (Requirement, error)
	CreateTemplate(ctx context.Context, tpl Template) (Template, error)
	GetTemplate(ctx context.Context, id int64) (Template, error)
	SelectAccounts(ctx context.Context, sel AccountSelector) ([]ledger.Account, error)
	Balances(ctx context.Context, filter BalanceFilter) ([]Balance, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) CreateDimension(ctx context.Context, d Dimension) (Dimension, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO dimensions (code, name, is_active)
VALUES ($1,$2,TRUE) RETURNING id, is_active, created_at`, d.Code, d.Name).
		Scan(&d.ID, &d.IsActive, &d.CreatedAt)
	return d, err
}

func (r *repository) ListDimensions(ctx context.Context) ([]Dimension, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, is_active, created_at FROM dimensions ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Dimension
	for rows.Next() {
		var d Dimension
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.IsActive, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) CreateValue(ctx context.Context, v Value) (Value, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO dimension_values (dimension_id, code, name)
VALUES ($1,$2,$3) RETURNING id`, v.DimensionID, v.Code, v.Name).Scan(&v.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Value{}, ErrDimensionNotFound
		}
		return Value{}, err
	}
	return v, nil
}

func (r *repository) ListValues(ctx context.Context, dimensionID int64) ([]Value, error) {
	rows, err := r.db.Query(ctx, `SELECT id, dimension_id, code, name FROM dimension_values
WHERE dimension_id = $1 ORDER BY code ASC`, dimensionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Value
	for rows.Next() {
		var v Value
		if err := rows.Scan(&v.ID, &v.DimensionID, &v.Code, &v.Name); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repository) RequirementsForAccount(ctx context.Context, accountID int64) ([]Requirement, error) {
	rows, err := r.db.Query(ctx, `SELECT id, account_id, dimension_id, priority, default_value_id, created_at
FROM account_dimension_requirements WHERE account_id = $1 ORDER BY priority ASC, id ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Requirement
	for rows.Next() {
		var req Requirement
		if err := rows.Scan(&req.ID, &req.AccountID, &req.DimensionID, &req.Priority, &req.DefaultValueID, &req.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *repository) InsertRequirement(ctx context.Context, req Requirement) (Requirement, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO account_dimension_requirements (account_id, dimension_id, priority, default_value_id)
VALUES ($1,$2,$3,$4) RETURNING id, created_at`, req.AccountID, req.DimensionID, req.Priority, req.DefaultValueID).
		Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Requirement{}, ErrRequirementExists
		}
		return Requirement{}, err
	}
	return req, nil
}

func (r *repository) CreateTemplate(ctx context.Context, tpl Template) (Template, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Template{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `INSERT INTO dimension_templates (name) VALUES ($1) RETURNING id, created_at`, tpl.Name).
		Scan(&tpl.ID, &tpl.CreatedAt); err != nil {
		return Template{}, err
	}
	for _, item := range tpl.Items {
		if _, err := tx.Exec(ctx, `INSERT INTO dimension_template_items (template_id, dimension_id, priority, default_value_id)
VALUES ($1,$2,$3,$4)`, tpl.ID, item.DimensionID, item.Priority, item.DefaultValueID); err != nil {
			return Template{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

func (r *repository) GetTemplate(ctx context.Context, id int64) (Template, error) {
	var tpl Template
	err := r.db.QueryRow(ctx, `SELECT id, name, created_at FROM dimension_templates WHERE id = $1`, id).
		Scan(&tpl.ID, &tpl.Name, &tpl.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT dimension_id, priority, default_value_id
FROM dimension_template_items WHERE template_id = $1 ORDER BY priority ASC`, id)
	if err != nil {
		return Template{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item TemplateItem
		if err := rows.Scan(&item.DimensionID, &item.Priority, &item.DefaultValueID); err != nil {
			return Template{}, err
		}
		tpl.Items = append(tpl.Items, item)
	}
	return tpl, rows.Err()
}

func (r *repository) SelectAccounts(ctx context.Context, sel AccountSelector) ([]ledger.Account, error) {
	query := `SELECT id, code, name, type, category, is_active FROM accounts WHERE is_active`
	var args []any
	argPos := 1
	if len(sel.AccountIDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", argPos)
		args = append(args, sel.AccountIDs)
		argPos++
	}
	if sel.AccountType != "" {
		query += fmt.Sprintf(" AND type = $%d", argPos)
		args = append(args, sel.AccountType)
		argPos++
	}
	if sel.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argPos)
		args = append(args, sel.Category)
		argPos++
	}
	if sel.CodePattern != "" {
		query += fmt.Sprintf(" AND code LIKE $%d", argPos)
		args = append(args, sel.CodePattern)
		argPos++
	}
	query += " ORDER BY code ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Account
	for rows.Next() {
		var a ledger.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.IsActive); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Balances(ctx context.Context, filter BalanceFilter) ([]Balance, error) {
	query := `SELECT jld.dimension_id, jld.value_id, dv.code,
       COALESCE(SUM(jl.debit), 0), COALESCE(SUM(jl.credit), 0)
FROM journal_line_dimensions jld
JOIN journal_lines jl ON jl.id = jld.line_id
JOIN journal_entries je ON je.id = jl.entry_id AND je.status = 'POSTED'
JOIN dimension_values dv ON dv.id = jld.value_id
WHERE jld.dimension_id = $1`
	args := []any{filter.DimensionID}
	argPos := 2
	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND jl.account_id = $%d", argPos)
		args = append(args, *filter.AccountID)
		argPos++
	}
	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND je.date >= $%d", argPos)
		args = append(args, *filter.DateFrom)
		argPos++
	}
	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND je.date <= $%d", argPos)
		args = append(args, *filter.DateTo)
		argPos++
	}
	query += " GROUP BY jld.dimension_id, jld.value_id, dv.code ORDER BY dv.code ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.DimensionID, &b.ValueID, &b.ValueCode, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		b.Net = b.Debit.Sub(b.Credit)
		out = append(out, b)
	}
	return out, rows.Err()
}
