package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcadia-retail/arcadia/internal/platform/db"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	Create(ctx context.Context, q Quotation) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	DeleteLines(ctx context.Context, quotationID int64) error
	Update(ctx context.Context, id int64, updates map[string]any) error
	UpdateStatus(ctx context.Context, id int64, status Status, actorID int64, reason *string) error
	Get(ctx context.Context, id int64) (Quotation, error)
	List(ctx context.Context, req ListRequest) ([]Quotation, int, error)
	GenerateNumber(ctx context.Context, branchID int64, date time.Time) (string, error)
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quotations
(doc_number, branch_id, customer_id, quote_date, valid_until, status, subtotal, tax_amount, total_amount, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		q.DocNumber, q.BranchID, q.CustomerID, q.QuoteDate, q.ValidUntil, q.Status,
		q.Subtotal, q.TaxAmount, q.TotalAmount, q.Notes, q.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quotation_lines
(quotation_id, product_id, description, quantity, unit_price, tax_percent, tax_amount, line_total, line_order)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		line.QuotationID, line.ProductID, line.Description, line.Quantity,
		line.UnitPrice, line.TaxPercent, line.TaxAmount, line.LineTotal, line.LineOrder).Scan(&id)
	return id, err
}

func (r *repository) DeleteLines(ctx context.Context, quotationID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quotation_lines WHERE quotation_id = $1`, quotationID)
	return err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := `UPDATE quotations SET updated_at = NOW()`
	var args []any
	for col, val := range updates {
		args = append(args, val)
		query += fmt.Sprintf(", %s = $%d", col, len(args))
	}
	args = append(args, id)
	query += fmt.Sprintf(" WHERE id = $%d", len(args))
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status, actorID int64, reason *string) error {
	var query string
	args := []any{id, status, actorID}
	switch status {
	case StatusApproved:
		query = `UPDATE quotations SET status=$2, approved_by=$3, approved_at=NOW(), updated_at=NOW() WHERE id=$1`
	case StatusRejected:
		args = append(args, reason)
		query = `UPDATE quotations SET status=$2, rejected_by=$3, rejected_at=NOW(), rejection_reason=$4, updated_at=NOW() WHERE id=$1`
	default:
		query = `UPDATE quotations SET status=$2, updated_at=NOW() WHERE id=$1`
		args = args[:2]
	}
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (Quotation, error) {
	var q Quotation
	err := r.db.QueryRow(ctx, `SELECT id, doc_number, branch_id, customer_id, quote_date, valid_until, status,
subtotal, tax_amount, total_amount, notes, created_by, approved_by, approved_at,
rejected_by, rejected_at, rejection_reason, created_at, updated_at
FROM quotations WHERE id = $1`, id).Scan(
		&q.ID, &q.DocNumber, &q.BranchID, &q.CustomerID, &q.QuoteDate, &q.ValidUntil, &q.Status,
		&q.Subtotal, &q.TaxAmount, &q.TotalAmount, &q.Notes, &q.CreatedBy, &q.ApprovedBy, &q.ApprovedAt,
		&q.RejectedBy, &q.RejectedAt, &q.RejectionReason, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quotation{}, ErrNotFound
		}
		return Quotation{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, quotation_id, product_id, description, quantity, unit_price,
tax_percent, tax_amount, line_total, line_order
FROM quotation_lines WHERE quotation_id = $1 ORDER BY line_order ASC, id ASC`, id)
	if err != nil {
		return Quotation{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.QuotationID, &line.ProductID, &line.Description,
			&line.Quantity, &line.UnitPrice, &line.TaxPercent, &line.TaxAmount, &line.LineTotal, &line.LineOrder); err != nil {
			return Quotation{}, err
		}
		q.Lines = append(q.Lines, line)
	}
	return q, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Quotation, int, error) {
	where := ` WHERE TRUE`
	var args []any
	if req.BranchID != nil {
		args = append(args, *req.BranchID)
		where += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if req.CustomerID != nil {
		args = append(args, *req.CustomerID)
		where += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if req.DateFrom != nil {
		args = append(args, *req.DateFrom)
		where += fmt.Sprintf(" AND quote_date >= $%d", len(args))
	}
	if req.DateTo != nil {
		args = append(args, *req.DateTo)
		where += fmt.Sprintf(" AND quote_date <= $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quotations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)
	query := `SELECT id, doc_number, branch_id, customer_id, quote_date, valid_until, status,
subtotal, tax_amount, total_amount, notes, created_by, approved_by, approved_at,
rejected_by, rejected_at, rejection_reason, created_at, updated_at
FROM quotations` + where + fmt.Sprintf(" ORDER BY quote_date DESC, id DESC LIMIT $%d", len(args))
	args = append(args, req.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Quotation
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(&q.ID, &q.DocNumber, &q.BranchID, &q.CustomerID, &q.QuoteDate, &q.ValidUntil, &q.Status,
			&q.Subtotal, &q.TaxAmount, &q.TotalAmount, &q.Notes, &q.CreatedBy, &q.ApprovedBy, &q.ApprovedAt,
			&q.RejectedBy, &q.RejectedAt, &q.RejectionReason, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

// GenerateNumber allocates the next QT number for the branch and period.
// The upsert on document_sequences keeps the counter race-free.
func (r *repository) GenerateNumber(ctx context.Context, branchID int64, date time.Time) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `INSERT INTO document_sequences (branch_id, doc_type, period, seq)
VALUES ($1, $2, $3, 1)
ON CONFLICT (branch_id, doc_type, period)
DO UPDATE SET seq = document_sequences.seq + 1
RETURNING seq`, branchID, "QT", date.Format("200601")).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QT-%s-%04d", date.Format("0601"), seq), nil
}
