package pos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository interface {
	OpenSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id int64) (Session, error)
	CloseSession(ctx context.Context, id int64) (Session, error)
	ListSessions(ctx context.Context, req ListSessionsRequest) ([]Session, error)

	InsertSale(ctx context.Context, sale Sale) error
	GetSale(ctx context.Context, id uuid.UUID) (Sale, error)
	SetSaleJournal(ctx context.Context, saleID uuid.UUID, journalID int64) error
	CashSalesForSession(ctx context.Context, sessionID int64) (decimal.Decimal, error)

	InsertReconciliation(ctx context.Context, recon Reconciliation) (Reconciliation, error)
	GetReconciliation(ctx context.Context, sessionID int64) (Reconciliation, error)
	MarkVerified(ctx context.Context, sessionID, verifierID int64) (Reconciliation, error)
	ListUnverifiedReconciliations(ctx context.Context) ([]Reconciliation, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) OpenSession(ctx context.Context, session Session) (Session, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO pos_sessions (branch_id, cashier_id, float_given, status)
VALUES ($1,$2,$3,'OPEN') RETURNING id, status, opened_at`,
		session.BranchID, session.CashierID, session.FloatGiven).
		Scan(&session.ID, &session.Status, &session.OpenedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_pos_sessions_open" {
			return Session{}, ErrSessionStillOpen
		}
		return Session{}, err
	}
	return session, nil
}

func (r *repository) GetSession(ctx context.Context, id int64) (Session, error) {
	var s Session
	err := r.db.QueryRow(ctx, `SELECT id, branch_id, cashier_id, float_given, status, opened_at, closed_at
FROM pos_sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.BranchID, &s.CashierID, &s.FloatGiven, &s.Status, &s.OpenedAt, &s.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (r *repository) CloseSession(ctx context.Context, id int64) (Session, error) {
	var s Session
	err := r.db.QueryRow(ctx, `UPDATE pos_sessions SET status='CLOSED', closed_at=NOW()
WHERE id = $1 AND status='OPEN'
RETURNING id, branch_id, cashier_id, float_given, status, opened_at, closed_at`, id).
		Scan(&s.ID, &s.BranchID, &s.CashierID, &s.FloatGiven, &s.Status, &s.OpenedAt, &s.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionClosed
		}
		return Session{}, err
	}
	return s, nil
}

func (r *repository) ListSessions(ctx context.Context, req ListSessionsRequest) ([]Session, error) {
	query := `SELECT id, branch_id, cashier_id, float_given, status, opened_at, closed_at FROM pos_sessions WHERE TRUE`
	var args []any
	if req.BranchID != nil {
		args = append(args, *req.BranchID)
		query += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY opened_at DESC LIMIT $%d", len(args))
	args = append(args, req.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.BranchID, &s.CashierID, &s.FloatGiven, &s.Status, &s.OpenedAt, &s.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) InsertSale(ctx context.Context, sale Sale) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO pos_sales (id, session_id, branch_id, cashier_id, customer_id, subtotal, tax_amount, total_amount, payment_method)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sale.ID, sale.SessionID, sale.BranchID, sale.CashierID, sale.CustomerID,
		sale.Subtotal, sale.TaxAmount, sale.TotalAmount, sale.PaymentMethod); err != nil {
		return err
	}
	for _, item := range sale.Items {
		if _, err := tx.Exec(ctx, `INSERT INTO pos_sale_items (sale_id, product_id, quantity, unit_price, tax_percent, tax_amount, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			sale.ID, item.ProductID, item.Quantity, item.UnitPrice, item.TaxPercent, item.TaxAmount, item.LineTotal); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *repository) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	var s Sale
	err := r.db.QueryRow(ctx, `SELECT id, session_id, branch_id, cashier_id, customer_id, subtotal, tax_amount, total_amount, payment_method, journal_id, created_at
FROM pos_sales WHERE id = $1`, id).
		Scan(&s.ID, &s.SessionID, &s.BranchID, &s.CashierID, &s.CustomerID, &s.Subtotal, &s.TaxAmount, &s.TotalAmount, &s.PaymentMethod, &s.JournalID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrSaleNotFound
		}
		return Sale{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, sale_id, product_id, quantity, unit_price, tax_percent, tax_amount, line_total
FROM pos_sale_items WHERE sale_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TaxPercent, &item.TaxAmount, &item.LineTotal); err != nil {
			return Sale{}, err
		}
		s.Items = append(s.Items, item)
	}
	return s, rows.Err()
}

func (r *repository) SetSaleJournal(ctx context.Context, saleID uuid.UUID, journalID int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE pos_sales SET journal_id = $2 WHERE id = $1`, saleID, journalID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *repository) CashSalesForSession(ctx context.Context, sessionID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM pos_sales
WHERE session_id = $1 AND payment_method = 'CASH' AND journal_id IS NOT NULL`, sessionID).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) InsertReconciliation(ctx context.Context, recon Reconciliation) (Reconciliation, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO pos_shift_reconciliations (session_id, float_given, cash_collected, cash_sales, expected_cash, variance, reconciled_by)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		recon.SessionID, recon.FloatGiven, recon.CashCollected, recon.CashSales, recon.ExpectedCash, recon.Variance, recon.ReconciledBy).
		Scan(&recon.ID, &recon.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_pos_shift_recon_session" {
			return Reconciliation{}, ErrAlreadyReconciled
		}
		return Reconciliation{}, err
	}
	return recon, nil
}

func (r *repository) GetReconciliation(ctx context.Context, sessionID int64) (Reconciliation, error) {
	var rec Reconciliation
	err := r.db.QueryRow(ctx, `SELECT id, session_id, float_given, cash_collected, cash_sales, expected_cash, variance, reconciled_by, verified_by, verified_at, created_at
FROM pos_shift_reconciliations WHERE session_id = $1`, sessionID).
		Scan(&rec.ID, &rec.SessionID, &rec.FloatGiven, &rec.CashCollected, &rec.CashSales, &rec.ExpectedCash, &rec.Variance, &rec.ReconciledBy, &rec.VerifiedBy, &rec.VerifiedAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reconciliation{}, ErrReconNotFound
		}
		return Reconciliation{}, err
	}
	return rec, nil
}

func (r *repository) MarkVerified(ctx context.Context, sessionID, verifierID int64) (Reconciliation, error) {
	var rec Reconciliation
	err := r.db.QueryRow(ctx, `UPDATE pos_shift_reconciliations SET verified_by = $2, verified_at = NOW()
WHERE session_id = $1 AND verified_by IS NULL
RETURNING id, session_id, float_given, cash_collected, cash_sales, expected_cash, variance, reconciled_by, verified_by, verified_at, created_at`,
		sessionID, verifierID).
		Scan(&rec.ID, &rec.SessionID, &rec.FloatGiven, &rec.CashCollected, &rec.CashSales, &rec.ExpectedCash, &rec.Variance, &rec.ReconciledBy, &rec.VerifiedBy, &rec.VerifiedAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetReconciliation(ctx, sessionID); getErr == nil {
				return Reconciliation{}, ErrAlreadyVerified
			}
			return Reconciliation{}, ErrReconNotFound
		}
		return Reconciliation{}, err
	}
	return rec, nil
}

func (r *repository) ListUnverifiedReconciliations(ctx context.Context) ([]Reconciliation, error) {
	rows, err := r.db.Query(ctx, `SELECT id, session_id, float_given, cash_collected, cash_sales, expected_cash, variance, reconciled_by, verified_by, verified_at, created_at
FROM pos_shift_reconciliations WHERE verified_by IS NULL ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reconciliation
	for rows.Next() {
		var rec Reconciliation
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.FloatGiven, &rec.CashCollected, &rec.CashSales, &rec.ExpectedCash, &rec.Variance, &rec.ReconciledBy, &rec.VerifiedBy, &rec.VerifiedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
