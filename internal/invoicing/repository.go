package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arcadia-retail/arcadia/internal/platform/db"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertLine(ctx context.Context, line InvoiceLine) (int64, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	UpdatePayment(ctx context.Context, id int64, amountPaid decimal.Decimal, status InvoiceStatus) error

	// VoidInvoice flips an untouched UNPAID invoice to VOID. Returns
	// ErrInvoiceHasPayments when the row is missing or already has money
	// against it.
	VoidInvoice(ctx context.Context, id int64) error

	// ConvertQuotation flips an APPROVED quotation to CONVERTED. Returns
	// ErrQuotationNotApproved when the row is missing or in another status.
	ConvertQuotation(ctx context.Context, quotationID int64) error

	InsertReceipt(ctx context.Context, rc Receipt) (Receipt, error)
	ListReceipts(ctx context.Context, invoiceID int64) ([]Receipt, error)
	GenerateNumber(ctx context.Context, branchID int64, docType string, date time.Time) (string, error)
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

func (r *repository) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO invoices
(doc_number, branch_id, customer_id, quotation_id, invoice_date, due_date, status, subtotal, tax_amount, total_amount, amount_paid, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`,
		inv.DocNumber, inv.BranchID, inv.CustomerID, inv.QuotationID, inv.InvoiceDate, inv.DueDate,
		inv.Status, inv.Subtotal, inv.TaxAmount, inv.TotalAmount, inv.AmountPaid, inv.Notes, inv.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertLine(ctx context.Context, line InvoiceLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO invoice_lines
(invoice_id, product_id, description, quantity, unit_price, tax_percent, tax_amount, line_total, line_order)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		line.InvoiceID, line.ProductID, line.Description, line.Quantity,
		line.UnitPrice, line.TaxPercent, line.TaxAmount, line.LineTotal, line.LineOrder).Scan(&id)
	return id, err
}

func (r *repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.db.QueryRow(ctx, `SELECT id, doc_number, branch_id, customer_id, quotation_id, invoice_date, due_date,
status, subtotal, tax_amount, total_amount, amount_paid, notes, created_by, created_at, updated_at
FROM invoices WHERE id = $1`, id).Scan(
		&inv.ID, &inv.DocNumber, &inv.BranchID, &inv.CustomerID, &inv.QuotationID, &inv.InvoiceDate, &inv.DueDate,
		&inv.Status, &inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount, &inv.AmountPaid, &inv.Notes, &inv.CreatedBy,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, invoice_id, product_id, description, quantity, unit_price,
tax_percent, tax_amount, line_total, line_order
FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_order ASC, id ASC`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line InvoiceLine
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.ProductID, &line.Description,
			&line.Quantity, &line.UnitPrice, &line.TaxPercent, &line.TaxAmount, &line.LineTotal, &line.LineOrder); err != nil {
			return Invoice{}, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, rows.Err()
}

func (r *repository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
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

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)
	query := `SELECT id, doc_number, branch_id, customer_id, quotation_id, invoice_date, due_date,
status, subtotal, tax_amount, total_amount, amount_paid, notes, created_by, created_at, updated_at
FROM invoices` + where + fmt.Sprintf(" ORDER BY invoice_date DESC, id DESC LIMIT $%d", len(args))
	args = append(args, req.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.DocNumber, &inv.BranchID, &inv.CustomerID, &inv.QuotationID,
			&inv.InvoiceDate, &inv.DueDate, &inv.Status, &inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount,
			&inv.AmountPaid, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r *repository) UpdatePayment(ctx context.Context, id int64, amountPaid decimal.Decimal, status InvoiceStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE invoices SET amount_paid = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		id, amountPaid, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *repository) VoidInvoice(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE invoices SET status = 'VOID', updated_at = NOW()
WHERE id = $1 AND status = 'UNPAID' AND amount_paid = 0`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceHasPayments
	}
	return nil
}

func (r *repository) ConvertQuotation(ctx context.Context, quotationID int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE quotations SET status = 'CONVERTED', updated_at = NOW()
WHERE id = $1 AND status = 'APPROVED'`, quotationID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrQuotationNotApproved
	}
	return nil
}

func (r *repository) InsertReceipt(ctx context.Context, rc Receipt) (Receipt, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO receipts
(doc_number, invoice_id, sale_id, payment_id, customer_id, amount, currency, method, reference, received_by, received_at, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id, created_at`,
		rc.DocNumber, rc.InvoiceID, rc.SaleID, rc.PaymentID, rc.CustomerID, rc.Amount, rc.Currency,
		rc.Method, rc.Reference, rc.ReceivedBy, rc.ReceivedAt, rc.Notes).
		Scan(&rc.ID, &rc.CreatedAt)
	return rc, err
}

func (r *repository) ListReceipts(ctx context.Context, invoiceID int64) ([]Receipt, error) {
	rows, err := r.db.Query(ctx, `SELECT id, doc_number, invoice_id, sale_id, payment_id, customer_id, amount, currency, method, reference, received_by, received_at, notes, created_at
FROM receipts WHERE invoice_id = $1 ORDER BY received_at ASC, id ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Receipt
	for rows.Next() {
		var rc Receipt
		if err := rows.Scan(&rc.ID, &rc.DocNumber, &rc.InvoiceID, &rc.SaleID, &rc.PaymentID, &rc.CustomerID,
			&rc.Amount, &rc.Currency, &rc.Method, &rc.Reference,
			&rc.ReceivedBy, &rc.ReceivedAt, &rc.Notes, &rc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *repository) GenerateNumber(ctx context.Context, branchID int64, docType string, date time.Time) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `INSERT INTO document_sequences (branch_id, doc_type, period, seq)
VALUES ($1, $2, $3, 1)
ON CONFLICT (branch_id, doc_type, period)
DO UPDATE SET seq = document_sequences.seq + 1
RETURNING seq`, branchID, docType, date.Format("200601")).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", docType, date.Format("0601"), seq), nil
}
