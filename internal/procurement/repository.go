package procurement

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
	CreatePurchase(ctx context.Context, p Purchase) (int64, error)
	InsertItem(ctx context.Context, item PurchaseItem) (int64, error)
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	ListPurchases(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error)
	UpdatePayment(ctx context.Context, id int64, amountPaid decimal.Decimal, status PurchaseStatus) error
	InsertPayment(ctx context.Context, payment Payment) (Payment, error)
	ListPayments(ctx context.Context, purchaseID int64) ([]Payment, error)
	AssetItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error)
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

func (r *repository) CreatePurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO purchases
(doc_number, branch_id, supplier_id, order_date, status, subtotal, tax_amount, total_amount, amount_paid, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		p.DocNumber, p.BranchID, p.SupplierID, p.OrderDate, p.Status,
		p.Subtotal, p.TaxAmount, p.TotalAmount, p.AmountPaid, p.Notes, p.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertItem(ctx context.Context, item PurchaseItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO purchase_items
(purchase_id, product_id, description, quantity, unit_cost, tax_percent, tax_amount, line_total,
 is_asset, depreciation_method, useful_life_months, salvage_value, serial_number, registration_number, location, custodian_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16) RETURNING id`,
		item.PurchaseID, item.ProductID, item.Description, item.Quantity, item.UnitCost,
		item.TaxPercent, item.TaxAmount, item.LineTotal,
		item.IsAsset, item.DepreciationMethod, item.UsefulLifeMonths, item.SalvageValue,
		item.SerialNumber, item.RegistrationNumber, item.Location, item.CustodianID).Scan(&id)
	return id, err
}

const itemColumns = `id, purchase_id, product_id, description, quantity, unit_cost, tax_percent, tax_amount, line_total,
is_asset, depreciation_method, useful_life_months, salvage_value, serial_number, registration_number, location, custodian_id`

func scanItem(row pgx.Row) (PurchaseItem, error) {
	var item PurchaseItem
	err := row.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.Description, &item.Quantity,
		&item.UnitCost, &item.TaxPercent, &item.TaxAmount, &item.LineTotal,
		&item.IsAsset, &item.DepreciationMethod, &item.UsefulLifeMonths, &item.SalvageValue,
		&item.SerialNumber, &item.RegistrationNumber, &item.Location, &item.CustodianID)
	return item, err
}

func (r *repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	err := r.db.QueryRow(ctx, `SELECT id, doc_number, branch_id, supplier_id, order_date, status,
subtotal, tax_amount, total_amount, amount_paid, notes, created_by, created_at, updated_at
FROM purchases WHERE id = $1`, id).Scan(
		&p.ID, &p.DocNumber, &p.BranchID, &p.SupplierID, &p.OrderDate, &p.Status,
		&p.Subtotal, &p.TaxAmount, &p.TotalAmount, &p.AmountPaid, &p.Notes, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrPurchaseNotFound
		}
		return Purchase{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM purchase_items WHERE purchase_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return Purchase{}, err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return Purchase{}, err
		}
		p.Items = append(p.Items, item)
	}
	return p, rows.Err()
}

func (r *repository) ListPurchases(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error) {
	where := ` WHERE TRUE`
	var args []any
	if req.BranchID != nil {
		args = append(args, *req.BranchID)
		where += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if req.SupplierID != nil {
		args = append(args, *req.SupplierID)
		where += fmt.Sprintf(" AND supplier_id = $%d", len(args))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchases`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)
	query := `SELECT id, doc_number, branch_id, supplier_id, order_date, status,
subtotal, tax_amount, total_amount, amount_paid, notes, created_by, created_at, updated_at
FROM purchases` + where + fmt.Sprintf(" ORDER BY order_date DESC, id DESC LIMIT $%d", len(args))
	args = append(args, req.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.DocNumber, &p.BranchID, &p.SupplierID, &p.OrderDate, &p.Status,
			&p.Subtotal, &p.TaxAmount, &p.TotalAmount, &p.AmountPaid, &p.Notes, &p.CreatedBy,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) UpdatePayment(ctx context.Context, id int64, amountPaid decimal.Decimal, status PurchaseStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE purchases SET amount_paid = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		id, amountPaid, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

func (r *repository) InsertPayment(ctx context.Context, payment Payment) (Payment, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO purchase_payments
(purchase_id, amount, method, reference, paid_at, recorded_by)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		payment.PurchaseID, payment.Amount, payment.Method, payment.Reference, payment.PaidAt, payment.RecordedBy).
		Scan(&payment.ID, &payment.CreatedAt)
	return payment, err
}

func (r *repository) ListPayments(ctx context.Context, purchaseID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, purchase_id, amount, method, reference, paid_at, recorded_by, created_at
FROM purchase_payments WHERE purchase_id = $1 ORDER BY paid_at ASC, id ASC`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.PurchaseID, &p.Amount, &p.Method, &p.Reference, &p.PaidAt, &p.RecordedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) AssetItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM purchase_items
WHERE purchase_id = $1 AND is_asset ORDER BY id ASC`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repository) GenerateNumber(ctx context.Context, branchID int64, date time.Time) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `INSERT INTO document_sequences (branch_id, doc_type, period, seq)
VALUES ($1, $2, $3, 1)
ON CONFLICT (branch_id, doc_type, period)
DO UPDATE SET seq = document_sequences.seq + 1
RETURNING seq`, branchID, "PO", date.Format("200601")).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%s-%04d", date.Format("0601"), seq), nil
}
