package assets

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
	InsertAsset(ctx context.Context, asset FixedAsset) (FixedAsset, error)
	InsertScheduleEntry(ctx context.Context, entry ScheduleEntry) (int64, error)
	GetAsset(ctx context.Context, id int64) (FixedAsset, error)
	ListAssets(ctx context.Context, branchID *int64) ([]FixedAsset, error)
	Schedule(ctx context.Context, assetID int64) ([]ScheduleEntry, error)
	UnpostedForPeriod(ctx context.Context, period string) ([]ScheduleEntry, error)
	MarkPosted(ctx context.Context, entryIDs []int64, journalID int64) error
	AddAccumulated(ctx context.Context, assetID int64, amount decimal.Decimal) error
	GenerateCode(ctx context.Context, branchID int64, date time.Time) (string, error)
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

const assetColumns = `id, asset_code, branch_id, purchase_id, purchase_item_id, description, method,
cost, salvage_value, useful_life_months, start_date, accumulated_depreciation, status,
serial_number, registration_number, location, custodian_id, created_at, updated_at`

func scanAsset(row pgx.Row) (FixedAsset, error) {
	var a FixedAsset
	err := row.Scan(&a.ID, &a.AssetCode, &a.BranchID, &a.PurchaseID, &a.PurchaseItemID, &a.Description, &a.Method,
		&a.Cost, &a.SalvageValue, &a.UsefulLifeMonths, &a.StartDate, &a.Accumulated, &a.Status,
		&a.SerialNumber, &a.RegistrationNumber, &a.Location, &a.CustodianID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) InsertAsset(ctx context.Context, asset FixedAsset) (FixedAsset, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO fixed_assets
(asset_code, branch_id, purchase_id, purchase_item_id, description, method, cost, salvage_value,
 useful_life_months, start_date, accumulated_depreciation, status,
 serial_number, registration_number, location, custodian_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
RETURNING id, created_at, updated_at`,
		asset.AssetCode, asset.BranchID, asset.PurchaseID, asset.PurchaseItemID, asset.Description, asset.Method,
		asset.Cost, asset.SalvageValue, asset.UsefulLifeMonths, asset.StartDate, asset.Accumulated, asset.Status,
		asset.SerialNumber, asset.RegistrationNumber, asset.Location, asset.CustodianID).
		Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_fixed_assets_purchase_item" {
			return FixedAsset{}, ErrAlreadyCapitalized
		}
		return FixedAsset{}, err
	}
	return asset, nil
}

func (r *repository) InsertScheduleEntry(ctx context.Context, entry ScheduleEntry) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO depreciation_schedule (asset_id, period, amount, posted)
VALUES ($1,$2,$3,false) RETURNING id`, entry.AssetID, entry.Period, entry.Amount).Scan(&id)
	return id, err
}

func (r *repository) GetAsset(ctx context.Context, id int64) (FixedAsset, error) {
	asset, err := scanAsset(r.db.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FixedAsset{}, ErrAssetNotFound
		}
		return FixedAsset{}, err
	}
	return asset, nil
}

func (r *repository) ListAssets(ctx context.Context, branchID *int64) ([]FixedAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM fixed_assets`
	var args []any
	if branchID != nil {
		args = append(args, *branchID)
		query += ` WHERE branch_id = $1`
	}
	query += ` ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FixedAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

func (r *repository) Schedule(ctx context.Context, assetID int64) ([]ScheduleEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, asset_id, period, amount, posted, journal_id
FROM depreciation_schedule WHERE asset_id = $1 ORDER BY period ASC`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *repository) UnpostedForPeriod(ctx context.Context, period string) ([]ScheduleEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, asset_id, period, amount, posted, journal_id
FROM depreciation_schedule WHERE period = $1 AND NOT posted ORDER BY asset_id ASC`, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]ScheduleEntry, error) {
	var out []ScheduleEntry
	for rows.Next() {
		var e ScheduleEntry
		if err := rows.Scan(&e.ID, &e.AssetID, &e.Period, &e.Amount, &e.Posted, &e.JournalID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) MarkPosted(ctx context.Context, entryIDs []int64, journalID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE depreciation_schedule SET posted = true, journal_id = $2
WHERE id = ANY($1)`, entryIDs, journalID)
	return err
}

func (r *repository) AddAccumulated(ctx context.Context, assetID int64, amount decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `UPDATE fixed_assets
SET accumulated_depreciation = accumulated_depreciation + $2,
    status = CASE WHEN accumulated_depreciation + $2 >= cost - salvage_value THEN 'FULLY_DEPRECIATED' ELSE status END,
    updated_at = NOW()
WHERE id = $1`, assetID, amount)
	return err
}

func (r *repository) GenerateCode(ctx context.Context, branchID int64, date time.Time) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `INSERT INTO document_sequences (branch_id, doc_type, period, seq)
VALUES ($1, $2, $3, 1)
ON CONFLICT (branch_id, doc_type, period)
DO UPDATE SET seq = document_sequences.seq + 1
RETURNING seq`, branchID, "FA", date.Format("200601")).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("FA-%s-%04d", date.Format("0601"), seq), nil
}
