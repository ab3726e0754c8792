package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]JournalEntry, error)
	Get(ctx context.Context, entryID int64) (JournalEntry, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the write operations available within a transaction.
type TxRepository interface {
	InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error
	InsertSaleAudit(ctx context.Context, entryID int64, in SalePostingInput) error
	GetSaleAudit(ctx context.Context, saleID uuid.UUID, origin Origin) (SaleAudit, error)
	InsertDepreciationAudit(ctx context.Context, entryID int64, in DepreciationPostingInput) error
	GetDepreciationAudit(ctx context.Context, period string) (DepreciationAudit, error)
	GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	UpdateEntryStatus(ctx context.Context, entryID int64, status EntryStatus) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT id, number, date, origin, memo, created_by, status, created_at, updated_at
FROM journal_entries ORDER BY number DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Number, &e.Date, &e.Origin, &e.Memo, &e.CreatedBy, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return getEntryWithLines(ctx, r.db, entryID)
}

func (r *repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, type, category, is_active FROM accounts ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.IsActive); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `SELECT id, code, name, type, category, is_active FROM accounts WHERE code = $1`, code).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (date, origin, memo, created_by, status)
VALUES ($1,$2,$3,$4,'POSTED') RETURNING id, number, created_at, updated_at`, in.Date, in.Origin, in.Memo, nullInt(in.CreatedBy))
	entry := JournalEntry{
		Date:   in.Date,
		Origin: in.Origin,
		Memo:   in.Memo,
		Status: EntryStatusPosted,
	}
	if in.CreatedBy != 0 {
		createdBy := in.CreatedBy
		entry.CreatedBy = &createdBy
	}
	if err := row.Scan(&entry.ID, &entry.Number, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		var lineID int64
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, branch_id)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, entryID, line.AccountID, line.Debit.Round(2), line.Credit.Round(2), line.BranchID).Scan(&lineID)
		if err != nil {
			return err
		}
		for _, tag := range line.Tags {
			if _, err := r.tx.Exec(ctx, `INSERT INTO journal_line_dimensions (line_id, dimension_id, value_id)
VALUES ($1,$2,$3)`, lineID, tag.DimensionID, tag.ValueID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *txRepository) InsertSaleAudit(ctx context.Context, entryID int64, in SalePostingInput) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_sale_audit (entry_id, sale_id, origin, session_id, cashier_id, posted_by, branch_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, entryID, in.SaleID, in.Origin, in.SessionID, in.CashierID, nullInt(in.CreatedBy), in.BranchID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_journal_sale_audit" {
			return ErrAlreadyPosted
		}
		return err
	}
	return nil
}

func (r *txRepository) GetSaleAudit(ctx context.Context, saleID uuid.UUID, origin Origin) (SaleAudit, error) {
	var a SaleAudit
	err := r.tx.QueryRow(ctx, `SELECT id, entry_id, sale_id, origin, session_id, cashier_id, posted_by, branch_id, created_at
FROM journal_sale_audit WHERE sale_id = $1 AND origin = $2`, saleID, origin).
		Scan(&a.ID, &a.EntryID, &a.SaleID, &a.Origin, &a.SessionID, &a.CashierID, &a.PostedBy, &a.BranchID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SaleAudit{}, ErrEntryNotFound
		}
		return SaleAudit{}, err
	}
	return a, nil
}

func (r *txRepository) InsertDepreciationAudit(ctx context.Context, entryID int64, in DepreciationPostingInput) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_depreciation_audit (entry_id, period, posted_by)
VALUES ($1,$2,$3)`, entryID, in.Period, nullInt(in.CreatedBy))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_journal_depreciation_period" {
			return ErrAlreadyPosted
		}
		return err
	}
	return nil
}

func (r *txRepository) GetDepreciationAudit(ctx context.Context, period string) (DepreciationAudit, error) {
	var a DepreciationAudit
	err := r.tx.QueryRow(ctx, `SELECT id, entry_id, period, posted_by, created_at
FROM journal_depreciation_audit WHERE period = $1`, period).
		Scan(&a.ID, &a.EntryID, &a.Period, &a.PostedBy, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DepreciationAudit{}, ErrEntryNotFound
		}
		return DepreciationAudit{}, err
	}
	return a, nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	return getEntryWithLines(ctx, r.tx, entryID)
}

func (r *txRepository) UpdateEntryStatus(ctx context.Context, entryID int64, status EntryStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, updated_at=NOW() WHERE id=$1`, entryID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getEntryWithLines(ctx context.Context, q queryer, entryID int64) (JournalEntry, error) {
	var e JournalEntry
	err := q.QueryRow(ctx, `SELECT id, number, date, origin, memo, created_by, status, created_at, updated_at
FROM journal_entries WHERE id=$1`, entryID).
		Scan(&e.ID, &e.Number, &e.Date, &e.Origin, &e.Memo, &e.CreatedBy, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, branch_id
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.BranchID); err != nil {
			return JournalEntry{}, err
		}
		e.Lines = append(e.Lines, line)
	}
	return e, rows.Err()
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
