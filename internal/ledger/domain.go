// Package ledger records double-entry journal activity and guards automated
// postings, POS sales and depreciation runs, against duplicates.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Origin distinguishes how a journal entry came to exist. It is a closed
// enum: adding an origin is a schema change, not free text.
type Origin string

const (
	OriginManual       Origin = "MANUAL"
	OriginPOSAuto      Origin = "POS_AUTO"
	OriginDepreciation Origin = "DEPRECIATION"
)

// Valid reports whether the origin is one of the known values.
func (o Origin) Valid() bool {
	return o == OriginManual || o == OriginPOSAuto || o == OriginDepreciation
}

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	EntryStatusPosted EntryStatus = "POSTED"
	EntryStatusVoid   EntryStatus = "VOID"
)

// JournalEntry captures posting metadata. CreatedBy is nullable because
// legacy rows predate creator tracking; new entries always carry it.
type JournalEntry struct {
	ID        int64         `json:"id"`
	Number    int64         `json:"number"`
	Date      time.Time     `json:"date"`
	Origin    Origin        `json:"origin"`
	Memo      string        `json:"memo"`
	CreatedBy *int64        `json:"created_by,omitempty"`
	Status    EntryStatus   `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Lines     []JournalLine `json:"lines,omitempty"`
}

// JournalLine stores a debit or credit amount for an account, optionally
// tagged with classification dimension values.
type JournalLine struct {
	ID        int64           `json:"id"`
	EntryID   int64           `json:"entry_id"`
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	BranchID  *int64          `json:"branch_id,omitempty"`
	Tags      []DimensionTag  `json:"tags,omitempty"`
}

// DimensionTag attaches a dimension value to a journal line.
type DimensionTag struct {
	DimensionID int64 `json:"dimension_id"`
	ValueID     int64 `json:"value_id"`
}

// SaleAudit links a journal entry to the sale that produced it. The pair
// (sale_id, origin) is unique: a sale is posted at most once per origin,
// while a manual correcting entry for the same sale remains possible.
type SaleAudit struct {
	ID        int64      `json:"id"`
	EntryID   int64      `json:"entry_id"`
	SaleID    uuid.UUID  `json:"sale_id"`
	Origin    Origin     `json:"origin"`
	SessionID *int64     `json:"session_id,omitempty"`
	CashierID *int64     `json:"cashier_id,omitempty"`
	PostedBy  *int64     `json:"posted_by,omitempty"`
	BranchID  *int64     `json:"branch_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// DepreciationAudit links a journal entry to the depreciation run that
// produced it. The period is unique: one depreciation entry per month.
type DepreciationAudit struct {
	ID        int64     `json:"id"`
	EntryID   int64     `json:"entry_id"`
	Period    string    `json:"period"`
	PostedBy  *int64    `json:"posted_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a chart-of-accounts code.
type Account struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
	IsActive bool   `json:"is_active"`
}

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrAlreadyPosted indicates the guarded reference, a (sale, origin)
	// pair or a depreciation period, already has an entry.
	ErrAlreadyPosted = errors.New("ledger: reference already posted")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrAccountNotFound indicates a missing chart-of-accounts code.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrInvalidStatus indicates the action cannot proceed.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrInvalidOrigin indicates an unknown origin tag.
	ErrInvalidOrigin = errors.New("ledger: invalid origin")
)
