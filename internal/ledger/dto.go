package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	BranchID  *int64          `json:"branch_id,omitempty"`
	Tags      []DimensionTag  `json:"tags,omitempty"`
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	Date      time.Time          `json:"date"`
	Origin    Origin             `json:"origin"`
	Memo      string             `json:"memo"`
	CreatedBy int64              `json:"created_by"`
	Lines     []PostingLineInput `json:"lines"`
}

// Validate ensures posting input meets minimum criteria. Amounts are
// compared after rounding to two decimal places, half up.
func (in PostingInput) Validate() error {
	if !in.Origin.Valid() {
		return ErrInvalidOrigin
	}
	if in.Date.IsZero() {
		return fmt.Errorf("ledger: date required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		if line.Debit.Round(2).IsZero() && line.Credit.Round(2).IsZero() {
			return fmt.Errorf("ledger: line %d requires a debit or credit amount", idx)
		}
		debit = debit.Add(line.Debit.Round(2))
		credit = credit.Add(line.Credit.Round(2))
	}
	if !debit.Equal(credit) {
		return ErrUnbalanced
	}
	return nil
}

// SalePostingInput wraps an automated posting for a POS sale.
type SalePostingInput struct {
	PostingInput
	SaleID    uuid.UUID `json:"sale_id"`
	SessionID *int64    `json:"session_id,omitempty"`
	CashierID *int64    `json:"cashier_id,omitempty"`
	BranchID  *int64    `json:"branch_id,omitempty"`
}

// Validate checks the sale reference on top of the base posting rules.
func (in SalePostingInput) Validate() error {
	if in.SaleID == uuid.Nil {
		return fmt.Errorf("ledger: sale id required")
	}
	return in.PostingInput.Validate()
}

// DepreciationPostingInput wraps an automated posting for a monthly
// depreciation run.
type DepreciationPostingInput struct {
	PostingInput
	Period string `json:"period"`
}

// Validate checks the period reference on top of the base posting rules.
func (in DepreciationPostingInput) Validate() error {
	if in.Period == "" {
		return fmt.Errorf("ledger: period required")
	}
	return in.PostingInput.Validate()
}

// VoidInput wraps parameters for voiding an entry.
type VoidInput struct {
	EntryID int64  `json:"entry_id"`
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason"`
}
