// Package dimensions attaches classification axes (cost center, project) to
// chart-of-accounts codes and aggregates balances along them.
package dimensions

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Dimension is a classification axis.
type Dimension struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Value is one member of a dimension, e.g. cost center "CC-100".
type Value struct {
	ID          int64  `json:"id"`
	DimensionID int64  `json:"dimension_id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
}

// Requirement declares that an account must carry a value for a dimension.
type Requirement struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	DimensionID    int64     `json:"dimension_id"`
	Priority       int       `json:"priority"`
	DefaultValueID *int64    `json:"default_value_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Template is a reusable set of requirement declarations applied in bulk.
type Template struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Items     []TemplateItem `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
}

// TemplateItem is one dimension declaration inside a template.
type TemplateItem struct {
	DimensionID    int64  `json:"dimension_id"`
	Priority       int    `json:"priority"`
	DefaultValueID *int64 `json:"default_value_id,omitempty"`
}

// AccountSelector picks the accounts a template applies to. Either an
// explicit ID list or a type/category/code-pattern match.
type AccountSelector struct {
	AccountIDs  []int64 `json:"account_ids,omitempty"`
	AccountType string  `json:"account_type,omitempty"`
	Category    string  `json:"category,omitempty"`
	CodePattern string  `json:"code_pattern,omitempty"`
}

// Empty reports whether the selector matches nothing by construction.
func (s AccountSelector) Empty() bool {
	return len(s.AccountIDs) == 0 && s.AccountType == "" && s.Category == "" && s.CodePattern == ""
}

// ApplyReport summarises a bulk template application. A failing account adds
// a string to Errors; it never aborts the batch.
type ApplyReport struct {
	AccountsProcessed   int      `json:"accounts_processed"`
	RequirementsCreated int      `json:"requirements_created"`
	Errors              []string `json:"errors"`
}

// Balance is the aggregated position of one dimension value.
type Balance struct {
	DimensionID int64           `json:"dimension_id"`
	ValueID     int64           `json:"value_id"`
	ValueCode   string          `json:"value_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Net         decimal.Decimal `json:"net"`
}

// BalanceFilter narrows a balance query.
type BalanceFilter struct {
	DimensionID int64      `json:"dimension_id"`
	AccountID   *int64     `json:"account_id,omitempty"`
	DateFrom    *time.Time `json:"date_from,omitempty"`
	DateTo      *time.Time `json:"date_to,omitempty"`
}

var (
	// ErrDimensionNotFound indicates a missing dimension.
	ErrDimensionNotFound = errors.New("dimensions: dimension not found")
	// ErrTemplateNotFound indicates a missing template.
	ErrTemplateNotFound = errors.New("dimensions: template not found")
	// ErrRequirementExists indicates the (account, dimension) pair is taken.
	ErrRequirementExists = errors.New("dimensions: requirement already exists")
	// ErrEmptySelector indicates the selector matches nothing.
	ErrEmptySelector = errors.New("dimensions: account selector is empty")
)
