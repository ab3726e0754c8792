// Package assets capitalizes asset-flagged purchase items and drives
// monthly straight-line depreciation postings.
package assets

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type AssetStatus string

const (
	AssetStatusActive           AssetStatus = "ACTIVE"
	AssetStatusFullyDepreciated AssetStatus = "FULLY_DEPRECIATED"
	AssetStatusDisposed         AssetStatus = "DISPOSED"
)

const MethodStraightLine = "STRAIGHT_LINE"

type FixedAsset struct {
	ID               int64           `json:"id"`
	AssetCode        string          `json:"asset_code"`
	BranchID         int64           `json:"branch_id"`
	PurchaseID       int64           `json:"purchase_id"`
	PurchaseItemID   int64           `json:"purchase_item_id"`
	Description      string          `json:"description"`
	Method           string          `json:"method"`
	Cost             decimal.Decimal `json:"cost"`
	SalvageValue     decimal.Decimal `json:"salvage_value"`
	UsefulLifeMonths int             `json:"useful_life_months"`
	StartDate        time.Time       `json:"start_date"`
	Accumulated      decimal.Decimal `json:"accumulated_depreciation"`
	Status           AssetStatus     `json:"status"`

	SerialNumber       *string `json:"serial_number,omitempty"`
	RegistrationNumber *string `json:"registration_number,omitempty"`
	Location           *string `json:"location,omitempty"`
	CustodianID        *int64  `json:"custodian_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleEntry is one month of planned depreciation for an asset.
type ScheduleEntry struct {
	ID        int64           `json:"id"`
	AssetID   int64           `json:"asset_id"`
	Period    string          `json:"period"`
	Amount    decimal.Decimal `json:"amount"`
	Posted    bool            `json:"posted"`
	JournalID *int64          `json:"journal_id,omitempty"`
}

// CapitalizeReport summarises one capitalization run.
type CapitalizeReport struct {
	PurchaseID    int64        `json:"purchase_id"`
	AssetsCreated int          `json:"assets_created"`
	Skipped       int          `json:"skipped"`
	Assets        []FixedAsset `json:"assets,omitempty"`
}

// DepreciationRunReport summarises one monthly posting run.
type DepreciationRunReport struct {
	Period       string          `json:"period"`
	AssetsPosted int             `json:"assets_posted"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	JournalID    *int64          `json:"journal_id,omitempty"`
}

var (
	ErrAssetNotFound      = errors.New("assets: asset not found")
	ErrAlreadyCapitalized = errors.New("assets: purchase item already capitalized")
	ErrNoAssetItems       = errors.New("assets: purchase has no asset items")
	ErrBadPeriod          = errors.New("assets: period must be YYYY-MM")
	ErrNothingToPost      = errors.New("assets: nothing to depreciate for period")
	// ErrPeriodAlreadyPosted indicates the period's depreciation entry exists
	// but does not cover the rows now pending, so they need manual handling.
	ErrPeriodAlreadyPosted = errors.New("assets: period already posted with a different total")
)
