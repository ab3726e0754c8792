// Package procurement records supplier purchases, their payments, and the
// asset metadata that feeds capitalization.
package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchaseStatusOrdered PurchaseStatus = "ORDERED"
	PurchaseStatusPartial PurchaseStatus = "PARTIAL"
	PurchaseStatusPaid    PurchaseStatus = "PAID"
)

type Purchase struct {
	ID          int64           `json:"id"`
	DocNumber   string          `json:"doc_number"`
	BranchID    int64           `json:"branch_id"`
	SupplierID  int64           `json:"supplier_id"`
	OrderDate   time.Time       `json:"order_date"`
	Status      PurchaseStatus  `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Items       []PurchaseItem  `json:"items,omitempty"`
}

// Outstanding is the unpaid remainder.
func (p Purchase) Outstanding() decimal.Decimal {
	return p.TotalAmount.Sub(p.AmountPaid)
}

// PurchaseItem is one purchased line. When IsAsset is set the depreciation
// fields describe how the item capitalizes.
type PurchaseItem struct {
	ID          int64           `json:"id"`
	PurchaseID  int64           `json:"purchase_id"`
	ProductID   *int64          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	LineTotal   decimal.Decimal `json:"line_total"`

	IsAsset            bool             `json:"is_asset"`
	DepreciationMethod *string          `json:"depreciation_method,omitempty"`
	UsefulLifeMonths   *int             `json:"useful_life_months,omitempty"`
	SalvageValue       *decimal.Decimal `json:"salvage_value,omitempty"`
	SerialNumber       *string          `json:"serial_number,omitempty"`
	RegistrationNumber *string          `json:"registration_number,omitempty"`
	Location           *string          `json:"location,omitempty"`
	CustodianID        *int64           `json:"custodian_id,omitempty"`
}

type Payment struct {
	ID         int64           `json:"id"`
	PurchaseID int64           `json:"purchase_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  *string         `json:"reference,omitempty"`
	PaidAt     time.Time       `json:"paid_at"`
	RecordedBy int64           `json:"recorded_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

var (
	ErrPurchaseNotFound = errors.New("procurement: purchase not found")
	ErrOverpayment      = errors.New("procurement: payment exceeds outstanding balance")
	ErrAlreadySettled   = errors.New("procurement: purchase already settled")
	ErrBadAssetItem     = errors.New("procurement: asset item needs a useful life")
)
