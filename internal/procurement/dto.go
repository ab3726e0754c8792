package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreatePurchaseRequest struct {
	BranchID   int64           `json:"branch_id" validate:"required,gt=0"`
	SupplierID int64           `json:"supplier_id" validate:"required,gt=0"`
	OrderDate  time.Time       `json:"order_date" validate:"required"`
	Notes      *string         `json:"notes,omitempty"`
	Items      []CreateItemReq `json:"items" validate:"required,min=1,dive"`
}

type CreateItemReq struct {
	ProductID   *int64          `json:"product_id,omitempty"`
	Description string          `json:"description" validate:"required,max=200"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`

	IsAsset            bool             `json:"is_asset"`
	DepreciationMethod *string          `json:"depreciation_method,omitempty" validate:"omitempty,oneof=STRAIGHT_LINE"`
	UsefulLifeMonths   *int             `json:"useful_life_months,omitempty" validate:"omitempty,gt=0"`
	SalvageValue       *decimal.Decimal `json:"salvage_value,omitempty"`
	SerialNumber       *string          `json:"serial_number,omitempty"`
	RegistrationNumber *string          `json:"registration_number,omitempty"`
	Location           *string          `json:"location,omitempty"`
	CustodianID        *int64           `json:"custodian_id,omitempty"`
}

type RecordPaymentRequest struct {
	PurchaseID int64           `json:"purchase_id" validate:"required,gt=0"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method" validate:"required,max=30"`
	Reference  *string         `json:"reference,omitempty"`
}

type ListPurchasesRequest struct {
	BranchID   *int64          `json:"branch_id,omitempty"`
	SupplierID *int64          `json:"supplier_id,omitempty"`
	Status     *PurchaseStatus `json:"status,omitempty"`
	Limit      int             `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int             `json:"offset" validate:"gte=0"`
}
