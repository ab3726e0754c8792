package quotations

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	BranchID   int64           `json:"branch_id" validate:"required,gt=0"`
	CustomerID int64           `json:"customer_id" validate:"required,gt=0"`
	QuoteDate  time.Time       `json:"quote_date" validate:"required"`
	ValidUntil time.Time       `json:"valid_until" validate:"required"`
	Notes      *string         `json:"notes,omitempty"`
	Lines      []CreateLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CreateLineReq struct {
	ProductID   *int64          `json:"product_id,omitempty"`
	Description *string         `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
	LineOrder   int             `json:"line_order" validate:"gte=0"`
}

type UpdateRequest struct {
	QuoteDate  *time.Time       `json:"quote_date,omitempty"`
	ValidUntil *time.Time       `json:"valid_until,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	Lines      *[]CreateLineReq `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type ListRequest struct {
	BranchID   *int64     `json:"branch_id,omitempty"`
	CustomerID *int64     `json:"customer_id,omitempty"`
	Status     *Status    `json:"status,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Limit      int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int        `json:"offset" validate:"gte=0"`
}
