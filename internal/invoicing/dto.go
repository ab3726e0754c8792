package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateInvoiceRequest struct {
	BranchID    int64           `json:"branch_id" validate:"required,gt=0"`
	CustomerID  int64           `json:"customer_id" validate:"required,gt=0"`
	InvoiceDate time.Time       `json:"invoice_date" validate:"required"`
	DueDate     time.Time       `json:"due_date" validate:"required"`
	Notes       *string         `json:"notes,omitempty"`
	Lines       []CreateLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CreateLineReq struct {
	ProductID   *int64          `json:"product_id,omitempty"`
	Description *string         `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
	LineOrder   int             `json:"line_order" validate:"gte=0"`
}

type ConvertQuotationRequest struct {
	QuotationID int64      `json:"quotation_id" validate:"required,gt=0"`
	InvoiceDate time.Time  `json:"invoice_date" validate:"required"`
	DueDate     time.Time  `json:"due_date" validate:"required"`
	Notes       *string    `json:"notes,omitempty"`
}

type AddReceiptRequest struct {
	InvoiceID int64           `json:"invoice_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	Method    string          `json:"method" validate:"required,max=30"`
	PaymentID *int64          `json:"payment_id,omitempty"`
	Reference *string         `json:"reference,omitempty"`
	Notes     *string         `json:"notes,omitempty"`
}

type IssueSaleReceiptRequest struct {
	SaleID   uuid.UUID `json:"sale_id" validate:"required"`
	Currency string    `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	Notes    *string   `json:"notes,omitempty"`
}

type ListInvoicesRequest struct {
	BranchID   *int64         `json:"branch_id,omitempty"`
	CustomerID *int64         `json:"customer_id,omitempty"`
	Status     *InvoiceStatus `json:"status,omitempty"`
	Limit      int            `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int            `json:"offset" validate:"gte=0"`
}
