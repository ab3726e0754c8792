// Package quotations manages sales quotations from draft through approval
// and conversion into invoices.
package quotations

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusConverted Status = "CONVERTED"
)

type Quotation struct {
	ID              int64           `json:"id"`
	DocNumber       string          `json:"doc_number"`
	BranchID        int64           `json:"branch_id"`
	CustomerID      int64           `json:"customer_id"`
	QuoteDate       time.Time       `json:"quote_date"`
	ValidUntil      time.Time       `json:"valid_until"`
	Status          Status          `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedBy       int64           `json:"created_by"`
	ApprovedBy      *int64          `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectedBy      *int64          `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Lines           []Line          `json:"lines,omitempty"`
}

// Line is one quotation row. ProductID is nil for free-text lines, in
// which case Description carries the item.
type Line struct {
	ID          int64           `json:"id"`
	QuotationID int64           `json:"quotation_id"`
	ProductID   *int64          `json:"product_id,omitempty"`
	Description *string         `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	LineTotal   decimal.Decimal `json:"line_total"`
	LineOrder   int             `json:"line_order"`
}

var (
	ErrNotFound      = errors.New("quotations: not found")
	ErrInvalidStatus = errors.New("quotations: invalid status transition")
	ErrBadLine       = errors.New("quotations: line needs a product or a description")
)
