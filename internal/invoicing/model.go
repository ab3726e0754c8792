// Package invoicing issues customer invoices, converts approved quotations,
// and records payment receipts against outstanding balances.
package invoicing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when a receipt does not name one.
const DefaultCurrency = "USD"

type InvoiceStatus string

const (
	InvoiceStatusUnpaid  InvoiceStatus = "UNPAID"
	InvoiceStatusPartial InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusVoid    InvoiceStatus = "VOID"
)

type Invoice struct {
	ID          int64           `json:"id"`
	DocNumber   string          `json:"doc_number"`
	BranchID    int64           `json:"branch_id"`
	CustomerID  int64           `json:"customer_id"`
	QuotationID *int64          `json:"quotation_id,omitempty"`
	InvoiceDate time.Time       `json:"invoice_date"`
	DueDate     time.Time       `json:"due_date"`
	Status      InvoiceStatus   `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []InvoiceLine   `json:"lines,omitempty"`
}

// Outstanding is the unpaid remainder.
func (i Invoice) Outstanding() decimal.Decimal {
	return i.TotalAmount.Sub(i.AmountPaid)
}

type InvoiceLine struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	ProductID   *int64          `json:"product_id,omitempty"`
	Description *string         `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	LineTotal   decimal.Decimal `json:"line_total"`
	LineOrder   int             `json:"line_order"`
}

// Receipt documents money received. It settles an invoice or documents a
// POS sale; either way it carries its own amount, currency, and method so
// the printed document stands on its own.
type Receipt struct {
	ID         int64           `json:"id"`
	DocNumber  string          `json:"doc_number"`
	InvoiceID  *int64          `json:"invoice_id,omitempty"`
	SaleID     *uuid.UUID      `json:"sale_id,omitempty"`
	PaymentID  *int64          `json:"payment_id,omitempty"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Method     string          `json:"method"`
	Reference  *string         `json:"reference,omitempty"`
	ReceivedBy int64           `json:"received_by"`
	ReceivedAt time.Time       `json:"received_at"`
	Notes      *string         `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`

	// AmountDisplay is the locale-formatted amount printed on the receipt.
	AmountDisplay string `json:"amount_display,omitempty"`
}

var (
	ErrInvoiceNotFound       = errors.New("invoicing: invoice not found")
	ErrReceiptNotFound       = errors.New("invoicing: receipt not found")
	ErrInvoiceVoid           = errors.New("invoicing: invoice is void")
	ErrOverpayment           = errors.New("invoicing: receipt exceeds outstanding balance")
	ErrQuotationNotApproved  = errors.New("invoicing: quotation is not approved")
	ErrBadLine               = errors.New("invoicing: line needs a product or a description")
	ErrInvoiceAlreadySettled = errors.New("invoicing: invoice already settled")
	ErrInvoiceHasPayments    = errors.New("invoicing: invoice has recorded payments")
)
