// Package pos tracks cashier sessions, posts sales into the ledger, and
// reconciles cash at shift close.
package pos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionStatus enumerates shift lifecycle values.
type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "OPEN"
	SessionStatusClosed SessionStatus = "CLOSED"
)

// Session is one cashier shift on a till.
type Session struct {
	ID         int64           `json:"id"`
	BranchID   int64           `json:"branch_id"`
	CashierID  int64           `json:"cashier_id"`
	FloatGiven decimal.Decimal `json:"float_given"`
	Status     SessionStatus   `json:"status"`
	OpenedAt   time.Time       `json:"opened_at"`
	ClosedAt   *time.Time      `json:"closed_at,omitempty"`
}

// PaymentMethod enumerates how a sale settles.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

// Valid reports whether the method is known.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentTransfer
}

// Sale is one completed POS transaction.
type Sale struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     int64           `json:"session_id"`
	BranchID      int64           `json:"branch_id"`
	CashierID     int64           `json:"cashier_id"`
	CustomerID    *int64          `json:"customer_id,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	JournalID     *int64          `json:"journal_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []SaleItem      `json:"items,omitempty"`
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ID         int64           `json:"id"`
	SaleID     uuid.UUID       `json:"sale_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TaxPercent decimal.Decimal `json:"tax_percent"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// Reconciliation records the cash count for one session. One row per
// session, enforced by a uniqueness constraint on session_id.
// Variance = CashCollected - ExpectedCash; positive is an overage,
// negative a shortage.
type Reconciliation struct {
	ID            int64           `json:"id"`
	SessionID     int64           `json:"session_id"`
	FloatGiven    decimal.Decimal `json:"float_given"`
	CashCollected decimal.Decimal `json:"cash_collected"`
	CashSales     decimal.Decimal `json:"cash_sales"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
	Variance      decimal.Decimal `json:"variance"`
	ReconciledBy  int64           `json:"reconciled_by"`
	VerifiedBy    *int64          `json:"verified_by,omitempty"`
	VerifiedAt    *time.Time      `json:"verified_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

var (
	// ErrSessionNotFound indicates a missing POS session.
	ErrSessionNotFound = errors.New("pos: session not found")
	// ErrSessionClosed indicates the session no longer accepts activity.
	ErrSessionClosed = errors.New("pos: session closed")
	// ErrSessionStillOpen indicates the cashier already has an open shift.
	ErrSessionStillOpen = errors.New("pos: cashier already has an open session")
	// ErrSessionNotClosed indicates reconciliation before close.
	ErrSessionNotClosed = errors.New("pos: session must be closed first")
	// ErrAlreadyReconciled indicates a second reconciliation attempt.
	ErrAlreadyReconciled = errors.New("pos: session already reconciled")
	// ErrReconNotFound indicates no reconciliation row.
	ErrReconNotFound = errors.New("pos: reconciliation not found")
	// ErrAlreadyVerified indicates repeated verification.
	ErrAlreadyVerified = errors.New("pos: reconciliation already verified")
	// ErrSaleNotFound indicates a missing sale.
	ErrSaleNotFound = errors.New("pos: sale not found")
)
