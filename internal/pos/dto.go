package pos

import (
	"github.com/shopspring/decimal"
)

// OpenSessionRequest starts a shift.
type OpenSessionRequest struct {
	BranchID   int64           `json:"branch_id" validate:"required,gt=0"`
	FloatGiven decimal.Decimal `json:"float_given"`
}

// ListSessionsRequest filters the session listing.
type ListSessionsRequest struct {
	BranchID *int64         `json:"branch_id,omitempty"`
	Status   *SessionStatus `json:"status,omitempty"`
	Limit    int            `json:"limit" validate:"gte=0,lte=500"`
	Offset   int            `json:"offset" validate:"gte=0"`
}

// PostSaleRequest records a completed sale against an open session.
type PostSaleRequest struct {
	SessionID     int64             `json:"session_id" validate:"required,gt=0"`
	CustomerID    *int64            `json:"customer_id,omitempty"`
	PaymentMethod PaymentMethod     `json:"payment_method" validate:"required"`
	Items         []PostSaleItemReq `json:"items" validate:"required,min=1,dive"`
}

// PostSaleItemReq is one requested sale line.
type PostSaleItemReq struct {
	ProductID  int64           `json:"product_id" validate:"required,gt=0"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TaxPercent decimal.Decimal `json:"tax_percent"`
}

// ReconcileRequest closes out the cash drawer for a session.
type ReconcileRequest struct {
	SessionID     int64           `json:"session_id" validate:"required,gt=0"`
	CashCollected decimal.Decimal `json:"cash_collected"`
}
