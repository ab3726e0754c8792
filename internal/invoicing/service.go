package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arcadia-retail/arcadia/internal/pos"
	"github.com/arcadia-retail/arcadia/internal/sales/quotations"
	"github.com/arcadia-retail/arcadia/internal/shared"
)

// QuotationPort reads quotations for conversion.
type QuotationPort interface {
	Get(ctx context.Context, id int64) (quotations.Quotation, error)
}

// SalePort reads POS sales so receipts can be issued for them.
type SalePort interface {
	GetSale(ctx context.Context, id uuid.UUID) (pos.Sale, error)
}

// AuditPort records business-audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo   Repository
	quotes QuotationPort
	sales  SalePort
	audit  AuditPort
	now    func() time.Time
}

func NewService(repo Repository, quotes QuotationPort, sales SalePort, audit AuditPort) *Service {
	return &Service{repo: repo, quotes: quotes, sales: sales, audit: audit, now: time.Now}
}

type builtLines struct {
	lines    []InvoiceLine
	subtotal decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

func buildLines(reqs []CreateLineReq) (builtLines, error) {
	out := builtLines{subtotal: decimal.Zero, tax: decimal.Zero, total: decimal.Zero}
	for i, req := range reqs {
		if req.ProductID == nil && (req.Description == nil || *req.Description == "") {
			return builtLines{}, ErrBadLine
		}
		if !req.Quantity.IsPositive() || req.UnitPrice.IsNegative() {
			return builtLines{}, fmt.Errorf("invoicing: invalid quantity or price on line %d", i+1)
		}
		net := req.Quantity.Mul(req.UnitPrice).Round(2)
		tax := net.Mul(req.TaxPercent).Div(decimal.NewFromInt(100)).Round(2)
		line := InvoiceLine{
			ProductID:   req.ProductID,
			Description: req.Description,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
			TaxPercent:  req.TaxPercent,
			TaxAmount:   tax,
			LineTotal:   net.Add(tax),
			LineOrder:   req.LineOrder,
		}
		if line.LineOrder == 0 {
			line.LineOrder = i + 1
		}
		out.lines = append(out.lines, line)
		out.subtotal = out.subtotal.Add(net)
		out.tax = out.tax.Add(tax)
	}
	out.total = out.subtotal.Add(out.tax)
	return out, nil
}

func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest, createdBy int64) (Invoice, error) {
	if req.DueDate.Before(req.InvoiceDate) {
		return Invoice{}, fmt.Errorf("invoicing: due_date must be after invoice_date")
	}
	totals, err := buildLines(req.Lines)
	if err != nil {
		return Invoice{}, err
	}
	invoice := Invoice{
		BranchID:    req.BranchID,
		CustomerID:  req.CustomerID,
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		Status:      InvoiceStatusUnpaid,
		Subtotal:    totals.subtotal,
		TaxAmount:   totals.tax,
		TotalAmount: totals.total,
		AmountPaid:  decimal.Zero,
		Notes:       req.Notes,
		CreatedBy:   createdBy,
	}
	id, err := s.insertInvoice(ctx, invoice, totals.lines, nil)
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, createdBy, "invoice.create", id, nil)
	return s.repo.GetInvoice(ctx, id)
}

// ConvertQuotation copies an approved quotation into a new invoice and
// marks the quotation CONVERTED. Both writes happen in one transaction, so
// a quotation can only ever convert once.
func (s *Service) ConvertQuotation(ctx context.Context, req ConvertQuotationRequest, createdBy int64) (Invoice, error) {
	if req.DueDate.Before(req.InvoiceDate) {
		return Invoice{}, fmt.Errorf("invoicing: due_date must be after invoice_date")
	}
	quote, err := s.quotes.Get(ctx, req.QuotationID)
	if err != nil {
		return Invoice{}, fmt.Errorf("get quotation: %w", err)
	}
	if quote.Status != quotations.StatusApproved {
		return Invoice{}, ErrQuotationNotApproved
	}

	var lines []InvoiceLine
	for _, ql := range quote.Lines {
		lines = append(lines, InvoiceLine{
			ProductID:   ql.ProductID,
			Description: ql.Description,
			Quantity:    ql.Quantity,
			UnitPrice:   ql.UnitPrice,
			TaxPercent:  ql.TaxPercent,
			TaxAmount:   ql.TaxAmount,
			LineTotal:   ql.LineTotal,
			LineOrder:   ql.LineOrder,
		})
	}
	quotationID := quote.ID
	invoice := Invoice{
		BranchID:    quote.BranchID,
		CustomerID:  quote.CustomerID,
		QuotationID: &quotationID,
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		Status:      InvoiceStatusUnpaid,
		Subtotal:    quote.Subtotal,
		TaxAmount:   quote.TaxAmount,
		TotalAmount: quote.TotalAmount,
		AmountPaid:  decimal.Zero,
		Notes:       req.Notes,
		CreatedBy:   createdBy,
	}
	id, err := s.insertInvoice(ctx, invoice, lines, &quotationID)
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, createdBy, "invoice.convert", id, map[string]any{"quotation_id": quotationID})
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) insertInvoice(ctx context.Context, invoice Invoice, lines []InvoiceLine, convertQuotationID *int64) (int64, error) {
	var invoiceID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		docNumber, err := repo.GenerateNumber(ctx, invoice.BranchID, "IN", invoice.InvoiceDate)
		if err != nil {
			return fmt.Errorf("generate doc number: %w", err)
		}
		invoice.DocNumber = docNumber
		invoiceID, err = repo.CreateInvoice(ctx, invoice)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		for _, line := range lines {
			line.InvoiceID = invoiceID
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert invoice line: %w", err)
			}
		}
		if convertQuotationID != nil {
			if err := repo.ConvertQuotation(ctx, *convertQuotationID); err != nil {
				return err
			}
		}
		return nil
	})
	return invoiceID, err
}

// AddReceipt records a payment and rolls the invoice status forward.
// Payments must not exceed the outstanding balance.
func (s *Service) AddReceipt(ctx context.Context, req AddReceiptRequest, receivedBy int64) (Receipt, error) {
	if !req.Amount.IsPositive() {
		return Receipt{}, fmt.Errorf("invoicing: receipt amount must be positive")
	}
	var receipt Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		invoice, err := repo.GetInvoice(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		switch invoice.Status {
		case InvoiceStatusVoid:
			return ErrInvoiceVoid
		case InvoiceStatusPaid:
			return ErrInvoiceAlreadySettled
		}
		amount := req.Amount.Round(2)
		if amount.GreaterThan(invoice.Outstanding()) {
			return ErrOverpayment
		}
		docNumber, err := repo.GenerateNumber(ctx, invoice.BranchID, "RC", s.now())
		if err != nil {
			return fmt.Errorf("generate doc number: %w", err)
		}
		invoiceID := invoice.ID
		customerID := invoice.CustomerID
		currency := req.Currency
		if currency == "" {
			currency = DefaultCurrency
		}
		receipt, err = repo.InsertReceipt(ctx, Receipt{
			DocNumber:  docNumber,
			InvoiceID:  &invoiceID,
			PaymentID:  req.PaymentID,
			CustomerID: &customerID,
			Amount:     amount,
			Currency:   currency,
			Method:     req.Method,
			Reference:  req.Reference,
			ReceivedBy: receivedBy,
			ReceivedAt: s.now(),
			Notes:      req.Notes,
		})
		if err != nil {
			return err
		}
		paid := invoice.AmountPaid.Add(amount)
		status := InvoiceStatusPartial
		if paid.GreaterThanOrEqual(invoice.TotalAmount) {
			status = InvoiceStatusPaid
		}
		return repo.UpdatePayment(ctx, invoice.ID, paid, status)
	})
	if err != nil {
		return Receipt{}, err
	}
	receipt.AmountDisplay = FormatAmount(receipt.Amount)
	s.record(ctx, receivedBy, "invoice.receipt", req.InvoiceID, map[string]any{
		"receipt": receipt.DocNumber,
		"amount":  receipt.Amount.String(),
	})
	return receipt, nil
}

// IssueSaleReceipt prints a standalone receipt for a settled POS sale. The
// sale already posted its own journal entry, so no invoice is touched.
func (s *Service) IssueSaleReceipt(ctx context.Context, req IssueSaleReceiptRequest, issuedBy int64) (Receipt, error) {
	if s.sales == nil {
		return Receipt{}, fmt.Errorf("invoicing: sale lookups not configured")
	}
	sale, err := s.sales.GetSale(ctx, req.SaleID)
	if err != nil {
		return Receipt{}, fmt.Errorf("get sale: %w", err)
	}
	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	var receipt Receipt
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		docNumber, err := repo.GenerateNumber(ctx, sale.BranchID, "RC", s.now())
		if err != nil {
			return fmt.Errorf("generate doc number: %w", err)
		}
		saleID := sale.ID
		receipt, err = repo.InsertReceipt(ctx, Receipt{
			DocNumber:  docNumber,
			SaleID:     &saleID,
			CustomerID: sale.CustomerID,
			Amount:     sale.TotalAmount,
			Currency:   currency,
			Method:     string(sale.PaymentMethod),
			ReceivedBy: issuedBy,
			ReceivedAt: s.now(),
			Notes:      req.Notes,
		})
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	receipt.AmountDisplay = FormatAmount(receipt.Amount)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  issuedBy,
			Action:   "receipt.sale",
			Entity:   "receipt",
			EntityID: receipt.DocNumber,
			Meta:     map[string]any{"sale_id": sale.ID.String(), "amount": receipt.Amount.String()},
			At:       s.now(),
		})
	}
	return receipt, nil
}

// Void cancels an invoice that has no money recorded against it. Invoices
// with receipts cannot be voided.
func (s *Service) Void(ctx context.Context, id int64, actorID int64) (Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		invoice, err := repo.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if invoice.Status == InvoiceStatusVoid {
			return ErrInvoiceVoid
		}
		if !invoice.AmountPaid.IsZero() || invoice.Status != InvoiceStatusUnpaid {
			return ErrInvoiceHasPayments
		}
		return repo.VoidInvoice(ctx, id)
	})
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, actorID, "invoice.void", id, nil)
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.ListInvoices(ctx, req)
}

func (s *Service) Receipts(ctx context.Context, invoiceID int64) ([]Receipt, error) {
	if _, err := s.repo.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	receipts, err := s.repo.ListReceipts(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	for i := range receipts {
		receipts[i].AmountDisplay = FormatAmount(receipts[i].Amount)
	}
	return receipts, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}
