package invoicing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-retail/arcadia/internal/pos"
	"github.com/arcadia-retail/arcadia/internal/sales/quotations"
)

type mockRepository struct {
	invoices      map[int64]*Invoice
	lines         map[int64][]InvoiceLine
	receipts      map[int64][]Receipt
	converted     map[int64]bool
	sequences     map[string]int64
	nextInvoiceID int64
	nextReceiptID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		invoices:      make(map[int64]*Invoice),
		lines:         make(map[int64][]InvoiceLine),
		receipts:      make(map[int64][]Receipt),
		converted:     make(map[int64]bool),
		sequences:     make(map[string]int64),
		nextInvoiceID: 1,
		nextReceiptID: 1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	inv.ID = m.nextInvoiceID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	m.nextInvoiceID++
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *mockRepository) InsertLine(ctx context.Context, line InvoiceLine) (int64, error) {
	line.ID = int64(len(m.lines[line.InvoiceID]) + 1)
	m.lines[line.InvoiceID] = append(m.lines[line.InvoiceID], line)
	return line.ID, nil
}

func (m *mockRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	out := *inv
	out.Lines = m.lines[id]
	return out, nil
}

func (m *mockRepository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (m *mockRepository) UpdatePayment(ctx context.Context, id int64, amountPaid decimal.Decimal, status InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.AmountPaid = amountPaid
	inv.Status = status
	return nil
}

func (m *mockRepository) VoidInvoice(ctx context.Context, id int64) error {
	inv, ok := m.invoices[id]
	if !ok || inv.Status != InvoiceStatusUnpaid || !inv.AmountPaid.IsZero() {
		return ErrInvoiceHasPayments
	}
	inv.Status = InvoiceStatusVoid
	return nil
}

func (m *mockRepository) ConvertQuotation(ctx context.Context, quotationID int64) error {
	if m.converted[quotationID] {
		return ErrQuotationNotApproved
	}
	m.converted[quotationID] = true
	return nil
}

func (m *mockRepository) InsertReceipt(ctx context.Context, rc Receipt) (Receipt, error) {
	rc.ID = m.nextReceiptID
	rc.CreatedAt = time.Now()
	m.nextReceiptID++
	var key int64
	if rc.InvoiceID != nil {
		key = *rc.InvoiceID
	}
	m.receipts[key] = append(m.receipts[key], rc)
	return rc, nil
}

func (m *mockRepository) ListReceipts(ctx context.Context, invoiceID int64) ([]Receipt, error) {
	return m.receipts[invoiceID], nil
}

func (m *mockRepository) GenerateNumber(ctx context.Context, branchID int64, docType string, date time.Time) (string, error) {
	key := fmt.Sprintf("%d|%s|%s", branchID, docType, date.Format("200601"))
	m.sequences[key]++
	return fmt.Sprintf("%s-%s-%04d", docType, date.Format("0601"), m.sequences[key]), nil
}

type mockQuotations struct {
	quotes map[int64]quotations.Quotation
	repo   *mockRepository
}

func (m *mockQuotations) Get(ctx context.Context, id int64) (quotations.Quotation, error) {
	q, ok := m.quotes[id]
	if !ok {
		return quotations.Quotation{}, quotations.ErrNotFound
	}
	if m.repo != nil && m.repo.converted[id] {
		q.Status = quotations.StatusConverted
	}
	return q, nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func int64p(v int64) *int64 { return &v }

func strp(s string) *string { return &s }

type mockSales struct {
	sales map[uuid.UUID]pos.Sale
}

func (m *mockSales) GetSale(ctx context.Context, id uuid.UUID) (pos.Sale, error) {
	sale, ok := m.sales[id]
	if !ok {
		return pos.Sale{}, pos.ErrSaleNotFound
	}
	return sale, nil
}

func newTestService(repo *mockRepository, quotes *mockQuotations) *Service {
	if quotes == nil {
		quotes = &mockQuotations{quotes: map[int64]quotations.Quotation{}}
	}
	quotes.repo = repo
	return NewService(repo, quotes, nil, nil)
}

func createRequest() CreateInvoiceRequest {
	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return CreateInvoiceRequest{
		BranchID:    1,
		CustomerID:  42,
		InvoiceDate: date,
		DueDate:     date.AddDate(0, 0, 30),
		Lines: []CreateLineReq{
			{ProductID: int64p(10), Quantity: dec("2"), UnitPrice: dec("500.00"), TaxPercent: dec("15")},
		},
	}
}

func approvedQuote() quotations.Quotation {
	return quotations.Quotation{
		ID:          77,
		BranchID:    1,
		CustomerID:  42,
		Status:      quotations.StatusApproved,
		Subtotal:    dec("1000.00"),
		TaxAmount:   dec("150.00"),
		TotalAmount: dec("1150.00"),
		Lines: []quotations.Line{
			{ProductID: int64p(10), Quantity: dec("2"), UnitPrice: dec("500.00"),
				TaxPercent: dec("15"), TaxAmount: dec("150.00"), LineTotal: dec("1150.00"), LineOrder: 1},
		},
	}
}

func TestCreateComputesTotalsAndStartsUnpaid(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	inv, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusUnpaid, inv.Status)
	assert.True(t, inv.TotalAmount.Equal(dec("1150.00")), "total %s", inv.TotalAmount)
	assert.True(t, inv.AmountPaid.IsZero())
	assert.Equal(t, "IN-2604-0001", inv.DocNumber)
}

func TestConvertQuotationCopiesTotalsAndMarksConverted(t *testing.T) {
	repo := newMockRepository()
	quotes := &mockQuotations{quotes: map[int64]quotations.Quotation{77: approvedQuote()}}
	svc := newTestService(repo, quotes)

	date := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	inv, err := svc.ConvertQuotation(context.Background(), ConvertQuotationRequest{
		QuotationID: 77, InvoiceDate: date, DueDate: date.AddDate(0, 0, 14),
	}, 7)
	require.NoError(t, err)

	require.NotNil(t, inv.QuotationID)
	assert.Equal(t, int64(77), *inv.QuotationID)
	assert.True(t, inv.TotalAmount.Equal(dec("1150.00")))
	require.Len(t, inv.Lines, 1)
	assert.True(t, repo.converted[77], "quotation must flip to CONVERTED in the same tx")
}

func TestConvertQuotationTwiceRejected(t *testing.T) {
	repo := newMockRepository()
	quotes := &mockQuotations{quotes: map[int64]quotations.Quotation{77: approvedQuote()}}
	svc := newTestService(repo, quotes)

	date := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	req := ConvertQuotationRequest{QuotationID: 77, InvoiceDate: date, DueDate: date.AddDate(0, 0, 14)}
	_, err := svc.ConvertQuotation(context.Background(), req, 7)
	require.NoError(t, err)

	_, err = svc.ConvertQuotation(context.Background(), req, 7)
	assert.ErrorIs(t, err, ErrQuotationNotApproved)
}

func TestConvertRequiresApprovedQuotation(t *testing.T) {
	draft := approvedQuote()
	draft.Status = quotations.StatusDraft
	quotes := &mockQuotations{quotes: map[int64]quotations.Quotation{77: draft}}
	svc := newTestService(newMockRepository(), quotes)

	date := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.ConvertQuotation(context.Background(), ConvertQuotationRequest{
		QuotationID: 77, InvoiceDate: date, DueDate: date.AddDate(0, 0, 14),
	}, 7)
	assert.ErrorIs(t, err, ErrQuotationNotApproved)
}

func TestAddReceiptRollsStatusForward(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	inv, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	receipt, err := svc.AddReceipt(context.Background(), AddReceiptRequest{
		InvoiceID: inv.ID, Amount: dec("150.00"), Method: "BANK",
	}, 9)
	require.NoError(t, err)
	assert.Equal(t, "RC", receipt.DocNumber[:2])

	inv, err = svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPartial, inv.Status)
	assert.True(t, inv.Outstanding().Equal(dec("1000.00")))

	_, err = svc.AddReceipt(context.Background(), AddReceiptRequest{
		InvoiceID: inv.ID, Amount: dec("1000.00"), Method: "BANK",
	}, 9)
	require.NoError(t, err)

	inv, err = svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.Outstanding().IsZero())
}

func TestAddReceiptRejectsOverpayment(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	inv, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	_, err = svc.AddReceipt(context.Background(), AddReceiptRequest{
		InvoiceID: inv.ID, Amount: dec("1150.01"), Method: "BANK",
	}, 9)
	assert.ErrorIs(t, err, ErrOverpayment)
}

func TestAddReceiptRejectsSettledInvoice(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	inv, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	_, err = svc.AddReceipt(context.Background(), AddReceiptRequest{
		InvoiceID: inv.ID, Amount: dec("1150.00"), Method: "CASH",
	}, 9)
	require.NoError(t, err)

	_, err = svc.AddReceipt(context.Background(), AddReceiptRequest{
		InvoiceID: inv.ID, Amount: dec("1.00"), Method: "CASH",
	}, 9)
	assert.ErrorIs(t, err, ErrInvoiceAlreadySettled)
}

func TestAddReceiptRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	inv, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	_, err = svc.AddReceipt(context.Background(), AddReceiptRequest{
		InvoiceID: inv.ID, Amount: dec("0"), Method: "CASH",
	}, 9)
	assert.Error(t, err)
}

func TestVoidUnpaidInvoice(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	inv, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	voided, err := svc.Void(context.Background(), inv.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusVoid, voided.Status)

	_, err = svc.Void(context.Background(), inv.ID, 7)
	assert.ErrorIs(t, err, ErrInvoiceVoid)
}

func TestVoidRejectedAfterReceipt(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	inv, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	_, err = svc.AddReceipt(context.Background(), AddReceiptRequest{
		InvoiceID: inv.ID, Amount: dec("100.00"), Method: "CASH",
	}, 9)
	require.NoError(t, err)

	_, err = svc.Void(context.Background(), inv.ID, 7)
	assert.ErrorIs(t, err, ErrInvoiceHasPayments)
}

func TestAddReceiptCarriesCustomerAndCurrency(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)
	inv, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	receipt, err := svc.AddReceipt(context.Background(), AddReceiptRequest{
		InvoiceID: inv.ID, Amount: dec("100.00"), Method: "BANK",
	}, 9)
	require.NoError(t, err)
	require.NotNil(t, receipt.CustomerID)
	assert.Equal(t, int64(42), *receipt.CustomerID)
	assert.Equal(t, DefaultCurrency, receipt.Currency)
}

func TestIssueSaleReceiptCopiesSaleTotals(t *testing.T) {
	repo := newMockRepository()
	saleID := uuid.New()
	customerID := int64(42)
	sales := &mockSales{sales: map[uuid.UUID]pos.Sale{
		saleID: {
			ID: saleID, BranchID: 1, CustomerID: &customerID,
			TotalAmount: dec("250.00"), PaymentMethod: pos.PaymentCash,
		},
	}}
	quotes := &mockQuotations{quotes: map[int64]quotations.Quotation{}, repo: repo}
	svc := NewService(repo, quotes, sales, nil)

	receipt, err := svc.IssueSaleReceipt(context.Background(), IssueSaleReceiptRequest{SaleID: saleID}, 9)
	require.NoError(t, err)
	assert.Equal(t, "RC", receipt.DocNumber[:2])
	require.NotNil(t, receipt.SaleID)
	assert.Equal(t, saleID, *receipt.SaleID)
	assert.True(t, receipt.Amount.Equal(dec("250.00")))
	assert.Equal(t, "CASH", receipt.Method)
	assert.Nil(t, receipt.InvoiceID)
}

func TestIssueSaleReceiptUnknownSale(t *testing.T) {
	repo := newMockRepository()
	quotes := &mockQuotations{quotes: map[int64]quotations.Quotation{}, repo: repo}
	svc := NewService(repo, quotes, &mockSales{sales: map[uuid.UUID]pos.Sale{}}, nil)

	_, err := svc.IssueSaleReceipt(context.Background(), IssueSaleReceiptRequest{SaleID: uuid.New()}, 9)
	assert.ErrorIs(t, err, pos.ErrSaleNotFound)
}

func TestFormatAmountGroupsThousands(t *testing.T) {
	assert.Equal(t, "1,234,567.50", FormatAmount(dec("1234567.5")))
	assert.Equal(t, "0.00", FormatAmount(dec("0")))
}
