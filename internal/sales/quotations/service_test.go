package quotations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	quotations map[int64]*Quotation
	lines      map[int64][]Line
	sequences  map[string]int64
	nextID     int64
	nextLineID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quotations: make(map[int64]*Quotation),
		lines:      make(map[int64][]Line),
		sequences:  make(map[string]int64),
		nextID:     1,
		nextLineID: 1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Create(ctx context.Context, q Quotation) (int64, error) {
	q.ID = m.nextID
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.nextID++
	m.quotations[q.ID] = &q
	return q.ID, nil
}

func (m *mockRepository) InsertLine(ctx context.Context, line Line) (int64, error) {
	line.ID = m.nextLineID
	m.nextLineID++
	m.lines[line.QuotationID] = append(m.lines[line.QuotationID], line)
	return line.ID, nil
}

func (m *mockRepository) DeleteLines(ctx context.Context, quotationID int64) error {
	delete(m.lines, quotationID)
	return nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["subtotal"]; ok {
		q.Subtotal = v.(decimal.Decimal)
	}
	if v, ok := updates["tax_amount"]; ok {
		q.TaxAmount = v.(decimal.Decimal)
	}
	if v, ok := updates["total_amount"]; ok {
		q.TotalAmount = v.(decimal.Decimal)
	}
	if v, ok := updates["notes"]; ok {
		notes := v.(string)
		q.Notes = &notes
	}
	if v, ok := updates["quote_date"]; ok {
		q.QuoteDate = v.(time.Time)
	}
	if v, ok := updates["valid_until"]; ok {
		q.ValidUntil = v.(time.Time)
	}
	return nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, status Status, actorID int64, reason *string) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	now := time.Now()
	switch status {
	case StatusApproved:
		q.ApprovedBy = &actorID
		q.ApprovedAt = &now
	case StatusRejected:
		q.RejectedBy = &actorID
		q.RejectedAt = &now
		q.RejectionReason = reason
	}
	return nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	out := *q
	out.Lines = m.lines[id]
	return out, nil
}

func (m *mockRepository) List(ctx context.Context, req ListRequest) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range m.quotations {
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (m *mockRepository) GenerateNumber(ctx context.Context, branchID int64, date time.Time) (string, error) {
	key := fmt.Sprintf("%d|QT|%s", branchID, date.Format("200601"))
	m.sequences[key]++
	return fmt.Sprintf("QT-%s-%04d", date.Format("0601"), m.sequences[key]), nil
}

type mockCustomers struct {
	missing map[int64]bool
}

func (m *mockCustomers) Exists(ctx context.Context, id int64) error {
	if m.missing[id] {
		return fmt.Errorf("customer %d not found", id)
	}
	return nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func strp(s string) *string { return &s }

func int64p(v int64) *int64 { return &v }

func newTestService(repo *mockRepository) *Service {
	return NewService(repo, &mockCustomers{}, nil)
}

func createRequest() CreateRequest {
	quoteDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return CreateRequest{
		BranchID:   1,
		CustomerID: 42,
		QuoteDate:  quoteDate,
		ValidUntil: quoteDate.AddDate(0, 1, 0),
		Lines: []CreateLineReq{
			{ProductID: int64p(10), Quantity: dec("3"), UnitPrice: dec("19.99"), TaxPercent: dec("15")},
			{Description: strp("delivery fee"), Quantity: dec("1"), UnitPrice: dec("25.00"), TaxPercent: dec("0")},
		},
	}
}

func TestCreateComputesTotals(t *testing.T) {
	svc := newTestService(newMockRepository())

	q, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	// 3 x 19.99 = 59.97 net, 9.00 tax (15% rounded), plus 25.00 untaxed.
	assert.True(t, q.Subtotal.Equal(dec("84.97")), "subtotal %s", q.Subtotal)
	assert.True(t, q.TaxAmount.Equal(dec("9.00")), "tax %s", q.TaxAmount)
	assert.True(t, q.TotalAmount.Equal(dec("93.97")), "total %s", q.TotalAmount)
	assert.Equal(t, StatusDraft, q.Status)
	require.Len(t, q.Lines, 2)
	assert.Nil(t, q.Lines[1].ProductID, "free-text line keeps nil product")
}

func TestCreateAssignsSequentialDocNumbers(t *testing.T) {
	svc := newTestService(newMockRepository())

	first, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	assert.Equal(t, "QT-2603-0001", first.DocNumber)
	assert.Equal(t, "QT-2603-0002", second.DocNumber)
}

func TestCreateRejectsLineWithoutProductOrDescription(t *testing.T) {
	svc := newTestService(newMockRepository())

	req := createRequest()
	req.Lines = []CreateLineReq{{Quantity: dec("1"), UnitPrice: dec("5.00")}}
	_, err := svc.Create(context.Background(), req, 7)
	assert.ErrorIs(t, err, ErrBadLine)
}

func TestCreateRejectsExpiryBeforeQuoteDate(t *testing.T) {
	svc := newTestService(newMockRepository())

	req := createRequest()
	req.ValidUntil = req.QuoteDate.AddDate(0, 0, -1)
	_, err := svc.Create(context.Background(), req, 7)
	assert.Error(t, err)
}

func TestCreateRejectsUnknownCustomer(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, &mockCustomers{missing: map[int64]bool{42: true}}, nil)

	_, err := svc.Create(context.Background(), createRequest(), 7)
	assert.Error(t, err)
	assert.Empty(t, repo.quotations)
}

func TestSubmitApproveFlow(t *testing.T) {
	svc := newTestService(newMockRepository())

	q, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	q, err = svc.Submit(context.Background(), q.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, q.Status)

	q, err = svc.Approve(context.Background(), q.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, q.Status)
	require.NotNil(t, q.ApprovedBy)
	assert.Equal(t, int64(8), *q.ApprovedBy)
}

func TestApproveRequiresSubmitted(t *testing.T) {
	svc := newTestService(newMockRepository())

	q, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), q.ID, 8)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRejectRecordsReason(t *testing.T) {
	svc := newTestService(newMockRepository())

	q, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), q.ID, 7)
	require.NoError(t, err)

	q, err = svc.Reject(context.Background(), q.ID, 8, "pricing out of date")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, q.Status)
	require.NotNil(t, q.RejectionReason)
	assert.Equal(t, "pricing out of date", *q.RejectionReason)
}

func TestUpdateRejectsNonDraft(t *testing.T) {
	svc := newTestService(newMockRepository())

	q, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), q.ID, 7)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), q.ID, UpdateRequest{Notes: strp("late edit")}, 7)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateReplacesLinesAndTotals(t *testing.T) {
	svc := newTestService(newMockRepository())

	q, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	newLines := []CreateLineReq{
		{ProductID: int64p(11), Quantity: dec("1"), UnitPrice: dec("100.00"), TaxPercent: dec("15")},
	}
	q, err = svc.Update(context.Background(), q.ID, UpdateRequest{Lines: &newLines}, 7)
	require.NoError(t, err)

	assert.True(t, q.Subtotal.Equal(dec("100.00")))
	assert.True(t, q.TaxAmount.Equal(dec("15.00")))
	assert.True(t, q.TotalAmount.Equal(dec("115.00")))
	require.Len(t, q.Lines, 1)
}
