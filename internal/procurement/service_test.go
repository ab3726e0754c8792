package procurement

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
	purchases  map[int64]*Purchase
	items      map[int64][]PurchaseItem
	payments   map[int64][]Payment
	sequences  map[string]int64
	nextID     int64
	nextItemID int64
	nextPayID  int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		purchases:  make(map[int64]*Purchase),
		items:      make(map[int64][]PurchaseItem),
		payments:   make(map[int64][]Payment),
		sequences:  make(map[string]int64),
		nextID:     1,
		nextItemID: 1,
		nextPayID:  1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) CreatePurchase(ctx context.Context, p Purchase) (int64, error) {
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.nextID++
	m.purchases[p.ID] = &p
	return p.ID, nil
}

func (m *mockRepository) InsertItem(ctx context.Context, item PurchaseItem) (int64, error) {
	item.ID = m.nextItemID
	m.nextItemID++
	m.items[item.PurchaseID] = append(m.items[item.PurchaseID], item)
	return item.ID, nil
}

func (m *mockRepository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	p, ok := m.purchases[id]
	if !ok {
		return Purchase{}, ErrPurchaseNotFound
	}
	out := *p
	out.Items = m.items[id]
	return out, nil
}

func (m *mockRepository) ListPurchases(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error) {
	var out []Purchase
	for _, p := range m.purchases {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockRepository) UpdatePayment(ctx context.Context, id int64, amountPaid decimal.Decimal, status PurchaseStatus) error {
	p, ok := m.purchases[id]
	if !ok {
		return ErrPurchaseNotFound
	}
	p.AmountPaid = amountPaid
	p.Status = status
	return nil
}

func (m *mockRepository) InsertPayment(ctx context.Context, payment Payment) (Payment, error) {
	payment.ID = m.nextPayID
	payment.CreatedAt = time.Now()
	m.nextPayID++
	m.payments[payment.PurchaseID] = append(m.payments[payment.PurchaseID], payment)
	return payment, nil
}

func (m *mockRepository) ListPayments(ctx context.Context, purchaseID int64) ([]Payment, error) {
	return m.payments[purchaseID], nil
}

func (m *mockRepository) AssetItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error) {
	var out []PurchaseItem
	for _, item := range m.items[purchaseID] {
		if item.IsAsset {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockRepository) GenerateNumber(ctx context.Context, branchID int64, date time.Time) (string, error) {
	key := fmt.Sprintf("%d|PO|%s", branchID, date.Format("200601"))
	m.sequences[key]++
	return fmt.Sprintf("PO-%s-%04d", date.Format("0601"), m.sequences[key]), nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func intp(v int) *int { return &v }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strp(s string) *string { return &s }

func createRequest() CreatePurchaseRequest {
	return CreatePurchaseRequest{
		BranchID:   1,
		SupplierID: 33,
		OrderDate:  time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		Items: []CreateItemReq{
			{Description: "office chairs", Quantity: dec("10"), UnitCost: dec("85.00"), TaxPercent: dec("15")},
			{
				Description:        "delivery van",
				Quantity:           dec("1"),
				UnitCost:           dec("25000.00"),
				TaxPercent:         dec("15"),
				IsAsset:            true,
				DepreciationMethod: strp("STRAIGHT_LINE"),
				UsefulLifeMonths:   intp(60),
				SalvageValue:       decp("5000.00"),
				RegistrationNumber: strp("KDA 123X"),
			},
		},
	}
}

func TestCreateComputesTotals(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	p, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	// 850.00 + 25000.00 net, 15% tax on both.
	assert.True(t, p.Subtotal.Equal(dec("25850.00")), "subtotal %s", p.Subtotal)
	assert.True(t, p.TaxAmount.Equal(dec("3877.50")), "tax %s", p.TaxAmount)
	assert.True(t, p.TotalAmount.Equal(dec("29727.50")), "total %s", p.TotalAmount)
	assert.Equal(t, PurchaseStatusOrdered, p.Status)
	assert.Equal(t, "PO-2605-0001", p.DocNumber)
}

func TestCreateRejectsAssetWithoutUsefulLife(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	req := createRequest()
	req.Items[1].UsefulLifeMonths = nil
	_, err := svc.Create(context.Background(), req, 7)
	assert.ErrorIs(t, err, ErrBadAssetItem)
}

func TestAssetItemsReturnsOnlyFlaggedLines(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	p, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	items, err := svc.AssetItems(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "delivery van", items[0].Description)
	require.NotNil(t, items[0].UsefulLifeMonths)
	assert.Equal(t, 60, *items[0].UsefulLifeMonths)
}

func TestRecordPaymentRollsStatus(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	p, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), RecordPaymentRequest{
		PurchaseID: p.ID, Amount: dec("10000.00"), Method: "BANK",
	}, 9)
	require.NoError(t, err)

	p, err = svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, PurchaseStatusPartial, p.Status)
	assert.True(t, p.Outstanding().Equal(dec("19727.50")))

	_, err = svc.RecordPayment(context.Background(), RecordPaymentRequest{
		PurchaseID: p.ID, Amount: dec("19727.50"), Method: "BANK",
	}, 9)
	require.NoError(t, err)

	p, err = svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, PurchaseStatusPaid, p.Status)
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	p, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), RecordPaymentRequest{
		PurchaseID: p.ID, Amount: dec("29727.51"), Method: "BANK",
	}, 9)
	assert.ErrorIs(t, err, ErrOverpayment)
}

func TestRecordPaymentRejectsSettledPurchase(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	p, err := svc.Create(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), RecordPaymentRequest{
		PurchaseID: p.ID, Amount: dec("29727.50"), Method: "BANK",
	}, 9)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), RecordPaymentRequest{
		PurchaseID: p.ID, Amount: dec("1.00"), Method: "BANK",
	}, 9)
	assert.ErrorIs(t, err, ErrAlreadySettled)
}
