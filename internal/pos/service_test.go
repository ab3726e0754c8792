package pos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-retail/arcadia/internal/ledger"
)

type mockRepository struct {
	sessions      map[int64]*Session
	sales         map[uuid.UUID]*Sale
	recons        map[int64]*Reconciliation
	nextSessionID int64
	nextReconID   int64

	cashSales decimal.Decimal
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		sessions:      make(map[int64]*Session),
		sales:         make(map[uuid.UUID]*Sale),
		recons:        make(map[int64]*Reconciliation),
		nextSessionID: 1,
		nextReconID:   1,
	}
}

func (m *mockRepository) OpenSession(ctx context.Context, session Session) (Session, error) {
	for _, s := range m.sessions {
		if s.CashierID == session.CashierID && s.BranchID == session.BranchID && s.Status == SessionStatusOpen {
			return Session{}, ErrSessionStillOpen
		}
	}
	session.ID = m.nextSessionID
	session.Status = SessionStatusOpen
	session.OpenedAt = time.Now()
	m.nextSessionID++
	m.sessions[session.ID] = &session
	return session, nil
}

func (m *mockRepository) GetSession(ctx context.Context, id int64) (Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *s, nil
}

func (m *mockRepository) CloseSession(ctx context.Context, id int64) (Session, error) {
	s, ok := m.sessions[id]
	if !ok || s.Status != SessionStatusOpen {
		return Session{}, ErrSessionClosed
	}
	now := time.Now()
	s.Status = SessionStatusClosed
	s.ClosedAt = &now
	return *s, nil
}

func (m *mockRepository) ListSessions(ctx context.Context, req ListSessionsRequest) ([]Session, error) {
	var out []Session
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockRepository) InsertSale(ctx context.Context, sale Sale) error {
	copied := sale
	m.sales[sale.ID] = &copied
	return nil
}

func (m *mockRepository) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	return *s, nil
}

func (m *mockRepository) SetSaleJournal(ctx context.Context, saleID uuid.UUID, journalID int64) error {
	s, ok := m.sales[saleID]
	if !ok {
		return ErrSaleNotFound
	}
	s.JournalID = &journalID
	return nil
}

func (m *mockRepository) CashSalesForSession(ctx context.Context, sessionID int64) (decimal.Decimal, error) {
	return m.cashSales, nil
}

func (m *mockRepository) InsertReconciliation(ctx context.Context, recon Reconciliation) (Reconciliation, error) {
	if _, exists := m.recons[recon.SessionID]; exists {
		return Reconciliation{}, ErrAlreadyReconciled
	}
	recon.ID = m.nextReconID
	recon.CreatedAt = time.Now()
	m.nextReconID++
	m.recons[recon.SessionID] = &recon
	return recon, nil
}

func (m *mockRepository) GetReconciliation(ctx context.Context, sessionID int64) (Reconciliation, error) {
	r, ok := m.recons[sessionID]
	if !ok {
		return Reconciliation{}, ErrReconNotFound
	}
	return *r, nil
}

func (m *mockRepository) MarkVerified(ctx context.Context, sessionID, verifierID int64) (Reconciliation, error) {
	r, ok := m.recons[sessionID]
	if !ok {
		return Reconciliation{}, ErrReconNotFound
	}
	if r.VerifiedBy != nil {
		return Reconciliation{}, ErrAlreadyVerified
	}
	now := time.Now()
	r.VerifiedBy = &verifierID
	r.VerifiedAt = &now
	return *r, nil
}

func (m *mockRepository) ListUnverifiedReconciliations(ctx context.Context) ([]Reconciliation, error) {
	var out []Reconciliation
	for _, r := range m.recons {
		if r.VerifiedBy == nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

type mockLedger struct {
	lastInput ledger.SalePostingInput
	postErr   error
	nextID    int64
	accounts  map[string]ledger.Account
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		nextID: 100,
		accounts: map[string]ledger.Account{
			"4000": {ID: 40, Code: "4000", Name: "Sales Revenue"},
			"2150": {ID: 21, Code: "2150", Name: "VAT Output"},
		},
	}
}

func (m *mockLedger) PostSale(ctx context.Context, input ledger.SalePostingInput) (ledger.JournalEntry, error) {
	if m.postErr != nil {
		return ledger.JournalEntry{}, m.postErr
	}
	m.lastInput = input
	m.nextID++
	return ledger.JournalEntry{ID: m.nextID, Origin: ledger.OriginPOSAuto, Status: ledger.EntryStatusPosted}, nil
}

func (m *mockLedger) AccountByCode(ctx context.Context, code string) (ledger.Account, error) {
	acc, ok := m.accounts[code]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return acc, nil
}

type mockSettings struct {
	bankAccountID int64
	err           error
}

func (m *mockSettings) POSBankAccount(ctx context.Context, branchID int64) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.bankAccountID, nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newTestService(repo *mockRepository, lg *mockLedger) *Service {
	return NewService(repo, lg, &mockSettings{bankAccountID: 7}, nil)
}

func openSession(t *testing.T, svc *Service, branchID, cashierID int64, float string) Session {
	t.Helper()
	session, err := svc.OpenSession(context.Background(), cashierID, OpenSessionRequest{
		BranchID:   branchID,
		FloatGiven: dec(float),
	})
	require.NoError(t, err)
	return session
}

func TestOpenSessionRejectsSecondOpenShift(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockLedger())

	openSession(t, svc, 1, 9, "100.00")
	_, err := svc.OpenSession(context.Background(), 9, OpenSessionRequest{BranchID: 1, FloatGiven: dec("50.00")})
	assert.ErrorIs(t, err, ErrSessionStillOpen)
}

func TestOpenSessionAllowsShiftAtAnotherBranch(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockLedger())

	openSession(t, svc, 1, 9, "100.00")
	session, err := svc.OpenSession(context.Background(), 9, OpenSessionRequest{BranchID: 2, FloatGiven: dec("50.00")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), session.BranchID)
}

func TestOpenSessionRejectsNegativeFloat(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockLedger())

	_, err := svc.OpenSession(context.Background(), 9, OpenSessionRequest{BranchID: 1, FloatGiven: dec("-1.00")})
	assert.Error(t, err)
}

func TestPostSaleBuildsBalancedJournal(t *testing.T) {
	repo := newMockRepository()
	lg := newMockLedger()
	svc := newTestService(repo, lg)
	session := openSession(t, svc, 3, 9, "100.00")

	sale, err := svc.PostSale(context.Background(), 9, PostSaleRequest{
		SessionID:     session.ID,
		PaymentMethod: PaymentCash,
		Items: []PostSaleItemReq{
			{ProductID: 1, Quantity: dec("2"), UnitPrice: dec("10.00"), TaxPercent: dec("15")},
			{ProductID: 2, Quantity: dec("1"), UnitPrice: dec("5.50"), TaxPercent: dec("15")},
		},
	})
	require.NoError(t, err)

	assert.True(t, sale.Subtotal.Equal(dec("25.50")), "subtotal %s", sale.Subtotal)
	assert.True(t, sale.TaxAmount.Equal(dec("3.83")), "tax %s", sale.TaxAmount)
	assert.True(t, sale.TotalAmount.Equal(dec("29.33")), "total %s", sale.TotalAmount)

	lines := lg.lastInput.Lines
	require.Len(t, lines, 3)
	assert.Equal(t, int64(7), lines[0].AccountID)
	assert.True(t, lines[0].Debit.Equal(dec("29.33")))
	assert.Equal(t, int64(40), lines[1].AccountID)
	assert.True(t, lines[1].Credit.Equal(dec("25.50")))
	assert.Equal(t, int64(21), lines[2].AccountID)
	assert.True(t, lines[2].Credit.Equal(dec("3.83")))

	assert.Equal(t, sale.ID, lg.lastInput.SaleID)
	require.NotNil(t, lg.lastInput.SessionID)
	assert.Equal(t, session.ID, *lg.lastInput.SessionID)

	stored, err := repo.GetSale(context.Background(), sale.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.JournalID, "sale must be linked to its journal entry")
}

func TestPostSaleZeroTaxOmitsVATLine(t *testing.T) {
	lg := newMockLedger()
	svc := newTestService(newMockRepository(), lg)
	session := openSession(t, svc, 3, 9, "0.00")

	sale, err := svc.PostSale(context.Background(), 9, PostSaleRequest{
		SessionID:     session.ID,
		PaymentMethod: PaymentCard,
		Items: []PostSaleItemReq{
			{ProductID: 1, Quantity: dec("3"), UnitPrice: dec("4.00"), TaxPercent: dec("0")},
		},
	})
	require.NoError(t, err)
	assert.True(t, sale.TaxAmount.IsZero())
	require.Len(t, lg.lastInput.Lines, 2)
}

func TestPostSaleRejectsClosedSession(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockLedger())
	session := openSession(t, svc, 3, 9, "100.00")
	_, err := svc.CloseSession(context.Background(), session.ID, 9)
	require.NoError(t, err)

	_, err = svc.PostSale(context.Background(), 9, PostSaleRequest{
		SessionID:     session.ID,
		PaymentMethod: PaymentCash,
		Items:         []PostSaleItemReq{{ProductID: 1, Quantity: dec("1"), UnitPrice: dec("1.00")}},
	})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestPostSaleSurfacesDuplicatePosting(t *testing.T) {
	lg := newMockLedger()
	lg.postErr = ledger.ErrAlreadyPosted
	svc := newTestService(newMockRepository(), lg)
	session := openSession(t, svc, 3, 9, "100.00")

	_, err := svc.PostSale(context.Background(), 9, PostSaleRequest{
		SessionID:     session.ID,
		PaymentMethod: PaymentCash,
		Items:         []PostSaleItemReq{{ProductID: 1, Quantity: dec("1"), UnitPrice: dec("1.00")}},
	})
	assert.ErrorIs(t, err, ledger.ErrAlreadyPosted)
}

func TestReconcileComputesVariance(t *testing.T) {
	repo := newMockRepository()
	repo.cashSales = dec("250.50")
	svc := newTestService(repo, newMockLedger())
	session := openSession(t, svc, 1, 9, "100.00")
	_, err := svc.CloseSession(context.Background(), session.ID, 9)
	require.NoError(t, err)

	recon, err := svc.Reconcile(context.Background(), 11, ReconcileRequest{
		SessionID:     session.ID,
		CashCollected: dec("345.25"),
	})
	require.NoError(t, err)
	assert.True(t, recon.ExpectedCash.Equal(dec("350.50")), "expected %s", recon.ExpectedCash)
	assert.True(t, recon.Variance.Equal(dec("-5.25")), "variance %s", recon.Variance)
	assert.True(t, recon.CashSales.Equal(dec("250.50")))
}

func TestReconcileExactCountHasZeroVariance(t *testing.T) {
	repo := newMockRepository()
	repo.cashSales = dec("200.00")
	svc := newTestService(repo, newMockLedger())
	session := openSession(t, svc, 1, 9, "50.00")
	_, err := svc.CloseSession(context.Background(), session.ID, 9)
	require.NoError(t, err)

	recon, err := svc.Reconcile(context.Background(), 11, ReconcileRequest{
		SessionID:     session.ID,
		CashCollected: dec("250.00"),
	})
	require.NoError(t, err)
	assert.True(t, recon.Variance.IsZero(), "variance %s", recon.Variance)
}

func TestReconcileRequiresClosedSession(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockLedger())
	session := openSession(t, svc, 1, 9, "50.00")

	_, err := svc.Reconcile(context.Background(), 11, ReconcileRequest{
		SessionID:     session.ID,
		CashCollected: dec("50.00"),
	})
	assert.ErrorIs(t, err, ErrSessionNotClosed)
}

func TestReconcileTwiceRejected(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockLedger())
	session := openSession(t, svc, 1, 9, "50.00")
	_, err := svc.CloseSession(context.Background(), session.ID, 9)
	require.NoError(t, err)

	req := ReconcileRequest{SessionID: session.ID, CashCollected: dec("50.00")}
	_, err = svc.Reconcile(context.Background(), 11, req)
	require.NoError(t, err)

	_, err = svc.Reconcile(context.Background(), 11, req)
	assert.ErrorIs(t, err, ErrAlreadyReconciled)
}

func TestVerifyTwiceRejected(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockLedger())
	session := openSession(t, svc, 1, 9, "50.00")
	_, err := svc.CloseSession(context.Background(), session.ID, 9)
	require.NoError(t, err)
	_, err = svc.Reconcile(context.Background(), 11, ReconcileRequest{SessionID: session.ID, CashCollected: dec("50.00")})
	require.NoError(t, err)

	recon, err := svc.Verify(context.Background(), session.ID, 12)
	require.NoError(t, err)
	require.NotNil(t, recon.VerifiedBy)
	assert.Equal(t, int64(12), *recon.VerifiedBy)

	_, err = svc.Verify(context.Background(), session.ID, 13)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}
