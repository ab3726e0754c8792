package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	entries     map[int64]*JournalEntry
	audits      map[string]*SaleAudit
	deprAudits  map[string]*DepreciationAudit
	nextEntryID int64
	nextNumber  int64

	auditInsertErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		entries:     make(map[int64]*JournalEntry),
		audits:      make(map[string]*SaleAudit),
		deprAudits:  make(map[string]*DepreciationAudit),
		nextEntryID: 1,
		nextNumber:  1,
	}
}

func auditKey(saleID uuid.UUID, origin Origin) string {
	return saleID.String() + "|" + string(origin)
}

func (m *mockRepository) List(ctx context.Context, limit, offset int) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range m.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	e, ok := m.entries[entryID]
	if !ok {
		return JournalEntry{}, ErrEntryNotFound
	}
	return *e, nil
}

func (m *mockRepository) ListAccounts(ctx context.Context) ([]Account, error) { return nil, nil }

func (m *mockRepository) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	return Account{}, ErrAccountNotFound
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTx{mock: m})
}

type mockTx struct {
	mock *mockRepository
}

func (t *mockTx) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	m := t.mock
	entry := JournalEntry{
		ID:     m.nextEntryID,
		Number: m.nextNumber,
		Date:   in.Date,
		Origin: in.Origin,
		Memo:   in.Memo,
		Status: EntryStatusPosted,
	}
	if in.CreatedBy != 0 {
		createdBy := in.CreatedBy
		entry.CreatedBy = &createdBy
	}
	m.entries[entry.ID] = &entry
	m.nextEntryID++
	m.nextNumber++
	return entry, nil
}

func (t *mockTx) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	e := t.mock.entries[entryID]
	for _, line := range lines {
		e.Lines = append(e.Lines, JournalLine{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit.Round(2),
			Credit:    line.Credit.Round(2),
			BranchID:  line.BranchID,
		})
	}
	return nil
}

func (t *mockTx) InsertSaleAudit(ctx context.Context, entryID int64, in SalePostingInput) error {
	if t.mock.auditInsertErr != nil {
		return t.mock.auditInsertErr
	}
	key := auditKey(in.SaleID, in.Origin)
	if _, exists := t.mock.audits[key]; exists {
		return ErrAlreadyPosted
	}
	t.mock.audits[key] = &SaleAudit{
		ID:      int64(len(t.mock.audits) + 1),
		EntryID: entryID,
		SaleID:  in.SaleID,
		Origin:  in.Origin,
	}
	return nil
}

func (t *mockTx) GetSaleAudit(ctx context.Context, saleID uuid.UUID, origin Origin) (SaleAudit, error) {
	a, ok := t.mock.audits[auditKey(saleID, origin)]
	if !ok {
		return SaleAudit{}, ErrEntryNotFound
	}
	return *a, nil
}

func (t *mockTx) InsertDepreciationAudit(ctx context.Context, entryID int64, in DepreciationPostingInput) error {
	if t.mock.auditInsertErr != nil {
		return t.mock.auditInsertErr
	}
	if _, exists := t.mock.deprAudits[in.Period]; exists {
		return ErrAlreadyPosted
	}
	t.mock.deprAudits[in.Period] = &DepreciationAudit{
		ID:      int64(len(t.mock.deprAudits) + 1),
		EntryID: entryID,
		Period:  in.Period,
	}
	return nil
}

func (t *mockTx) GetDepreciationAudit(ctx context.Context, period string) (DepreciationAudit, error) {
	a, ok := t.mock.deprAudits[period]
	if !ok {
		return DepreciationAudit{}, ErrEntryNotFound
	}
	return *a, nil
}

func (t *mockTx) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	return t.mock.Get(ctx, entryID)
}

func (t *mockTx) UpdateEntryStatus(ctx context.Context, entryID int64, status EntryStatus) error {
	e, ok := t.mock.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	e.Status = status
	return nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func balancedLines() []PostingLineInput {
	return []PostingLineInput{
		{AccountID: 1, Debit: dec("107.00")},
		{AccountID: 2, Credit: dec("100.00")},
		{AccountID: 3, Credit: dec("7.00")},
	}
}

func TestPostManualRejectsUnbalancedLines(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.PostManual(context.Background(), PostingInput{
		Date: time.Now(),
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: dec("10.00")},
			{AccountID: 2, Credit: dec("9.99")},
		},
	})
	assert.ErrorIs(t, err, ErrUnbalanced)
}

func TestPostManualRejectsSingleLine(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.PostManual(context.Background(), PostingInput{
		Date:  time.Now(),
		Lines: []PostingLineInput{{AccountID: 1, Debit: dec("10.00")}},
	})
	assert.ErrorIs(t, err, ErrTooFewLines)
}

func TestPostManualRejectsLineWithDebitAndCredit(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.PostManual(context.Background(), PostingInput{
		Date: time.Now(),
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: dec("10.00"), Credit: dec("10.00")},
			{AccountID: 2, Credit: dec("10.00")},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be both")
}

func TestPostManualSetsManualOrigin(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	entry, err := svc.PostManual(context.Background(), PostingInput{
		Date:      time.Now(),
		Memo:      "opening balances",
		CreatedBy: 5,
		Lines:     balancedLines(),
	})
	require.NoError(t, err)
	assert.Equal(t, OriginManual, entry.Origin)
	require.NotNil(t, entry.CreatedBy)
	assert.Equal(t, int64(5), *entry.CreatedBy)
}

func TestPostManualRejectsZeroAmountLine(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.PostManual(context.Background(), PostingInput{
		Date: time.Now(),
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: dec("10.00")},
			{AccountID: 2},
			{AccountID: 3, Credit: dec("10.00")},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a debit or credit")
}

func TestPostDepreciationIsIdempotentPerPeriod(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	input := DepreciationPostingInput{
		PostingInput: PostingInput{Date: time.Now(), Memo: "Depreciation 2026-01", CreatedBy: 2, Lines: balancedLines()},
		Period:       "2026-01",
	}

	first, err := svc.PostDepreciation(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, OriginDepreciation, first.Origin)

	second, err := svc.PostDepreciation(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "retry must return the original entry")
	assert.NotEmpty(t, second.Lines, "replay carries lines for total comparison")
	assert.Len(t, repo.entries, 1)
	assert.Len(t, repo.deprAudits, 1)
}

func TestPostDepreciationRequiresPeriod(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.PostDepreciation(context.Background(), DepreciationPostingInput{
		PostingInput: PostingInput{Date: time.Now(), Lines: balancedLines()},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "period required")
}

func TestPostSaleIsIdempotentPerSaleAndOrigin(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	saleID := uuid.New()

	input := SalePostingInput{
		PostingInput: PostingInput{Date: time.Now(), Memo: "POS sale", CreatedBy: 2, Lines: balancedLines()},
		SaleID:       saleID,
	}

	first, err := svc.PostSale(context.Background(), input)
	require.NoError(t, err)

	second, err := svc.PostSale(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "retry must return the original entry")
	assert.Len(t, repo.entries, 1)
	assert.Len(t, repo.audits, 1)
}

func TestPostSaleConcurrentDuplicateSurfacesAlreadyPosted(t *testing.T) {
	repo := newMockRepository()
	// Simulate the race: the audit row check misses but the constraint fires.
	repo.auditInsertErr = ErrAlreadyPosted
	svc := NewService(repo, nil)

	_, err := svc.PostSale(context.Background(), SalePostingInput{
		PostingInput: PostingInput{Date: time.Now(), Lines: balancedLines()},
		SaleID:       uuid.New(),
	})
	assert.ErrorIs(t, err, ErrAlreadyPosted)
}

func TestPostSaleAllowsManualCorrectionForSameSale(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	saleID := uuid.New()

	_, err := svc.PostSale(context.Background(), SalePostingInput{
		PostingInput: PostingInput{Date: time.Now(), Lines: balancedLines()},
		SaleID:       saleID,
	})
	require.NoError(t, err)

	// A manual entry referencing the same sale posts under a different
	// origin and must not collide with the automated one.
	_, err = svc.PostManual(context.Background(), PostingInput{
		Date:  time.Now(),
		Memo:  "correction for sale " + saleID.String(),
		Lines: balancedLines(),
	})
	require.NoError(t, err)
	assert.Len(t, repo.entries, 2)
}

func TestVoidRejectsAlreadyVoidEntry(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	entry, err := svc.PostManual(context.Background(), PostingInput{
		Date:  time.Now(),
		Lines: balancedLines(),
	})
	require.NoError(t, err)

	_, err = svc.Void(context.Background(), VoidInput{EntryID: entry.ID, ActorID: 1, Reason: "dup"})
	require.NoError(t, err)

	_, err = svc.Void(context.Background(), VoidInput{EntryID: entry.ID, ActorID: 1, Reason: "again"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
