package dimensions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-retail/arcadia/internal/ledger"
)

type mockRepository struct {
	template     Template
	accounts     []ledger.Account
	requirements map[int64][]Requirement
	nextReqID    int64

	insertErrByAccount map[int64]error
	reqListErrByAcct   map[int64]error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		requirements:       make(map[int64][]Requirement),
		nextReqID:          1,
		insertErrByAccount: make(map[int64]error),
		reqListErrByAcct:   make(map[int64]error),
	}
}

func (m *mockRepository) CreateDimension(ctx context.Context, d Dimension) (Dimension, error) {
	d.ID = 1
	return d, nil
}

func (m *mockRepository) ListDimensions(ctx context.Context) ([]Dimension, error) { return nil, nil }

func (m *mockRepository) CreateValue(ctx context.Context, v Value) (Value, error) { return v, nil }

func (m *mockRepository) ListValues(ctx context.Context, dimensionID int64) ([]Value, error) {
	return nil, nil
}

func (m *mockRepository) RequirementsForAccount(ctx context.Context, accountID int64) ([]Requirement, error) {
	if err := m.reqListErrByAcct[accountID]; err != nil {
		return nil, err
	}
	return m.requirements[accountID], nil
}

func (m *mockRepository) InsertRequirement(ctx context.Context, req Requirement) (Requirement, error) {
	if err := m.insertErrByAccount[req.AccountID]; err != nil {
		return Requirement{}, err
	}
	for _, existing := range m.requirements[req.AccountID] {
		if existing.DimensionID == req.DimensionID {
			return Requirement{}, ErrRequirementExists
		}
	}
	req.ID = m.nextReqID
	m.nextReqID++
	m.requirements[req.AccountID] = append(m.requirements[req.AccountID], req)
	return req, nil
}

func (m *mockRepository) CreateTemplate(ctx context.Context, tpl Template) (Template, error) {
	tpl.ID = 1
	return tpl, nil
}

func (m *mockRepository) GetTemplate(ctx context.Context, id int64) (Template, error) {
	if m.template.ID != id {
		return Template{}, ErrTemplateNotFound
	}
	return m.template, nil
}

func (m *mockRepository) SelectAccounts(ctx context.Context, sel AccountSelector) ([]ledger.Account, error) {
	return m.accounts, nil
}

func (m *mockRepository) Balances(ctx context.Context, filter BalanceFilter) ([]Balance, error) {
	return nil, nil
}

func costCenterTemplate() Template {
	return Template{
		ID:   10,
		Name: "expense defaults",
		Items: []TemplateItem{
			{DimensionID: 1, Priority: 1},
			{DimensionID: 2, Priority: 2},
		},
	}
}

func TestApplyTemplateCreatesMissingRequirementsOnly(t *testing.T) {
	repo := newMockRepository()
	repo.template = costCenterTemplate()
	repo.accounts = []ledger.Account{
		{ID: 100, Code: "5000"},
		{ID: 101, Code: "5100"},
		{ID: 102, Code: "5200"},
	}
	// Account 101 already requires dimension 1.
	repo.requirements[101] = []Requirement{{ID: 99, AccountID: 101, DimensionID: 1}}

	svc := NewService(repo, nil)
	report, err := svc.ApplyTemplate(context.Background(), 10, AccountSelector{AccountType: "EXPENSE"}, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, report.AccountsProcessed)
	// 3 accounts x 2 dimensions, minus the one pre-existing pair.
	assert.Equal(t, 5, report.RequirementsCreated)
	assert.Empty(t, report.Errors)
}

func TestApplyTemplateCollectsPerAccountErrors(t *testing.T) {
	repo := newMockRepository()
	repo.template = costCenterTemplate()
	repo.accounts = []ledger.Account{
		{ID: 100, Code: "5000"},
		{ID: 101, Code: "5100"},
	}
	repo.insertErrByAccount[100] = errors.New("fk violation")

	svc := NewService(repo, nil)
	report, err := svc.ApplyTemplate(context.Background(), 10, AccountSelector{CodePattern: "5%"}, 1)
	require.NoError(t, err, "a bad account must not abort the batch")

	assert.Equal(t, 2, report.AccountsProcessed)
	assert.Equal(t, 2, report.RequirementsCreated)
	require.Len(t, report.Errors, 2)
	assert.Contains(t, report.Errors[0], "5000")
}

func TestApplyTemplateTreatsConcurrentDuplicateAsSkip(t *testing.T) {
	repo := newMockRepository()
	repo.template = costCenterTemplate()
	repo.accounts = []ledger.Account{{ID: 100, Code: "5000"}}
	repo.insertErrByAccount[100] = ErrRequirementExists

	svc := NewService(repo, nil)
	report, err := svc.ApplyTemplate(context.Background(), 10, AccountSelector{AccountIDs: []int64{100}}, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, report.AccountsProcessed)
	assert.Zero(t, report.RequirementsCreated)
	assert.Empty(t, report.Errors)
}

func TestApplyTemplateRejectsEmptySelector(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	_, err := svc.ApplyTemplate(context.Background(), 10, AccountSelector{}, 1)
	assert.ErrorIs(t, err, ErrEmptySelector)
}

func TestApplyTemplateUnknownTemplate(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	_, err := svc.ApplyTemplate(context.Background(), 77, AccountSelector{AccountIDs: []int64{1}}, 1)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}
