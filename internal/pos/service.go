package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arcadia-retail/arcadia/internal/ledger"
	"github.com/arcadia-retail/arcadia/internal/shared"
)

// Account codes the POS posting maps to. Seeded by the schema migrations.
const (
	accountCodeRevenue   = "4000"
	accountCodeVATOutput = "2150"
)

// LedgerPort is the slice of the ledger service POS needs.
type LedgerPort interface {
	PostSale(ctx context.Context, input ledger.SalePostingInput) (ledger.JournalEntry, error)
	AccountByCode(ctx context.Context, code string) (ledger.Account, error)
}

// SettingsPort resolves the configured POS bank account per branch.
type SettingsPort interface {
	POSBankAccount(ctx context.Context, branchID int64) (int64, error)
}

// AuditPort records business-audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo     Repository
	ledger   LedgerPort
	settings SettingsPort
	audit    AuditPort
	now      func() time.Time
}

func NewService(repo Repository, ledgerPort LedgerPort, settings SettingsPort, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledgerPort, settings: settings, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// OpenSession starts a shift. A cashier can hold at most one open session
// per branch; the partial unique index enforces this under concurrency.
func (s *Service) OpenSession(ctx context.Context, cashierID int64, req OpenSessionRequest) (Session, error) {
	if req.FloatGiven.IsNegative() {
		return Session{}, fmt.Errorf("pos: float cannot be negative")
	}
	session, err := s.repo.OpenSession(ctx, Session{
		BranchID:   req.BranchID,
		CashierID:  cashierID,
		FloatGiven: req.FloatGiven.Round(2),
	})
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, cashierID, "pos.session.open", fmt.Sprintf("%d", session.ID), map[string]any{
		"branch_id":   session.BranchID,
		"float_given": session.FloatGiven.String(),
	})
	return session, nil
}

func (s *Service) CloseSession(ctx context.Context, sessionID, actorID int64) (Session, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return Session{}, err
	}
	session, err := s.repo.CloseSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, actorID, "pos.session.close", fmt.Sprintf("%d", session.ID), nil)
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, req ListSessionsRequest) ([]Session, error) {
	return s.repo.ListSessions(ctx, req)
}

func (s *Service) GetSession(ctx context.Context, id int64) (Session, error) {
	return s.repo.GetSession(ctx, id)
}

func (s *Service) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// PostSale stores the sale and posts its POS_AUTO journal entry. The sale
// settles against the branch bank account from settings; revenue and VAT
// output carry the credit side. Duplicate postings for the same sale are
// blocked inside the ledger by the (sale, origin) audit constraint.
func (s *Service) PostSale(ctx context.Context, cashierID int64, req PostSaleRequest) (Sale, error) {
	if !req.PaymentMethod.Valid() {
		return Sale{}, fmt.Errorf("pos: unknown payment method %q", req.PaymentMethod)
	}
	if len(req.Items) == 0 {
		return Sale{}, fmt.Errorf("pos: sale requires at least one item")
	}
	session, err := s.repo.GetSession(ctx, req.SessionID)
	if err != nil {
		return Sale{}, err
	}
	if session.Status != SessionStatusOpen {
		return Sale{}, ErrSessionClosed
	}

	sale := Sale{
		ID:            uuid.New(),
		SessionID:     session.ID,
		BranchID:      session.BranchID,
		CashierID:     cashierID,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
	}
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, item := range req.Items {
		if !item.Quantity.IsPositive() || item.UnitPrice.IsNegative() {
			return Sale{}, fmt.Errorf("pos: invalid quantity or price for product %d", item.ProductID)
		}
		lineNet := item.Quantity.Mul(item.UnitPrice).Round(2)
		lineTax := lineNet.Mul(item.TaxPercent).Div(decimal.NewFromInt(100)).Round(2)
		sale.Items = append(sale.Items, SaleItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TaxPercent: item.TaxPercent,
			TaxAmount:  lineTax,
			LineTotal:  lineNet.Add(lineTax),
		})
		subtotal = subtotal.Add(lineNet)
		tax = tax.Add(lineTax)
	}
	sale.Subtotal = subtotal
	sale.TaxAmount = tax
	sale.TotalAmount = subtotal.Add(tax)

	if err := s.repo.InsertSale(ctx, sale); err != nil {
		return Sale{}, err
	}

	lines, err := s.saleJournalLines(ctx, sale)
	if err != nil {
		return Sale{}, err
	}
	sessionID := session.ID
	branchID := session.BranchID
	entry, err := s.ledger.PostSale(ctx, ledger.SalePostingInput{
		PostingInput: ledger.PostingInput{
			Date:      s.now(),
			Memo:      fmt.Sprintf("POS sale %s", sale.ID),
			CreatedBy: cashierID,
			Lines:     lines,
		},
		SaleID:    sale.ID,
		SessionID: &sessionID,
		CashierID: &cashierID,
		BranchID:  &branchID,
	})
	if err != nil {
		return Sale{}, err
	}
	if err := s.repo.SetSaleJournal(ctx, sale.ID, entry.ID); err != nil {
		return Sale{}, err
	}
	journalID := entry.ID
	sale.JournalID = &journalID

	s.record(ctx, cashierID, "pos.sale.post", sale.ID.String(), map[string]any{
		"session_id": session.ID,
		"total":      sale.TotalAmount.String(),
		"journal_id": entry.ID,
	})
	return sale, nil
}

func (s *Service) saleJournalLines(ctx context.Context, sale Sale) ([]ledger.PostingLineInput, error) {
	bankAccountID, err := s.settings.POSBankAccount(ctx, sale.BranchID)
	if err != nil {
		return nil, fmt.Errorf("pos: resolve settlement account: %w", err)
	}
	revenue, err := s.ledger.AccountByCode(ctx, accountCodeRevenue)
	if err != nil {
		return nil, err
	}
	branchID := sale.BranchID
	lines := []ledger.PostingLineInput{
		{AccountID: bankAccountID, Debit: sale.TotalAmount, BranchID: &branchID},
		{AccountID: revenue.ID, Credit: sale.Subtotal, BranchID: &branchID},
	}
	if sale.TaxAmount.IsPositive() {
		vat, err := s.ledger.AccountByCode(ctx, accountCodeVATOutput)
		if err != nil {
			return nil, err
		}
		lines = append(lines, ledger.PostingLineInput{AccountID: vat.ID, Credit: sale.TaxAmount, BranchID: &branchID})
	}
	return lines, nil
}

// Reconcile records the cash count for a closed session. Expected cash and
// the session's cash sales are computed server-side; the client only
// supplies what was counted in the drawer.
func (s *Service) Reconcile(ctx context.Context, actorID int64, req ReconcileRequest) (Reconciliation, error) {
	if req.CashCollected.IsNegative() {
		return Reconciliation{}, fmt.Errorf("pos: collected cash cannot be negative")
	}
	session, err := s.repo.GetSession(ctx, req.SessionID)
	if err != nil {
		return Reconciliation{}, err
	}
	if session.Status != SessionStatusClosed {
		return Reconciliation{}, ErrSessionNotClosed
	}
	cashSales, err := s.repo.CashSalesForSession(ctx, session.ID)
	if err != nil {
		return Reconciliation{}, err
	}
	expected := session.FloatGiven.Add(cashSales)
	collected := req.CashCollected.Round(2)
	recon, err := s.repo.InsertReconciliation(ctx, Reconciliation{
		SessionID:     session.ID,
		FloatGiven:    session.FloatGiven,
		CashCollected: collected,
		CashSales:     cashSales,
		ExpectedCash:  expected,
		Variance:      collected.Sub(expected),
		ReconciledBy:  actorID,
	})
	if err != nil {
		return Reconciliation{}, err
	}
	s.record(ctx, actorID, "pos.recon.create", fmt.Sprintf("%d", session.ID), map[string]any{
		"expected": recon.ExpectedCash.String(),
		"variance": recon.Variance.String(),
	})
	return recon, nil
}

// Verify records supervisor sign-off on a reconciliation.
func (s *Service) Verify(ctx context.Context, sessionID, verifierID int64) (Reconciliation, error) {
	recon, err := s.repo.MarkVerified(ctx, sessionID, verifierID)
	if err != nil {
		return Reconciliation{}, err
	}
	s.record(ctx, verifierID, "pos.recon.verify", fmt.Sprintf("%d", sessionID), nil)
	return recon, nil
}

func (s *Service) ListUnverifiedReconciliations(ctx context.Context) ([]Reconciliation, error) {
	return s.repo.ListUnverifiedReconciliations(ctx)
}

func (s *Service) GetReconciliation(ctx context.Context, sessionID int64) (Reconciliation, error) {
	return s.repo.GetReconciliation(ctx, sessionID)
}

func (s *Service) record(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entity := "pos_session"
	if action == "pos.sale.post" {
		entity = "pos_sale"
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
