package quotations

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arcadia-retail/arcadia/internal/shared"
)

// CustomerDirectory verifies that a customer exists before a quotation
// references it.
type CustomerDirectory interface {
	Exists(ctx context.Context, id int64) error
}

// AuditPort records business-audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo      Repository
	customers CustomerDirectory
	audit     AuditPort
	now       func() time.Time
}

func NewService(repo Repository, customers CustomerDirectory, audit AuditPort) *Service {
	return &Service{repo: repo, customers: customers, audit: audit, now: time.Now}
}

type lineTotals struct {
	lines    []Line
	subtotal decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

func buildLines(reqs []CreateLineReq) (lineTotals, error) {
	out := lineTotals{subtotal: decimal.Zero, tax: decimal.Zero, total: decimal.Zero}
	for i, req := range reqs {
		if req.ProductID == nil && (req.Description == nil || *req.Description == "") {
			return lineTotals{}, ErrBadLine
		}
		if !req.Quantity.IsPositive() || req.UnitPrice.IsNegative() {
			return lineTotals{}, fmt.Errorf("quotations: invalid quantity or price on line %d", i+1)
		}
		net := req.Quantity.Mul(req.UnitPrice).Round(2)
		tax := net.Mul(req.TaxPercent).Div(decimal.NewFromInt(100)).Round(2)
		line := Line{
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

func (s *Service) Create(ctx context.Context, req CreateRequest, createdBy int64) (Quotation, error) {
	if req.ValidUntil.Before(req.QuoteDate) {
		return Quotation{}, fmt.Errorf("quotations: valid_until must be after quote_date")
	}
	if err := s.customers.Exists(ctx, req.CustomerID); err != nil {
		return Quotation{}, fmt.Errorf("verify customer: %w", err)
	}
	totals, err := buildLines(req.Lines)
	if err != nil {
		return Quotation{}, err
	}

	var quotationID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		docNumber, err := repo.GenerateNumber(ctx, req.BranchID, req.QuoteDate)
		if err != nil {
			return fmt.Errorf("generate doc number: %w", err)
		}
		quotationID, err = repo.Create(ctx, Quotation{
			DocNumber:   docNumber,
			BranchID:    req.BranchID,
			CustomerID:  req.CustomerID,
			QuoteDate:   req.QuoteDate,
			ValidUntil:  req.ValidUntil,
			Status:      StatusDraft,
			Subtotal:    totals.subtotal,
			TaxAmount:   totals.tax,
			TotalAmount: totals.total,
			Notes:       req.Notes,
			CreatedBy:   createdBy,
		})
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		for _, line := range totals.lines {
			line.QuotationID = quotationID
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert quotation line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Quotation{}, err
	}
	s.record(ctx, createdBy, "quotation.create", quotationID, nil)
	return s.repo.Get(ctx, quotationID)
}

// Update rewrites header fields and, when lines are supplied, replaces the
// full line set and recomputes the totals. Only drafts can change.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest, actorID int64) (Quotation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if existing.Status != StatusDraft {
		return Quotation{}, fmt.Errorf("%w: only DRAFT quotations can be updated", ErrInvalidStatus)
	}

	var totals lineTotals
	if req.Lines != nil {
		totals, err = buildLines(*req.Lines)
		if err != nil {
			return Quotation{}, err
		}
	}

	updates := make(map[string]any)
	if req.QuoteDate != nil {
		updates["quote_date"] = *req.QuoteDate
	}
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Lines != nil {
		updates["subtotal"] = totals.subtotal
		updates["tax_amount"] = totals.tax
		updates["total_amount"] = totals.total
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.Update(ctx, id, updates); err != nil {
				return err
			}
		}
		if req.Lines != nil {
			if err := repo.DeleteLines(ctx, id); err != nil {
				return err
			}
			for _, line := range totals.lines {
				line.QuotationID = id
				if _, err := repo.InsertLine(ctx, line); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Quotation{}, fmt.Errorf("update quotation: %w", err)
	}
	s.record(ctx, actorID, "quotation.update", id, nil)
	return s.repo.Get(ctx, id)
}

func (s *Service) Submit(ctx context.Context, id, userID int64) (Quotation, error) {
	return s.transition(ctx, id, userID, StatusDraft, StatusSubmitted, nil, "quotation.submit")
}

func (s *Service) Approve(ctx context.Context, id, approverID int64) (Quotation, error) {
	return s.transition(ctx, id, approverID, StatusSubmitted, StatusApproved, nil, "quotation.approve")
}

func (s *Service) Reject(ctx context.Context, id, actorID int64, reason string) (Quotation, error) {
	return s.transition(ctx, id, actorID, StatusSubmitted, StatusRejected, &reason, "quotation.reject")
}

func (s *Service) transition(ctx context.Context, id, actorID int64, from, to Status, reason *string, action string) (Quotation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if existing.Status != from {
		return Quotation{}, fmt.Errorf("%w: %s requires status %s, found %s", ErrInvalidStatus, to, from, existing.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, to, actorID, reason); err != nil {
		return Quotation{}, err
	}
	s.record(ctx, actorID, action, id, map[string]any{"from": string(from), "to": string(to)})
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Quotation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]Quotation, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "quotation",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}
