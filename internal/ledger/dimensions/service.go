package dimensions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arcadia-retail/arcadia/internal/shared"
)

// AuditPort records template applications.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) CreateDimension(ctx context.Context, code, name string) (Dimension, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" || strings.TrimSpace(name) == "" {
		return Dimension{}, fmt.Errorf("dimensions: code and name required")
	}
	return s.repo.CreateDimension(ctx, Dimension{Code: code, Name: strings.TrimSpace(name)})
}

func (s *Service) ListDimensions(ctx context.Context) ([]Dimension, error) {
	return s.repo.ListDimensions(ctx)
}

func (s *Service) CreateValue(ctx context.Context, v Value) (Value, error) {
	if v.DimensionID == 0 || strings.TrimSpace(v.Code) == "" {
		return Value{}, fmt.Errorf("dimensions: dimension and code required")
	}
	return s.repo.CreateValue(ctx, v)
}

func (s *Service) ListValues(ctx context.Context, dimensionID int64) ([]Value, error) {
	return s.repo.ListValues(ctx, dimensionID)
}

func (s *Service) RequirementsForAccount(ctx context.Context, accountID int64) ([]Requirement, error) {
	return s.repo.RequirementsForAccount(ctx, accountID)
}

// AddRequirement declares a single (account, dimension) requirement.
func (s *Service) AddRequirement(ctx context.Context, req Requirement) (Requirement, error) {
	if req.AccountID == 0 || req.DimensionID == 0 {
		return Requirement{}, fmt.Errorf("dimensions: account and dimension required")
	}
	return s.repo.InsertRequirement(ctx, req)
}

func (s *Service) CreateTemplate(ctx context.Context, tpl Template) (Template, error) {
	if strings.TrimSpace(tpl.Name) == "" || len(tpl.Items) == 0 {
		return Template{}, fmt.Errorf("dimensions: template needs a name and at least one item")
	}
	return s.repo.CreateTemplate(ctx, tpl)
}

// ApplyTemplate instantiates a template against every selected account.
// For each (account, dimension) pair not already declared, one requirement
// is created. Failures are collected per account; a bad account never
// aborts the rest of the batch.
func (s *Service) ApplyTemplate(ctx context.Context, templateID int64, sel AccountSelector, actorID int64) (ApplyReport, error) {
	if sel.Empty() {
		return ApplyReport{}, ErrEmptySelector
	}
	tpl, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return ApplyReport{}, err
	}
	accounts, err := s.repo.SelectAccounts(ctx, sel)
	if err != nil {
		return ApplyReport{}, err
	}

	report := ApplyReport{Errors: []string{}}
	for _, account := range accounts {
		report.AccountsProcessed++
		existing, err := s.repo.RequirementsForAccount(ctx, account.ID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("account %s: %v", account.Code, err))
			continue
		}
		declared := make(map[int64]struct{}, len(existing))
		for _, req := range existing {
			declared[req.DimensionID] = struct{}{}
		}
		for _, item := range tpl.Items {
			if _, ok := declared[item.DimensionID]; ok {
				continue
			}
			_, err := s.repo.InsertRequirement(ctx, Requirement{
				AccountID:      account.ID,
				DimensionID:    item.DimensionID,
				Priority:       item.Priority,
				DefaultValueID: item.DefaultValueID,
			})
			if err != nil {
				// A concurrent writer beat us to this pair; that is the
				// outcome we wanted, not a batch error.
				if errors.Is(err, ErrRequirementExists) {
					continue
				}
				report.Errors = append(report.Errors, fmt.Sprintf("account %s: %v", account.Code, err))
				continue
			}
			report.RequirementsCreated++
		}
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "dimensions.apply_template",
			Entity:   "dimension_template",
			EntityID: fmt.Sprintf("%d", templateID),
			Meta: map[string]any{
				"accounts_processed":   report.AccountsProcessed,
				"requirements_created": report.RequirementsCreated,
				"errors":               len(report.Errors),
			},
			At: s.now(),
		})
	}
	return report, nil
}

func (s *Service) Balances(ctx context.Context, filter BalanceFilter) ([]Balance, error) {
	if filter.DimensionID == 0 {
		return nil, fmt.Errorf("dimensions: dimension id required")
	}
	return s.repo.Balances(ctx, filter)
}
