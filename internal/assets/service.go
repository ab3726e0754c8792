package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arcadia-retail/arcadia/internal/ledger"
	"github.com/arcadia-retail/arcadia/internal/procurement"
	"github.com/arcadia-retail/arcadia/internal/shared"
)

// Account codes the depreciation posting maps to.
const (
	accountCodeDepreciationExpense = "6100"
	accountCodeAccumulatedDepr     = "1590"
)

// PurchasePort reads purchases and their asset-flagged items.
type PurchasePort interface {
	Get(ctx context.Context, id int64) (procurement.Purchase, error)
	AssetItems(ctx context.Context, purchaseID int64) ([]procurement.PurchaseItem, error)
}

// LedgerPort posts the monthly depreciation entry.
type LedgerPort interface {
	PostDepreciation(ctx context.Context, input ledger.DepreciationPostingInput) (ledger.JournalEntry, error)
	AccountByCode(ctx context.Context, code string) (ledger.Account, error)
}

// AuditPort records business-audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo      Repository
	purchases PurchasePort
	ledger    LedgerPort
	audit     AuditPort
	now       func() time.Time
}

func NewService(repo Repository, purchases PurchasePort, ledgerPort LedgerPort, audit AuditPort) *Service {
	return &Service{repo: repo, purchases: purchases, ledger: ledgerPort, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Capitalize turns the asset-flagged items of a purchase into fixed assets
// with their full depreciation schedules. Items already capitalized are
// skipped, so the call is safe to repeat.
func (s *Service) Capitalize(ctx context.Context, purchaseID, actorID int64) (CapitalizeReport, error) {
	purchase, err := s.purchases.Get(ctx, purchaseID)
	if err != nil {
		return CapitalizeReport{}, err
	}
	items, err := s.purchases.AssetItems(ctx, purchaseID)
	if err != nil {
		return CapitalizeReport{}, err
	}
	if len(items) == 0 {
		return CapitalizeReport{}, ErrNoAssetItems
	}

	report := CapitalizeReport{PurchaseID: purchaseID}
	for _, item := range items {
		var created FixedAsset
		err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
			code, err := repo.GenerateCode(ctx, purchase.BranchID, purchase.OrderDate)
			if err != nil {
				return err
			}
			asset := FixedAsset{
				AssetCode:        code,
				BranchID:         purchase.BranchID,
				PurchaseID:       purchase.ID,
				PurchaseItemID:   item.ID,
				Description:      item.Description,
				Method:           MethodStraightLine,
				Cost:             item.LineTotal,
				SalvageValue:     decimal.Zero,
				UsefulLifeMonths: *item.UsefulLifeMonths,
				StartDate:        purchase.OrderDate,
				Accumulated:      decimal.Zero,
				Status:           AssetStatusActive,

				SerialNumber:       item.SerialNumber,
				RegistrationNumber: item.RegistrationNumber,
				Location:           item.Location,
				CustodianID:        item.CustodianID,
			}
			if item.DepreciationMethod != nil {
				asset.Method = *item.DepreciationMethod
			}
			if item.SalvageValue != nil {
				asset.SalvageValue = *item.SalvageValue
			}
			created, err = repo.InsertAsset(ctx, asset)
			if err != nil {
				return err
			}
			schedule, err := BuildSchedule(created.Cost, created.SalvageValue, created.UsefulLifeMonths, created.StartDate)
			if err != nil {
				return err
			}
			for _, entry := range schedule {
				entry.AssetID = created.ID
				if _, err := repo.InsertScheduleEntry(ctx, entry); err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, ErrAlreadyCapitalized) {
			report.Skipped++
			continue
		}
		if err != nil {
			return CapitalizeReport{}, fmt.Errorf("capitalize item %d: %w", item.ID, err)
		}
		report.AssetsCreated++
		report.Assets = append(report.Assets, created)
	}
	s.record(ctx, actorID, "asset.capitalize", fmt.Sprintf("%d", purchaseID), map[string]any{
		"created": report.AssetsCreated,
		"skipped": report.Skipped,
	})
	return report, nil
}

// RunDepreciation posts one balanced journal entry covering every unposted
// schedule row of the period, then marks the rows posted. Re-running a
// fully posted period reports ErrNothingToPost.
//
// The ledger entry is guarded per period: when the marking transaction
// fails and the run retries, the ledger replays the entry it already posted
// instead of posting a second one, and the retry only completes the
// marking. A replayed entry whose total differs from the current batch
// means schedule rows were added after the period posted; that batch is
// refused rather than silently attached to the old entry.
func (s *Service) RunDepreciation(ctx context.Context, period string, actorID int64) (DepreciationRunReport, error) {
	if !ValidPeriod(period) {
		return DepreciationRunReport{}, ErrBadPeriod
	}
	entries, err := s.repo.UnpostedForPeriod(ctx, period)
	if err != nil {
		return DepreciationRunReport{}, err
	}
	if len(entries) == 0 {
		return DepreciationRunReport{}, ErrNothingToPost
	}

	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount)
	}

	expense, err := s.ledger.AccountByCode(ctx, accountCodeDepreciationExpense)
	if err != nil {
		return DepreciationRunReport{}, err
	}
	contra, err := s.ledger.AccountByCode(ctx, accountCodeAccumulatedDepr)
	if err != nil {
		return DepreciationRunReport{}, err
	}
	journal, err := s.ledger.PostDepreciation(ctx, ledger.DepreciationPostingInput{
		PostingInput: ledger.PostingInput{
			Date:      s.now(),
			Memo:      fmt.Sprintf("Depreciation %s", period),
			CreatedBy: actorID,
			Lines: []ledger.PostingLineInput{
				{AccountID: expense.ID, Debit: total},
				{AccountID: contra.ID, Credit: total},
			},
		},
		Period: period,
	})
	if err != nil {
		return DepreciationRunReport{}, err
	}
	// A fresh posting comes back without lines; a replay carries them.
	if len(journal.Lines) > 0 {
		posted := decimal.Zero
		for _, line := range journal.Lines {
			posted = posted.Add(line.Debit)
		}
		if !posted.Equal(total) {
			return DepreciationRunReport{}, ErrPeriodAlreadyPosted
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		ids := make([]int64, 0, len(entries))
		for _, entry := range entries {
			ids = append(ids, entry.ID)
			if err := repo.AddAccumulated(ctx, entry.AssetID, entry.Amount); err != nil {
				return err
			}
		}
		return repo.MarkPosted(ctx, ids, journal.ID)
	})
	if err != nil {
		return DepreciationRunReport{}, err
	}

	journalID := journal.ID
	report := DepreciationRunReport{
		Period:       period,
		AssetsPosted: len(entries),
		TotalAmount:  total,
		JournalID:    &journalID,
	}
	s.record(ctx, actorID, "asset.depreciate", period, map[string]any{
		"assets": report.AssetsPosted,
		"total":  total.String(),
	})
	return report, nil
}

func (s *Service) Get(ctx context.Context, id int64) (FixedAsset, error) {
	return s.repo.GetAsset(ctx, id)
}

func (s *Service) List(ctx context.Context, branchID *int64) ([]FixedAsset, error) {
	return s.repo.ListAssets(ctx, branchID)
}

func (s *Service) Schedule(ctx context.Context, assetID int64) ([]ScheduleEntry, error) {
	if _, err := s.repo.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.repo.Schedule(ctx, assetID)
}

func (s *Service) record(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "fixed_asset",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
