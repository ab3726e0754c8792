package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arcadia-retail/arcadia/internal/shared"
)

// AuditPort records business-audit events alongside postings.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements journal posting with the duplicate-sale guard.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]JournalEntry, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.repo.Get(ctx, entryID)
}

func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

func (s *Service) AccountByCode(ctx context.Context, code string) (Account, error) {
	return s.repo.GetAccountByCode(ctx, code)
}

// PostManual records a manually entered journal entry.
func (s *Service) PostManual(ctx context.Context, input PostingInput) (JournalEntry, error) {
	input.Origin = OriginManual
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertEntry(ctx, input)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.CreatedBy, "journal.post", entry.ID, map[string]any{
		"number": entry.Number,
		"origin": string(entry.Origin),
	})
	return entry, nil
}

// PostSale records the automated journal entry for a POS sale. The call is
// idempotent per (sale, origin): a retry returns the entry posted earlier,
// and two concurrent postings cannot both succeed because the audit row
// carries a uniqueness constraint.
func (s *Service) PostSale(ctx context.Context, input SalePostingInput) (JournalEntry, error) {
	input.Origin = OriginPOSAuto
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	var replayed bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetSaleAudit(ctx, input.SaleID, input.Origin)
		if err == nil {
			entry, err = tx.GetEntryWithLines(ctx, existing.EntryID)
			replayed = true
			return err
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, input.PostingInput)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		if err := tx.InsertSaleAudit(ctx, inserted.ID, input); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if !replayed {
		s.record(ctx, input.CreatedBy, "journal.post_sale", entry.ID, map[string]any{
			"number":  entry.Number,
			"origin":  string(OriginPOSAuto),
			"sale_id": input.SaleID.String(),
		})
	}
	return entry, nil
}

// PostDepreciation records the automated journal entry for a monthly
// depreciation run. The call is idempotent per period: a retry returns the
// entry posted earlier, lines included, so the caller can tell a replay by
// comparing its totals.
func (s *Service) PostDepreciation(ctx context.Context, input DepreciationPostingInput) (JournalEntry, error) {
	input.Origin = OriginDepreciation
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	var replayed bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetDepreciationAudit(ctx, input.Period)
		if err == nil {
			entry, err = tx.GetEntryWithLines(ctx, existing.EntryID)
			replayed = true
			return err
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, input.PostingInput)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		if err := tx.InsertDepreciationAudit(ctx, inserted.ID, input); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if !replayed {
		s.record(ctx, input.CreatedBy, "journal.post_depreciation", entry.ID, map[string]any{
			"number": entry.Number,
			"origin": string(OriginDepreciation),
			"period": input.Period,
		})
	}
	return entry, nil
}

// Void marks a posted entry void. Lines are preserved for the audit trail.
func (s *Service) Void(ctx context.Context, input VoidInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, fmt.Errorf("ledger: entry id required")
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusPosted {
			return ErrInvalidStatus
		}
		if err := tx.UpdateEntryStatus(ctx, current.ID, EntryStatusVoid); err != nil {
			return err
		}
		entry = current
		entry.Status = EntryStatusVoid
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.ActorID, "journal.void", entry.ID, map[string]any{"reason": input.Reason})
	return entry, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}
