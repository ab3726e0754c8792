package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, key string, branchID *int64) (Setting, error) {
	return s.repo.Get(ctx, key, branchID)
}

func (s *Service) List(ctx context.Context, branchID *int64) ([]Setting, error) {
	return s.repo.List(ctx, branchID)
}

func (s *Service) Set(ctx context.Context, setting Setting) (Setting, error) {
	setting.Key = strings.TrimSpace(setting.Key)
	if setting.Key == "" {
		return Setting{}, fmt.Errorf("settings: key required")
	}
	return s.repo.Upsert(ctx, setting)
}

// POSBankAccount resolves the bank account POS sales settle to. The branch
// override wins; the global row is the fallback.
func (s *Service) POSBankAccount(ctx context.Context, branchID int64) (int64, error) {
	if branchID != 0 {
		if setting, err := s.repo.Get(ctx, KeyPOSDefaultBankAccount, &branchID); err == nil {
			return parseAccountID(setting.Value)
		} else if !errors.Is(err, ErrSettingNotFound) {
			return 0, err
		}
	}
	setting, err := s.repo.Get(ctx, KeyPOSDefaultBankAccount, nil)
	if err != nil {
		return 0, err
	}
	return parseAccountID(setting.Value)
}

// VarianceAlertLimit returns the global threshold above which an absolute
// reconciliation variance is flagged. Zero means every variance is flagged.
func (s *Service) VarianceAlertLimit(ctx context.Context) (decimal.Decimal, error) {
	setting, err := s.repo.Get(ctx, KeyVarianceAlertLimit, nil)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	limit, err := decimal.NewFromString(strings.TrimSpace(setting.Value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("settings: malformed variance limit %q", setting.Value)
	}
	return limit, nil
}

func parseAccountID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("settings: malformed account reference %q", raw)
	}
	return id, nil
}
