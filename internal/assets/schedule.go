package assets

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BuildSchedule lays out straight-line monthly depreciation. Each month
// carries the rounded base amount and the final month absorbs the rounding
// remainder, so the schedule sums exactly to cost minus salvage.
func BuildSchedule(cost, salvage decimal.Decimal, months int, start time.Time) ([]ScheduleEntry, error) {
	if months <= 0 {
		return nil, fmt.Errorf("assets: useful life must be positive, got %d", months)
	}
	depreciable := cost.Sub(salvage)
	if depreciable.IsNegative() {
		return nil, fmt.Errorf("assets: salvage value exceeds cost")
	}
	base := depreciable.Div(decimal.NewFromInt(int64(months))).Round(2)
	entries := make([]ScheduleEntry, 0, months)
	period := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < months; i++ {
		amount := base
		if i == months-1 {
			amount = depreciable.Sub(base.Mul(decimal.NewFromInt(int64(months - 1))))
		}
		entries = append(entries, ScheduleEntry{
			Period: period.Format("2006-01"),
			Amount: amount,
		})
		period = period.AddDate(0, 1, 0)
	}
	return entries, nil
}

// ValidPeriod reports whether s is a YYYY-MM period.
func ValidPeriod(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil
}
