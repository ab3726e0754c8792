// Package jobs hosts background task definitions and the Asynq worker.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/arcadia-retail/arcadia/internal/assets"
	"github.com/arcadia-retail/arcadia/internal/pos"
	"github.com/arcadia-retail/arcadia/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeDepreciationRun posts the monthly depreciation journal.
	TaskTypeDepreciationRun = "depreciation:run"
	// TaskTypeReconScan flags unverified reconciliations with large variances.
	TaskTypeReconScan = "recon:scan"
)

// systemActorID marks journal entries and audit records created by
// scheduled jobs rather than a logged-in user.
const systemActorID = 0

// DepreciationRunPayload selects the period to depreciate. An empty
// Period means the previous calendar month, resolved at execution time
// so cron registrations stay static.
type DepreciationRunPayload struct {
	Period string `json:"period"`
}

// ReconScanPayload is empty today; the type exists so the wire format
// can grow without changing the task name.
type ReconScanPayload struct{}

// NewDepreciationRunTask constructs an Asynq task.
func NewDepreciationRunTask(payload DepreciationRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDepreciationRun, data), nil
}

// NewReconScanTask constructs an Asynq task.
func NewReconScanTask() (*asynq.Task, error) {
	data, err := json.Marshal(ReconScanPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReconScan, data), nil
}

// DepreciationRunner posts depreciation for one period.
type DepreciationRunner interface {
	RunDepreciation(ctx context.Context, period string, actorID int64) (assets.DepreciationRunReport, error)
}

// NewDepreciationRunHandler returns the handler for TaskTypeDepreciationRun.
func NewDepreciationRunHandler(runner DepreciationRunner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DepreciationRunPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		period := payload.Period
		if period == "" {
			period = time.Now().UTC().AddDate(0, -1, 0).Format("2006-01")
		}
		report, err := runner.RunDepreciation(ctx, period, systemActorID)
		switch {
		case err == nil:
			logger.Info("depreciation run posted",
				slog.String("period", period),
				slog.Int("assets", report.AssetsPosted),
				slog.String("total", report.TotalAmount.StringFixed(2)))
			return nil
		case errors.Is(err, assets.ErrNothingToPost):
			logger.Info("depreciation run skipped", slog.String("period", period))
			return nil
		case errors.Is(err, assets.ErrPeriodAlreadyPosted):
			logger.Warn("depreciation run needs manual handling", slog.String("period", period))
			return asynq.SkipRetry
		case errors.Is(err, assets.ErrBadPeriod):
			return asynq.SkipRetry
		default:
			return fmt.Errorf("depreciation run %s: %w", period, err)
		}
	}
}

// ReconLister exposes the reconciliations still awaiting verification.
type ReconLister interface {
	ListUnverifiedReconciliations(ctx context.Context) ([]pos.Reconciliation, error)
}

// VarianceThresholdSource resolves the configured alert limit.
type VarianceThresholdSource interface {
	VarianceAlertLimit(ctx context.Context) (decimal.Decimal, error)
}

// Auditor persists flag records; satisfied by shared.AuditLogger.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NewReconScanHandler returns the handler for TaskTypeReconScan. Every
// unverified reconciliation whose absolute variance exceeds the
// configured limit gets one audit record per scan.
func NewReconScanHandler(recons ReconLister, thresholds VarianceThresholdSource, audit Auditor, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		limit, err := thresholds.VarianceAlertLimit(ctx)
		if err != nil {
			return fmt.Errorf("recon scan: resolve limit: %w", err)
		}
		pending, err := recons.ListUnverifiedReconciliations(ctx)
		if err != nil {
			return fmt.Errorf("recon scan: list: %w", err)
		}
		flagged := 0
		for _, recon := range pending {
			if recon.Variance.Abs().LessThanOrEqual(limit) {
				continue
			}
			flagged++
			logErr := audit.Record(ctx, shared.AuditLog{
				ActorID:  systemActorID,
				Action:   "pos.recon.flagged",
				Entity:   "pos_reconciliation",
				EntityID: fmt.Sprintf("%d", recon.ID),
				Meta: map[string]any{
					"session_id": recon.SessionID,
					"variance":   recon.Variance.StringFixed(2),
					"limit":      limit.StringFixed(2),
				},
			})
			if logErr != nil {
				logger.Warn("recon scan audit", slog.Int64("reconciliation_id", recon.ID), slog.Any("error", logErr))
			}
		}
		logger.Info("recon scan done", slog.Int("pending", len(pending)), slog.Int("flagged", flagged))
		return nil
	}
}
