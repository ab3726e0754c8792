package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-retail/arcadia/internal/assets"
	"github.com/arcadia-retail/arcadia/internal/pos"
	"github.com/arcadia-retail/arcadia/internal/shared"
)

type mockRunner struct {
	period string
	err    error
}

func (m *mockRunner) RunDepreciation(_ context.Context, period string, _ int64) (assets.DepreciationRunReport, error) {
	m.period = period
	if m.err != nil {
		return assets.DepreciationRunReport{}, m.err
	}
	return assets.DepreciationRunReport{Period: period, AssetsPosted: 2, TotalAmount: decimal.NewFromInt(100)}, nil
}

type mockReconSource struct {
	recons []pos.Reconciliation
	limit  decimal.Decimal
	logs   []shared.AuditLog
}

func (m *mockReconSource) ListUnverifiedReconciliations(context.Context) ([]pos.Reconciliation, error) {
	return m.recons, nil
}

func (m *mockReconSource) VarianceAlertLimit(context.Context) (decimal.Decimal, error) {
	return m.limit, nil
}

func (m *mockReconSource) Record(_ context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func taskOf(t *testing.T, taskType string, payload any) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(taskType, data)
}

func TestDepreciationRunHandlerUsesPayloadPeriod(t *testing.T) {
	runner := &mockRunner{}
	handler := NewDepreciationRunHandler(runner, testLogger())

	task := taskOf(t, TaskTypeDepreciationRun, DepreciationRunPayload{Period: "2026-07"})
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, "2026-07", runner.period)
}

func TestDepreciationRunHandlerEmptyPeriodSwallowed(t *testing.T) {
	runner := &mockRunner{err: assets.ErrNothingToPost}
	handler := NewDepreciationRunHandler(runner, testLogger())

	task := taskOf(t, TaskTypeDepreciationRun, DepreciationRunPayload{Period: "2026-07"})
	require.NoError(t, handler(context.Background(), task))
}

func TestDepreciationRunHandlerBadPayloadSkipsRetry(t *testing.T) {
	handler := NewDepreciationRunHandler(&mockRunner{}, testLogger())

	task := asynq.NewTask(TaskTypeDepreciationRun, []byte("{not json"))
	require.ErrorIs(t, handler(context.Background(), task), asynq.SkipRetry)
}

func TestReconScanFlagsOnlyAboveLimit(t *testing.T) {
	src := &mockReconSource{
		limit: decimal.NewFromInt(5),
		recons: []pos.Reconciliation{
			{ID: 1, SessionID: 10, Variance: decimal.NewFromInt(-12)},
			{ID: 2, SessionID: 11, Variance: decimal.NewFromInt(3)},
			{ID: 3, SessionID: 12, Variance: decimal.NewFromInt(5)},
		},
	}
	handler := NewReconScanHandler(src, src, src, testLogger())

	task := taskOf(t, TaskTypeReconScan, ReconScanPayload{})
	require.NoError(t, handler(context.Background(), task))
	require.Len(t, src.logs, 1)
	require.Equal(t, "pos.recon.flagged", src.logs[0].Action)
	require.Equal(t, "1", src.logs[0].EntityID)
}
