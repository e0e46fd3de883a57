package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/tradewind-erp/tradewind/internal/jobs"
	"github.com/tradewind-erp/tradewind/internal/maintenance"
)

type fakeSweeper struct {
	marked int64
	err    error
	calls  int
}

func (f *fakeSweeper) SweepOverdue(ctx context.Context) (int64, error) {
	f.calls++
	return f.marked, f.err
}

type fakeVerifier struct {
	repair bool
	calls  int
}

func (f *fakeVerifier) VerifyCounters(ctx context.Context, repair bool) (maintenance.Report, error) {
	f.calls++
	f.repair = repair
	return maintenance.Report{Repaired: repair}, nil
}

type fakeCleaner struct {
	olderThan time.Duration
}

func (f *fakeCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	f.olderThan = olderThan
	return nil
}

func newTestMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestOverdueSweepHandler(t *testing.T) {
	sweeper := &fakeSweeper{marked: 3}
	handler := NewOverdueSweepHandler(sweeper, newTestMetrics(), nil)

	require.NoError(t, handler(context.Background(), NewOverdueSweepTask()))
	require.Equal(t, 1, sweeper.calls)
}

func TestOverdueSweepHandlerPropagatesError(t *testing.T) {
	boom := errors.New("db down")
	handler := NewOverdueSweepHandler(&fakeSweeper{err: boom}, newTestMetrics(), nil)

	require.ErrorIs(t, handler(context.Background(), NewOverdueSweepTask()), boom)
}

func TestVerifyCountersHandlerReadsPayload(t *testing.T) {
	verifier := &fakeVerifier{}
	handler := NewVerifyCountersHandler(verifier, newTestMetrics(), nil)

	task, err := NewVerifyCountersTask(VerifyCountersPayload{Repair: true})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 1, verifier.calls)
	require.True(t, verifier.repair)
}

func TestVerifyCountersHandlerRejectsBadPayload(t *testing.T) {
	verifier := &fakeVerifier{}
	handler := NewVerifyCountersHandler(verifier, newTestMetrics(), nil)

	err := handler(context.Background(), asynq.NewTask(TaskVerifyCounters, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, verifier.calls)
}

func TestIdempotencyCleanupHandlerDefaultsRetention(t *testing.T) {
	cleaner := &fakeCleaner{}
	handler := NewIdempotencyCleanupHandler(cleaner, newTestMetrics())

	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	require.Equal(t, 168*time.Hour, cleaner.olderThan)

	task, err := NewIdempotencyCleanupTask(IdempotencyCleanupPayload{RetentionHours: 24})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 24*time.Hour, cleaner.olderThan)
}
