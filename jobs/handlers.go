package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/tradewind-erp/tradewind/internal/jobs"
	"github.com/tradewind-erp/tradewind/internal/maintenance"
)

// OverdueSweeper flips unpaid invoices past their due date to overdue.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// CounterVerifier recomputes denormalised counters.
type CounterVerifier interface {
	VerifyCounters(ctx context.Context, repair bool) (maintenance.Report, error)
}

// IdempotencyCleaner prunes consumed idempotency keys.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewOverdueSweepHandler builds the handler for TaskOverdueSweep.
func NewOverdueSweepHandler(sweeper OverdueSweeper, metrics *jobmetrics.Metrics, log *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskOverdueSweep)
		marked, err := sweeper.SweepOverdue(ctx)
		if err == nil && log != nil && marked > 0 {
			log.Info("invoices marked overdue", slog.Int64("count", marked))
		}
		return tracker.End(err)
	}
}

// NewVerifyCountersHandler builds the handler for TaskVerifyCounters.
func NewVerifyCountersHandler(verifier CounterVerifier, metrics *jobmetrics.Metrics, log *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload VerifyCountersPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		tracker := metrics.Track(TaskVerifyCounters)
		runID := uuid.NewString()
		report, err := verifier.VerifyCounters(ctx, payload.Repair)
		if err == nil && log != nil {
			log.Info("counter verification finished",
				slog.String("run", runID),
				slog.Int("drifts", len(report.Drifts)),
				slog.Bool("repaired", report.Repaired))
		}
		return tracker.End(err)
	}
}

// NewIdempotencyCleanupHandler builds the handler for TaskIdempotencyCleanup.
func NewIdempotencyCleanupHandler(cleaner IdempotencyCleaner, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		if payload.RetentionHours <= 0 {
			payload.RetentionHours = 168
		}
		tracker := metrics.Track(TaskIdempotencyCleanup)
		err := cleaner.Cleanup(ctx, time.Duration(payload.RetentionHours)*time.Hour)
		return tracker.End(err)
	}
}
