package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueSweep marks unpaid invoices past their due date as overdue.
	TaskOverdueSweep = "sales:overdue_sweep"
	// TaskVerifyCounters recomputes denormalised counters from the ledger and documents.
	TaskVerifyCounters = "maintenance:verify_counters"
	// TaskIdempotencyCleanup prunes consumed idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// NewOverdueSweepTask constructs the overdue-sweep task.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueSweep, nil)
}

// VerifyCountersPayload controls the verification run.
type VerifyCountersPayload struct {
	Repair bool `json:"repair"`
}

// NewVerifyCountersTask constructs a counter-verification task.
func NewVerifyCountersTask(payload VerifyCountersPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVerifyCounters, data), nil
}

// IdempotencyCleanupPayload sets the retention window for processed keys.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retentionHours"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
