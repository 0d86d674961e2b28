// Package queue schedules the retention sweep and artifact janitor as asynq
// tasks so several API replicas can share one Redis-backed schedule.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeRetentionSweep disposes of documents whose retention expired.
	TypeRetentionSweep = "retention:sweep"
	// TypeArtifactsJanitor reclaims expired download artifacts.
	TypeArtifactsJanitor = "artifacts:janitor"
)

// uniqueFor keeps a second trigger from queueing while one is pending.
const uniqueFor = 10 * time.Minute

// TriggerPayload records who asked for a run. Scheduled runs carry no time.
type TriggerPayload struct {
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requested_at,omitzero"`
}

// taskOptions: no retries, failures surface in the next scheduled run instead.
func taskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Unique(uniqueFor),
		asynq.Timeout(30 * time.Minute),
	}
}

func newTask(typename, source string, now time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(TriggerPayload{Source: source, RequestedAt: now})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(typename, data, taskOptions()...), nil
}

// NewRetentionSweepTask builds a sweep task.
func NewRetentionSweepTask(source string, now time.Time) (*asynq.Task, error) {
	return newTask(TypeRetentionSweep, source, now)
}

// NewArtifactsJanitorTask builds a janitor task.
func NewArtifactsJanitorTask(source string, now time.Time) (*asynq.Task, error) {
	return newTask(TypeArtifactsJanitor, source, now)
}

// Enqueuer is the subset of *asynq.Client used to trigger runs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueSweep asks the worker to sweep now. A sweep already queued is not an error.
func EnqueueSweep(ctx context.Context, client Enqueuer, source string, now time.Time) (*asynq.TaskInfo, error) {
	task, err := NewRetentionSweepTask(source, now)
	if err != nil {
		return nil, err
	}
	info, err := client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", TypeRetentionSweep, err)
	}
	return info, nil
}

func decodeTrigger(task *asynq.Task) TriggerPayload {
	var p TriggerPayload
	if len(task.Payload()) > 0 {
		// A malformed payload only loses the provenance fields.
		_ = json.Unmarshal(task.Payload(), &p)
	}
	if p.Source == "" {
		p.Source = "unknown"
	}
	return p
}
