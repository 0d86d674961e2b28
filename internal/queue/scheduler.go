package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Registrar is the subset of *asynq.Scheduler used to register cron entries.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// Schedule holds the cron specs for the periodic tasks. An empty spec disables the task.
type Schedule struct {
	SweepCron   string
	JanitorCron string
}

// RegisterPeriodic adds the sweep and janitor entries to r and returns their IDs.
func RegisterPeriodic(r Registrar, s Schedule) ([]string, error) {
	var ids []string
	entries := []struct {
		spec  string
		build func(string, time.Time) (*asynq.Task, error)
	}{
		{s.SweepCron, NewRetentionSweepTask},
		{s.JanitorCron, NewArtifactsJanitorTask},
	}
	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		task, err := e.build("scheduler", time.Time{})
		if err != nil {
			return nil, err
		}
		id, err := r.Register(e.spec, task)
		if err != nil {
			return nil, fmt.Errorf("register %s at %q: %w", task.Type(), e.spec, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RedisOpt builds the asynq connection option.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
}
