// Package worker runs background jobs on a fixed interval inside a process.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Periodic calls a Job once at start and then on every tick until stopped.
type Periodic struct {
	name     string
	interval time.Duration
	job      Job
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPeriodic(name string, interval time.Duration, job Job, logger *slog.Logger) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		job:      job,
		logger:   logger.With(slog.String("component", name)),
	}
}

// Start launches the loop. Calling Start on a running Periodic is a no-op.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(runCtx, p.done)

	p.logger.Info("periodic job started", slog.String("interval", p.interval.String()))
}

// Stop cancels the loop and waits for an in-flight run to return.
func (p *Periodic) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("periodic job stopped")
}

func (p *Periodic) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context) {
	if err := p.job(ctx); err != nil {
		p.logger.Error("periodic job failed", slog.String("error", err.Error()))
	}
}
