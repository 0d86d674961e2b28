package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"doclife/internal/logging"
)

func TestPeriodic_RunsImmediatelyAndOnTick(t *testing.T) {
	var calls atomic.Int32
	p := NewPeriodic("test", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, logging.Discard())

	p.Start(context.Background())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	p.Stop()

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestPeriodic_ErrorsDoNotStopLoop(t *testing.T) {
	var calls atomic.Int32
	p := NewPeriodic("failing", 5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	}, logging.Discard())

	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestPeriodic_StartTwiceAndStopIdle(t *testing.T) {
	var calls atomic.Int32
	p := NewPeriodic("idempotent", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, logging.Discard())

	p.Stop()
	p.Start(context.Background())
	p.Start(context.Background())
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()
	assert.Equal(t, int32(1), calls.Load())
}
