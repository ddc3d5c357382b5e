package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsOnStartAndOnTick(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler()
	s.Register("count", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
}

func TestSchedulerKeepsRunningAfterError(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler()
	s.Register("flaky", 5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("asaas fora do ar")
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
}

func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler()
	s.Register("a", time.Minute, func(context.Context) error { return nil })
	s.Register("b", time.Hour, func(context.Context) error { return nil })

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "b", jobs[1].Name)
	assert.Equal(t, time.Hour, jobs[1].Interval)
}
