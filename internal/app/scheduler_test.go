package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

func newTestScheduler() *Scheduler {
	return NewScheduler(logger.NewNop())
}

func TestSchedulerRegister(t *testing.T) {
	s := newTestScheduler()

	err := s.Register("sla-sweep", time.Minute, func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	t.Run("duplicate name", func(t *testing.T) {
		err := s.Register("sla-sweep", time.Minute, func(ctx context.Context) error { return nil })
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("missing handler", func(t *testing.T) {
		err := s.Register("broken", time.Minute, nil)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("non-positive interval", func(t *testing.T) {
		err := s.Register("broken", 0, func(ctx context.Context) error { return nil })
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestSchedulerTriggerUnknownTask(t *testing.T) {
	s := newTestScheduler()
	err := s.Trigger(context.Background(), "nope")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSchedulerTriggerRunsHandler(t *testing.T) {
	s := newTestScheduler()

	var calls atomic.Int32
	require.NoError(t, s.Register("report-sweep", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}))

	require.NoError(t, s.Trigger(context.Background(), "report-sweep"))
	assert.Equal(t, int32(1), calls.Load())

	st := s.Status()
	require.Len(t, st, 1)
	assert.Equal(t, "report-sweep", st[0].Name)
	assert.False(t, st[0].IsRunning)
	require.NotNil(t, st[0].LastRunAt)
}

func TestSchedulerTriggerWhileRunning(t *testing.T) {
	s := newTestScheduler()

	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register("slow", time.Hour, func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- s.Trigger(context.Background(), "slow") }()

	<-entered
	err := s.Trigger(context.Background(), "slow")
	assert.ErrorIs(t, err, shared.ErrAlreadyRunning)

	st := s.Status()
	require.Len(t, st, 1)
	assert.True(t, st[0].IsRunning)

	close(release)
	require.NoError(t, <-done)
}

func TestSchedulerTickSkipsWhileRunning(t *testing.T) {
	s := newTestScheduler()

	var started atomic.Int32
	release := make(chan struct{})
	require.NoError(t, s.Register("sweep", 10*time.Millisecond, func(ctx context.Context) error {
		started.Add(1)
		<-release
		return nil
	}))

	s.Start()
	defer s.Stop()

	// Several ticks elapse while the first run blocks; none may overlap.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load())

	close(release)
}

func TestSchedulerHandlerErrorDoesNotStopLoop(t *testing.T) {
	s := newTestScheduler()

	var calls atomic.Int32
	require.NoError(t, s.Register("flaky", 5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	}))

	s.Start()
	time.Sleep(40 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestSchedulerHandlerPanicIsContained(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.Register("panicky", time.Hour, func(ctx context.Context) error {
		panic("kaboom")
	}))

	err := s.Trigger(context.Background(), "panicky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task panic")

	// Guard must be released after a panic.
	require.Error(t, s.Trigger(context.Background(), "panicky"))
	st := s.Status()
	assert.False(t, st[0].IsRunning)
}

func TestSchedulerRegisterAfterStart(t *testing.T) {
	s := newTestScheduler()
	s.Start()
	defer s.Stop()

	err := s.Register("late", time.Minute, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestSchedulerStatusOrder(t *testing.T) {
	s := newTestScheduler()
	noop := func(ctx context.Context) error { return nil }
	require.NoError(t, s.Register("b-task", time.Minute, noop))
	require.NoError(t, s.Register("a-task", time.Minute, noop))

	st := s.Status()
	require.Len(t, st, 2)
	assert.Equal(t, "b-task", st[0].Name)
	assert.Equal(t, "a-task", st[1].Name)
}
