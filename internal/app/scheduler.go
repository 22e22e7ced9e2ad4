package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asklokesh/FireLater-sub015/internal/metrics"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// TaskHandler is one recurring task body. Handlers must be idempotent: the
// registry rebuilds from scratch on restart and gives no run-history
// guarantees beyond at-most-one-concurrent-run.
type TaskHandler func(ctx context.Context) error

// TaskStatus is one row of the scheduler's admin status listing.
type TaskStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	LastRunAt *time.Time    `json:"last_run_at,omitempty"`
	IsRunning bool          `json:"is_running"`
}

type taskState struct {
	name     string
	interval time.Duration
	handler  TaskHandler

	mu        sync.Mutex
	lastRunAt *time.Time
	isRunning bool
}

// Scheduler holds named recurring tasks, each driven by its own timer.
// A tick that arrives while the previous run is still in flight is skipped,
// not queued; retries belong to the job queue, the scheduler only decides
// when to ask for work.
type Scheduler struct {
	mu      sync.RWMutex
	tasks   map[string]*taskState
	order   []string
	started bool

	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *logger.Logger

	// runTimeout bounds a single handler invocation.
	runTimeout time.Duration
}

// NewScheduler creates an empty scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{
		tasks:      make(map[string]*taskState),
		stopCh:     make(chan struct{}),
		logger:     log.With("component", "scheduler"),
		runTimeout: 5 * time.Minute,
	}
}

// Register adds a named recurring task. Registration happens once at process
// start, before Start.
func (s *Scheduler) Register(name string, interval time.Duration, handler TaskHandler) error {
	if name == "" || handler == nil {
		return shared.NewDomainError("SCHEDULER_INVALID_TASK", "task name and handler are required", shared.ErrValidation)
	}
	if interval <= 0 {
		return shared.NewDomainError("SCHEDULER_INVALID_INTERVAL", "interval must be positive", shared.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return shared.NewDomainError("SCHEDULER_STARTED", "cannot register after start", shared.ErrConflict)
	}
	if _, exists := s.tasks[name]; exists {
		return shared.NewDomainError("SCHEDULER_DUPLICATE_TASK", "task already registered: "+name, shared.ErrAlreadyExists)
	}
	s.tasks[name] = &taskState{name: name, interval: interval, handler: handler}
	s.order = append(s.order, name)
	return nil
}

// Start launches one timer goroutine per task.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	tasks := make([]*taskState, 0, len(s.order))
	for _, name := range s.order {
		tasks = append(tasks, s.tasks[name])
	}
	s.mu.Unlock()

	for _, t := range tasks {
		s.wg.Add(1)
		go s.runLoop(t)
	}
	s.logger.Info("scheduler started", "tasks", len(tasks))
}

// Stop stops all timers and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Trigger invokes a task immediately, outside its timer. It fails with
// ErrAlreadyRunning when the task is mid-run and with ErrNotFound for an
// unknown name.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	t, ok := s.tasks[name]
	s.mu.RUnlock()
	if !ok {
		return shared.NewDomainError("SCHEDULER_UNKNOWN_TASK", "unknown task: "+name, shared.ErrNotFound)
	}

	if !t.tryAcquire() {
		return shared.NewDomainError("SCHEDULER_TASK_RUNNING", "task is already running: "+name, shared.ErrAlreadyRunning)
	}
	defer t.release()

	s.logger.Info("task triggered manually", "task", name)
	return s.invoke(ctx, t)
}

// Status returns one entry per registered task, in registration order.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TaskStatus, 0, len(s.order))
	for _, name := range s.order {
		t := s.tasks[name]
		t.mu.Lock()
		out = append(out, TaskStatus{
			Name:      t.name,
			Interval:  t.interval,
			LastRunAt: t.lastRunAt,
			IsRunning: t.isRunning,
		})
		t.mu.Unlock()
	}
	return out
}

func (s *Scheduler) runLoop(t *taskState) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(t)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) tick(t *taskState) {
	if !t.tryAcquire() {
		// Previous run still in flight: skip this tick entirely.
		metrics.SchedulerTicksTotal.WithLabelValues(t.name, "skipped").Inc()
		s.logger.Warn("tick skipped, task still running", "task", t.name)
		return
	}
	defer t.release()

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	if err := s.invoke(ctx, t); err != nil {
		s.logger.Error("task failed", "task", t.name, "error", err)
	}
}

// invoke runs the handler with panic containment; the caller holds the run
// guard.
func (s *Scheduler) invoke(ctx context.Context, t *taskState) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
		elapsed := time.Since(start)
		metrics.SchedulerTaskDuration.WithLabelValues(t.name).Observe(elapsed.Seconds())
		outcome := "run"
		if err != nil {
			outcome = "error"
		}
		metrics.SchedulerTicksTotal.WithLabelValues(t.name, outcome).Inc()

		now := time.Now()
		t.mu.Lock()
		t.lastRunAt = &now
		t.mu.Unlock()
	}()

	return t.handler(ctx)
}

func (t *taskState) tryAcquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return false
	}
	t.isRunning = true
	return true
}

func (t *taskState) release() {
	t.mu.Lock()
	t.isRunning = false
	t.mu.Unlock()
}
