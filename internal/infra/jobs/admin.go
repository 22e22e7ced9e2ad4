package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// QueueStats is a point-in-time snapshot of one queue for the admin surface.
type QueueStats struct {
	Queue     string `json:"queue"`
	Size      int    `json:"size"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Completed int    `json:"completed"`
	Paused    bool   `json:"paused"`
}

// FailedTask describes one archived task for operator inspection.
type FailedTask struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Queue      string `json:"queue"`
	Payload    string `json:"payload"`
	LastErr    string `json:"last_error"`
	Retried    int    `json:"retried"`
	MaxRetry   int    `json:"max_retry"`
	LastFailed string `json:"last_failed_at"`
}

// Admin exposes operator controls over the job queues: stats, pause and
// resume, and archived-task recovery.
type Admin struct {
	inspector *asynq.Inspector
	logger    *logger.Logger
}

// NewAdmin creates the queue admin facade.
func NewAdmin(cfg ClientConfig, log *logger.Logger) *Admin {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Admin{
		inspector: inspector,
		logger:    log.With("component", "queue_admin"),
	}
}

// Close releases the inspector connection.
func (a *Admin) Close() error {
	return a.inspector.Close()
}

// Stats returns a snapshot of every known queue. Queues with no traffic yet
// report zeroes rather than an error.
func (a *Admin) Stats(ctx context.Context) ([]QueueStats, error) {
	names := []string{QueueReports, QueueHealthScores, QueueSLA, QueueNotifications, QueueSync, QueueCleanup}

	out := make([]QueueStats, 0, len(names))
	for _, name := range names {
		info, err := a.inspector.GetQueueInfo(name)
		if err != nil {
			// Queue not created until its first task.
			out = append(out, QueueStats{Queue: name})
			continue
		}
		out = append(out, QueueStats{
			Queue:     name,
			Size:      info.Size,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Archived:  info.Archived,
			Completed: info.Completed,
			Paused:    info.Paused,
		})
	}
	return out, nil
}

// Pause stops workers from pulling new tasks off a queue. In-flight tasks
// finish normally.
func (a *Admin) Pause(ctx context.Context, queue string) error {
	if _, ok := PolicyForQueue(queue); !ok {
		return shared.NewDomainError("QUEUE_UNKNOWN", "unknown queue: "+queue, shared.ErrNotFound)
	}
	if err := a.inspector.PauseQueue(queue); err != nil {
		return fmt.Errorf("pause queue %s: %w", queue, err)
	}
	a.logger.Info("queue paused", "queue", queue)
	return nil
}

// Resume reopens a paused queue.
func (a *Admin) Resume(ctx context.Context, queue string) error {
	if _, ok := PolicyForQueue(queue); !ok {
		return shared.NewDomainError("QUEUE_UNKNOWN", "unknown queue: "+queue, shared.ErrNotFound)
	}
	if err := a.inspector.UnpauseQueue(queue); err != nil {
		return fmt.Errorf("resume queue %s: %w", queue, err)
	}
	a.logger.Info("queue resumed", "queue", queue)
	return nil
}

// ListFailed returns archived tasks for a queue, newest first.
func (a *Admin) ListFailed(ctx context.Context, queue string, page, size int) ([]FailedTask, error) {
	if _, ok := PolicyForQueue(queue); !ok {
		return nil, shared.NewDomainError("QUEUE_UNKNOWN", "unknown queue: "+queue, shared.ErrNotFound)
	}
	if size <= 0 {
		size = 50
	}
	if page <= 0 {
		page = 1
	}

	infos, err := a.inspector.ListArchivedTasks(queue, asynq.Page(page), asynq.PageSize(size))
	if err != nil {
		return nil, fmt.Errorf("list archived tasks in %s: %w", queue, err)
	}

	out := make([]FailedTask, 0, len(infos))
	for _, ti := range infos {
		out = append(out, FailedTask{
			ID:         ti.ID,
			Type:       ti.Type,
			Queue:      ti.Queue,
			Payload:    string(ti.Payload),
			LastErr:    ti.LastErr,
			Retried:    ti.Retried,
			MaxRetry:   ti.MaxRetry,
			LastFailed: ti.LastFailedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out, nil
}

// RetryFailed moves one archived task back to pending with a fresh retry
// budget.
func (a *Admin) RetryFailed(ctx context.Context, queue, taskID string) error {
	if _, ok := PolicyForQueue(queue); !ok {
		return shared.NewDomainError("QUEUE_UNKNOWN", "unknown queue: "+queue, shared.ErrNotFound)
	}
	if err := a.inspector.RunTask(queue, taskID); err != nil {
		return fmt.Errorf("retry archived task %s: %w", taskID, err)
	}
	a.logger.Info("archived task requeued", "queue", queue, "task_id", taskID)
	return nil
}

// PurgeFailed deletes all archived tasks in a queue and returns the count.
func (a *Admin) PurgeFailed(ctx context.Context, queue string) (int, error) {
	if _, ok := PolicyForQueue(queue); !ok {
		return 0, shared.NewDomainError("QUEUE_UNKNOWN", "unknown queue: "+queue, shared.ErrNotFound)
	}
	n, err := a.inspector.DeleteAllArchivedTasks(queue)
	if err != nil {
		return 0, fmt.Errorf("purge archived tasks in %s: %w", queue, err)
	}
	a.logger.Info("archived tasks purged", "queue", queue, "count", n)
	return n, nil
}
