package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/asklokesh/FireLater-sub015/internal/metrics"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Worker processes background jobs across all queues.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *logger.Logger
}

// NewWorker creates the background job worker. Queue weights and retry
// spacing come from the queue policy registry.
func NewWorker(cfg WorkerConfig, handlers *TaskHandlers, log *logger.Logger) *Worker {
	workerLog := log.With("component", "job_worker")

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency:    cfg.Concurrency,
			Queues:         QueueWeights(),
			RetryDelayFunc: RetryDelay,
			ErrorHandler:   asynq.ErrorHandlerFunc(errorHandler(workerLog)),
			Logger:         asynqLogger{workerLog},
		},
	)

	mux := asynq.NewServeMux()
	mux.Use(observeMiddleware)
	handlers.Register(mux)

	return &Worker{
		server: server,
		mux:    mux,
		logger: workerLog,
	}
}

// Start starts the worker in the background.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker", "queues", QueueWeights())
	return w.server.Start(w.mux)
}

// Stop stops the worker gracefully, waiting for in-flight tasks.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}

// Run runs the worker until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Start(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	}
}

// observeMiddleware records duration and outcome metrics and a trace span for
// every processed task.
func observeMiddleware(next asynq.Handler) asynq.Handler {
	tracer := otel.Tracer("jobs")
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		queue := "unknown"
		if q, ok := asynq.GetQueueName(ctx); ok {
			queue = q
		}

		ctx, span := tracer.Start(ctx, "job.process")
		span.SetAttributes(
			attribute.String("job.type", t.Type()),
			attribute.String("job.queue", queue),
		)
		defer span.End()

		start := time.Now()
		err := next.ProcessTask(ctx, t)
		elapsed := time.Since(start)

		metrics.JobDuration.WithLabelValues(queue).Observe(elapsed.Seconds())
		outcome := "success"
		if err != nil {
			outcome = "failure"
			if errors.Is(err, asynq.SkipRetry) {
				outcome = "skipped"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.JobsProcessedTotal.WithLabelValues(queue, outcome).Inc()
		return err
	})
}

// errorHandler logs handler failures and counts tasks that exhausted their
// retry budget and moved to the archive.
func errorHandler(log *logger.Logger) func(ctx context.Context, task *asynq.Task, err error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		queue, _ := asynq.GetQueueName(ctx)
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		exhausted := retried >= maxRetry || errors.Is(err, asynq.SkipRetry)
		if exhausted {
			metrics.JobsExhaustedTotal.WithLabelValues(queue).Inc()
			log.Error("task exhausted retries, archiving",
				"type", task.Type(), "queue", queue, "retried", retried, "error", err)
			return
		}

		log.Warn("task failed, will retry",
			"type", task.Type(), "queue", queue, "retried", retried, "max_retry", maxRetry, "error", err)
	}
}

// asynqLogger adapts our logger to asynq's internal logging interface.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
