package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"vodmill/internal/logging"
)

// Job outcomes recorded in history.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// JobRecord is the audit entry persisted after each job.
type JobRecord struct {
	JobID        string
	FileName     string
	Outcome      string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Recorder persists finished-job records. history.Store implements it; a
// nil recorder disables history.
type Recorder interface {
	Record(ctx context.Context, rec JobRecord) error
}

// Worker is the single consumer of the job queue. Exactly one worker runs
// per process so at most one pipeline executes at a time; the external
// tools and the single job-state slot cannot tolerate concurrent runs.
type Worker struct {
	queue   *Queue
	driver  *Driver
	history Recorder
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker builds the worker. history may be nil.
func NewWorker(queue *Queue, driver *Driver, history Recorder, logger *slog.Logger) *Worker {
	return &Worker{
		queue:   queue,
		driver:  driver,
		history: history,
		logger:  logging.NewComponentLogger(logger, "worker"),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(runCtx)
	return nil
}

// Stop cancels the worker and waits for the current job to return. Queued
// entries are abandoned; the queue is not persisted across restarts.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	w.logger.Info("worker started")

	for {
		path, ok := w.queue.Dequeue(ctx)
		if !ok {
			w.logger.Info("worker stopping")
			return
		}
		w.process(ctx, path)
	}
}

// process runs one job and always releases the path from the de-dup set,
// success or failure, so the file stays requeueable. A driver failure is
// this job's problem only; the loop carries on with the next entry.
func (w *Worker) process(ctx context.Context, path string) {
	defer w.queue.Release(path)

	w.logger.Info("dequeued job", logging.String(logging.FieldFile, path))

	result, err := w.runSafely(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.logger.Error("job failed",
			logging.String(logging.FieldFile, path),
			logging.String(logging.FieldJobID, result.JobID),
			logging.Error(err),
		)
		w.record(ctx, result, err)
		return
	}

	w.logger.Info("job finished",
		logging.String(logging.FieldFile, path),
		logging.String(logging.FieldJobID, result.JobID),
	)
	w.record(ctx, result, nil)
}

// runSafely converts a driver panic into an error so a bug in a stage can
// never take the worker goroutine down with it.
func (w *Worker) runSafely(ctx context.Context, path string) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("pipeline panic",
				logging.String(logging.FieldFile, path),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("pipeline panic: %v", r)
			if result.FinishedAt.IsZero() {
				result.FinishedAt = time.Now().UTC()
			}
		}
	}()
	return w.driver.Run(ctx, path)
}

func (w *Worker) record(ctx context.Context, result Result, runErr error) {
	if w.history == nil {
		return
	}
	rec := JobRecord{
		JobID:      result.JobID,
		FileName:   result.FileName,
		Outcome:    OutcomeCompleted,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	if runErr != nil {
		rec.Outcome = OutcomeFailed
		rec.ErrorMessage = runErr.Error()
	}
	if err := w.history.Record(ctx, rec); err != nil {
		w.logger.Warn("record job history", logging.Error(err))
	}
}
