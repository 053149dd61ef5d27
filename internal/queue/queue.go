package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sizemo/ocreceipt/internal/models"
)

// Queue is an in-memory FIFO of pending job ids with a single consuming
// worker. Jobs survive restarts through the relational store: on Start,
// every job still in queued or processing is re-enqueued before the
// worker begins.
type Queue struct {
	worker *Worker
	cfg    models.QueueConfig
	logger *slog.Logger

	mu    sync.Mutex
	items []uuid.UUID

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func New(worker *Worker, cfg models.QueueConfig, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Queue{
		worker: worker,
		cfg:    cfg,
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Enqueue appends a job id and wakes the worker.
func (q *Queue) Enqueue(id uuid.UUID) {
	q.mu.Lock()
	q.items = append(q.items, id)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Start re-enqueues jobs interrupted by a previous shutdown or crash,
// then launches the single consuming goroutine.
func (q *Queue) Start(ctx context.Context) error {
	ids, err := q.worker.store.ListIncompleteJobIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		q.Enqueue(id)
	}
	if len(ids) > 0 {
		q.logger.Info("re-enqueued incomplete jobs", "count", len(ids))
	}

	go q.loop(ctx)
	return nil
}

func (q *Queue) loop(ctx context.Context) {
	defer close(q.done)

	ticker := time.NewTicker(q.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// Stop wins over pending work: remaining items stay queued in the
		// store and are recovered on the next start.
		select {
		case <-q.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		id, ok := q.pop()
		if ok {
			q.worker.Process(ctx, id)
			continue
		}

		// The ticker bounds how long a missed wakeup can stall the queue.
		select {
		case <-q.stop:
			return
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-ticker.C:
		}
	}
}

func (q *Queue) pop() (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return uuid.UUID{}, false
	}
	id := q.items[0]
	q.items = q.items[1:]
	return id, true
}

// Shutdown stops the worker after its in-flight job, waiting at most the
// configured timeout. Remaining queued jobs are not drained; the startup
// requeue scan recovers them on the next run.
func (q *Queue) Shutdown() {
	select {
	case <-q.stop:
	default:
		close(q.stop)
	}

	timeout := q.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case <-q.done:
	case <-time.After(timeout):
		q.logger.Warn("shutdown timeout elapsed before worker exit")
	}
}
