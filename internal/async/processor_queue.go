package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
	"github.com/joseph-ayodele/rx-resolver/internal/pipeline"
)

// Processor is the part of pipeline.Processor the workers need.
type Processor interface {
	ProcessQueued(ctx context.Context, id uuid.UUID, doc entity.Document) (pipeline.Outcome, error)
}

// ResultHook observes every finished job.
type ResultHook func(job Job, out pipeline.Outcome, err error)

type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	hook    ResultHook

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithResultHook(h ResultHook) Option {
	return func(q *ProcessorQueue) { q.hook = h }
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 16),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx := context.Background()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	out, err := q.proc.ProcessQueued(ctx, job.PrescriptionID, job.Doc)
	if err != nil {
		q.logger.Error("queue.job.failed", "worker_id", workerID, "prescription_id", job.PrescriptionID, "path", job.Doc.Name(), "error", err)
	} else {
		q.logger.Info("queue.job.done", "worker_id", workerID, "prescription_id", job.PrescriptionID, "path", job.Doc.Name(),
			"results", len(out.Entries), "wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
	if q.hook != nil {
		q.hook(job, out, err)
	}
}

// Enqueue never blocks: a full buffer is reported as ErrQueueFull so the
// caller can retry or drop the document.
func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.Doc.Name())
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueued", "prescription_id", job.PrescriptionID, "path", job.Doc.Name(), "depth", len(q.ch))
		return nil
	default:
		q.logger.Warn("queue.full", "path", job.Doc.Name(), "capacity", cap(q.ch))
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for the workers to drain the
// buffer, or for ctx to expire.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted", "error", ctx.Err())
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
