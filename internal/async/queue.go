package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/extract"
	"github.com/joseph-ayodele/proposal-builder/internal/pipeline"
)

// ErrClosed is returned by Enqueue after Shutdown has started.
var ErrClosed = errors.New("analysis queue is shutting down")

// Job asks for one document to be analyzed for company.
type Job struct {
	ID          string
	Company     string
	Path        string
	Kind        extract.Kind
	SubmittedAt time.Time
}

// Outcome is delivered to the result handler for every job that ran.
type Outcome struct {
	Job    Job
	Result common.Result[pipeline.Report]
}

// Analyzer is the single-document pipeline the workers call.
type Analyzer interface {
	Analyze(ctx context.Context, company, path string, kind extract.Kind) common.Result[pipeline.Report]
}

type AnalysisQueue struct {
	analyzer Analyzer
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(Outcome)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*AnalysisQueue)

func WithWorkers(n int) Option {
	return func(q *AnalysisQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *AnalysisQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *AnalysisQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResultHandler is called from worker goroutines; it must be safe for
// concurrent use.
func WithResultHandler(fn func(Outcome)) Option {
	return func(q *AnalysisQueue) { q.onResult = fn }
}

func NewAnalysisQueue(analyzer Analyzer, logger *slog.Logger, opts ...Option) *AnalysisQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &AnalysisQueue{
		analyzer: analyzer,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *AnalysisQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.start", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *AnalysisQueue) run(workerID int, job Job) {
	start := time.Now()
	ctx, cancel := common.WithTimeout(common.WithRequestID(context.Background(), job.ID), q.timeout)
	res := q.analyzer.Analyze(ctx, job.Company, job.Path, job.Kind)
	cancel()

	switch {
	case res.IsFailed():
		q.logger.Error("queue.job.failed", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "error", res.Err)
	case res.IsDegraded():
		q.logger.Warn("queue.job.degraded", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "cause", res.Cause,
			"elapsed_ms", time.Since(start).Milliseconds())
	default:
		q.logger.Info("queue.job.ok", "worker_id", workerID, "job_id", job.ID, "path", job.Path,
			"elapsed_ms", time.Since(start).Milliseconds())
	}
	if q.onResult != nil {
		q.onResult(Outcome{Job: job, Result: res})
	}
}

// Enqueue blocks while the queue is full unless ctx ends first.
func (q *AnalysisQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "job_id", job.ID)
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue.ok", "job_id", job.ID, "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "job_id", job.ID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or
// for ctx to end.
func (q *AnalysisQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
		return ctx.Err()
	case <-done:
		q.logger.Info("queue.shutdown.drained")
		return nil
	}
}
