// Package uploads runs video uploads on a small background worker pool.
package uploads

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/models"
)

// Uploader submits one upload. The video catalog satisfies it.
type Uploader interface {
	Upload(ctx context.Context, u models.PendingUpload, progress func(int)) (models.VideoRecord, error)
}

// Reporter observes job outcomes. Calls may come from several workers at once.
type Reporter interface {
	Progress(job Job, percent int)
	Succeeded(job Job, rec models.VideoRecord)
	Failed(job Job, err error)
}

// Job is one queued upload.
type Job struct {
	ID     string
	Upload models.PendingUpload
	// Release, when set, runs after the job finishes, e.g. to close files.
	Release func()
}

// Config controls the pool size and the per-job deadline.
type Config struct {
	QueueSize  int
	Workers    int
	JobTimeout time.Duration
}

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("upload queue closed")

// Queue feeds jobs to workers.
type Queue struct {
	uploader Uploader
	reporter Reporter
	timeout  time.Duration
	logger   *slog.Logger

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

// NewQueue starts cfg.Workers workers.
func NewQueue(uploader Uploader, reporter Reporter, cfg Config, logger *slog.Logger) *Queue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		uploader: uploader,
		reporter: reporter,
		timeout:  cfg.JobTimeout,
		logger:   logger,
		jobs:     make(chan Job, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}
	return q
}

// Enqueue schedules job, blocking while the queue is full.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- job:
		return nil
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. When
// ctx expires first, jobs still running are cancelled.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.jobs)
		q.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	case <-done:
		q.cancel()
		return nil
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.handle(job)
	}
}

func (q *Queue) handle(job Job) {
	if job.Release != nil {
		defer job.Release()
	}

	if err := q.ctx.Err(); err != nil {
		q.reporter.Failed(job, err)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	logger := q.logger.With("job", job.ID)
	rec, err := q.uploader.Upload(ctx, job.Upload, func(pct int) {
		q.reporter.Progress(job, pct)
	})
	if err != nil {
		logger.Warn("upload job failed", "error", err, "kind", kindOf(err))
		q.reporter.Failed(job, err)
		return
	}

	logger.Info("upload job finished", "videoId", rec.ID)
	q.reporter.Succeeded(job, rec)
}

func kindOf(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Kind.String()
	}
	return "unknown"
}
