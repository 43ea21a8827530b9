// Package indexer submits posts to the agent worker for retrieval indexing
// and records when a post becomes ready for question answering.
package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/models"
	"github.com/inkwell/blogmind/internal/worker"
	"github.com/inkwell/blogmind/pkg/config"
	"github.com/inkwell/blogmind/pkg/logging"
	"github.com/inkwell/blogmind/pkg/telemetry"
)

var jobsTotal = telemetry.NewCounter("blogmind_index_jobs_total", "Indexing jobs by outcome")

// Store is the persistence the orchestrator needs
type Store interface {
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListNotIndexed(ctx context.Context, limit int) ([]models.Post, error)
	MarkIndexed(ctx context.Context, id string) (bool, error)
}

// Indexer builds retrieval data for a post
type Indexer interface {
	Index(ctx context.Context, postID, text string) error
}

// Job is one post awaiting indexing
type Job struct {
	PostID string
	Text   string
}

// Orchestrator runs indexing jobs on a bounded pool, detached from the
// requests that submit them
type Orchestrator struct {
	store   Store
	worker  Indexer
	workers int
	timeout time.Duration
	queue   chan Job
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// New creates an orchestrator. Start must be called before jobs are run.
func New(store Store, w Indexer, cfg *config.IndexerConfig, timeout time.Duration) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Orchestrator{
		store:   store,
		worker:  w,
		workers: workers,
		timeout: timeout,
		queue:   make(chan Job, queueSize),
		logger:  logging.WithComponent("indexer"),
	}
}

// Start launches the worker goroutines
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started || o.closed {
		return
	}
	o.started = true

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go o.run(i)
	}
	o.logger.Info("Indexer started", zap.Int("workers", o.workers), zap.Int("queue_size", cap(o.queue)))
}

func (o *Orchestrator) run(id int) {
	defer o.wg.Done()
	for job := range o.queue {
		if err := o.IndexNow(context.Background(), job); err != nil {
			o.logger.Warn("Indexing job failed",
				zap.Int("worker", id),
				zap.String("post_id", job.PostID),
				zap.Error(err))
		}
	}
}

// Submit enqueues a job without blocking. It reports false when the job was
// dropped because the queue is full or the orchestrator is closed; the post
// then stays not ready until it is submitted again.
func (o *Orchestrator) Submit(postID, text string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		o.logger.Warn("Indexing job dropped, indexer closed", zap.String("post_id", postID))
		jobsTotal.Inc(context.Background(), "dropped")
		return false
	}

	select {
	case o.queue <- Job{PostID: postID, Text: text}:
		return true
	default:
		o.logger.Warn("Indexing job dropped, queue full",
			zap.String("post_id", postID),
			zap.Int("queue_size", cap(o.queue)))
		jobsTotal.Inc(context.Background(), "dropped")
		return false
	}
}

// IndexNow runs one job on the calling goroutine. A worker failure leaves
// the post untouched; a panic is recovered and reported as an error.
func (o *Orchestrator) IndexNow(ctx context.Context, job Job) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.job")
	defer span.End()
	span.SetAttributes(attribute.String("post_id", job.PostID))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("indexing job panicked: %v", r)
			jobsTotal.Inc(ctx, "panic")
			o.logger.Error("Indexing job panicked",
				zap.String("post_id", job.PostID),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	start := time.Now()
	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	if err := o.worker.Index(callCtx, job.PostID, job.Text); err != nil {
		jobsTotal.Inc(ctx, "worker_failed")
		return worker.Classify(err)
	}

	flipped, err := o.store.MarkIndexed(ctx, job.PostID)
	if err != nil {
		jobsTotal.Inc(ctx, "store_failed")
		return fmt.Errorf("failed to mark post %s indexed: %w", job.PostID, err)
	}

	jobsTotal.Inc(ctx, "indexed")
	o.logger.Info("Post indexed",
		zap.String("post_id", job.PostID),
		zap.Bool("ready", true),
		zap.Bool("transitioned", flipped),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Sweep submits up to limit not-ready posts, oldest first, and returns how
// many were accepted
func (o *Orchestrator) Sweep(ctx context.Context, limit int) (int, error) {
	posts, err := o.store.ListNotIndexed(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list posts awaiting indexing: %w", err)
	}

	accepted := 0
	for _, post := range posts {
		if o.Submit(post.ID, post.Content) {
			accepted++
		}
	}

	o.logger.Info("Re-submission sweep done",
		zap.Int("pending", len(posts)),
		zap.Int("accepted", accepted))
	return accepted, nil
}

// Reindex submits a single post regardless of its readiness
func (o *Orchestrator) Reindex(ctx context.Context, postID string) error {
	if _, err := uuid.Parse(postID); err != nil {
		return errs.New(errs.KindNotFound, "Blog not found")
	}
	post, err := o.store.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errs.New(errs.KindNotFound, "Blog not found")
	}
	if !o.Submit(post.ID, post.Content) {
		return errs.New(errs.KindInternal, "Indexing queue is full. Please try again later.")
	}
	return nil
}

// Close stops accepting jobs and waits for queued and in-flight jobs until
// ctx is done
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("Indexer drained")
		return nil
	case <-ctx.Done():
		o.logger.Warn("Indexer closed before draining", zap.Int("pending", len(o.queue)))
		return ctx.Err()
	}
}
