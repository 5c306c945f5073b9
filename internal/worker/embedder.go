package worker

import (
	"context"
	"errors"
	"log/slog"

	"tickerspark/archive/internal/queue"
)

// ErrChunkNotFound is returned by ContentStore.GetContent when the chunk no
// longer exists, typically because its entry was re-ingested or deleted
// between enqueue and pickup.
var ErrChunkNotFound = errors.New("chunk not found")

// ContentStore is the slice of the chunk store the worker needs: reading a
// chunk's text and writing its vector back.
type ContentStore interface {
	GetContent(ctx context.Context, id string) (string, error)
	SetEmbedding(ctx context.Context, id string, vector []float32) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// JobQueue is the visibility-timeout queue the worker drains.
type JobQueue interface {
	Read(ctx context.Context, batchSize, visibilitySeconds int) ([]queue.Job, error)
	Delete(ctx context.Context, msgIDs []int64) error
}

// Report summarizes one worker pass.
type Report struct {
	Read     int `json:"read"`
	Embedded int `json:"embedded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

type Runner struct {
	jobs              JobQueue
	store             ContentStore
	embedder          Embedder
	batchSize         int
	visibilitySeconds int
	logger            *slog.Logger
}

func NewRunner(jobs JobQueue, store ContentStore, embedder Embedder, batchSize, visibilitySeconds int, logger *slog.Logger) *Runner {
	return &Runner{
		jobs:              jobs,
		store:             store,
		embedder:          embedder,
		batchSize:         batchSize,
		visibilitySeconds: visibilitySeconds,
		logger:            logger,
	}
}

// Run drains one batch of embedding jobs. Each job is acknowledged only
// after its outcome is settled: embedded chunks and vanished chunks are
// acked, transient failures are left to reappear after the visibility
// timeout. All acks go out in a single batch delete at the end.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	jobs, err := r.jobs.Read(ctx, r.batchSize, r.visibilitySeconds)
	if err != nil {
		return Report{}, err
	}

	report := Report{Read: len(jobs)}
	if len(jobs) == 0 {
		return report, nil
	}

	done := make([]int64, 0, len(jobs))
	for _, job := range jobs {
		switch outcome := r.process(ctx, job); outcome {
		case outcomeEmbedded:
			report.Embedded++
			done = append(done, job.MsgID)
		case outcomeSkipped:
			report.Skipped++
			done = append(done, job.MsgID)
		case outcomeFailed:
			report.Failed++
		}
	}

	if len(done) > 0 {
		if err := r.jobs.Delete(ctx, done); err != nil {
			return report, err
		}
	}

	r.logger.InfoContext(ctx, "worker pass complete",
		"read", report.Read, "embedded", report.Embedded,
		"skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

type outcome int

const (
	outcomeEmbedded outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (r *Runner) process(ctx context.Context, job queue.Job) outcome {
	content, err := r.store.GetContent(ctx, job.DocumentID)
	if errors.Is(err, ErrChunkNotFound) {
		r.logger.InfoContext(ctx, "chunk gone, acking job",
			"chunk_id", job.DocumentID, "read_count", job.ReadCount)
		return outcomeSkipped
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to load chunk",
			"chunk_id", job.DocumentID, "error", err)
		return outcomeFailed
	}
	if content == "" {
		r.logger.InfoContext(ctx, "chunk has no content, acking job",
			"chunk_id", job.DocumentID)
		return outcomeSkipped
	}

	vector, err := r.embedder.Embed(ctx, content)
	if err != nil {
		r.logger.ErrorContext(ctx, "embedding failed, job will retry",
			"chunk_id", job.DocumentID, "read_count", job.ReadCount, "error", err)
		return outcomeFailed
	}

	if err := r.store.SetEmbedding(ctx, job.DocumentID, vector); err != nil {
		r.logger.ErrorContext(ctx, "failed to store embedding, job will retry",
			"chunk_id", job.DocumentID, "error", err)
		return outcomeFailed
	}

	return outcomeEmbedded
}
