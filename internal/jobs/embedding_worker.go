package jobs

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"

	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/logger"
	"github.com/cloo-solutions/supporthub/internal/telemetry"
)

// MaxRetries is the number of attempts before a job is marked failed.
const MaxRetries = 3

// EmbeddingJobRepository defines the interface for embedding job persistence
type EmbeddingJobRepository interface {
	// ClaimPending moves up to limit pending jobs to processing and returns them.
	ClaimPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error)
	UpdateStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, jobID string) error
}

// ArticleEmbedder embeds the chunks of one article.
type ArticleEmbedder interface {
	EmbedArticle(ctx context.Context, articleID string) error
}

type EmbeddingWorker struct {
	repo      EmbeddingJobRepository
	embedder  ArticleEmbedder
	batchSize int
	log       *logger.Logger
}

func NewEmbeddingWorker(repo EmbeddingJobRepository, embedder ArticleEmbedder, log *logger.Logger) *EmbeddingWorker {
	if log == nil {
		log = logger.NewNop()
	}
	return &EmbeddingWorker{
		repo:      repo,
		embedder:  embedder,
		batchSize: 10,
		log:       log.With("component", "embedding_worker"),
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.log.Info("processing pending embedding jobs", "count", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.log.Error("error processing job", "job_id", job.ID, "error", err)
		}
	}

	return nil
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	if job.ArticleID == "" {
		return fmt.Errorf("job %s has no article_id", job.ID)
	}

	ctx, span := telemetry.StartSpan(ctx, "EmbeddingWorker.processJob", telemetry.SpanAttributes{
		ArticleID: job.ArticleID,
		Operation: "embed_article",
	})
	defer span.End()

	if err := w.embedder.EmbedArticle(ctx, job.ArticleID); err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}
	span.SetStatus(sentry.SpanStatusOK)

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	w.log.Info("embedding job completed", "job_id", job.ID, "article_id", job.ArticleID)
	return nil
}

func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	w.log.Warn("embedding job failed", "job_id", job.ID, "error", jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		w.log.Warn("embedding job exceeded max retries", "job_id", job.ID, "max_retries", MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
