package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/logger"
	"github.com/cloo-solutions/supporthub/internal/pagination"
	"github.com/cloo-solutions/supporthub/internal/telemetry"
)

// ArticleRepositoryInterface defines persistence for knowledge articles.
// GetByID only returns live articles; LockByID returns soft-deleted ones too
// and holds the row until the surrounding transaction ends.
type ArticleRepositoryInterface interface {
	Create(ctx context.Context, a *domain.Article) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Article, error)
	LockByID(ctx context.Context, tenantID, id string) (*domain.Article, error)
	Update(ctx context.Context, a *domain.Article) error
	SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error
	Restore(ctx context.Context, tenantID, id string, at time.Time) error
	Search(ctx context.Context, q ArticleQuery) ([]*domain.Article, int64, error)
}

// ArticleQuery filters an article search. Empty fields do not filter.
type ArticleQuery struct {
	TenantID string
	Keyword  string
	Status   domain.ArticleStatus
	Tag      string
	Scope    string
	Page     pagination.Page
}

// ChunkRepositoryInterface defines persistence for article chunks.
type ChunkRepositoryInterface interface {
	ReplaceForArticle(ctx context.Context, tenantID, articleID string, chunks []*domain.KnowledgeChunk) error
	ListByArticle(ctx context.Context, tenantID, articleID string) ([]*domain.KnowledgeChunk, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ArticleService handles the knowledge article lifecycle.
type ArticleService struct {
	articles ArticleRepositoryInterface
	chunks   ChunkRepositoryInterface
	assets   AssetRepositoryInterface
	txRunner TxRunner
	uuidGen  UUIDGenerator
	now      func() time.Time
	log      *logger.Logger
}

func NewArticleService(
	articles ArticleRepositoryInterface,
	chunks ChunkRepositoryInterface,
	assets AssetRepositoryInterface,
	txRunner TxRunner,
	log *logger.Logger,
) *ArticleService {
	return NewArticleServiceWithUUIDGen(articles, chunks, assets, txRunner, log, &DefaultUUIDGenerator{})
}

// NewArticleServiceWithUUIDGen creates an ArticleService with a custom UUID generator (for testing)
func NewArticleServiceWithUUIDGen(
	articles ArticleRepositoryInterface,
	chunks ChunkRepositoryInterface,
	assets AssetRepositoryInterface,
	txRunner TxRunner,
	log *logger.Logger,
	uuidGen UUIDGenerator,
) *ArticleService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ArticleService{
		articles: articles,
		chunks:   chunks,
		assets:   assets,
		txRunner: txRunner,
		uuidGen:  uuidGen,
		now:      time.Now,
		log:      log.With("component", "article_service"),
	}
}

type CreateArticleInput struct {
	TenantID     string
	Title        string
	QuestionText string
	CauseText    string
	SolutionText string
	ScopeJSON    string
	Tags         string
	CreatedBy    string
}

type UpdateArticleInput struct {
	ID           string
	TenantID     string
	Title        string
	QuestionText string
	CauseText    string
	SolutionText string
	ScopeJSON    string
	Tags         string
}

type SearchArticlesInput struct {
	TenantID  string
	Keyword   string
	Status    string
	Tag       string
	Scope     string
	PageIndex int
	PageSize  int
}

// Create stores a new draft article at version 1.
func (s *ArticleService) Create(ctx context.Context, input CreateArticleInput) (*domain.Article, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArticleService.Create", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "create",
	})
	defer span.End()

	a := domain.NewArticle(s.uuidGen.NewString(), input.TenantID, input.Title, input.CreatedBy, s.now().UTC())
	a.QuestionText = input.QuestionText
	a.CauseText = input.CauseText
	a.SolutionText = input.SolutionText
	a.ScopeJSON = input.ScopeJSON
	a.Tags = input.Tags

	if err := domain.ValidateArticle(a); err != nil {
		return nil, err
	}

	if err := s.articles.Create(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info("article created", "article_id", a.ID, "tenant_id", a.TenantID)
	return a, nil
}

// GetByID returns a live article together with its live assets.
func (s *ArticleService) GetByID(ctx context.Context, tenantID, id string) (*domain.Article, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArticleService.GetByID", telemetry.SpanAttributes{
		TenantID:  tenantID,
		ArticleID: id,
		Operation: "get",
	})
	defer span.End()

	a, err := s.articles.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	assets, err := s.assets.ListByArticle(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	a.Assets = assets

	return a, nil
}

// Update edits article content. The version is left alone.
func (s *ArticleService) Update(ctx context.Context, input UpdateArticleInput) (*domain.Article, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArticleService.Update", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		ArticleID: input.ID,
		Operation: "update",
	})
	defer span.End()

	a, err := s.articles.GetByID(ctx, input.TenantID, input.ID)
	if err != nil {
		return nil, err
	}

	if a.Status == domain.ArticleStatusArchived {
		return nil, domain.ErrArticleArchived
	}

	a.Title = input.Title
	a.QuestionText = input.QuestionText
	a.CauseText = input.CauseText
	a.SolutionText = input.SolutionText
	a.ScopeJSON = input.ScopeJSON
	a.Tags = input.Tags
	a.UpdatedAt = s.now().UTC()

	if err := domain.ValidateArticle(a); err != nil {
		return nil, err
	}

	if err := s.articles.Update(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

// Delete soft-deletes an article and its live assets with one timestamp.
func (s *ArticleService) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "ArticleService.Delete", telemetry.SpanAttributes{
		TenantID:  tenantID,
		ArticleID: id,
		Operation: "delete",
	})
	defer span.End()

	at := s.now().UTC()

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		a, err := repos.Articles().LockByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if a.IsDeleted() {
			return domain.ErrArticleNotFound
		}

		if err := repos.Articles().SoftDelete(ctx, tenantID, id, at); err != nil {
			return err
		}
		return repos.Assets().SoftDeleteByArticle(ctx, tenantID, id, at)
	})
	if err != nil {
		return err
	}

	s.log.Info("article deleted", "article_id", id, "tenant_id", tenantID)
	return nil
}

// Restore brings back a soft-deleted article along with the assets that were
// deleted together with it.
func (s *ArticleService) Restore(ctx context.Context, tenantID, id string) (*domain.Article, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArticleService.Restore", telemetry.SpanAttributes{
		TenantID:  tenantID,
		ArticleID: id,
		Operation: "restore",
	})
	defer span.End()

	var restored *domain.Article
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		a, err := repos.Articles().LockByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !a.IsDeleted() {
			return domain.ErrArticleNotFound
		}

		deletedAt := *a.DeletedAt
		now := s.now().UTC()
		if err := repos.Articles().Restore(ctx, tenantID, id, now); err != nil {
			return err
		}
		if err := repos.Assets().RestoreByArticle(ctx, tenantID, id, deletedAt); err != nil {
			return err
		}

		a.DeletedAt = nil
		a.UpdatedAt = now
		restored = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("article restored", "article_id", id, "tenant_id", tenantID)
	return restored, nil
}

// Publish marks the article published, replaces its chunk set and queues an
// embedding job in one transaction. Publishing an already published article
// bumps its version.
func (s *ArticleService) Publish(ctx context.Context, tenantID, id string) (*domain.Article, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArticleService.Publish", telemetry.SpanAttributes{
		TenantID:  tenantID,
		ArticleID: id,
		Operation: "publish",
	})
	defer span.End()

	var (
		published  *domain.Article
		chunkCount int
	)
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		a, err := repos.Articles().LockByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if a.IsDeleted() {
			return domain.ErrArticleNotFound
		}
		if a.Status == domain.ArticleStatusArchived {
			return domain.ErrArticleArchived
		}

		now := s.now().UTC()
		if a.Status == domain.ArticleStatusPublished {
			a.Version++
		}
		a.Status = domain.ArticleStatusPublished
		a.PublishedAt = &now
		a.UpdatedAt = now

		if err := repos.Articles().Update(ctx, a); err != nil {
			return err
		}

		drafts := GenerateChunks(a)
		chunks := make([]*domain.KnowledgeChunk, 0, len(drafts))
		for _, d := range drafts {
			chunks = append(chunks, &domain.KnowledgeChunk{
				ArticleID:    a.ID,
				TenantID:     a.TenantID,
				ChunkIndex:   d.Index,
				ChunkText:    d.Text,
				Hash:         d.Hash,
				SourceFields: d.Source,
				CreatedAt:    now,
			})
		}
		if err := repos.Chunks().ReplaceForArticle(ctx, tenantID, a.ID, chunks); err != nil {
			return err
		}

		job := domain.NewEmbeddingJob(s.uuidGen.NewString(), a.ID, now)
		if err := repos.EmbeddingJobs().Create(ctx, job); err != nil {
			return err
		}

		published = a
		chunkCount = len(chunks)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("article published",
		"article_id", id,
		"tenant_id", tenantID,
		"version", published.Version,
		"chunks", chunkCount,
	)
	return published, nil
}

// Archive retires a draft or published article. Its chunks are kept.
func (s *ArticleService) Archive(ctx context.Context, tenantID, id string) (*domain.Article, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArticleService.Archive", telemetry.SpanAttributes{
		TenantID:  tenantID,
		ArticleID: id,
		Operation: "archive",
	})
	defer span.End()

	var archived *domain.Article
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		a, err := repos.Articles().LockByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if a.IsDeleted() {
			return domain.ErrArticleNotFound
		}
		if a.Status == domain.ArticleStatusArchived {
			return domain.NewConflictError("knowledge article is already archived")
		}

		a.Status = domain.ArticleStatusArchived
		a.UpdatedAt = s.now().UTC()
		if err := repos.Articles().Update(ctx, a); err != nil {
			return err
		}
		archived = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return archived, nil
}

// Search lists live articles of a tenant, newest first.
func (s *ArticleService) Search(ctx context.Context, input SearchArticlesInput) (*pagination.PageResult[*domain.Article], error) {
	ctx, span := telemetry.StartSpan(ctx, "ArticleService.Search", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "search",
	})
	defer span.End()

	status := domain.ArticleStatus(input.Status)
	if status != "" && !domain.IsValidArticleStatus(status) {
		return nil, domain.ErrInvalidArticleStatus
	}

	page := pagination.Normalize(input.PageIndex, input.PageSize)
	items, total, err := s.articles.Search(ctx, ArticleQuery{
		TenantID: input.TenantID,
		Keyword:  input.Keyword,
		Status:   status,
		Tag:      input.Tag,
		Scope:    input.Scope,
		Page:     page,
	})
	if err != nil {
		return nil, err
	}

	return pagination.NewPageResult(items, total, page), nil
}

// ListChunks returns the current chunk set of a live article.
func (s *ArticleService) ListChunks(ctx context.Context, tenantID, id string) ([]*domain.KnowledgeChunk, error) {
	if _, err := s.articles.GetByID(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return s.chunks.ListByArticle(ctx, tenantID, id)
}
