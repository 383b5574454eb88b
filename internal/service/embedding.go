package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/logger"
	"github.com/cloo-solutions/supporthub/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingChunkRepository is what the embedding upsert needs from chunk
// storage.
type EmbeddingChunkRepository interface {
	ListWithoutEmbedding(ctx context.Context, articleID string) ([]*domain.KnowledgeChunk, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// EmbeddingService fills in vectors for the chunks of a published article.
type EmbeddingService struct {
	client EmbeddingClient
	chunks EmbeddingChunkRepository
	log    *logger.Logger
}

func NewEmbeddingService(client EmbeddingClient, chunks EmbeddingChunkRepository, log *logger.Logger) *EmbeddingService {
	if log == nil {
		log = logger.NewNop()
	}
	return &EmbeddingService{
		client: client,
		chunks: chunks,
		log:    log.With("component", "embedding_service"),
	}
}

// EmbedArticle embeds every chunk of the article that has no vector yet.
// Chunks stored by an earlier attempt are skipped.
func (s *EmbeddingService) EmbedArticle(ctx context.Context, articleID string) error {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.EmbedArticle", telemetry.SpanAttributes{
		ArticleID: articleID,
		Operation: "embed",
	})
	defer span.End()

	chunks, err := s.chunks.ListWithoutEmbedding(ctx, articleID)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.ChunkText
	}

	vecs, err := s.client.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	for i, c := range chunks {
		if err := s.chunks.UpdateEmbedding(ctx, c.ID, vecs[i]); err != nil {
			return fmt.Errorf("failed to store embedding for chunk %d: %w", c.ChunkIndex, err)
		}
	}

	s.log.Debug("article chunks embedded", "article_id", articleID, "chunks", len(chunks))
	return nil
}
