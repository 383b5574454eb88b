package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/supporthub/internal/domain"
)

// ChunkRepository handles persistence of article chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceForArticle deletes the existing chunks of an article and inserts the
// new set. Chunks without an embedding are stored with a NULL vector.
func (r *ChunkRepository) ReplaceForArticle(ctx context.Context, tenantID, articleID string, chunks []*domain.KnowledgeChunk) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM kb_chunk WHERE tenant_id = $1 AND article_id = $2`,
		tenantID, articleID,
	)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		var embedding *pgvector.Vector
		if len(c.Embedding) > 0 {
			v := pgvector.NewVector(c.Embedding)
			embedding = &v
		}
		err := r.db.QueryRow(ctx,
			`INSERT INTO kb_chunk (article_id, tenant_id, chunk_index, chunk_text, hash, source_fields, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			articleID, tenantID, c.ChunkIndex, c.ChunkText, c.Hash, c.SourceFields, embedding, utc(c.CreatedAt),
		).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	return nil
}

func (r *ChunkRepository) ListByArticle(ctx context.Context, tenantID, articleID string) ([]*domain.KnowledgeChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, article_id, tenant_id, chunk_index, chunk_text, hash, source_fields, created_at
		 FROM kb_chunk WHERE tenant_id = $1 AND article_id = $2
		 ORDER BY chunk_index`,
		tenantID, articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// ListWithoutEmbedding returns the chunks of an article that still need a vector.
func (r *ChunkRepository) ListWithoutEmbedding(ctx context.Context, articleID string) ([]*domain.KnowledgeChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, article_id, tenant_id, chunk_index, chunk_text, hash, source_fields, created_at
		 FROM kb_chunk WHERE article_id = $1 AND embedding IS NULL
		 ORDER BY chunk_index`,
		articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE kb_chunk SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("chunk %d not found", id)
	}
	return nil
}

// scanChunkRows leaves Embedding unset; vectors are write-only from here.
func scanChunkRows(rows pgx.Rows) ([]*domain.KnowledgeChunk, error) {
	var results []*domain.KnowledgeChunk
	for rows.Next() {
		var c domain.KnowledgeChunk
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.TenantID, &c.ChunkIndex, &c.ChunkText, &c.Hash, &c.SourceFields, &c.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}
