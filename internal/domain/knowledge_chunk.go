package domain

import "time"

// ChunkSource names the article field a chunk's text was taken from.
type ChunkSource string

const (
	ChunkSourceTitle    ChunkSource = "title"
	ChunkSourceTags     ChunkSource = "tags"
	ChunkSourceScope    ChunkSource = "scope"
	ChunkSourceQuestion ChunkSource = "question"
	ChunkSourceCause    ChunkSource = "cause"
	ChunkSourceSolution ChunkSource = "solution"
	ChunkSourceMetadata ChunkSource = "metadata"
	ChunkSourceMixed    ChunkSource = "mixed"
)

// KnowledgeChunk is a retrieval-sized slice of a published article.
// (ArticleID, Hash) is unique.
type KnowledgeChunk struct {
	ID           int64
	ArticleID    string
	TenantID     string
	ChunkIndex   int
	ChunkText    string
	Hash         string
	SourceFields ChunkSource
	Embedding    []float32
	CreatedAt    time.Time
}
