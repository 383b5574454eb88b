package service

import (
	"context"
	"time"
)

// TicketNumberGenerator hands out the daily ticket sequence.
type TicketNumberGenerator interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Articles() ArticleRepositoryInterface
	Chunks() ChunkRepositoryInterface
	Assets() AssetRepositoryInterface
	EmbeddingJobs() EmbeddingJobRepositoryInterface
	Tickets() TicketRepositoryInterface
	TicketLogs() TicketLogRepositoryInterface
	TicketNumbers() TicketNumberGenerator
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
