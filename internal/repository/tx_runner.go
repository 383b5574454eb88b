package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/supporthub/internal/service"
)

// TxRunner provides transactional repositories using a pgx pool.
type TxRunner struct {
	pool          *pgxpool.Pool
	ticketNumbers service.TicketNumberGenerator
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// WithTicketNumbers replaces the ticket_sequences table with an external
// sequence such as Redis. The external counter is not rolled back with the
// transaction, so an aborted create leaves a gap in the day's numbers.
func (r *TxRunner) WithTicketNumbers(gen service.TicketNumberGenerator) *TxRunner {
	r.ticketNumbers = gen
	return r
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx, ticketNumbers: r.ticketNumbers}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx            pgx.Tx
	ticketNumbers service.TicketNumberGenerator
}

func (r *txRepos) Articles() service.ArticleRepositoryInterface {
	return NewArticleRepositoryWithTx(r.tx)
}

func (r *txRepos) Chunks() service.ChunkRepositoryInterface {
	return NewChunkRepositoryWithTx(r.tx)
}

func (r *txRepos) Assets() service.AssetRepositoryInterface {
	return NewAssetRepositoryWithTx(r.tx)
}

func (r *txRepos) EmbeddingJobs() service.EmbeddingJobRepositoryInterface {
	return NewEmbeddingJobRepositoryWithTx(r.tx)
}

func (r *txRepos) Tickets() service.TicketRepositoryInterface {
	return NewTicketRepositoryWithTx(r.tx)
}

func (r *txRepos) TicketLogs() service.TicketLogRepositoryInterface {
	return NewTicketLogRepositoryWithTx(r.tx)
}

func (r *txRepos) TicketNumbers() service.TicketNumberGenerator {
	if r.ticketNumbers != nil {
		return r.ticketNumbers
	}
	return NewTicketSequenceRepositoryWithTx(r.tx)
}
