package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketSequenceRepository allocates daily ticket sequence numbers from the
// ticket_sequences table. The upsert takes a row lock, so concurrent
// transactions for the same day are serialized.
type TicketSequenceRepository struct {
	db dbtx
}

func NewTicketSequenceRepository(pool *pgxpool.Pool) *TicketSequenceRepository {
	return &TicketSequenceRepository{db: pool}
}

func NewTicketSequenceRepositoryWithTx(tx pgx.Tx) *TicketSequenceRepository {
	return &TicketSequenceRepository{db: tx}
}

// Next returns the next sequence for day, starting at 1.
func (r *TicketSequenceRepository) Next(ctx context.Context, day time.Time) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO ticket_sequences (day, last_seq) VALUES ($1, 1)
		 ON CONFLICT (day) DO UPDATE SET last_seq = ticket_sequences.last_seq + 1
		 RETURNING last_seq`,
		day.Format("20060102"),
	).Scan(&seq)
	return seq, err
}
