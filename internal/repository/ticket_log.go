package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/supporthub/internal/domain"
)

// TicketLogRepository appends to and reads the ticket audit trail. It has no
// update or delete.
type TicketLogRepository struct {
	db dbtx
}

func NewTicketLogRepository(pool *pgxpool.Pool) *TicketLogRepository {
	return &TicketLogRepository{db: pool}
}

func NewTicketLogRepositoryWithTx(tx pgx.Tx) *TicketLogRepository {
	return &TicketLogRepository{db: tx}
}

// Append inserts l and sets its ID.
func (r *TicketLogRepository) Append(ctx context.Context, l *domain.TicketLog) error {
	var next *string
	if l.NextStatus != "" {
		s := string(l.NextStatus)
		next = &s
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO ticket_log (ticket_id, action, content, operator_id, operator_name, next_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		l.TicketID, l.Action, l.Content, l.OperatorID, l.OperatorName, next, utc(l.CreatedAt),
	).Scan(&l.ID)
}

// ListByTicket returns the log in insertion order.
func (r *TicketLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]*domain.TicketLog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, ticket_id, action, content, operator_id, operator_name, next_status, created_at
		 FROM ticket_log WHERE ticket_id = $1
		 ORDER BY created_at, id`,
		ticketID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.TicketLog
	for rows.Next() {
		var l domain.TicketLog
		var next *string
		if err := rows.Scan(&l.ID, &l.TicketID, &l.Action, &l.Content, &l.OperatorID, &l.OperatorName, &next, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.NextStatus = domain.TicketStatus(derefString(next))
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
