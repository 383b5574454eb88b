package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/service"
)

const ticketColumns = `id, tenant_id, ticket_no, title, description, status, priority, source,
	customer_id, device_id, device_mn, session_id, trigger_message_id, assignee_id, assignee_name,
	created_by, final_solution_summary, meta_json, kb_article_id, created_at, updated_at, closed_at`

type TicketRepository struct {
	db dbtx
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: pool}
}

func NewTicketRepositoryWithTx(tx pgx.Tx) *TicketRepository {
	return &TicketRepository{db: tx}
}

func (r *TicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	meta, err := json.Marshal(t.Meta)
	if err != nil {
		return fmt.Errorf("marshal ticket meta: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO ticket (id, tenant_id, ticket_no, title, description, status, priority, source,
			customer_id, device_id, device_mn, session_id, trigger_message_id, assignee_id, assignee_name,
			created_by, final_solution_summary, meta_json, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		t.ID, t.TenantID, t.TicketNo, t.Title, t.Description, t.Status, t.Priority, t.Source,
		nullableString(t.CustomerID), nullableString(t.DeviceID), nullableString(t.DeviceMN),
		nullableString(t.SessionID), nullableString(t.TriggerMessageID),
		nullableString(t.AssigneeID), nullableString(t.AssigneeName),
		t.CreatedBy, nullableString(t.FinalSolutionSummary), meta, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *TicketRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM ticket WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	return scanTicket(row)
}

func (r *TicketRepository) LockByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM ticket WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
		tenantID, id,
	)
	return scanTicket(row)
}

// UpdateStatus writes the workflow fields guarded by the expected status, so a
// concurrent transition that got there first turns this one into a conflict.
func (r *TicketRepository) UpdateStatus(ctx context.Context, t *domain.Ticket, expected domain.TicketStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ticket
		 SET status = $1, assignee_id = $2, assignee_name = $3, final_solution_summary = $4,
		     updated_at = $5, closed_at = $6
		 WHERE tenant_id = $7 AND id = $8 AND status = $9`,
		t.Status, nullableString(t.AssigneeID), nullableString(t.AssigneeName), nullableString(t.FinalSolutionSummary),
		t.UpdatedAt, t.ClosedAt, t.TenantID, t.ID, expected,
	)
	if err != nil {
		return notFoundIfInvalidID(err, domain.ErrTicketNotFound)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, t.TenantID, t.ID,
			domain.NewConflictError("ticket is no longer %s", expected))
	}
	return nil
}

// Update writes the editable descriptive fields. Workflow fields are left to
// UpdateStatus.
func (r *TicketRepository) Update(ctx context.Context, t *domain.Ticket) error {
	meta, err := json.Marshal(t.Meta)
	if err != nil {
		return fmt.Errorf("marshal ticket meta: %w", err)
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ticket
		 SET title = $1, description = $2, priority = $3, customer_id = $4, device_id = $5, device_mn = $6,
		     meta_json = $7, updated_at = $8
		 WHERE tenant_id = $9 AND id = $10`,
		t.Title, t.Description, t.Priority, nullableString(t.CustomerID), nullableString(t.DeviceID),
		nullableString(t.DeviceMN), meta, t.UpdatedAt, t.TenantID, t.ID,
	)
	if err != nil {
		return notFoundIfInvalidID(err, domain.ErrTicketNotFound)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

// SetKBArticle sets the conversion latch. It never overwrites an existing link.
func (r *TicketRepository) SetKBArticle(ctx context.Context, tenantID, id, articleID string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ticket SET kb_article_id = $1, updated_at = $2
		 WHERE tenant_id = $3 AND id = $4 AND kb_article_id IS NULL`,
		articleID, at, tenantID, id,
	)
	if err != nil {
		return notFoundIfInvalidID(err, domain.ErrTicketNotFound)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, tenantID, id, domain.ErrTicketAlreadyConverted)
	}
	return nil
}

func (r *TicketRepository) missingOrConflict(ctx context.Context, tenantID, id string, conflict error) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ticket WHERE tenant_id = $1 AND id = $2)`,
		tenantID, id,
	).Scan(&exists)
	if err != nil {
		return notFoundIfInvalidID(err, domain.ErrTicketNotFound)
	}
	if !exists {
		return domain.ErrTicketNotFound
	}
	return conflict
}

// List pages through tickets, newest first.
func (r *TicketRepository) List(ctx context.Context, q service.TicketQuery) ([]*domain.Ticket, int64, error) {
	var w where
	w.add("tenant_id = $%d", q.TenantID)
	if q.Status != "" {
		w.add("status = $%d", q.Status)
	}
	if q.Priority != "" {
		w.add("priority = $%d", q.Priority)
	}
	if q.DeviceMN != "" {
		w.add("device_mn = $%d", q.DeviceMN)
	}
	if q.AssigneeID != "" {
		w.add("assignee_id = $%d", q.AssigneeID)
	}
	if q.Keyword != "" {
		w.add("(title ILIKE $%[1]d OR description ILIKE $%[1]d OR ticket_no ILIKE $%[1]d)", likePattern(q.Keyword))
	}
	if q.VisibleTo != "" {
		w.add("(created_by = $%[1]d OR assignee_id = $%[1]d)", q.VisibleTo)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ticket`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	filter := w.sql()
	limit := w.next(q.Page.Size)
	offset := w.next(q.Page.Offset())
	rows, err := r.db.Query(ctx,
		`SELECT `+ticketColumns+` FROM ticket`+filter+
			` ORDER BY created_at DESC, ticket_no DESC LIMIT `+limit+` OFFSET `+offset,
		w.args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []*domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, t)
	}
	return results, total, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	var customerID, deviceID, deviceMN, sessionID, triggerMessageID *string
	var assigneeID, assigneeName, summary, kbArticleID *string
	var meta []byte
	err := row.Scan(&t.ID, &t.TenantID, &t.TicketNo, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Source,
		&customerID, &deviceID, &deviceMN, &sessionID, &triggerMessageID, &assigneeID, &assigneeName,
		&t.CreatedBy, &summary, &meta, &kbArticleID, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, notFoundIfInvalidID(err, domain.ErrTicketNotFound)
	}

	t.CustomerID = derefString(customerID)
	t.DeviceID = derefString(deviceID)
	t.DeviceMN = derefString(deviceMN)
	t.SessionID = derefString(sessionID)
	t.TriggerMessageID = derefString(triggerMessageID)
	t.AssigneeID = derefString(assigneeID)
	t.AssigneeName = derefString(assigneeName)
	t.FinalSolutionSummary = derefString(summary)
	t.KBArticleID = derefString(kbArticleID)

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal ticket meta: %w", err)
		}
	}
	return &t, nil
}
