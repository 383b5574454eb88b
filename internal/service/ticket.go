package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/logger"
	"github.com/cloo-solutions/supporthub/internal/pagination"
	"github.com/cloo-solutions/supporthub/internal/telemetry"
)

// TicketRepositoryInterface defines persistence for tickets.
type TicketRepositoryInterface interface {
	Create(ctx context.Context, t *domain.Ticket) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	// LockByID reads the ticket with FOR UPDATE; only meaningful inside a transaction.
	LockByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	// UpdateStatus writes the workflow fields only when the stored status
	// still equals expected.
	UpdateStatus(ctx context.Context, t *domain.Ticket, expected domain.TicketStatus) error
	Update(ctx context.Context, t *domain.Ticket) error
	// SetKBArticle latches kb_article_id; it fails with a Conflict when the
	// ticket is already linked.
	SetKBArticle(ctx context.Context, tenantID, id, articleID string, at time.Time) error
	List(ctx context.Context, q TicketQuery) ([]*domain.Ticket, int64, error)
}

// TicketQuery filters a ticket listing. Empty fields do not filter.
type TicketQuery struct {
	TenantID   string
	Status     domain.TicketStatus
	Priority   domain.TicketPriority
	DeviceMN   string
	AssigneeID string
	Keyword    string
	// VisibleTo restricts results to tickets created by or assigned to this user.
	VisibleTo string
	Page      pagination.Page
}

type TicketLogRepositoryInterface interface {
	Append(ctx context.Context, l *domain.TicketLog) error
	ListByTicket(ctx context.Context, ticketID string) ([]*domain.TicketLog, error)
}

const (
	noteStart   = "Engineer started processing this ticket"
	noteResolve = "Engineer marked ticket as resolved"
	noteClose   = "Ticket closed"
)

// TicketService runs the ticket workflow. Every transition locks the ticket
// row, checks its guard, writes the new state and appends a log row in one
// transaction.
type TicketService struct {
	tickets  TicketRepositoryInterface
	logs     TicketLogRepositoryInterface
	txRunner TxRunner
	uuidGen  UUIDGenerator
	now      func() time.Time
	log      *logger.Logger
}

func NewTicketService(
	tickets TicketRepositoryInterface,
	logs TicketLogRepositoryInterface,
	txRunner TxRunner,
	log *logger.Logger,
) *TicketService {
	return NewTicketServiceWithUUIDGen(tickets, logs, txRunner, log, &DefaultUUIDGenerator{})
}

func NewTicketServiceWithUUIDGen(
	tickets TicketRepositoryInterface,
	logs TicketLogRepositoryInterface,
	txRunner TxRunner,
	log *logger.Logger,
	uuidGen UUIDGenerator,
) *TicketService {
	if log == nil {
		log = logger.NewNop()
	}
	return &TicketService{
		tickets:  tickets,
		logs:     logs,
		txRunner: txRunner,
		uuidGen:  uuidGen,
		now:      time.Now,
		log:      log.With("component", "ticket_service"),
	}
}

type CreateTicketInput struct {
	TenantID         string
	Actor            domain.Actor
	Title            string
	Description      string
	Priority         domain.TicketPriority
	Source           domain.TicketSource
	CustomerID       string
	DeviceID         string
	DeviceMN         string
	SessionID        string
	TriggerMessageID string
	AssigneeID       string
	AssigneeName     string
	Meta             domain.TicketMeta
}

// UpdateTicketInput edits descriptive fields. Nil fields are left unchanged.
type UpdateTicketInput struct {
	TicketID    string
	TenantID    string
	Actor       domain.Actor
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	CustomerID  *string
	DeviceID    *string
	DeviceMN    *string
	Meta        *domain.TicketMeta
}

type TransitionInput struct {
	TicketID string
	TenantID string
	Actor    domain.Actor
	Note     string
}

type StartTicketInput struct {
	TransitionInput
	AssigneeID   string
	AssigneeName string
}

type ResolveTicketInput struct {
	TransitionInput
	Summary string
}

type ReassignTicketInput struct {
	TransitionInput
	AssigneeID   string
	AssigneeName string
}

type CommentInput struct {
	TicketID string
	TenantID string
	Actor    domain.Actor
	Content  string
}

type ListTicketsInput struct {
	TenantID   string
	Actor      domain.Actor
	Status     string
	Priority   string
	DeviceMN   string
	AssigneeID string
	Keyword    string
	PageIndex  int
	PageSize   int
}

// TicketDetail is a ticket with its log trail.
type TicketDetail struct {
	Ticket *domain.Ticket
	Logs   []*domain.TicketLog
}

// Create opens a pending ticket, numbers it and records the create log.
func (s *TicketService) Create(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.Create", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "create",
	})
	defer span.End()

	now := s.now()
	t := &domain.Ticket{
		ID:               s.uuidGen.NewString(),
		TenantID:         input.TenantID,
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		Status:           domain.TicketStatusPending,
		Priority:         input.Priority,
		Source:           input.Source,
		CustomerID:       input.CustomerID,
		DeviceID:         input.DeviceID,
		DeviceMN:         input.DeviceMN,
		SessionID:        input.SessionID,
		TriggerMessageID: input.TriggerMessageID,
		AssigneeID:       input.AssigneeID,
		AssigneeName:     input.AssigneeName,
		CreatedBy:        input.Actor.UserID,
		Meta:             input.Meta,
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
	if t.Priority == "" {
		t.Priority = domain.TicketPriorityMedium
	}
	if t.Source == "" {
		t.Source = domain.TicketSourceManual
	}

	if err := domain.ValidateTicket(t); err != nil {
		return nil, err
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		seq, err := repos.TicketNumbers().Next(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to allocate ticket number: %w", err)
		}
		t.TicketNo = domain.FormatTicketNo(now, seq)

		if err := repos.Tickets().Create(ctx, t); err != nil {
			return err
		}

		entry := domain.NewTicketLog(t.ID, domain.TicketLogActionCreate,
			"Ticket created: "+t.Title, input.Actor, domain.TicketStatusPending, t.CreatedAt)
		return repos.TicketLogs().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket created",
		"ticket_id", t.ID,
		"ticket_no", t.TicketNo,
		"tenant_id", t.TenantID,
		"source", t.Source,
	)
	return t, nil
}

// Get returns a ticket with its logs. Non-staff callers only see tickets
// they created or are assigned to.
func (s *TicketService) Get(ctx context.Context, tenantID, id string, actor domain.Actor) (*TicketDetail, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.Get", telemetry.SpanAttributes{
		TenantID:  tenantID,
		TicketID:  id,
		Operation: "get",
	})
	defer span.End()

	t, err := s.visibleTicket(ctx, tenantID, id, actor)
	if err != nil {
		return nil, err
	}

	logs, err := s.logs.ListByTicket(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	return &TicketDetail{Ticket: t, Logs: logs}, nil
}

// Logs returns the log trail of a visible ticket, oldest first.
func (s *TicketService) Logs(ctx context.Context, tenantID, id string, actor domain.Actor) ([]*domain.TicketLog, error) {
	t, err := s.visibleTicket(ctx, tenantID, id, actor)
	if err != nil {
		return nil, err
	}
	return s.logs.ListByTicket(ctx, t.ID)
}

func (s *TicketService) List(ctx context.Context, input ListTicketsInput) (*pagination.PageResult[*domain.Ticket], error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.List", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "list",
	})
	defer span.End()

	status := domain.TicketStatus(input.Status)
	if status != "" && !domain.IsValidTicketStatus(status) {
		return nil, domain.NewValidationError("invalid ticket status: %s", input.Status)
	}
	priority := domain.TicketPriority(input.Priority)
	if priority != "" && !domain.IsValidTicketPriority(priority) {
		return nil, domain.ErrInvalidTicketPriority
	}

	q := TicketQuery{
		TenantID:   input.TenantID,
		Status:     status,
		Priority:   priority,
		DeviceMN:   input.DeviceMN,
		AssigneeID: input.AssigneeID,
		Keyword:    input.Keyword,
		Page:       pagination.Normalize(input.PageIndex, input.PageSize),
	}
	if !input.Actor.IsStaff() {
		q.VisibleTo = input.Actor.UserID
	}

	items, total, err := s.tickets.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return pagination.NewPageResult(items, total, q.Page), nil
}

// Update edits descriptive fields without touching the workflow state.
func (s *TicketService) Update(ctx context.Context, input UpdateTicketInput) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.Update", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		TicketID:  input.TicketID,
		Operation: "update",
	})
	defer span.End()

	t, err := s.visibleTicket(ctx, input.TenantID, input.TicketID, input.Actor)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		t.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		t.Description = *input.Description
	}
	if input.Priority != nil {
		t.Priority = *input.Priority
	}
	if input.CustomerID != nil {
		t.CustomerID = *input.CustomerID
	}
	if input.DeviceID != nil {
		t.DeviceID = *input.DeviceID
	}
	if input.DeviceMN != nil {
		t.DeviceMN = *input.DeviceMN
	}
	if input.Meta != nil {
		t.Meta = *input.Meta
	}
	t.UpdatedAt = s.now().UTC()

	if err := domain.ValidateTicket(t); err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Start moves a pending ticket to processing, optionally taking an assignee.
func (s *TicketService) Start(ctx context.Context, input StartTicketInput) (*domain.Ticket, error) {
	return s.transition(ctx, "start", input.TransitionInput, domain.TicketLogActionStart, noteStart,
		func(t *domain.Ticket, _ time.Time) error {
			if err := t.CanStart(); err != nil {
				return err
			}
			t.Status = domain.TicketStatusProcessing
			if input.AssigneeID != "" {
				t.AssigneeID = input.AssigneeID
				t.AssigneeName = input.AssigneeName
			}
			return nil
		})
}

// Resolve moves a processing ticket to resolved and stores the final
// solution summary.
func (s *TicketService) Resolve(ctx context.Context, input ResolveTicketInput) (*domain.Ticket, error) {
	return s.transition(ctx, "resolve", input.TransitionInput, domain.TicketLogActionResolve, noteResolve,
		func(t *domain.Ticket, _ time.Time) error {
			if err := t.CanResolve(input.Summary); err != nil {
				return err
			}
			t.Status = domain.TicketStatusResolved
			t.FinalSolutionSummary = input.Summary
			return nil
		})
}

// Close closes a ticket from any other status.
func (s *TicketService) Close(ctx context.Context, input TransitionInput) (*domain.Ticket, error) {
	return s.transition(ctx, "close", input, domain.TicketLogActionClose, noteClose,
		func(t *domain.Ticket, at time.Time) error {
			if err := t.CanClose(); err != nil {
				return err
			}
			t.Status = domain.TicketStatusClosed
			t.ClosedAt = &at
			return nil
		})
}

// Reassign hands an open ticket to another engineer.
func (s *TicketService) Reassign(ctx context.Context, input ReassignTicketInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.AssigneeID) == "" {
		return nil, domain.NewValidationError("assignee id is required")
	}

	name := input.AssigneeName
	if name == "" {
		name = input.AssigneeID
	}
	return s.transition(ctx, "reassign", input.TransitionInput, domain.TicketLogActionReassign, "Reassigned to "+name,
		func(t *domain.Ticket, _ time.Time) error {
			if err := t.CanReassign(); err != nil {
				return err
			}
			t.AssigneeID = input.AssigneeID
			t.AssigneeName = input.AssigneeName
			return nil
		})
}

// Comment appends a comment log row. The ticket state is unchanged.
func (s *TicketService) Comment(ctx context.Context, input CommentInput) (*domain.TicketLog, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.Comment", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		TicketID:  input.TicketID,
		Operation: "comment",
	})
	defer span.End()

	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.NewValidationError("comment content is required")
	}

	t, err := s.visibleTicket(ctx, input.TenantID, input.TicketID, input.Actor)
	if err != nil {
		return nil, err
	}

	entry := domain.NewTicketLog(t.ID, domain.TicketLogActionComment, input.Content, input.Actor, "", s.now().UTC())
	if err := s.logs.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *TicketService) transition(
	ctx context.Context,
	op string,
	input TransitionInput,
	action domain.TicketLogAction,
	defaultNote string,
	apply func(t *domain.Ticket, at time.Time) error,
) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService."+op, telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		TicketID:  input.TicketID,
		Operation: op,
	})
	defer span.End()

	note := strings.TrimSpace(input.Note)
	if note == "" {
		note = defaultNote
	}

	var updated *domain.Ticket
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		t, err := repos.Tickets().LockByID(ctx, input.TenantID, input.TicketID)
		if err != nil {
			return err
		}

		expected := t.Status
		at := s.now().UTC()
		if err := apply(t, at); err != nil {
			return err
		}
		t.UpdatedAt = at

		if err := repos.Tickets().UpdateStatus(ctx, t, expected); err != nil {
			return err
		}

		entry := domain.NewTicketLog(t.ID, action, note, input.Actor, t.Status, at)
		if err := repos.TicketLogs().Append(ctx, entry); err != nil {
			return err
		}

		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket transition",
		"ticket_id", updated.ID,
		"action", action,
		"status", updated.Status,
		"operator", input.Actor.UserID,
	)
	return updated, nil
}

func (s *TicketService) visibleTicket(ctx context.Context, tenantID, id string, actor domain.Actor) (*domain.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !t.VisibleTo(actor.UserID) {
		return nil, domain.ErrTicketNotFound
	}
	return t, nil
}
