package domain

import "time"

type TicketLogAction string

const (
	TicketLogActionCreate      TicketLogAction = "create"
	TicketLogActionStart       TicketLogAction = "start"
	TicketLogActionResolve     TicketLogAction = "resolve"
	TicketLogActionClose       TicketLogAction = "close"
	TicketLogActionComment     TicketLogAction = "comment"
	TicketLogActionReassign    TicketLogAction = "reassign"
	TicketLogActionConvertToKB TicketLogAction = "convert_to_kb"
)

// TicketLog is an append-only audit entry. Rows are never updated or deleted.
type TicketLog struct {
	ID           int64
	TicketID     string
	Action       TicketLogAction
	Content      string
	OperatorID   string
	OperatorName string
	NextStatus   TicketStatus
	CreatedAt    time.Time
}

// Actor identifies the caller performing an operation.
type Actor struct {
	UserID   string
	UserName string
	Role     string
}

const (
	RoleEngineer = "engineer"
	RoleAdmin    = "admin"
)

// IsStaff reports whether the actor may see every ticket in the tenant.
func (a Actor) IsStaff() bool {
	return a.Role == RoleEngineer || a.Role == RoleAdmin
}

// NewTicketLog builds a log entry for the given actor.
func NewTicketLog(ticketID string, action TicketLogAction, content string, actor Actor, next TicketStatus, at time.Time) *TicketLog {
	return &TicketLog{
		TicketID:     ticketID,
		Action:       action,
		Content:      content,
		OperatorID:   actor.UserID,
		OperatorName: actor.UserName,
		NextStatus:   next,
		CreatedAt:    at,
	}
}
