package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus is a state in the ticket lifecycle:
// pending -> processing -> resolved -> closed.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusProcessing TicketStatus = "processing"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

type TicketSource string

const (
	TicketSourceAIChat TicketSource = "ai_chat"
	TicketSourceManual TicketSource = "manual"
	TicketSourceAPI    TicketSource = "api"
)

// TicketMeta carries the AI classification attached to a ticket.
type TicketMeta struct {
	IssueCategory string   `json:"issue_category,omitempty"`
	AlarmCode     string   `json:"alarm_code,omitempty"`
	CitedDocs     []string `json:"cited_docs,omitempty"`
}

// IsEmpty reports whether no meta field is set.
func (m TicketMeta) IsEmpty() bool {
	return m.IssueCategory == "" && m.AlarmCode == "" && len(m.CitedDocs) == 0
}

// Ticket is a tenant-scoped support case. KBArticleID is a one-way latch:
// once set, the ticket has been converted and cannot be converted again.
type Ticket struct {
	ID                   string
	TenantID             string
	TicketNo             string
	Title                string
	Description          string
	Status               TicketStatus
	Priority             TicketPriority
	Source               TicketSource
	CustomerID           string
	DeviceID             string
	DeviceMN             string
	SessionID            string
	TriggerMessageID     string
	AssigneeID           string
	AssigneeName         string
	CreatedBy            string
	FinalSolutionSummary string
	Meta                 TicketMeta
	KBArticleID          string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ClosedAt             *time.Time
}

// IsConverted reports whether the ticket already produced a knowledge article.
func (t *Ticket) IsConverted() bool {
	return t.KBArticleID != ""
}

// VisibleTo reports whether a non-staff user may see the ticket.
func (t *Ticket) VisibleTo(userID string) bool {
	return userID != "" && (t.CreatedBy == userID || t.AssigneeID == userID)
}

// CanStart checks the start guard.
func (t *Ticket) CanStart() error {
	if t.Status != TicketStatusPending {
		return NewConflictError("ticket is %s, only pending tickets can be started", t.Status)
	}
	return nil
}

// CanResolve checks the resolve guard. The status check runs before the
// summary check so an out-of-order call always reports a conflict.
func (t *Ticket) CanResolve(summary string) error {
	if t.Status != TicketStatusProcessing {
		return NewConflictError("ticket is %s, only processing tickets can be resolved", t.Status)
	}
	if strings.TrimSpace(summary) == "" {
		return ErrEmptySolutionSummary
	}
	return nil
}

// CanClose checks the close guard. Any non-closed ticket can be closed.
func (t *Ticket) CanClose() error {
	if t.Status == TicketStatusClosed {
		return NewConflictError("ticket is already closed")
	}
	return nil
}

// CanReassign checks the reassign guard.
func (t *Ticket) CanReassign() error {
	if t.Status == TicketStatusResolved || t.Status == TicketStatusClosed {
		return NewConflictError("ticket is %s, cannot reassign", t.Status)
	}
	return nil
}

// CanConvert checks the conversion preconditions in order: latch, status, summary.
func (t *Ticket) CanConvert() error {
	if t.IsConverted() {
		return ErrTicketAlreadyConverted
	}
	if t.Status != TicketStatusResolved {
		return NewConflictError("ticket is %s, only resolved tickets can be converted", t.Status)
	}
	if strings.TrimSpace(t.FinalSolutionSummary) == "" {
		return ErrEmptySolutionSummary
	}
	return nil
}

// FormatTicketNo renders a ticket number as yyyyMMdd followed by a zero-padded
// daily sequence of at least four digits.
func FormatTicketNo(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%04d", day.Format("20060102"), seq)
}

// ValidateTicket validates a Ticket instance
func ValidateTicket(t *Ticket) error {
	if t == nil {
		return fmt.Errorf("ticket cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("ticket ID is required")
	}

	if t.TenantID == "" {
		return fmt.Errorf("ticket TenantID is required")
	}

	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title is required")
	}

	if !IsValidTicketPriority(t.Priority) {
		return ErrInvalidTicketPriority
	}

	if !IsValidTicketSource(t.Source) {
		return ErrInvalidTicketSource
	}

	return nil
}

func IsValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusProcessing, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

func IsValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

func IsValidTicketSource(s TicketSource) bool {
	switch s {
	case TicketSourceAIChat, TicketSourceManual, TicketSourceAPI:
		return true
	}
	return false
}
