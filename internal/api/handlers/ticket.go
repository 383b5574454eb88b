package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/supporthub/internal/api"
	"github.com/cloo-solutions/supporthub/internal/api/middleware"
	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/pagination"
	"github.com/cloo-solutions/supporthub/internal/service"
)

type TicketService interface {
	Create(ctx context.Context, input service.CreateTicketInput) (*domain.Ticket, error)
	Get(ctx context.Context, tenantID, id string, actor domain.Actor) (*service.TicketDetail, error)
	Logs(ctx context.Context, tenantID, id string, actor domain.Actor) ([]*domain.TicketLog, error)
	List(ctx context.Context, input service.ListTicketsInput) (*pagination.PageResult[*domain.Ticket], error)
	Update(ctx context.Context, input service.UpdateTicketInput) (*domain.Ticket, error)
	Start(ctx context.Context, input service.StartTicketInput) (*domain.Ticket, error)
	Resolve(ctx context.Context, input service.ResolveTicketInput) (*domain.Ticket, error)
	Close(ctx context.Context, input service.TransitionInput) (*domain.Ticket, error)
	Reassign(ctx context.Context, input service.ReassignTicketInput) (*domain.Ticket, error)
	Comment(ctx context.Context, input service.CommentInput) (*domain.TicketLog, error)
}

type ConversionService interface {
	ConvertToKb(ctx context.Context, input service.ConvertInput) (*service.ConvertResult, error)
}

type TicketHandler struct {
	tickets    TicketService
	conversion ConversionService
}

func NewTicketHandler(tickets TicketService, conversion ConversionService) *TicketHandler {
	return &TicketHandler{tickets: tickets, conversion: conversion}
}

type TicketMetaPayload struct {
	IssueCategory string   `json:"issueCategory,omitempty"`
	AlarmCode     string   `json:"alarmCode,omitempty"`
	CitedDocs     []string `json:"citedDocs,omitempty"`
}

func (p *TicketMetaPayload) toDomain() domain.TicketMeta {
	if p == nil {
		return domain.TicketMeta{}
	}
	return domain.TicketMeta{IssueCategory: p.IssueCategory, AlarmCode: p.AlarmCode, CitedDocs: p.CitedDocs}
}

type CreateTicketRequest struct {
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Priority         string             `json:"priority"`
	Source           string             `json:"source"`
	CustomerID       string             `json:"customerId"`
	DeviceID         string             `json:"deviceId"`
	DeviceMN         string             `json:"deviceMn"`
	SessionID        string             `json:"sessionId"`
	TriggerMessageID string             `json:"triggerMessageId"`
	AssigneeID       string             `json:"assigneeId"`
	AssigneeName     string             `json:"assigneeName"`
	Meta             *TicketMetaPayload `json:"meta"`
}

// UpdateTicketRequest is a partial update; absent fields stay unchanged.
type UpdateTicketRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Priority    *string            `json:"priority"`
	CustomerID  *string            `json:"customerId"`
	DeviceID    *string            `json:"deviceId"`
	DeviceMN    *string            `json:"deviceMn"`
	Meta        *TicketMetaPayload `json:"meta"`
}

// TransitionRequest carries the optional fields of every workflow action.
type TransitionRequest struct {
	Note         string `json:"note"`
	AssigneeID   string `json:"assigneeId"`
	AssigneeName string `json:"assigneeName"`
	Summary      string `json:"finalSolutionSummary"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

type ConvertRequest struct {
	TriggerIndexing *bool `json:"triggerIndexing"`
}

type TicketResponse struct {
	ID                   string               `json:"id"`
	TicketNo             string               `json:"ticketNo"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	Status               string               `json:"status"`
	Priority             string               `json:"priority"`
	Source               string               `json:"source"`
	CustomerID           string               `json:"customerId,omitempty"`
	DeviceID             string               `json:"deviceId,omitempty"`
	DeviceMN             string               `json:"deviceMn,omitempty"`
	SessionID            string               `json:"sessionId,omitempty"`
	TriggerMessageID     string               `json:"triggerMessageId,omitempty"`
	AssigneeID           string               `json:"assigneeId,omitempty"`
	AssigneeName         string               `json:"assigneeName,omitempty"`
	CreatedBy            string               `json:"createdBy"`
	FinalSolutionSummary string               `json:"finalSolutionSummary,omitempty"`
	Meta                 *TicketMetaPayload   `json:"meta,omitempty"`
	KBArticleID          string               `json:"kbArticleId,omitempty"`
	CreatedAt            string               `json:"createdAt"`
	UpdatedAt            string               `json:"updatedAt"`
	ClosedAt             *string              `json:"closedAt,omitempty"`
	Logs                 []*TicketLogResponse `json:"logs,omitempty"`
}

type TicketLogResponse struct {
	ID           int64  `json:"id"`
	Action       string `json:"action"`
	Content      string `json:"content"`
	OperatorID   string `json:"operatorId"`
	OperatorName string `json:"operatorName,omitempty"`
	NextStatus   string `json:"nextStatus,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

type ConvertResponse struct {
	ArticleID         string `json:"articleId"`
	Message           string `json:"message"`
	IndexingSucceeded bool   `json:"indexingSucceeded"`
}

func ticketToResponse(t *domain.Ticket) *TicketResponse {
	resp := &TicketResponse{
		ID:                   t.ID,
		TicketNo:             t.TicketNo,
		Title:                t.Title,
		Description:          t.Description,
		Status:               string(t.Status),
		Priority:             string(t.Priority),
		Source:               string(t.Source),
		CustomerID:           t.CustomerID,
		DeviceID:             t.DeviceID,
		DeviceMN:             t.DeviceMN,
		SessionID:            t.SessionID,
		TriggerMessageID:     t.TriggerMessageID,
		AssigneeID:           t.AssigneeID,
		AssigneeName:         t.AssigneeName,
		CreatedBy:            t.CreatedBy,
		FinalSolutionSummary: t.FinalSolutionSummary,
		KBArticleID:          t.KBArticleID,
		CreatedAt:            formatTime(t.CreatedAt),
		UpdatedAt:            formatTime(t.UpdatedAt),
		ClosedAt:             formatTimePtr(t.ClosedAt),
	}
	if !t.Meta.IsEmpty() {
		resp.Meta = &TicketMetaPayload{
			IssueCategory: t.Meta.IssueCategory,
			AlarmCode:     t.Meta.AlarmCode,
			CitedDocs:     t.Meta.CitedDocs,
		}
	}
	return resp
}

func ticketLogToResponse(l *domain.TicketLog) *TicketLogResponse {
	return &TicketLogResponse{
		ID:           l.ID,
		Action:       string(l.Action),
		Content:      l.Content,
		OperatorID:   l.OperatorID,
		OperatorName: l.OperatorName,
		NextStatus:   string(l.NextStatus),
		CreatedAt:    formatTime(l.CreatedAt),
	}
}

func ticketLogsToResponse(logs []*domain.TicketLog) []*TicketLogResponse {
	resp := make([]*TicketLogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, ticketLogToResponse(l))
	}
	return resp
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())

	var req CreateTicketRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}

	ticket, err := h.tickets.Create(r.Context(), service.CreateTicketInput{
		TenantID:         id.TenantID,
		Actor:            id.Actor,
		Title:            req.Title,
		Description:      req.Description,
		Priority:         domain.TicketPriority(req.Priority),
		Source:           domain.TicketSource(req.Source),
		CustomerID:       req.CustomerID,
		DeviceID:         req.DeviceID,
		DeviceMN:         req.DeviceMN,
		SessionID:        req.SessionID,
		TriggerMessageID: req.TriggerMessageID,
		AssigneeID:       req.AssigneeID,
		AssigneeName:     req.AssigneeName,
		Meta:             req.Meta.toDomain(),
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, ticketToResponse(ticket))
}

// Get returns the ticket together with its full log trail.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())

	detail, err := h.tickets.Get(r.Context(), id.TenantID, chi.URLParam(r, "id"), id.Actor)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := ticketToResponse(detail.Ticket)
	resp.Logs = ticketLogsToResponse(detail.Logs)
	api.Success(w, http.StatusOK, resp)
}

// List handles GET /api/tickets?status=&priority=&deviceMn=&assigneeId=&keyword=&pageIndex=&pageSize=
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	q := r.URL.Query()

	pageIndex, pageSize, err := pageParams(q.Get("pageIndex"), q.Get("pageSize"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	result, err := h.tickets.List(r.Context(), service.ListTicketsInput{
		TenantID:   id.TenantID,
		Actor:      id.Actor,
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		DeviceMN:   q.Get("deviceMn"),
		AssigneeID: q.Get("assigneeId"),
		Keyword:    q.Get("keyword"),
		PageIndex:  pageIndex,
		PageSize:   pageSize,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*TicketResponse, 0, len(result.Items))
	for _, t := range result.Items {
		items = append(items, ticketToResponse(t))
	}
	api.Success(w, http.StatusOK, pagination.PageResult[*TicketResponse]{
		Items:      items,
		TotalCount: result.TotalCount,
		PageIndex:  result.PageIndex,
		PageSize:   result.PageSize,
	})
}

func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())

	var req UpdateTicketRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}

	input := service.UpdateTicketInput{
		TicketID:    chi.URLParam(r, "id"),
		TenantID:    id.TenantID,
		Actor:       id.Actor,
		Title:       req.Title,
		Description: req.Description,
		CustomerID:  req.CustomerID,
		DeviceID:    req.DeviceID,
		DeviceMN:    req.DeviceMN,
	}
	if req.Priority != nil {
		p := domain.TicketPriority(*req.Priority)
		input.Priority = &p
	}
	if req.Meta != nil {
		meta := req.Meta.toDomain()
		input.Meta = &meta
	}

	ticket, err := h.tickets.Update(r.Context(), input)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, ticketToResponse(ticket))
}

func (h *TicketHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, in service.TransitionInput, req TransitionRequest) (*domain.Ticket, error) {
		return h.tickets.Start(ctx, service.StartTicketInput{
			TransitionInput: in,
			AssigneeID:      req.AssigneeID,
			AssigneeName:    req.AssigneeName,
		})
	})
}

func (h *TicketHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, in service.TransitionInput, req TransitionRequest) (*domain.Ticket, error) {
		return h.tickets.Resolve(ctx, service.ResolveTicketInput{TransitionInput: in, Summary: req.Summary})
	})
}

func (h *TicketHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, in service.TransitionInput, _ TransitionRequest) (*domain.Ticket, error) {
		return h.tickets.Close(ctx, in)
	})
}

func (h *TicketHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, in service.TransitionInput, req TransitionRequest) (*domain.Ticket, error) {
		return h.tickets.Reassign(ctx, service.ReassignTicketInput{
			TransitionInput: in,
			AssigneeID:      req.AssigneeID,
			AssigneeName:    req.AssigneeName,
		})
	})
}

type transitionFunc func(ctx context.Context, in service.TransitionInput, req TransitionRequest) (*domain.Ticket, error)

// transition decodes the optional action body and runs op. An empty body is
// allowed for actions without required fields.
func (h *TicketHandler) transition(w http.ResponseWriter, r *http.Request, op transitionFunc) {
	id := middleware.GetIdentity(r.Context())

	var req TransitionRequest
	if err := api.DecodeOptionalJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}

	ticket, err := op(r.Context(), service.TransitionInput{
		TicketID: chi.URLParam(r, "id"),
		TenantID: id.TenantID,
		Actor:    id.Actor,
		Note:     req.Note,
	}, req)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, ticketToResponse(ticket))
}

func (h *TicketHandler) Comment(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())

	var req CommentRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}

	entry, err := h.tickets.Comment(r.Context(), service.CommentInput{
		TicketID: chi.URLParam(r, "id"),
		TenantID: id.TenantID,
		Actor:    id.Actor,
		Content:  req.Content,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, ticketLogToResponse(entry))
}

func (h *TicketHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())

	logs, err := h.tickets.Logs(r.Context(), id.TenantID, chi.URLParam(r, "id"), id.Actor)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, ticketLogsToResponse(logs))
}

// ConvertToKb turns a resolved ticket into a draft article. Indexing is
// triggered unless the body sets triggerIndexing to false.
func (h *TicketHandler) ConvertToKb(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())

	var req ConvertRequest
	if err := api.DecodeOptionalJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}
	trigger := req.TriggerIndexing == nil || *req.TriggerIndexing

	result, err := h.conversion.ConvertToKb(r.Context(), service.ConvertInput{
		TicketID:        chi.URLParam(r, "id"),
		TenantID:        id.TenantID,
		Actor:           id.Actor,
		TriggerIndexing: trigger,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, ConvertResponse{
		ArticleID:         result.ArticleID,
		Message:           result.Message,
		IndexingSucceeded: result.IndexingSucceeded,
	})
}
