package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/supporthub/internal/api"
	"github.com/cloo-solutions/supporthub/internal/api/middleware"
	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/pagination"
	"github.com/cloo-solutions/supporthub/internal/service"
)

type ArticleService interface {
	Create(ctx context.Context, input service.CreateArticleInput) (*domain.Article, error)
	GetByID(ctx context.Context, tenantID, id string) (*domain.Article, error)
	Update(ctx context.Context, input service.UpdateArticleInput) (*domain.Article, error)
	Delete(ctx context.Context, tenantID, id string) error
	Restore(ctx context.Context, tenantID, id string) (*domain.Article, error)
	Publish(ctx context.Context, tenantID, id string) (*domain.Article, error)
	Archive(ctx context.Context, tenantID, id string) (*domain.Article, error)
	Search(ctx context.Context, input service.SearchArticlesInput) (*pagination.PageResult[*domain.Article], error)
	ListChunks(ctx context.Context, tenantID, id string) ([]*domain.KnowledgeChunk, error)
}

type ArticleHandler struct {
	svc ArticleService
}

func NewArticleHandler(svc ArticleService) *ArticleHandler {
	return &ArticleHandler{svc: svc}
}

type ArticleRequest struct {
	Title        string `json:"title"`
	QuestionText string `json:"questionText"`
	CauseText    string `json:"causeText"`
	SolutionText string `json:"solutionText"`
	ScopeJSON    string `json:"scopeJson"`
	Tags         string `json:"tags"`
}

type ArticleResponse struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenantId"`
	Title        string           `json:"title"`
	QuestionText string           `json:"questionText"`
	CauseText    string           `json:"causeText"`
	SolutionText string           `json:"solutionText"`
	ScopeJSON    string           `json:"scopeJson"`
	Tags         string           `json:"tags"`
	Status       string           `json:"status"`
	Version      int              `json:"version"`
	CreatedBy    string           `json:"createdBy"`
	SourceType   string           `json:"sourceType,omitempty"`
	SourceID     string           `json:"sourceId,omitempty"`
	CreatedAt    string           `json:"createdAt"`
	UpdatedAt    string           `json:"updatedAt"`
	PublishedAt  *string          `json:"publishedAt,omitempty"`
	Assets       []*AssetResponse `json:"assets,omitempty"`
}

type ChunkResponse struct {
	ID           int64  `json:"id"`
	ChunkIndex   int    `json:"chunkIndex"`
	ChunkText    string `json:"chunkText"`
	Hash         string `json:"hash"`
	SourceFields string `json:"sourceFields"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func articleToResponse(a *domain.Article) *ArticleResponse {
	resp := &ArticleResponse{
		ID:           a.ID,
		TenantID:     a.TenantID,
		Title:        a.Title,
		QuestionText: a.QuestionText,
		CauseText:    a.CauseText,
		SolutionText: a.SolutionText,
		ScopeJSON:    a.ScopeJSON,
		Tags:         a.Tags,
		Status:       string(a.Status),
		Version:      a.Version,
		CreatedBy:    a.CreatedBy,
		SourceType:   a.SourceType,
		SourceID:     a.SourceID,
		CreatedAt:    formatTime(a.CreatedAt),
		UpdatedAt:    formatTime(a.UpdatedAt),
		PublishedAt:  formatTimePtr(a.PublishedAt),
	}
	for _, asset := range a.Assets {
		resp.Assets = append(resp.Assets, assetToResponse(asset))
	}
	return resp
}

func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())

	var req ArticleRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}

	article, err := h.svc.Create(r.Context(), service.CreateArticleInput{
		TenantID:     id.TenantID,
		Title:        req.Title,
		QuestionText: req.QuestionText,
		CauseText:    req.CauseText,
		SolutionText: req.SolutionText,
		ScopeJSON:    req.ScopeJSON,
		Tags:         req.Tags,
		CreatedBy:    id.Actor.UserID,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, articleToResponse(article))
}

func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	article, err := h.svc.GetByID(r.Context(), middleware.GetIdentity(r.Context()).TenantID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, articleToResponse(article))
}

func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}

	article, err := h.svc.Update(r.Context(), service.UpdateArticleInput{
		ID:           chi.URLParam(r, "id"),
		TenantID:     middleware.GetIdentity(r.Context()).TenantID,
		Title:        req.Title,
		QuestionText: req.QuestionText,
		CauseText:    req.CauseText,
		SolutionText: req.SolutionText,
		ScopeJSON:    req.ScopeJSON,
		Tags:         req.Tags,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, articleToResponse(article))
}

func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), middleware.GetIdentity(r.Context()).TenantID, chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ArticleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.Restore)
}

func (h *ArticleHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.Publish)
}

func (h *ArticleHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.Archive)
}

func (h *ArticleHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, tenantID, id string) (*domain.Article, error)) {
	article, err := op(r.Context(), middleware.GetIdentity(r.Context()).TenantID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, articleToResponse(article))
}

// Search handles GET /api/knowledge/search?keyword=&status=&tag=&scope=&pageIndex=&pageSize=
func (h *ArticleHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageIndex, pageSize, err := pageParams(q.Get("pageIndex"), q.Get("pageSize"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	result, err := h.svc.Search(r.Context(), service.SearchArticlesInput{
		TenantID:  middleware.GetIdentity(r.Context()).TenantID,
		Keyword:   q.Get("keyword"),
		Status:    q.Get("status"),
		Tag:       q.Get("tag"),
		Scope:     q.Get("scope"),
		PageIndex: pageIndex,
		PageSize:  pageSize,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*ArticleResponse, 0, len(result.Items))
	for _, a := range result.Items {
		items = append(items, articleToResponse(a))
	}
	api.Success(w, http.StatusOK, pagination.PageResult[*ArticleResponse]{
		Items:      items,
		TotalCount: result.TotalCount,
		PageIndex:  result.PageIndex,
		PageSize:   result.PageSize,
	})
}

func (h *ArticleHandler) ListChunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := h.svc.ListChunks(r.Context(), middleware.GetIdentity(r.Context()).TenantID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := make([]ChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		resp = append(resp, ChunkResponse{
			ID:           c.ID,
			ChunkIndex:   c.ChunkIndex,
			ChunkText:    c.ChunkText,
			Hash:         c.Hash,
			SourceFields: string(c.SourceFields),
		})
	}
	api.Success(w, http.StatusOK, resp)
}

// pageParams parses optional paging parameters. Absent values are zero and
// normalized later by the service.
func pageParams(rawIndex, rawSize string) (int, int, error) {
	var index, size int
	var err error
	if rawIndex != "" {
		if index, err = strconv.Atoi(rawIndex); err != nil {
			return 0, 0, domain.NewValidationError("pageIndex must be an integer")
		}
	}
	if rawSize != "" {
		if size, err = strconv.Atoi(rawSize); err != nil {
			return 0, 0, domain.NewValidationError("pageSize must be an integer")
		}
	}
	return index, size, nil
}
