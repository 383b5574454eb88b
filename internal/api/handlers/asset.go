package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/supporthub/internal/api"
	"github.com/cloo-solutions/supporthub/internal/api/middleware"
	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/service"
)

type AssetService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
	List(ctx context.Context, tenantID, articleID string) ([]*domain.Asset, error)
	Delete(ctx context.Context, tenantID, assetID string) error
}

type AssetHandler struct {
	svc AssetService
}

func NewAssetHandler(svc AssetService) *AssetHandler {
	return &AssetHandler{svc: svc}
}

// InitUploadRequest registers an asset. URL is only used when object
// storage is not configured.
type InitUploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	AssetType   string `json:"assetType"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	Duration    *int   `json:"duration"`
}

type InitUploadResponse struct {
	Asset     *AssetResponse `json:"asset"`
	UploadURL string         `json:"uploadUrl,omitempty"`
}

type AssetResponse struct {
	ID        string `json:"id"`
	ArticleID string `json:"articleId"`
	AssetType string `json:"assetType"`
	FileName  string `json:"fileName"`
	URL       string `json:"url,omitempty"`
	Size      int64  `json:"size"`
	Duration  *int   `json:"duration,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func assetToResponse(a *domain.Asset) *AssetResponse {
	return &AssetResponse{
		ID:        a.ID,
		ArticleID: a.ArticleID,
		AssetType: string(a.AssetType),
		FileName:  a.FileName,
		URL:       a.URL,
		Size:      a.Size,
		Duration:  a.Duration,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

func (h *AssetHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	var req InitUploadRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}

	result, err := h.svc.InitUpload(r.Context(), service.InitUploadInput{
		TenantID:    middleware.GetIdentity(r.Context()).TenantID,
		ArticleID:   chi.URLParam(r, "id"),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		AssetType:   domain.AssetType(req.AssetType),
		URL:         req.URL,
		Size:        req.Size,
		Duration:    req.Duration,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, InitUploadResponse{
		Asset:     assetToResponse(result.Asset),
		UploadURL: result.UploadURL,
	})
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.svc.List(r.Context(), middleware.GetIdentity(r.Context()).TenantID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := make([]*AssetResponse, 0, len(assets))
	for _, a := range assets {
		resp = append(resp, assetToResponse(a))
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), middleware.GetIdentity(r.Context()).TenantID, chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
