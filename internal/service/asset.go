package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/logger"
	"github.com/cloo-solutions/supporthub/internal/telemetry"
)

type StorageClientInterface interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// AssetRepositoryInterface defines persistence for article assets. Reads only
// return live assets.
type AssetRepositoryInterface interface {
	Create(ctx context.Context, a *domain.Asset) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Asset, error)
	ListByArticle(ctx context.Context, tenantID, articleID string) ([]*domain.Asset, error)
	SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error
	SoftDeleteByArticle(ctx context.Context, tenantID, articleID string, at time.Time) error
	RestoreByArticle(ctx context.Context, tenantID, articleID string, deletedAt time.Time) error
}

type AssetArticleReader interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Article, error)
}

type AssetService struct {
	assets   AssetRepositoryInterface
	articles AssetArticleReader
	storage  StorageClientInterface
	uuidGen  UUIDGenerator
	now      func() time.Time
	log      *logger.Logger
}

// NewAssetService creates an AssetService. storage may be nil, in which case
// assets keep the URL supplied at registration and no presigning happens.
func NewAssetService(
	assets AssetRepositoryInterface,
	articles AssetArticleReader,
	storage StorageClientInterface,
	log *logger.Logger,
) *AssetService {
	return NewAssetServiceWithUUIDGen(assets, articles, storage, log, &DefaultUUIDGenerator{})
}

func NewAssetServiceWithUUIDGen(
	assets AssetRepositoryInterface,
	articles AssetArticleReader,
	storage StorageClientInterface,
	log *logger.Logger,
	uuidGen UUIDGenerator,
) *AssetService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AssetService{
		assets:   assets,
		articles: articles,
		storage:  storage,
		uuidGen:  uuidGen,
		now:      time.Now,
		log:      log.With("component", "asset_service"),
	}
}

type InitUploadInput struct {
	TenantID    string
	ArticleID   string
	FileName    string
	ContentType string
	AssetType   domain.AssetType
	URL         string
	Size        int64
	Duration    *int
}

type InitUploadResult struct {
	Asset     *domain.Asset
	UploadURL string
}

// InitUpload registers an asset on a live article. When object storage is
// configured the result carries a presigned URL the client uploads to.
func (s *AssetService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "AssetService.InitUpload", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		ArticleID: input.ArticleID,
		Operation: "upload",
	})
	defer span.End()

	if _, err := s.articles.GetByID(ctx, input.TenantID, input.ArticleID); err != nil {
		return nil, err
	}

	assetType := input.AssetType
	if assetType == "" {
		assetType = DetectAssetType(input.ContentType, input.FileName)
	}

	asset := &domain.Asset{
		ID:        s.uuidGen.NewString(),
		ArticleID: input.ArticleID,
		TenantID:  input.TenantID,
		AssetType: assetType,
		FileName:  input.FileName,
		URL:       input.URL,
		Size:      input.Size,
		Duration:  input.Duration,
		CreatedAt: s.now().UTC(),
	}
	if err := domain.ValidateAsset(asset); err != nil {
		return nil, err
	}

	var uploadURL string
	if s.storage != nil {
		asset.StorageKey = buildStorageKey(input.TenantID, input.ArticleID, asset.ID, input.FileName)
		u, err := s.storage.GenerateUploadURL(ctx, asset.StorageKey, input.ContentType)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstreamFailure, "failed to generate upload URL", err)
		}
		uploadURL = u
	}

	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to create asset record: %w", err)
	}

	s.log.Info("asset registered",
		"asset_id", asset.ID,
		"article_id", asset.ArticleID,
		"type", asset.AssetType,
	)
	return &InitUploadResult{Asset: asset, UploadURL: uploadURL}, nil
}

// List returns the live assets of a live article, oldest first. Stored
// objects get a fresh presigned download URL.
func (s *AssetService) List(ctx context.Context, tenantID, articleID string) ([]*domain.Asset, error) {
	if _, err := s.articles.GetByID(ctx, tenantID, articleID); err != nil {
		return nil, err
	}

	assets, err := s.assets.ListByArticle(ctx, tenantID, articleID)
	if err != nil {
		return nil, err
	}

	if s.storage == nil {
		return assets, nil
	}
	for _, a := range assets {
		if a.StorageKey == "" {
			continue
		}
		u, err := s.storage.GenerateDownloadURL(ctx, a.StorageKey)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstreamFailure, "failed to generate download URL", err)
		}
		a.URL = u
	}
	return assets, nil
}

// Delete soft-deletes one asset. The stored object is left in place.
func (s *AssetService) Delete(ctx context.Context, tenantID, assetID string) error {
	if err := s.assets.SoftDelete(ctx, tenantID, assetID, s.now().UTC()); err != nil {
		return err
	}
	s.log.Info("asset deleted", "asset_id", assetID, "tenant_id", tenantID)
	return nil
}

// DetectAssetType classifies a file by content type, falling back to its
// extension.
func DetectAssetType(contentType, fileName string) domain.AssetType {
	ct := strings.ToLower(contentType)
	ext := strings.ToLower(path.Ext(fileName))

	switch {
	case strings.HasPrefix(ct, "image/") || oneOf(ext, ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"):
		return domain.AssetTypeImage
	case strings.HasPrefix(ct, "video/") || oneOf(ext, ".mp4", ".avi", ".mov", ".wmv", ".flv", ".mkv"):
		return domain.AssetTypeVideo
	case ct == "application/pdf" || ext == ".pdf":
		return domain.AssetTypePDF
	case ct == "application/msword" || strings.Contains(ct, "officedocument") || oneOf(ext, ".doc", ".docx"):
		return domain.AssetTypeDoc
	}
	return domain.AssetTypeOther
}

func oneOf(s string, values ...string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}

func buildStorageKey(tenantID, articleID, assetID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s/%s", tenantID, articleID, assetID, path.Base(fileName))
}
