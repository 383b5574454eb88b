package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/supporthub/internal/domain"
)

// MockStorageClient is a mock implementation of StorageClientInterface
type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockStorageClient) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func newAssetFixture(t *testing.T, storage StorageClientInterface) (*memStore, *AssetService) {
	t.Helper()
	store := newMemStore()
	require.NoError(t, store.articleRepo().Create(context.Background(),
		domain.NewArticle("article-1", "acme", "Feeder jam", "u1", fixedNow)))

	svc := NewAssetServiceWithUUIDGen(store.assetRepo(), store.articleRepo(), storage, nil, NewMockUUIDGenerator("asset-1", "asset-2"))
	svc.now = func() time.Time { return fixedNow }
	return store, svc
}

func TestAssetService_InitUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("presigns an upload when storage is configured", func(t *testing.T) {
		storage := new(MockStorageClient)
		store, svc := newAssetFixture(t, storage)
		storage.On("GenerateUploadURL", mock.Anything, "acme/article-1/asset-1/roller.png", "image/png").
			Return("https://s3.example.com/put", nil)

		result, err := svc.InitUpload(ctx, InitUploadInput{
			TenantID:    "acme",
			ArticleID:   "article-1",
			FileName:    "photos/roller.png",
			ContentType: "image/png",
			Size:        2048,
		})

		require.NoError(t, err)
		assert.Equal(t, "https://s3.example.com/put", result.UploadURL)
		assert.Equal(t, domain.AssetTypeImage, result.Asset.AssetType)
		assert.Equal(t, "acme/article-1/asset-1/roller.png", result.Asset.StorageKey)
		assert.Contains(t, store.assets, "asset-1")
		storage.AssertExpectations(t)
	})

	t.Run("keeps the supplied URL without storage", func(t *testing.T) {
		store, svc := newAssetFixture(t, nil)
		duration := 90

		result, err := svc.InitUpload(ctx, InitUploadInput{
			TenantID:  "acme",
			ArticleID: "article-1",
			FileName:  "fix.mp4",
			URL:       "https://cdn.example.com/fix.mp4",
			Duration:  &duration,
		})

		require.NoError(t, err)
		assert.Empty(t, result.UploadURL)
		assert.Equal(t, domain.AssetTypeVideo, result.Asset.AssetType)
		assert.Equal(t, "https://cdn.example.com/fix.mp4", store.assets["asset-1"].URL)
	})

	t.Run("presign failure is an upstream error", func(t *testing.T) {
		storage := new(MockStorageClient)
		store, svc := newAssetFixture(t, storage)
		storage.On("GenerateUploadURL", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("no credentials"))

		_, err := svc.InitUpload(ctx, InitUploadInput{TenantID: "acme", ArticleID: "article-1", FileName: "a.pdf"})

		var de *domain.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.ErrCodeUpstreamFailure, de.Code)
		assert.Empty(t, store.assets)
	})

	t.Run("requires a live article", func(t *testing.T) {
		_, svc := newAssetFixture(t, nil)

		_, err := svc.InitUpload(ctx, InitUploadInput{TenantID: "globex", ArticleID: "article-1", FileName: "a.pdf"})

		assert.ErrorIs(t, err, domain.ErrArticleNotFound)
	})

	t.Run("validates the asset", func(t *testing.T) {
		_, svc := newAssetFixture(t, nil)

		_, err := svc.InitUpload(ctx, InitUploadInput{TenantID: "acme", ArticleID: "article-1", FileName: ""})
		assert.True(t, domain.IsValidation(err))

		_, err = svc.InitUpload(ctx, InitUploadInput{TenantID: "acme", ArticleID: "article-1", FileName: "a.bin", AssetType: "audio"})
		assert.ErrorIs(t, err, domain.ErrInvalidAssetType)
	})
}

func TestAssetService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	storage := new(MockStorageClient)
	store, svc := newAssetFixture(t, storage)
	storage.On("GenerateUploadURL", mock.Anything, mock.Anything, mock.Anything).Return("https://s3.example.com/put", nil)
	storage.On("GenerateDownloadURL", mock.Anything, "acme/article-1/asset-1/manual.pdf").Return("https://s3.example.com/get", nil)

	_, err := svc.InitUpload(ctx, InitUploadInput{TenantID: "acme", ArticleID: "article-1", FileName: "manual.pdf", ContentType: "application/pdf"})
	require.NoError(t, err)

	t.Run("list presigns downloads", func(t *testing.T) {
		assets, err := svc.List(ctx, "acme", "article-1")

		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, "https://s3.example.com/get", assets[0].URL)
		assert.Equal(t, domain.AssetTypePDF, assets[0].AssetType)
	})

	t.Run("delete hides the asset", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, "acme", "asset-1"))

		assets, err := svc.List(ctx, "acme", "article-1")
		require.NoError(t, err)
		assert.Empty(t, assets)
		require.NotNil(t, store.assets["asset-1"].DeletedAt)

		assert.ErrorIs(t, svc.Delete(ctx, "acme", "asset-1"), domain.ErrAssetNotFound)
	})
}

func TestDetectAssetType(t *testing.T) {
	tests := []struct {
		contentType string
		fileName    string
		want        domain.AssetType
	}{
		{"image/jpeg", "x", domain.AssetTypeImage},
		{"", "photo.PNG", domain.AssetTypeImage},
		{"video/mp4", "", domain.AssetTypeVideo},
		{"", "clip.mkv", domain.AssetTypeVideo},
		{"application/pdf", "", domain.AssetTypePDF},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "", domain.AssetTypeDoc},
		{"", "notes.doc", domain.AssetTypeDoc},
		{"application/zip", "logs.zip", domain.AssetTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.contentType+tt.fileName, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectAssetType(tt.contentType, tt.fileName))
		})
	}
}
