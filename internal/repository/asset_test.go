//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/supporthub/internal/domain"
)

func TestAssetRepository(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)

	articles := NewArticleRepository(pool)
	repo := NewAssetRepository(pool)
	a := createArticle(ctx, t, articles, "acme", "With assets")

	t.Run("create get and list", func(t *testing.T) {
		duration := 42
		video := &domain.Asset{
			ID:         uuid.NewString(),
			ArticleID:  a.ID,
			TenantID:   "acme",
			AssetType:  domain.AssetTypeVideo,
			FileName:   "fix.mp4",
			StorageKey: "acme/" + a.ID + "/fix.mp4",
			Size:       2048,
			Duration:   &duration,
			CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, repo.Create(ctx, video))

		got, err := repo.GetByID(ctx, "acme", video.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AssetTypeVideo, got.AssetType)
		assert.Equal(t, video.StorageKey, got.StorageKey)
		require.NotNil(t, got.Duration)
		assert.Equal(t, 42, *got.Duration)

		list, err := repo.ListByArticle(ctx, "acme", a.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		_, err = repo.GetByID(ctx, "globex", video.ID)
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
	})

	t.Run("soft delete hides the asset", func(t *testing.T) {
		doc := &domain.Asset{ID: uuid.NewString(), ArticleID: a.ID, TenantID: "acme", AssetType: domain.AssetTypeDoc, FileName: "manual.docx", CreatedAt: time.Now().UTC()}
		require.NoError(t, repo.Create(ctx, doc))

		require.NoError(t, repo.SoftDelete(ctx, "acme", doc.ID, time.Now().UTC()))
		_, err := repo.GetByID(ctx, "acme", doc.ID)
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
		assert.ErrorIs(t, repo.SoftDelete(ctx, "acme", doc.ID, time.Now().UTC()), domain.ErrAssetNotFound)
	})
}
