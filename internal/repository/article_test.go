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
	"github.com/cloo-solutions/supporthub/internal/pagination"
	"github.com/cloo-solutions/supporthub/internal/service"
	"github.com/cloo-solutions/supporthub/internal/testutil"
)

func TestArticleRepository(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)

	repo := NewArticleRepository(pool)
	assets := NewAssetRepository(pool)
	chunks := NewChunkRepository(pool)

	t.Run("malformed ids are not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "acme", "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrArticleNotFound)

		err = repo.SoftDelete(ctx, "acme", "not-a-uuid", time.Now().UTC())
		assert.ErrorIs(t, err, domain.ErrArticleNotFound)

		_, err = assets.GetByID(ctx, "acme", "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
	})

	t.Run("create and get", func(t *testing.T) {
		a := domain.NewArticle(uuid.NewString(), "acme", "Printer jams", "u1", time.Now().UTC().Truncate(time.Microsecond))
		a.QuestionText = "Paper jams on tray 2"
		a.ScopeJSON = `{"device_mn":"P-200"}`
		a.Tags = "printer,jam"
		a.SourceType = domain.SourceTypeTicket
		a.SourceID = uuid.NewString()
		require.NoError(t, repo.Create(ctx, a))

		got, err := repo.GetByID(ctx, "acme", a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Title, got.Title)
		assert.Equal(t, a.QuestionText, got.QuestionText)
		assert.Equal(t, a.ScopeJSON, got.ScopeJSON)
		assert.Equal(t, domain.ArticleStatusDraft, got.Status)
		assert.Equal(t, 1, got.Version)
		assert.Equal(t, a.SourceID, got.SourceID)
		assert.Nil(t, got.PublishedAt)
		assert.Nil(t, got.DeletedAt)
	})

	t.Run("tenant isolation", func(t *testing.T) {
		a := createArticle(ctx, t, repo, "acme", "Private")
		_, err := repo.GetByID(ctx, "globex", a.ID)
		assert.ErrorIs(t, err, domain.ErrArticleNotFound)
	})

	t.Run("update", func(t *testing.T) {
		a := createArticle(ctx, t, repo, "acme", "Before")
		published := time.Now().UTC().Truncate(time.Microsecond)
		a.Title = "After"
		a.Status = domain.ArticleStatusPublished
		a.Version = 2
		a.PublishedAt = &published
		a.UpdatedAt = published
		require.NoError(t, repo.Update(ctx, a))

		got, err := repo.GetByID(ctx, "acme", a.ID)
		require.NoError(t, err)
		assert.Equal(t, "After", got.Title)
		assert.Equal(t, domain.ArticleStatusPublished, got.Status)
		assert.Equal(t, 2, got.Version)
		require.NotNil(t, got.PublishedAt)
		assert.True(t, published.Equal(*got.PublishedAt))
	})

	t.Run("soft delete cascades to assets and restore brings them back", func(t *testing.T) {
		a := createArticle(ctx, t, repo, "acme", "Deletable")
		earlier := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
		kept := &domain.Asset{ID: uuid.NewString(), ArticleID: a.ID, TenantID: "acme", AssetType: domain.AssetTypeImage, FileName: "a.png", CreatedAt: earlier}
		removedBefore := &domain.Asset{ID: uuid.NewString(), ArticleID: a.ID, TenantID: "acme", AssetType: domain.AssetTypePDF, FileName: "b.pdf", CreatedAt: earlier}
		require.NoError(t, assets.Create(ctx, kept))
		require.NoError(t, assets.Create(ctx, removedBefore))
		require.NoError(t, assets.SoftDelete(ctx, "acme", removedBefore.ID, earlier))

		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.SoftDelete(ctx, "acme", a.ID, at))
		require.NoError(t, assets.SoftDeleteByArticle(ctx, "acme", a.ID, at))

		_, err := repo.GetByID(ctx, "acme", a.ID)
		assert.ErrorIs(t, err, domain.ErrArticleNotFound)

		locked, err := NewArticleRepository(pool).LockByID(ctx, "acme", a.ID)
		require.NoError(t, err)
		require.NotNil(t, locked.DeletedAt)
		assert.True(t, locked.IsDeleted())

		assert.ErrorIs(t, repo.SoftDelete(ctx, "acme", a.ID, at), domain.ErrArticleNotFound)

		require.NoError(t, repo.Restore(ctx, "acme", a.ID, time.Now().UTC()))
		require.NoError(t, assets.RestoreByArticle(ctx, "acme", a.ID, *locked.DeletedAt))

		list, err := assets.ListByArticle(ctx, "acme", a.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, kept.ID, list[0].ID)
	})

	t.Run("search filters and pages", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))
		base := time.Now().UTC().Truncate(time.Microsecond)
		for i, title := range []string{"Printer jam", "Printer offline", "Scanner noise"} {
			a := domain.NewArticle(uuid.NewString(), "acme", title, "u1", base.Add(time.Duration(i)*time.Second))
			a.Tags = "hardware"
			if i == 1 {
				a.Status = domain.ArticleStatusPublished
			}
			require.NoError(t, repo.Create(ctx, a))
		}
		createArticle(ctx, t, repo, "globex", "Printer elsewhere")

		items, total, err := repo.Search(ctx, service.ArticleQuery{TenantID: "acme", Keyword: "printer", Page: pagination.Normalize(1, 1)})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 1)
		assert.Equal(t, "Printer offline", items[0].Title)

		items, total, err = repo.Search(ctx, service.ArticleQuery{TenantID: "acme", Status: domain.ArticleStatusDraft, Tag: "hard", Page: pagination.Normalize(1, 10)})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, items, 2)

		items, total, err = repo.Search(ctx, service.ArticleQuery{TenantID: "acme", Keyword: "100%", Page: pagination.Normalize(1, 10)})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, items)
	})

	t.Run("chunks replace and embed", func(t *testing.T) {
		a := createArticle(ctx, t, repo, "acme", "Chunked")
		first := []*domain.KnowledgeChunk{
			{ChunkIndex: 0, ChunkText: "[title] Chunked", Hash: hashOf("a"), SourceFields: domain.ChunkSourceTitle},
			{ChunkIndex: 1, ChunkText: "[solution] Reboot", Hash: hashOf("b"), SourceFields: domain.ChunkSourceSolution},
		}
		require.NoError(t, chunks.ReplaceForArticle(ctx, "acme", a.ID, first))
		assert.NotZero(t, first[0].ID)

		second := []*domain.KnowledgeChunk{
			{ChunkIndex: 0, ChunkText: "[title] Chunked v2", Hash: hashOf("c"), SourceFields: domain.ChunkSourceTitle},
		}
		require.NoError(t, chunks.ReplaceForArticle(ctx, "acme", a.ID, second))

		list, err := chunks.ListByArticle(ctx, "acme", a.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "[title] Chunked v2", list[0].ChunkText)

		pending, err := chunks.ListWithoutEmbedding(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		vec := make([]float32, 1536)
		vec[0] = 1
		require.NoError(t, chunks.UpdateEmbedding(ctx, pending[0].ID, vec))

		pending, err = chunks.ListWithoutEmbedding(ctx, a.ID)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func hashOf(s string) string {
	out := make([]byte, 64)
	for i := range out {
		out[i] = s[0]
	}
	return string(out)
}
