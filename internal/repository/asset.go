package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/supporthub/internal/domain"
)

const assetColumns = `id, article_id, tenant_id, asset_type, file_name, storage_key, url, size, duration, created_at, deleted_at`

type AssetRepository struct {
	db dbtx
}

func NewAssetRepository(pool *pgxpool.Pool) *AssetRepository {
	return &AssetRepository{db: pool}
}

func NewAssetRepositoryWithTx(tx pgx.Tx) *AssetRepository {
	return &AssetRepository{db: tx}
}

func (r *AssetRepository) Create(ctx context.Context, a *domain.Asset) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO kb_asset (id, article_id, tenant_id, asset_type, file_name, storage_key, url, size, duration, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.ArticleID, a.TenantID, a.AssetType, a.FileName, a.StorageKey, a.URL, a.Size, a.Duration, a.CreatedAt,
	)
	return err
}

func (r *AssetRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Asset, error) {
	var a domain.Asset
	err := r.db.QueryRow(ctx,
		`SELECT `+assetColumns+`
		 FROM kb_asset WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`,
		tenantID, id,
	).Scan(&a.ID, &a.ArticleID, &a.TenantID, &a.AssetType, &a.FileName, &a.StorageKey, &a.URL, &a.Size, &a.Duration, &a.CreatedAt, &a.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, notFoundIfInvalidID(err, domain.ErrAssetNotFound)
	}
	return &a, nil
}

func (r *AssetRepository) ListByArticle(ctx context.Context, tenantID, articleID string) ([]*domain.Asset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+assetColumns+`
		 FROM kb_asset
		 WHERE tenant_id = $1 AND article_id = $2 AND deleted_at IS NULL
		 ORDER BY created_at, id`,
		tenantID, articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.ArticleID, &a.TenantID, &a.AssetType, &a.FileName, &a.StorageKey, &a.URL, &a.Size, &a.Duration, &a.CreatedAt, &a.DeletedAt); err != nil {
			return nil, err
		}
		assets = append(assets, &a)
	}
	return assets, rows.Err()
}

func (r *AssetRepository) SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE kb_asset SET deleted_at = $1 WHERE tenant_id = $2 AND id = $3 AND deleted_at IS NULL`,
		at, tenantID, id,
	)
	if err != nil {
		return notFoundIfInvalidID(err, domain.ErrAssetNotFound)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

// SoftDeleteByArticle stamps every live asset of an article with at.
func (r *AssetRepository) SoftDeleteByArticle(ctx context.Context, tenantID, articleID string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE kb_asset SET deleted_at = $1 WHERE tenant_id = $2 AND article_id = $3 AND deleted_at IS NULL`,
		at, tenantID, articleID,
	)
	return err
}

// RestoreByArticle brings back only the assets deleted together with the
// article, identified by the shared deletion timestamp.
func (r *AssetRepository) RestoreByArticle(ctx context.Context, tenantID, articleID string, deletedAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE kb_asset SET deleted_at = NULL WHERE tenant_id = $1 AND article_id = $2 AND deleted_at = $3`,
		tenantID, articleID, deletedAt,
	)
	return err
}
