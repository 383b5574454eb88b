package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/service"
)

const articleColumns = `id, tenant_id, title, question_text, cause_text, solution_text, scope_json, tags,
	status, version, created_by, source_type, source_id, created_at, updated_at, published_at, deleted_at`

type ArticleRepository struct {
	db dbtx
}

func NewArticleRepository(pool *pgxpool.Pool) *ArticleRepository {
	return &ArticleRepository{db: pool}
}

func NewArticleRepositoryWithTx(tx pgx.Tx) *ArticleRepository {
	return &ArticleRepository{db: tx}
}

func (r *ArticleRepository) Create(ctx context.Context, a *domain.Article) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO kb_article (id, tenant_id, title, question_text, cause_text, solution_text, scope_json, tags,
			status, version, created_by, source_type, source_id, created_at, updated_at, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.TenantID, a.Title, a.QuestionText, a.CauseText, a.SolutionText, a.ScopeJSON, a.Tags,
		a.Status, a.Version, a.CreatedBy, a.SourceType, a.SourceID, a.CreatedAt, a.UpdatedAt, a.PublishedAt,
	)
	return err
}

func (r *ArticleRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Article, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+articleColumns+`
		 FROM kb_article WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`,
		tenantID, id,
	)
	return scanArticle(row)
}

// LockByID also returns soft-deleted articles so callers can tell a deleted
// article apart from a missing one.
func (r *ArticleRepository) LockByID(ctx context.Context, tenantID, id string) (*domain.Article, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+articleColumns+`
		 FROM kb_article WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
		tenantID, id,
	)
	return scanArticle(row)
}

func (r *ArticleRepository) Update(ctx context.Context, a *domain.Article) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE kb_article
		 SET title = $1, question_text = $2, cause_text = $3, solution_text = $4, scope_json = $5, tags = $6,
		     status = $7, version = $8, updated_at = $9, published_at = $10
		 WHERE tenant_id = $11 AND id = $12 AND deleted_at IS NULL`,
		a.Title, a.QuestionText, a.CauseText, a.SolutionText, a.ScopeJSON, a.Tags,
		a.Status, a.Version, a.UpdatedAt, a.PublishedAt, a.TenantID, a.ID,
	)
	if err != nil {
		return notFoundIfInvalidID(err, domain.ErrArticleNotFound)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (r *ArticleRepository) SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE kb_article SET deleted_at = $1, updated_at = $1
		 WHERE tenant_id = $2 AND id = $3 AND deleted_at IS NULL`,
		at, tenantID, id,
	)
	if err != nil {
		return notFoundIfInvalidID(err, domain.ErrArticleNotFound)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (r *ArticleRepository) Restore(ctx context.Context, tenantID, id string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE kb_article SET deleted_at = NULL, updated_at = $1
		 WHERE tenant_id = $2 AND id = $3 AND deleted_at IS NOT NULL`,
		at, tenantID, id,
	)
	if err != nil {
		return notFoundIfInvalidID(err, domain.ErrArticleNotFound)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

// Search pages through live articles, newest first. Keyword matches title,
// question and solution; Tag and Scope are substring matches.
func (r *ArticleRepository) Search(ctx context.Context, q service.ArticleQuery) ([]*domain.Article, int64, error) {
	var w where
	w.add("tenant_id = $%d", q.TenantID)
	w.clauses = append(w.clauses, "deleted_at IS NULL")
	if q.Keyword != "" {
		w.add("(title ILIKE $%[1]d OR question_text ILIKE $%[1]d OR solution_text ILIKE $%[1]d)", likePattern(q.Keyword))
	}
	if q.Status != "" {
		w.add("status = $%d", q.Status)
	}
	if q.Tag != "" {
		w.add("tags ILIKE $%d", likePattern(q.Tag))
	}
	if q.Scope != "" {
		w.add("scope_json ILIKE $%d", likePattern(q.Scope))
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM kb_article`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	filter := w.sql()
	limit := w.next(q.Page.Size)
	offset := w.next(q.Page.Offset())
	rows, err := r.db.Query(ctx,
		`SELECT `+articleColumns+` FROM kb_article`+filter+
			` ORDER BY created_at DESC, id LIMIT `+limit+` OFFSET `+offset,
		w.args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []*domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, a)
	}
	return results, total, rows.Err()
}

func scanArticle(row pgx.Row) (*domain.Article, error) {
	var a domain.Article
	err := row.Scan(&a.ID, &a.TenantID, &a.Title, &a.QuestionText, &a.CauseText, &a.SolutionText, &a.ScopeJSON, &a.Tags,
		&a.Status, &a.Version, &a.CreatedBy, &a.SourceType, &a.SourceID, &a.CreatedAt, &a.UpdatedAt, &a.PublishedAt, &a.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrArticleNotFound
		}
		return nil, notFoundIfInvalidID(err, domain.ErrArticleNotFound)
	}
	return &a, nil
}
