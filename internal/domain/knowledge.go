package domain

import (
	"fmt"
	"strings"
	"time"
)

// ArticleStatus represents the lifecycle status of a knowledge article
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"
)

// SourceTypeTicket marks an article created from a resolved ticket.
const SourceTypeTicket = "ticket"

// Article is a tenant-scoped knowledge base entry. It is soft-deleted via
// DeletedAt and never removed from storage.
type Article struct {
	ID           string
	TenantID     string
	Title        string
	QuestionText string
	CauseText    string
	SolutionText string
	ScopeJSON    string
	Tags         string
	Status       ArticleStatus
	Version      int
	CreatedBy    string
	SourceType   string
	SourceID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PublishedAt  *time.Time
	DeletedAt    *time.Time

	Assets []*Asset
}

// NewArticle creates a draft article at version 1.
func NewArticle(id, tenantID, title, createdBy string, createdAt time.Time) *Article {
	return &Article{
		ID:        id,
		TenantID:  tenantID,
		Title:     title,
		Status:    ArticleStatusDraft,
		Version:   1,
		CreatedBy: createdBy,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// IsDeleted reports whether the article has been soft-deleted.
func (a *Article) IsDeleted() bool {
	return a.DeletedAt != nil
}

// TagList splits the comma-separated tag string, dropping blanks.
func (a *Article) TagList() []string {
	var tags []string
	for _, t := range strings.Split(a.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ValidateArticle validates an Article instance
func ValidateArticle(a *Article) error {
	if a == nil {
		return fmt.Errorf("article cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("article ID is required")
	}

	if a.TenantID == "" {
		return fmt.Errorf("article TenantID is required")
	}

	if strings.TrimSpace(a.Title) == "" {
		return NewValidationError("title is required")
	}

	if !IsValidArticleStatus(a.Status) {
		return ErrInvalidArticleStatus
	}

	if a.Version < 1 {
		return fmt.Errorf("article Version must be at least 1")
	}

	return nil
}

// IsValidArticleStatus checks if an ArticleStatus is valid
func IsValidArticleStatus(s ArticleStatus) bool {
	switch s {
	case ArticleStatusDraft, ArticleStatusPublished, ArticleStatusArchived:
		return true
	}
	return false
}
