package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   ArticleStatus
		expected string
	}{
		{"Draft", ArticleStatusDraft, "draft"},
		{"Published", ArticleStatusPublished, "published"},
		{"Archived", ArticleStatusArchived, "archived"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
			assert.True(t, IsValidArticleStatus(tt.status))
		})
	}
}

func TestNewArticle(t *testing.T) {
	now := time.Now()
	a := NewArticle("a1", "tenant-1", "Feeder jam", "u1", now)

	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, "tenant-1", a.TenantID)
	assert.Equal(t, ArticleStatusDraft, a.Status)
	assert.Equal(t, 1, a.Version)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, now, a.UpdatedAt)
	assert.Nil(t, a.PublishedAt)
	assert.False(t, a.IsDeleted())
}

func TestValidateArticle(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		article *Article
		wantErr bool
	}{
		{"valid", NewArticle("a1", "t1", "Title", "u1", now), false},
		{"nil", nil, true},
		{"missing id", NewArticle("", "t1", "Title", "u1", now), true},
		{"missing tenant", NewArticle("a1", "", "Title", "u1", now), true},
		{"blank title", NewArticle("a1", "t1", "   ", "u1", now), true},
		{"bad status", &Article{ID: "a1", TenantID: "t1", Title: "T", Status: "gone", Version: 1}, true},
		{"zero version", &Article{ID: "a1", TenantID: "t1", Title: "T", Status: ArticleStatusDraft}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArticle(tt.article)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateArticle_BlankTitleIsValidationError(t *testing.T) {
	err := ValidateArticle(NewArticle("a1", "t1", "", "u1", time.Now()))
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestArticle_TagList(t *testing.T) {
	a := &Article{Tags: "ticket, 202602260007 ,,feeder"}
	assert.Equal(t, []string{"ticket", "202602260007", "feeder"}, a.TagList())

	empty := &Article{}
	assert.Nil(t, empty.TagList())
}

func TestDomainError_Is(t *testing.T) {
	wrapped := NewDomainErrorWithCause(ErrCodeNotFound, ErrArticleNotFound.Message, errors.New("no rows"))

	assert.True(t, errors.Is(wrapped, ErrArticleNotFound))
	assert.False(t, errors.Is(wrapped, ErrTicketNotFound))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.Contains(t, wrapped.Error(), "no rows")
}

func TestDomainError_Helpers(t *testing.T) {
	assert.True(t, IsConflict(NewConflictError("ticket is %s", TicketStatusClosed)))
	assert.True(t, IsValidation(NewValidationError("bad %d", 1)))
	assert.False(t, IsValidation(errors.New("plain")))
}
