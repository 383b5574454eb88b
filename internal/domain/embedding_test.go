package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEmbeddingJob(t *testing.T) {
	now := time.Now()
	job := NewEmbeddingJob("job1", "a1", now)

	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, "a1", job.ArticleID)
	assert.Equal(t, EmbeddingJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Equal(t, now, job.CreatedAt)
	assert.Nil(t, job.ProcessedAt)
	assert.NoError(t, ValidateEmbeddingJob(job))
}

func TestValidateEmbeddingJob(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		job     *EmbeddingJob
		wantErr bool
	}{
		{"nil", nil, true},
		{"missing id", &EmbeddingJob{ArticleID: "a1", Status: EmbeddingJobStatusPending}, true},
		{"missing article", &EmbeddingJob{ID: "j1", Status: EmbeddingJobStatusPending}, true},
		{"bad status", &EmbeddingJob{ID: "j1", ArticleID: "a1", Status: "queued"}, true},
		{"negative retries", &EmbeddingJob{ID: "j1", ArticleID: "a1", Status: EmbeddingJobStatusFailed, Retries: -1}, true},
		{"completed", &EmbeddingJob{ID: "j1", ArticleID: "a1", Status: EmbeddingJobStatusCompleted, ProcessedAt: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbeddingJob(tt.job)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
