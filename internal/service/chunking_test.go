package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/supporthub/internal/domain"
)

func TestGenerateChunks_LongSolution(t *testing.T) {
	t.Run("unbroken text", func(t *testing.T) {
		a := &domain.Article{SolutionText: strings.Repeat("a", 2500)}

		chunks := GenerateChunks(a)

		require.Len(t, chunks, 3)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.Equal(t, domain.ChunkSourceSolution, c.Source)
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 1000)
		}
		assert.True(t, strings.HasPrefix(chunks[0].Text, "[solution] "))
	})

	t.Run("words are not cut", func(t *testing.T) {
		a := &domain.Article{SolutionText: strings.Repeat("abcd ", 500)}

		chunks := GenerateChunks(a)

		require.Len(t, chunks, 3)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 1000)
			assert.False(t, strings.HasSuffix(c.Text, " "))
			for _, w := range strings.Fields(strings.TrimPrefix(c.Text, "[solution] ")) {
				assert.Equal(t, "abcd", w)
			}
		}
	})
}

func TestGenerateChunks_Sections(t *testing.T) {
	a := &domain.Article{
		ID:           "article-1",
		Version:      2,
		Title:        "Feeder jam",
		Tags:         "ticket,202602260001,Paper feed",
		ScopeJSON:    `{"device_mn":"P-200"}`,
		QuestionText: "Paper stops at tray 2.\r\n\r\nHappens after warmup.",
		CauseText:    "Worn roller",
		SolutionText: "Cleared jam, recalibrated sensor",
	}

	chunks := GenerateChunks(a)

	var sources []domain.ChunkSource
	for _, c := range chunks {
		sources = append(sources, c.Source)
	}
	assert.Equal(t, []domain.ChunkSource{
		domain.ChunkSourceMetadata,
		domain.ChunkSourceTitle,
		domain.ChunkSourceTags,
		domain.ChunkSourceScope,
		domain.ChunkSourceQuestion,
		domain.ChunkSourceCause,
		domain.ChunkSourceSolution,
	}, sources)

	assert.Equal(t, "[id] article-1\n[version] 2", chunks[0].Text)
	assert.Equal(t, "[title] Feeder jam", chunks[1].Text)
	assert.Equal(t, "[scope] {\n\"device_mn\": \"P-200\"\n}", chunks[3].Text)
	assert.Equal(t, "[question] Paper stops at tray 2.\nHappens after warmup.", chunks[4].Text)
	assert.Equal(t, "[solution] Cleared jam, recalibrated sensor", chunks[6].Text)
}

func TestGenerateChunks_Deterministic(t *testing.T) {
	a := &domain.Article{
		ID:           "article-1",
		Title:        "Feeder jam",
		SolutionText: strings.Repeat("Replace the pickup roller. ", 80),
	}

	first := GenerateChunks(a)
	second := GenerateChunks(a)

	assert.Equal(t, first, second)
	for _, c := range first {
		assert.Len(t, c.Hash, 64)
		assert.Equal(t, hashChunk(c.Text), c.Hash)
	}
}

func TestGenerateChunks_DropsDuplicates(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 30, MinChars: 5}
	a := &domain.Article{
		SolutionText: "restart the unit\nrestart the unit\nrestart the unit",
	}

	chunks := GenerateChunksWithConfig(a, cfg)

	require.Len(t, chunks, 2)
	assert.Equal(t, "[solution] restart the unit", chunks[0].Text)
	assert.Equal(t, "restart the unit", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].Index)

	seen := make(map[string]bool)
	for _, c := range chunks {
		assert.False(t, seen[c.Hash])
		seen[c.Hash] = true
	}
}

func TestGenerateChunks_Empty(t *testing.T) {
	assert.Nil(t, GenerateChunks(nil))
	assert.Empty(t, GenerateChunks(&domain.Article{}))
	assert.Empty(t, GenerateChunks(&domain.Article{Title: "  \n ", SolutionText: "\r\n"}))
}

func TestFormatScope(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"pretty prints json", `{"a":1,"b":"x"}`, "{\n  \"a\": 1,\n  \"b\": \"x\"\n}"},
		{"keeps invalid json", "device P-200", "device P-200"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatScope(tt.in))
		})
	}
}
