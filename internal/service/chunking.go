package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/supporthub/internal/domain"
)

// ChunkConfig controls how article text is packed into chunks.
type ChunkConfig struct {
	// MaxChars is the ceiling on a chunk's length in runes, joiners included.
	MaxChars int
	// MinChars is the shortest piece an oversized paragraph is cut into when
	// looking back for a whitespace boundary.
	MinChars int
}

// DefaultChunkConfig provides the production chunking limits.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1000,
		MinChars: 400,
	}
}

// ChunkDraft is a chunk ready to be persisted for an article.
type ChunkDraft struct {
	Index  int
	Text   string
	Source domain.ChunkSource
	Hash   string
}

type chunkSection struct {
	marker string
	source domain.ChunkSource
	body   string
}

type paragraph struct {
	text   string
	source domain.ChunkSource
}

// GenerateChunks splits an article into retrieval chunks using the default
// configuration. The result depends only on the article's fields.
func GenerateChunks(a *domain.Article) []ChunkDraft {
	return GenerateChunksWithConfig(a, DefaultChunkConfig())
}

// GenerateChunksWithConfig splits an article into chunks. Sections are
// emitted in a fixed order, each labelled with a marker on its first line.
// Paragraphs are packed greedily up to cfg.MaxChars and never share a chunk
// with a paragraph from another field. Chunks repeating an earlier chunk's
// hash are dropped; indices are assigned after dedup.
func GenerateChunksWithConfig(a *domain.Article, cfg ChunkConfig) []ChunkDraft {
	if a == nil {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	var paragraphs []paragraph
	for _, s := range articleSections(a) {
		paragraphs = append(paragraphs, sectionParagraphs(s, cfg)...)
	}

	var (
		drafts  []ChunkDraft
		seen    = make(map[string]bool)
		current []string
		curLen  int
		curSrc  domain.ChunkSource
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, "\n")
		hash := hashChunk(text)
		if !seen[hash] {
			seen[hash] = true
			drafts = append(drafts, ChunkDraft{
				Index:  len(drafts),
				Text:   text,
				Source: curSrc,
				Hash:   hash,
			})
		}
		current = nil
		curLen = 0
	}

	for _, p := range paragraphs {
		n := utf8.RuneCountInString(p.text)
		if len(current) > 0 && (p.source != curSrc || curLen+1+n > cfg.MaxChars) {
			flush()
		}
		if len(current) == 0 {
			curSrc = p.source
			curLen = n
		} else {
			curLen += 1 + n
		}
		current = append(current, p.text)
	}
	flush()

	return drafts
}

func articleSections(a *domain.Article) []chunkSection {
	var version string
	if a.Version > 0 {
		version = strconv.Itoa(a.Version)
	}
	return []chunkSection{
		{"[id]", domain.ChunkSourceMetadata, a.ID},
		{"[version]", domain.ChunkSourceMetadata, version},
		{"[title]", domain.ChunkSourceTitle, a.Title},
		{"[tags]", domain.ChunkSourceTags, a.Tags},
		{"[scope]", domain.ChunkSourceScope, formatScope(a.ScopeJSON)},
		{"[question]", domain.ChunkSourceQuestion, a.QuestionText},
		{"[cause]", domain.ChunkSourceCause, a.CauseText},
		{"[solution]", domain.ChunkSourceSolution, a.SolutionText},
	}
}

func sectionParagraphs(s chunkSection, cfg ChunkConfig) []paragraph {
	body := strings.ReplaceAll(s.body, "\r\n", "\n")
	if strings.TrimSpace(body) == "" {
		return nil
	}

	var out []paragraph
	first := true
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if first {
			line = s.marker + " " + line
			first = false
		}
		for _, piece := range splitOversized(line, cfg) {
			out = append(out, paragraph{text: piece, source: s.source})
		}
	}
	return out
}

// formatScope pretty-prints scope JSON with two-space indentation and
// returns anything unparseable unchanged.
func formatScope(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}

// splitOversized cuts a paragraph longer than cfg.MaxChars into pieces,
// preferring to cut at whitespace no earlier than cfg.MinChars into a piece.
func splitOversized(text string, cfg ChunkConfig) []string {
	runes := []rune(text)
	if len(runes) <= cfg.MaxChars {
		return []string{text}
	}

	pieces := make([]string, 0, len(runes)/cfg.MaxChars+1)
	start := 0
	for start < len(runes) {
		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					end = i
					break
				}
			}
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			pieces = append(pieces, piece)
		}
		start = end
	}
	return pieces
}

func hashChunk(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
