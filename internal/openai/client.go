// Package openai generates chunk embeddings through the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions matches the vector column of kb_chunk.
	DefaultEmbeddingDimensions = 1536
	// DefaultBatchSize bounds the number of inputs per API request.
	DefaultBatchSize = 64
	// DefaultConcurrency bounds the number of batch requests in flight.
	DefaultConcurrency = 4
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrCountMismatch   = errors.New("embedding count does not match input count")
)

// EmbeddingAPI is the slice of the OpenAI API the client depends on.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings sends one request for all texts and returns the vectors in
// input order.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
	BatchSize           int
	Concurrency         int
}

// Client validates and batches embedding requests.
type Client struct {
	api         EmbeddingAPI
	dimensions  int
	batchSize   int
	concurrency int
}

func NewClient(cfg Config) *Client {
	return newClient(NewOpenAIAdapter(cfg.APIKey, openai.EmbeddingModel(cfg.EmbeddingModel)), cfg)
}

func newClient(api EmbeddingAPI, cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Client{
		api:         api,
		dimensions:  dimensions,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// GenerateEmbeddings embeds texts in batches and returns one vector per
// text, in order. Batches run concurrently; the first failure cancels the
// rest.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			vecs, err := c.api.CreateEmbeddings(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("failed to create embedding: %w", err)
			}
			if len(vecs) != end-start {
				return ErrCountMismatch
			}
			for i, v := range vecs {
				if len(v) != c.dimensions {
					return fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(v), c.dimensions)
				}
				out[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
