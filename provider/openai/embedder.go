package openai

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyEmbedding is returned when the API answers without a vector.
var ErrEmptyEmbedding = errors.New("openai: empty embedding")

// Embedder produces embeddings with the embeddings endpoint. Results are
// cached by text.
type Embedder struct {
	cfg    Config
	client *openai.Client
	cache  *lru.Cache[string, []float32]
}

// NewEmbedder returns an Embedder for cfg.
func NewEmbedder(cfg Config) (*Embedder, error) {
	cfg = cfg.withDefaults()
	e := &Embedder{cfg: cfg, client: cfg.client()}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []float32](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating embedding cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.cfg.EmbeddingModel }

// Dimensions returns the requested vector size, 0 for the model default.
func (e *Embedder) Dimensions() int { return e.cfg.Dimensions }

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one embedding per text, in order. Only texts missing
// from the cache are sent.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		pending []string
		slots   []int
	)
	for i, t := range texts {
		if v, ok := e.lookup(t); ok {
			out[i] = v
			continue
		}
		pending = append(pending, t)
		slots = append(slots, i)
	}
	if len(pending) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      pending,
		Model:      openai.EmbeddingModel(e.cfg.EmbeddingModel),
		Dimensions: e.cfg.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}
	if len(resp.Data) != len(pending) {
		return nil, fmt.Errorf("creating embeddings: got %d vectors for %d inputs", len(resp.Data), len(pending))
	}
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(pending) {
			idx = i
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("input %d: %w", slots[idx], ErrEmptyEmbedding)
		}
		out[slots[idx]] = d.Embedding
		e.store(pending[idx], d.Embedding)
	}
	e.cfg.Logger.Debug("embedded texts",
		"model", e.cfg.EmbeddingModel,
		"requested", len(texts),
		"sent", len(pending),
		"tokens", resp.Usage.TotalTokens)
	return out, nil
}

func (e *Embedder) lookup(text string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(text)
}

func (e *Embedder) store(text string, v []float32) {
	if e.cache != nil {
		e.cache.Add(text, v)
	}
}
