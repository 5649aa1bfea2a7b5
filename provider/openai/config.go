// Package openai implements the embedding and completion providers over an
// OpenAI-compatible HTTP API.
package openai

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults applied by NewEmbedder and NewCompleter to zero Config fields.
const (
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultChatModel      = "gpt-4o"
	DefaultCacheSize      = 10000
	DefaultTimeout        = 60 * time.Second
)

// Config configures the providers.
type Config struct {
	APIKey         string
	BaseURL        string // Empty for api.openai.com
	EmbeddingModel string
	Dimensions     int // 0 keeps the model's native size
	ChatModel      string
	Temperature    float32
	CacheSize      int // Embedding cache entries; negative disables the cache
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.ChatModel == "" {
		c.ChatModel = DefaultChatModel
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

func (c Config) client() *openai.Client {
	cfg := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.HTTPClient != nil {
		cfg.HTTPClient = c.HTTPClient
	}
	return openai.NewClientWithConfig(cfg)
}
