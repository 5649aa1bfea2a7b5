package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tsawler/slidesmith/generate"
)

// ErrNoChoices is returned when a completion has no choices.
var ErrNoChoices = errors.New("openai: completion returned no choices")

// Completer answers prompts with the chat completions endpoint.
type Completer struct {
	cfg    Config
	client *openai.Client
}

// NewCompleter returns a Completer for cfg.
func NewCompleter(cfg Config) *Completer {
	cfg = cfg.withDefaults()
	return &Completer{cfg: cfg, client: cfg.client()}
}

// Model returns the chat model name.
func (c *Completer) Model() string { return c.cfg.ChatModel }

// Complete returns the reply to a system and user prompt.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, c.request(system, user))
}

// CompleteStructured returns a reply constrained to schema.
func (c *Completer) CompleteStructured(ctx context.Context, system, user string, schema generate.Schema) (string, error) {
	req := c.request(system, user)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        schema.Name,
			Description: schema.Description,
			Schema:      schema.Definition,
			Strict:      true,
		},
	}
	return c.complete(ctx, req)
}

func (c *Completer) request(system, user string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.cfg.Temperature,
	}
}

func (c *Completer) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.cfg.Logger.Error("chat completion failed", "model", req.Model, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	c.cfg.Logger.Debug("chat completion",
		"model", req.Model,
		"latency", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}
