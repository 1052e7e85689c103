// Package ai defines the boundary to language models and embedding providers.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by a chat model that is not configured.
var ErrUnavailable = errors.New("language model not available")

// ChatMessage is a single message of a chat conversation.
//
// Role must be one of:
//   - "system"
//   - "user"
//   - "assistant"
type ChatMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// GenerateOptions holds the configuration of a generation request.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
	MaxTokens     int      // Upper bound of generated tokens, 0 for the provider default
}

// ModelMetrics contains usage metrics of model calls.
type ModelMetrics struct {
	Requests     int   `json:"requests"`
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// GenerateOption is a functional option for generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts sets the system prompts prepended to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature sets the sampling temperature. Lower values make the
// output more focused and deterministic.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens bounds the number of generated tokens.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// ChatModel generates chat completions.
type ChatModel interface {
	GenerateChat(ctx context.Context, messages []ChatMessage, opts ...GenerateOption) (string, error)
	ModelName() string
}

// Embedder generates text embeddings. A nil vector without error means that
// no embedding is available for the input, callers have to degrade.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	// GenerateEmbeddings is the batch form. The result has the length of
	// texts and is positionally aligned with it.
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}
