// Package openai implements the ai boundary for OpenAI compatible APIs.
package openai

import (
	"sync"

	"github.com/siherrmann/newsgraph/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client talks to an OpenAI compatible API. It manages separate clients for
// chat and embeddings, either may be nil when its key is not configured.
//
// A Client should be created using NewClient.
type Client struct {
	chatModel      string
	embeddingModel string
	embeddingDim   int
	temperature    float64
	maxTokens      int

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewClientParams configures a Client.
//
// EmbeddingDim, when greater than zero, is the required size of returned embeddings.
// ChatURL/ChatKey and EmbeddingURL/EmbeddingKey configure the endpoints,
// an empty URL selects the OpenAI default.
type NewClientParams struct {
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int
	Temperature    float64
	MaxTokens      int

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	RequestOptions []option.RequestOption
}

// NewClient creates a new client.
//
// Example:
//
//	client := openai.NewClient(openai.NewClientParams{
//		ChatModel:      "gpt-4o-mini",
//		EmbeddingModel: "text-embedding-3-small",
//		EmbeddingDim:   384,
//		ChatKey:        os.Getenv("OPENAI_API_KEY"),
//		EmbeddingKey:   os.Getenv("OPENAI_API_KEY"),
//	})
func NewClient(params NewClientParams) *Client {
	return &Client{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		embeddingDim:   params.EmbeddingDim,
		temperature:    params.Temperature,
		maxTokens:      params.MaxTokens,

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey, params.RequestOptions),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey, params.RequestOptions),
	}
}

func newOpenaiClient(baseURL string, apiKey string, extra []option.RequestOption) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	options = append(options, extra...)

	client := openai.NewClient(options...)

	return &client
}

// ChatAvailable reports whether a chat endpoint is configured.
func (c *Client) ChatAvailable() bool {
	return c != nil && c.ChatClient != nil
}

// EmbeddingAvailable reports whether an embedding endpoint is configured.
func (c *Client) EmbeddingAvailable() bool {
	return c != nil && c.EmbeddingClient != nil
}

// ModelName returns the default chat model.
func (c *Client) ModelName() string {
	return c.chatModel
}

// GetMetrics returns the accumulated usage metrics.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics clears the accumulated usage metrics.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

func (c *Client) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.Requests++
	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}
