package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siherrmann/newsgraph/ai"

	"github.com/openai/openai-go/v3"
	"golang.org/x/sync/errgroup"
)

// ErrDimensionMismatch is returned when the endpoint answers with vectors
// of another size than the configured dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// embeddingBatchSize is the number of inputs sent per embedding request.
const embeddingBatchSize = 64

// GenerateEmbedding creates the embedding of text. Blank text or a missing
// embedding endpoint yield a nil vector without error.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(res))
	}
	return res[0], nil
}

// GenerateEmbeddings creates the embeddings of texts. The result is aligned
// with texts, blank inputs get a nil vector. Batches are requested
// concurrently.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if !c.EmbeddingAvailable() {
		return out, nil
	}

	var idxMap []int
	var inputs []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		idxMap = append(idxMap, i)
		inputs = append(inputs, text)
	}

	eg, ectx := errgroup.WithContext(ctx)
	for start := 0; start < len(inputs); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(inputs))
		eg.Go(func() error {
			vectors, err := c.generateEmbeddingsForStrings(ectx, inputs[start:end])
			if err != nil {
				return err
			}
			for i, vector := range vectors {
				out[idxMap[start+i]] = vector
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Client) generateEmbeddingsForStrings(ctx context.Context, inputs []string) ([][]float32, error) {
	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: c.embeddingModel,
	}

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(ctx, body)
	if err != nil {
		return nil, err
	}
	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(response.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(response.Data), len(inputs))
	}

	out := make([][]float32, len(inputs))
	for _, embedding := range response.Data {
		idx := int(embedding.Index)
		if idx < 0 || idx >= len(inputs) {
			return nil, fmt.Errorf("embedding index out of range: %d", embedding.Index)
		}
		vector, err := c.toVector(embedding.Embedding)
		if err != nil {
			return nil, err
		}
		out[idx] = vector
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}

	return out, nil
}

// toVector converts an embedding. With a configured dimension the
// embedding must have exactly that size, the stores reject other sizes.
func (c *Client) toVector(values []float64) ([]float32, error) {
	if c.embeddingDim > 0 && len(values) != c.embeddingDim {
		return nil, fmt.Errorf("%w: model %s returned %d, configured %d", ErrDimensionMismatch, c.embeddingModel, len(values), c.embeddingDim)
	}
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}
	return vec, nil
}
