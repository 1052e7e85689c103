package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// BatchEmbedFunc embeds several texts at once, positionally aligned.
type BatchEmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

var sentenceBoundaries = strings.NewReplacer("! ", "!|", "? ", "?|", ". ", ".|")

// splitSentences splits text after sentence punctuation followed by a space.
func splitSentences(text string) []string {
	var sentences []string
	for _, s := range strings.Split(sentenceBoundaries.Replace(text), "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// SentenceChunker creates a chunker that groups maxSentencesPerChunk sentences per chunk
func SentenceChunker(maxSentencesPerChunk int) ChunkFunc {
	return func(text string) ([]string, error) {
		if maxSentencesPerChunk <= 0 {
			return nil, fmt.Errorf("max sentences per chunk must be positive")
		}

		sentences := splitSentences(text)
		chunks := []string{}
		for start := 0; start < len(sentences); start += maxSentencesPerChunk {
			end := min(start+maxSentencesPerChunk, len(sentences))
			chunks = append(chunks, strings.Join(sentences[start:end], " "))
		}

		return chunks, nil
	}
}

// ParagraphChunker creates a chunker that splits by blank lines
func ParagraphChunker() ChunkFunc {
	return func(text string) ([]string, error) {
		chunks := []string{}
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para != "" {
				chunks = append(chunks, para)
			}
		}
		return chunks, nil
	}
}

// cosineSimilarity calculates the cosine similarity between two embedding vectors
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// SemanticChunker creates a chunker that uses sentence embeddings to find
// natural boundaries. A new chunk starts where the similarity between the
// running chunk and the next sentence drops below similarityThreshold, or
// where the chunk would grow beyond maxChunkSize bytes.
func SemanticChunker(embed BatchEmbedFunc, maxChunkSize int, similarityThreshold float32) ChunkFunc {
	return func(text string) ([]string, error) {
		sentences := splitSentences(text)
		if len(sentences) == 0 {
			return []string{}, nil
		}

		embeddings, err := embed(context.Background(), sentences)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(embeddings) != len(sentences) {
			return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d sentences", len(embeddings), len(sentences))
		}

		var chunks []string
		var current []string
		var sum []float32
		currentLength := 0

		flush := func() {
			chunks = append(chunks, strings.Join(current, " "))
			current, sum, currentLength = nil, nil, 0
		}

		for i, sentence := range sentences {
			if len(current) > 0 {
				// The sum has the direction of the average embedding.
				similarity := cosineSimilarity(sum, embeddings[i])
				if similarity < similarityThreshold || currentLength+len(sentence) > maxChunkSize {
					flush()
				}
			}

			if sum == nil {
				sum = make([]float32, len(embeddings[i]))
			}
			for j := range min(len(sum), len(embeddings[i])) {
				sum[j] += embeddings[i][j]
			}
			current = append(current, sentence)
			currentLength += len(sentence)
		}
		flush()

		return chunks, nil
	}
}

// DefaultChunker creates a semantic chunker backed by the local sentence
// transformer of DefaultEmbedder.
func DefaultChunker(maxChunkSize int, similarityThreshold float32) (ChunkFunc, *LocalEmbedder, error) {
	embedder, err := DefaultEmbedder()
	if err != nil {
		return nil, nil, err
	}
	return SemanticChunker(embedder.GenerateEmbeddings, maxChunkSize, similarityThreshold), embedder, nil
}
