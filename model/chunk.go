package model

import "time"

// Chunk is a contiguous slice of an article's text with its own embedding.
// ChunkIndex is 0-based and contiguous per article.
type Chunk struct {
	ID         int       `json:"id"`
	ArticleID  int       `json:"article_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}
