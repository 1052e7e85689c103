package model

import (
	"math"
	"time"
)

// RetrievalConfig holds the tuning knobs of retrieval and conversation handling.
type RetrievalConfig struct {
	// Vector search
	SimilarityThreshold float64 `json:"similarity_threshold"`
	ChunkThresholdRatio float64 `json:"chunk_threshold_ratio"` // chunk threshold = article threshold * ratio
	ChunkThresholdFloor float64 `json:"chunk_threshold_floor"`
	ChunkCandidateRatio int     `json:"chunk_candidate_ratio"` // chunk candidates fetched per requested article

	// Graph
	MaxDepth      int `json:"max_depth"`
	TimelineLimit int `json:"timeline_limit"`
	RelatedLimit  int `json:"related_limit"`

	// Context synthesis
	ContextArticles      int `json:"context_articles"`
	ContextRelationships int `json:"context_relationships"`
	SnippetLength        int `json:"snippet_length"`

	// Conversation
	HistoryLimit       int `json:"history_limit"`
	PromptHistoryLimit int `json:"prompt_history_limit"`

	// Timeouts for external calls
	EmbedTimeout time.Duration `json:"embed_timeout"`
	StoreTimeout time.Duration `json:"store_timeout"`
	ModelTimeout time.Duration `json:"model_timeout"`
}

// MaxTraversalDepth bounds related entity traversal.
const MaxTraversalDepth = 3

// DefaultRetrievalConfig returns the default configuration.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		SimilarityThreshold:  0.2,
		ChunkThresholdRatio:  0.5,
		ChunkThresholdFloor:  0.1,
		ChunkCandidateRatio:  2,
		MaxDepth:             2,
		TimelineLimit:        10,
		RelatedLimit:         10,
		ContextArticles:      5,
		ContextRelationships: 3,
		SnippetLength:        200,
		HistoryLimit:         20,
		PromptHistoryLimit:   10,
		EmbedTimeout:         30 * time.Second,
		StoreTimeout:         10 * time.Second,
		ModelTimeout:         60 * time.Second,
	}
}

// ChunkThreshold derives the relaxed chunk-level threshold from an article-level threshold.
func (c RetrievalConfig) ChunkThreshold(articleThreshold float64) float64 {
	return math.Max(c.ChunkThresholdFloor, articleThreshold*c.ChunkThresholdRatio)
}

// ClampDepth limits a requested traversal depth to [1, MaxTraversalDepth].
func ClampDepth(depth int) int {
	if depth < 1 {
		return 1
	}
	if depth > MaxTraversalDepth {
		return MaxTraversalDepth
	}
	return depth
}
