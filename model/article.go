package model

import "time"

// Article is a news article as stored in the relational store.
// Articles are written by ingestion and read-only afterwards.
type Article struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	URL         *string    `json:"url,omitempty"`
	PublishedAt *time.Time `json:"published_date,omitempty"`
	Source      *string    `json:"source,omitempty"`
	Embedding   []float32  `json:"embedding,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SourceName returns the publication name or fallback if unknown.
func (a *Article) SourceName(fallback string) string {
	if a.Source == nil || *a.Source == "" {
		return fallback
	}
	return *a.Source
}

// RetrievedArticle is an article enriched at query time.
// SimilarityScore is nil for articles reached through the graph only.
type RetrievedArticle struct {
	Article
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	Snippet         string   `json:"snippet,omitempty"`
	FromGraph       bool     `json:"from_graph,omitempty"`
}

// Text returns the snippet if present, otherwise the full content.
func (r *RetrievedArticle) Text() string {
	if r.Snippet != "" {
		return r.Snippet
	}
	return r.Content
}

// Source is the reduced view of a retrieved article returned to clients.
type Source struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	URL             *string    `json:"url,omitempty"`
	Source          *string    `json:"source,omitempty"`
	PublishedAt     *time.Time `json:"published_date,omitempty"`
	SimilarityScore *float64   `json:"similarity_score,omitempty"`
	Snippet         *string    `json:"snippet,omitempty"`
}
