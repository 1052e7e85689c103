package model

import "time"

// Span is a character (rune) offset range [Start, End) in a text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Citation is a citation marker name resolved to a retrieved article.
type Citation struct {
	ID              string     `json:"id"`
	SourceName      string     `json:"source_name"`
	Title           string     `json:"title"`
	URL             *string    `json:"url,omitempty"`
	Publication     string     `json:"publication"`
	PublishedAt     *time.Time `json:"published_date,omitempty"`
	Snippet         *string    `json:"snippet,omitempty"`
	SimilarityScore *float64   `json:"similarity_score,omitempty"`
	Position        Span       `json:"position_in_text"`
	VerificationURL *string    `json:"verification_url,omitempty"`
}

// QualityMetrics describe how well a response cites its sources.
type QualityMetrics struct {
	HasCitations            bool    `json:"has_citations"`
	CitationCount           int     `json:"citation_count"`
	CitationCoverage        float64 `json:"citation_coverage"`
	ValidCitations          int     `json:"valid_citations"`
	InvalidCitations        int     `json:"invalid_citations"`
	InsufficientInfoHandled bool    `json:"insufficient_info_handled"`
	FollowsFormat           bool    `json:"follows_format"`
	QualityScore            float64 `json:"quality_score"`
}

// InteractiveElement is a typed hint for the client UI.
type InteractiveElement struct {
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes"`
}
