package citation

import (
	"time"

	"github.com/siherrmann/newsgraph/model"
)

// Verification is the payload a client shows to let a user check a citation.
type Verification struct {
	CitationID      string               `json:"citation_id"`
	SourceDetails   SourceDetails        `json:"source_details"`
	Methods         []VerificationMethod `json:"verification_methods"`
	TrustIndicators TrustIndicators      `json:"trust_indicators"`
}

type SourceDetails struct {
	Title           string     `json:"title"`
	Publication     string     `json:"publication"`
	PublishedAt     *time.Time `json:"published_date,omitempty"`
	URL             *string    `json:"url,omitempty"`
	Snippet         *string    `json:"snippet,omitempty"`
	SimilarityScore *float64   `json:"similarity_score,omitempty"`
}

type VerificationMethod struct {
	Type      string   `json:"type"`
	Label     string   `json:"label"`
	URL       *string  `json:"url,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Snippet   *string  `json:"snippet,omitempty"`
	Available bool     `json:"available"`
}

type TrustIndicators struct {
	HasURL           bool `json:"has_url"`
	HasDate          bool `json:"has_date"`
	HighRelevance    bool `json:"high_relevance"`
	KnownPublication bool `json:"known_publication"`
}

// highRelevance is the similarity above which a source counts as highly relevant.
const highRelevance = 0.7

// VerificationData builds the verification payload of c.
func VerificationData(c model.Citation) Verification {
	hasURL := c.URL != nil && *c.URL != ""
	hasSnippet := c.Snippet != nil && *c.Snippet != ""

	return Verification{
		CitationID: c.ID,
		SourceDetails: SourceDetails{
			Title:           c.Title,
			Publication:     c.Publication,
			PublishedAt:     c.PublishedAt,
			URL:             c.URL,
			Snippet:         c.Snippet,
			SimilarityScore: c.SimilarityScore,
		},
		Methods: []VerificationMethod{
			{Type: "source_check", Label: "View Original Source", URL: c.URL, Available: hasURL},
			{Type: "similarity_check", Label: "Relevance Score", Score: c.SimilarityScore, Available: c.SimilarityScore != nil},
			{Type: "context_check", Label: "View Context", Snippet: c.Snippet, Available: hasSnippet},
		},
		TrustIndicators: TrustIndicators{
			HasURL:           hasURL,
			HasDate:          c.PublishedAt != nil,
			HighRelevance:    c.SimilarityScore != nil && *c.SimilarityScore > highRelevance,
			KnownPublication: c.Publication != "" && c.Publication != unknownSource,
		},
	}
}
