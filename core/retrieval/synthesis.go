package retrieval

import (
	"fmt"
	"strings"

	"github.com/siherrmann/newsgraph/model"
)

// NoAdditionalContext is the digest of empty retrieval results.
const NoAdditionalContext = "Context: no additional results."

// SynthesizeContext builds a compact digest of retrieval results for
// conditioning a language model: the top articles with similarity and
// snippet, and the top entity relationships.
func (r *Retriever) SynthesizeContext(vectorResults []model.RetrievedArticle, graphResults []model.GraphResult) string {
	return SynthesizeContext(vectorResults, graphResults, r.config.ContextArticles, r.config.ContextRelationships, r.config.SnippetLength)
}

// SynthesizeContext is the configuration-free form of Retriever.SynthesizeContext.
func SynthesizeContext(vectorResults []model.RetrievedArticle, graphResults []model.GraphResult, maxArticles int, maxRelationships int, snippetLength int) string {
	var lines []string

	if len(vectorResults) > 0 && maxArticles > 0 {
		lines = append(lines, "Relevant Articles:")
		for i, article := range vectorResults {
			if i >= maxArticles {
				break
			}

			title := article.Title
			if title == "" {
				title = "Unknown"
			}
			similarity := ""
			if article.SimilarityScore != nil {
				similarity = fmt.Sprintf(" (sim %.2f)", *article.SimilarityScore)
			}
			source := ""
			if article.Source != nil {
				source = *article.Source
			}
			lines = append(lines, fmt.Sprintf("%d. %s%s - %s", i+1, title, similarity, source))

			if snippet := article.Text(); snippet != "" {
				lines = append(lines, "   Snippet: "+Truncate(snippet, snippetLength))
			}
		}
	}

	var relationships []string
	for i, result := range graphResults {
		if i >= maxRelationships {
			break
		}

		var names []string
		for j, related := range result.RelatedEntities {
			if j >= 3 {
				break
			}
			names = append(names, related.Name)
		}
		if result.Entity != "" && len(names) > 0 {
			relationships = append(relationships, fmt.Sprintf("- %s: %s", result.Entity, strings.Join(names, ", ")))
		}
	}
	if len(relationships) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "\nEntity Relationships:")
		} else {
			lines = append(lines, "Entity Relationships:")
		}
		lines = append(lines, relationships...)
	}

	if len(lines) == 0 {
		return NoAdditionalContext
	}
	return strings.Join(lines, "\n")
}

// Truncate cuts s to n runes and appends "..." if anything was cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n < 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
