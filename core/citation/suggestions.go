package citation

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/siherrmann/newsgraph/model"
)

const (
	// MaxSuggestions bounds the number of suggested follow-up questions.
	MaxSuggestions = 6

	maxEntitySuggestions = 3
	genericSuggestions   = 3
	maxEntityChips       = 5
	wordsPerMinute       = 200
)

var genericQuestions = []string{
	"How does this compare to previous years?",
	"What are the potential future developments?",
	"Who are the key players involved?",
	"What's the broader context here?",
	"Are there any opposing viewpoints?",
	"What questions should I be asking about this?",
}

// SuggestedQuestions derives follow-up questions from the entities and the
// wording of an answer. The generic questions are picked from text, so the
// same answer always gets the same suggestions.
func SuggestedQuestions(text string, entities []string, hasSources bool) []string {
	var suggestions []string
	seen := make(map[string]bool)
	add := func(q string) {
		if !seen[q] {
			seen[q] = true
			suggestions = append(suggestions, q)
		}
	}

	for i, entity := range entities {
		if i >= maxEntitySuggestions {
			break
		}
		add(fmt.Sprintf("Tell me more about %s", entity))
		add(fmt.Sprintf("What's the latest news on %s?", entity))
	}

	if hasSources {
		add("Can you elaborate on these sources?")
		add("What other related articles are available?")
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "announced") {
		add("What are the implications of this announcement?")
	}
	if strings.Contains(lower, "study") || strings.Contains(lower, "research") {
		add("What were the key findings?")
	}
	if strings.Contains(lower, "increase") || strings.Contains(lower, "decrease") || strings.Contains(lower, "change") {
		add("What caused this change?")
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	offset := int(h.Sum32() % uint32(len(genericQuestions)))
	for i := 0; i < genericSuggestions; i++ {
		add(genericQuestions[(offset+i)%len(genericQuestions)])
	}

	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

// InteractiveElements returns the UI hints shown next to an answer.
func InteractiveElements(text string, entities []string, metrics model.QualityMetrics) []model.InteractiveElement {
	elements := []model.InteractiveElement{}

	if metrics.QualityScore > 0 {
		elements = append(elements, model.InteractiveElement{
			Type: "quality_indicator",
			Attributes: map[string]interface{}{
				"score": metrics.QualityScore,
				"label": QualityLabel(metrics.QualityScore),
				"color": QualityColor(metrics.QualityScore),
			},
		})
	}

	if len(entities) > 0 {
		var chips []map[string]interface{}
		for i, entity := range entities {
			if i >= maxEntityChips {
				break
			}
			chips = append(chips, map[string]interface{}{"name": entity, "searchable": true})
		}
		elements = append(elements, model.InteractiveElement{
			Type:       "entity_chips",
			Attributes: map[string]interface{}{"entities": chips},
		})
	}

	if metrics.CitationCount > 0 {
		elements = append(elements, model.InteractiveElement{
			Type:       "citation_summary",
			Attributes: map[string]interface{}{"count": metrics.CitationCount, "expandable": true},
		})
	}

	words := len(strings.Fields(text))
	elements = append(elements, model.InteractiveElement{
		Type:       "reading_time",
		Attributes: map[string]interface{}{"minutes": max(1, words/wordsPerMinute), "words": words},
	})

	return elements
}
