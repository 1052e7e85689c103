package retrieval

import (
	"regexp"
	"sort"
	"strings"
)

// MaxQueryEntities bounds the number of entities extracted from a query.
const MaxQueryEntities = 5

// Extractor finds entity names in free text.
type Extractor interface {
	Extract(text string) []string
}

// DefaultVocabulary is the set of entity names recognized in queries.
var DefaultVocabulary = []string{
	"AI", "Technology", "Climate", "Politics", "Economy",
	"Google", "Microsoft", "Tesla", "Apple", "Meta",
	"OpenAI", "Amazon", "Nvidia", "SpaceX", "Elon Musk",
}

// VocabularyExtractor matches a fixed vocabulary case-insensitively on word
// boundaries. It returns canonical names in order of first appearance,
// without duplicates and at most MaxQueryEntities of them.
type VocabularyExtractor struct {
	pattern   *regexp.Regexp
	canonical map[string]string
}

// NewVocabularyExtractor compiles an extractor for vocabulary.
// Empty terms are ignored.
func NewVocabularyExtractor(vocabulary []string) *VocabularyExtractor {
	canonical := make(map[string]string, len(vocabulary))
	terms := make([]string, 0, len(vocabulary))
	for _, term := range vocabulary {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, ok := canonical[key]; ok {
			continue
		}
		canonical[key] = term
		terms = append(terms, regexp.QuoteMeta(term))
	}

	extractor := &VocabularyExtractor{canonical: canonical}
	if len(terms) == 0 {
		return extractor
	}

	// Longer terms first so that "Elon Musk" wins over a shorter overlapping term.
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	extractor.pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(terms, "|") + `)\b`)

	return extractor
}

// Extract implements Extractor.
func (e *VocabularyExtractor) Extract(text string) []string {
	entities := []string{}
	if e.pattern == nil || text == "" {
		return entities
	}

	seen := make(map[string]bool)
	for _, match := range e.pattern.FindAllString(text, -1) {
		name := e.canonical[strings.ToLower(match)]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		entities = append(entities, name)
		if len(entities) == MaxQueryEntities {
			break
		}
	}

	return entities
}
