package chat

import (
	"strings"

	"github.com/siherrmann/newsgraph/model"
)

// intentKeywords is checked in order, the first intent with a matching
// keyword wins.
var intentKeywords = []struct {
	intent   model.Intent
	keywords []string
}{
	{model.IntentTimeline, []string{"timeline", "history", "evolution", "over time"}},
	{model.IntentSummary, []string{"summary", "summarize", "flashcard", "brief"}},
	{model.IntentSearch, []string{"search", "find", "look for", "show me"}},
	{model.IntentExplanation, []string{"explain", "what is", "tell me about"}},
	{model.IntentRelationship, []string{"related", "connected", "similar"}},
}

var searchKeywords = []string{
	"what", "who", "when", "where", "how", "why",
	"tell me", "find", "search", "show me",
}

var temporalKeywords = []string{
	"recent", "latest", "today", "yesterday", "this week",
	"timeline", "history", "evolution",
}

// ClassifyIntent classifies message by keyword. Messages matching no
// keyword are general.
func ClassifyIntent(message string) model.Intent {
	lower := strings.ToLower(message)
	for _, candidate := range intentKeywords {
		if containsAny(lower, candidate.keywords) {
			return candidate.intent
		}
	}
	return model.IntentGeneral
}

// Analyze classifies message and attaches the entities found in it.
func Analyze(message string, entities []string) model.QueryAnalysis {
	if entities == nil {
		entities = []string{}
	}
	lower := strings.ToLower(message)
	return model.QueryAnalysis{
		Intent:         ClassifyIntent(message),
		Entities:       entities,
		RequiresSearch: containsAny(lower, searchKeywords),
		IsTemporal:     containsAny(lower, temporalKeywords),
	}
}

// searchStrategy picks the retrieval branches and result size for analysis.
func searchStrategy(analysis model.QueryAnalysis) (model.SearchType, int) {
	switch {
	case analysis.Intent == model.IntentTimeline && len(analysis.Entities) > 0:
		return model.SearchTypeGraph, 10
	case analysis.Intent == model.IntentSearch || analysis.Intent == model.IntentExplanation:
		return model.SearchTypeHybrid, 8
	}
	return model.SearchTypeVector, 5
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
