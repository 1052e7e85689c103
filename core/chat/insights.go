package chat

import (
	"regexp"
	"strings"

	"github.com/siherrmann/newsgraph/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxInsightEntities = 10
	titleWords         = 4
	defaultTitle       = "New Conversation"
)

var topics = []struct {
	pattern *regexp.Regexp
	topic   string
	title   string
}{
	{regexp.MustCompile(`(?i)\b(ai|artificial intelligence)\b`), "Artificial Intelligence", "AI Discussion"},
	{regexp.MustCompile(`(?i)\b(climate|environment)\b`), "Climate & Environment", "Climate & Environment"},
	{regexp.MustCompile(`(?i)\b(politics|government)\b`), "Politics & Government", "Political Discussion"},
	{regexp.MustCompile(`(?i)\b(technology|tech)\b`), "Technology", "Technology News"},
	{regexp.MustCompile(`(?i)\b(business|economy)\b`), "Business & Economy", "Business & Economy"},
}

// Insights summarises the topics, entities and sources of a conversation.
func Insights(messages []model.Message) model.ConversationInsights {
	insights := model.ConversationInsights{
		TopicsDiscussed:   []string{},
		EntitiesMentioned: []string{},
	}

	seenTopics := make(map[string]bool)
	seenEntities := make(map[string]bool)
	for _, message := range messages {
		if message.Role == model.RoleUser {
			insights.MessageCount++
			continue
		}
		if message.Role != model.RoleAssistant {
			continue
		}

		insights.TotalSourcesUsed += len(message.Sources)
		for _, entity := range message.Entities {
			if !seenEntities[entity] && len(insights.EntitiesMentioned) < maxInsightEntities {
				seenEntities[entity] = true
				insights.EntitiesMentioned = append(insights.EntitiesMentioned, entity)
			}
		}
		for _, t := range topics {
			if !seenTopics[t.topic] && t.pattern.MatchString(message.Content) {
				seenTopics[t.topic] = true
				insights.TopicsDiscussed = append(insights.TopicsDiscussed, t.topic)
			}
		}
	}

	return insights
}

// Title names a conversation after the topic of its first user message,
// falling back to the message's first words.
func Title(messages []model.Message) string {
	for _, message := range messages {
		if message.Role != model.RoleUser {
			continue
		}
		for _, t := range topics {
			if t.pattern.MatchString(message.Content) {
				return t.title
			}
		}

		words := strings.Fields(message.Content)
		if len(words) == 0 {
			return defaultTitle
		}
		if len(words) > titleWords {
			words = words[:titleWords]
		}
		return cases.Title(language.Und).String(strings.Join(words, " "))
	}
	return defaultTitle
}
