package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentTimeline     Intent = "timeline"
	IntentSummary      Intent = "summary"
	IntentSearch       Intent = "search"
	IntentExplanation  Intent = "explanation"
	IntentRelationship Intent = "relationship"
	IntentGeneral      Intent = "general"
)

// Message is one entry of a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources,omitempty"`
	Entities  []string  `json:"entities_mentioned,omitempty"`
	RAGUsed   bool      `json:"rag_used,omitempty"`
}

// QueryAnalysis is the result of analysing a user message.
type QueryAnalysis struct {
	Intent         Intent   `json:"intent"`
	Entities       []string `json:"entities"`
	RequiresSearch bool     `json:"requires_search"`
	IsTemporal     bool     `json:"is_temporal"`
}

// ChatResponse is the result of one conversation turn.
// It is always well formed, failures are reported through Response text.
type ChatResponse struct {
	ConversationID      string               `json:"conversation_id"`
	Response            string               `json:"response"`
	Intent              Intent               `json:"intent"`
	Sources             []Source             `json:"sources"`
	Citations           []Citation           `json:"citations"`
	EntitiesMentioned   []string             `json:"entities_mentioned"`
	Quality             QualityMetrics       `json:"rag_quality"`
	SuggestedQuestions  []string             `json:"suggested_questions"`
	InteractiveElements []InteractiveElement `json:"interactive_elements"`
	GraphResults        []GraphResult        `json:"graph_results"`
	ModelUsed           string               `json:"model_used,omitempty"`
	Fallback            bool                 `json:"fallback,omitempty"`
	Timestamp           time.Time            `json:"timestamp"`
}

// ConversationInsights summarise a conversation.
type ConversationInsights struct {
	TopicsDiscussed   []string `json:"topics_discussed"`
	EntitiesMentioned []string `json:"entities_mentioned"`
	TotalSourcesUsed  int      `json:"total_sources_used"`
	MessageCount      int      `json:"message_count"`
}
