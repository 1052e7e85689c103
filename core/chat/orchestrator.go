// Package chat runs conversation turns: query analysis, retrieval, grounded
// generation and citation processing.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/newsgraph/ai"
	"github.com/siherrmann/newsgraph/core/citation"
	"github.com/siherrmann/newsgraph/core/prompt"
	"github.com/siherrmann/newsgraph/core/retrieval"
	"github.com/siherrmann/newsgraph/metrics"
	"github.com/siherrmann/newsgraph/model"
)

// ErrEmptyQuery rejects a message without content.
var ErrEmptyQuery = errors.New("empty query")

// FallbackResponse is answered when a turn fails. It carries no error detail.
const FallbackResponse = "I apologize, but I encountered an error while processing your message. Please try again."

const (
	// MaxPromptArticles bounds the articles of one turn.
	MaxPromptArticles = prompt.MaxContextArticles

	generationTemperature = 0.3
)

// Retriever is the part of the hybrid retriever a conversation needs.
type Retriever interface {
	ExtractEntities(text string) []string
	HybridSearch(ctx context.Context, query string, searchType model.SearchType, limit int, includeEntities bool) model.HybridResult
	SynthesizeContext(vectorResults []model.RetrievedArticle, graphResults []model.GraphResult) string
}

// Orchestrator handles conversation turns. It is safe for concurrent use.
type Orchestrator struct {
	retriever Retriever
	model     ai.ChatModel
	citations *citation.Processor
	history   HistoryStore
	metrics   *metrics.Metrics
	config    model.RetrievalConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator creates a new orchestrator. A nil history selects a
// MemoryHistory with the configured limit, metrics and logger may be nil.
func NewOrchestrator(retriever Retriever, chatModel ai.ChatModel, history HistoryStore, m *metrics.Metrics, config model.RetrievalConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if history == nil {
		history = NewMemoryHistory(config.HistoryLimit)
	}
	return &Orchestrator{
		retriever: retriever,
		model:     chatModel,
		citations: citation.NewProcessor(logger),
		history:   history,
		metrics:   m,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessMessage answers message within the conversation conversationID,
// a new conversation is started if the id is empty. The only error is
// ErrEmptyQuery. Every other failure yields a fallback response.
func (o *Orchestrator) ProcessMessage(ctx context.Context, conversationID string, message string) (*model.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyQuery
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	start := o.now()
	userMessage := model.Message{Role: model.RoleUser, Content: message, Timestamp: start}

	response, outcome := o.respond(ctx, conversationID, message)
	response.ConversationID = conversationID
	response.Timestamp = o.now()

	o.history.Append(conversationID, userMessage, model.Message{
		Role:      model.RoleAssistant,
		Content:   response.Response,
		Timestamp: response.Timestamp,
		Sources:   response.Sources,
		Entities:  response.EntitiesMentioned,
		RAGUsed:   len(response.Sources) > 0,
	})
	o.metrics.ObserveChat(response.Intent, outcome, o.now().Sub(start))

	return response, nil
}

// History returns the messages of a conversation, oldest first.
func (o *Orchestrator) History(conversationID string) []model.Message {
	return o.history.Messages(conversationID)
}

// ClearHistory forgets a conversation.
func (o *Orchestrator) ClearHistory(conversationID string) {
	o.history.Delete(conversationID)
}

// respond runs the turn pipeline. Panics are converted to the fallback response.
func (o *Orchestrator) respond(ctx context.Context, conversationID string, message string) (response *model.ChatResponse, outcome string) {
	intent := model.IntentGeneral
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Recovered from panic in chat turn", slog.String("conversation_id", conversationID), slog.String("error", fmt.Sprint(r)))
			response, outcome = fallback(intent), metrics.OutcomeFallback
		}
	}()

	analysis := Analyze(message, o.retriever.ExtractEntities(message))
	intent = analysis.Intent

	retrieved := o.gatherContext(ctx, message, analysis)
	articles := retrieved.Articles
	if len(articles) > MaxPromptArticles {
		articles = articles[:MaxPromptArticles]
	}

	response = &model.ChatResponse{
		Intent:              analysis.Intent,
		Sources:             []model.Source{},
		Citations:           []model.Citation{},
		EntitiesMentioned:   analysis.Entities,
		SuggestedQuestions:  []string{},
		InteractiveElements: []model.InteractiveElement{},
		GraphResults:        retrieved.GraphResults,
	}

	if len(articles) == 0 {
		response.Response = prompt.InsufficientInformation
		response.Quality = citation.Validate(response.Response, nil)
		return response, metrics.OutcomeRefused
	}

	answer, err := o.generate(ctx, conversationID, message, analysis.Intent, articles, retrieved.GraphResults)
	if err != nil {
		o.logger.Error("Error generating answer", slog.String("conversation_id", conversationID), slog.String("error", err.Error()))
		return fallback(analysis.Intent), metrics.OutcomeFallback
	}

	response.Response, response.Citations = o.citations.Process(answer, articles)
	response.Sources = sources(articles)
	response.Quality = citation.Validate(answer, prompt.SourceNames(articles))
	response.SuggestedQuestions = citation.SuggestedQuestions(answer, analysis.Entities, len(articles) > 0)
	response.InteractiveElements = citation.InteractiveElements(answer, analysis.Entities, response.Quality)
	response.ModelUsed = o.model.ModelName()
	o.metrics.ObserveQuality(response.Quality)

	return response, metrics.OutcomeAnswered
}

// gatherContext runs the search strategy of the analysis. The result slices
// are never nil.
func (o *Orchestrator) gatherContext(ctx context.Context, message string, analysis model.QueryAnalysis) model.HybridResult {
	if !analysis.RequiresSearch {
		return model.HybridResult{Articles: []model.RetrievedArticle{}, QueryEntities: []string{}, GraphResults: []model.GraphResult{}}
	}

	searchType, limit := searchStrategy(analysis)
	result := o.retriever.HybridSearch(ctx, message, searchType, limit, true)
	o.metrics.ObserveRetrieval(searchType, len(result.Articles))
	o.logger.Debug(
		"Gathered context",
		slog.String("intent", string(analysis.Intent)),
		slog.String("search_type", string(searchType)),
		slog.Int("articles", len(result.Articles)),
		slog.Int("graph_results", len(result.GraphResults)),
	)

	if result.Articles == nil {
		result.Articles = []model.RetrievedArticle{}
	}
	if result.GraphResults == nil {
		result.GraphResults = []model.GraphResult{}
	}
	return result
}

func (o *Orchestrator) generate(ctx context.Context, conversationID string, message string, intent model.Intent, articles []model.RetrievedArticle, graphResults []model.GraphResult) (string, error) {
	if o.model == nil {
		return "", ai.ErrUnavailable
	}

	var messages []ai.ChatMessage
	history := o.history.Messages(conversationID)
	if limit := o.config.PromptHistoryLimit; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	for _, m := range history {
		messages = append(messages, ai.ChatMessage{Role: string(m.Role), Message: m.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: string(model.RoleUser), Message: prompt.Build(articles, message, intent)})

	modelCtx := ctx
	if o.config.ModelTimeout > 0 {
		var cancel context.CancelFunc
		modelCtx, cancel = context.WithTimeout(ctx, o.config.ModelTimeout)
		defer cancel()
	}

	// Articles are already part of the user prompt, the digest only adds the graph.
	systemPrompts := []string{prompt.SystemPrompt(intent, len(articles))}
	if len(graphResults) > 0 {
		if digest := o.retriever.SynthesizeContext(nil, graphResults); digest != retrieval.NoAdditionalContext {
			systemPrompts = append(systemPrompts, prompt.GraphContext(digest))
		}
	}

	answer, err := o.model.GenerateChat(
		modelCtx,
		messages,
		ai.WithSystemPrompts(systemPrompts...),
		ai.WithTemperature(generationTemperature),
	)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}

	return answer, nil
}

func fallback(intent model.Intent) *model.ChatResponse {
	return &model.ChatResponse{
		Response:            FallbackResponse,
		Intent:              intent,
		Sources:             []model.Source{},
		Citations:           []model.Citation{},
		EntitiesMentioned:   []string{},
		SuggestedQuestions:  []string{},
		InteractiveElements: []model.InteractiveElement{},
		GraphResults:        []model.GraphResult{},
		Fallback:            true,
	}
}

func sources(articles []model.RetrievedArticle) []model.Source {
	out := make([]model.Source, 0, len(articles))
	for _, article := range articles {
		source := model.Source{
			ID:              article.ID,
			Title:           article.Title,
			URL:             article.URL,
			Source:          article.Source,
			PublishedAt:     article.PublishedAt,
			SimilarityScore: article.SimilarityScore,
		}
		if text := article.Text(); text != "" {
			snippet := retrieval.Truncate(text, citation.SnippetLength)
			source.Snippet = &snippet
		}
		out = append(out, source)
	}
	return out
}
