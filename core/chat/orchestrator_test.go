package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/siherrmann/newsgraph/core/prompt"
	"github.com/siherrmann/newsgraph/metrics"
	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(retriever *fakeRetriever, chatModel *fakeModel) *Orchestrator {
	o := NewOrchestrator(retriever, chatModel, nil, metrics.New(), model.DefaultRetrievalConfig(), nil)
	o.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return o
}

func TestProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty message is rejected", func(t *testing.T) {
		o := newTestOrchestrator(&fakeRetriever{}, &fakeModel{})
		response, err := o.ProcessMessage(ctx, "c1", "   ")
		assert.ErrorIs(t, err, ErrEmptyQuery)
		assert.Nil(t, response)
		assert.Empty(t, o.History("c1"))
	})

	t.Run("No articles gives the insufficient information answer", func(t *testing.T) {
		retriever := &fakeRetriever{entities: []string{"Tesla"}}
		chatModel := &fakeModel{answer: "should not be used"}
		o := newTestOrchestrator(retriever, chatModel)

		response, err := o.ProcessMessage(ctx, "c1", "What is new at Tesla?")
		require.NoError(t, err)
		assert.Equal(t, prompt.InsufficientInformation, response.Response)
		assert.Empty(t, response.Sources)
		assert.NotNil(t, response.Sources)
		assert.Equal(t, []string{"Tesla"}, response.EntitiesMentioned)
		assert.Zero(t, chatModel.calls)
		assert.False(t, response.Fallback)
		assert.True(t, response.Quality.InsufficientInfoHandled)
		require.Len(t, retriever.calls, 1)
	})

	t.Run("Grounded answer with citations", func(t *testing.T) {
		retriever := &fakeRetriever{
			entities: []string{"Tesla"},
			articles: []model.RetrievedArticle{
				retrieved(1, "Tesla Q3 Results", "Reuters", 0.91),
				retrieved(2, "EV Market Overview", "Bloomberg", 0.72),
			},
		}
		chatModel := &fakeModel{answer: "Tesla reported record deliveries [Source: Tesla Q3 Results]."}
		o := newTestOrchestrator(retriever, chatModel)

		response, err := o.ProcessMessage(ctx, "c1", "Explain how Tesla's results look")
		require.NoError(t, err)
		assert.Equal(t, "c1", response.ConversationID)
		assert.Equal(t, model.IntentExplanation, response.Intent)
		assert.Equal(t, "fake-model", response.ModelUsed)
		assert.Contains(t, response.Response, `class="citation-link"`)
		assert.NotContains(t, response.Response, "[Source:")

		require.Len(t, response.Citations, 1)
		assert.Equal(t, "Tesla Q3 Results", response.Citations[0].Title)
		assert.Equal(t, "Reuters", response.Citations[0].Publication)

		require.Len(t, response.Sources, 2)
		assert.Equal(t, 1, response.Sources[0].ID)
		require.NotNil(t, response.Sources[0].Snippet)
		assert.Equal(t, "Content of Tesla Q3 Results", *response.Sources[0].Snippet)

		assert.True(t, response.Quality.HasCitations)
		assert.Equal(t, 1, response.Quality.ValidCitations)
		assert.NotEmpty(t, response.SuggestedQuestions)
		assert.NotEmpty(t, response.InteractiveElements)

		require.Len(t, retriever.calls, 1)
		assert.Equal(t, model.SearchTypeHybrid, retriever.calls[0].searchType)
		assert.Equal(t, 8, retriever.calls[0].limit)

		require.Len(t, chatModel.options, 1)
		require.Len(t, chatModel.options[0].SystemPrompts, 1)
		last := chatModel.messages[0][len(chatModel.messages[0])-1]
		assert.Equal(t, "user", last.Role)
		assert.Contains(t, last.Message, "Tesla Q3 Results")
		assert.Contains(t, last.Message, "Explain how Tesla's results look")
	})

	t.Run("Graph relationships reach the model", func(t *testing.T) {
		retriever := &fakeRetriever{
			entities: []string{"Tesla"},
			articles: []model.RetrievedArticle{retrieved(1, "Tesla Q3 Results", "Reuters", 0.91)},
			graph: []model.GraphResult{{
				Entity:          "Tesla",
				RelatedEntities: []model.RelatedEntity{{Name: "Elon Musk", Type: model.EntityTypePerson, Distance: 1, ConnectionStrength: 3}},
			}},
		}
		chatModel := &fakeModel{answer: "Tesla grew [Source: Tesla Q3 Results]."}
		o := newTestOrchestrator(retriever, chatModel)

		response, err := o.ProcessMessage(ctx, "c1", "Explain what Tesla is doing")
		require.NoError(t, err)
		require.Len(t, response.GraphResults, 1)
		assert.Equal(t, "Elon Musk", response.GraphResults[0].RelatedEntities[0].Name)

		require.Len(t, chatModel.options, 1)
		prompts := chatModel.options[0].SystemPrompts
		require.Len(t, prompts, 2, "Expected the graph digest as second system prompt")
		assert.Contains(t, prompts[1], "- Tesla: Elon Musk")
		assert.NotContains(t, prompts[1], "Relevant Articles:", "Expected articles only in the user prompt")
	})

	t.Run("Graph results without relationships add no system prompt", func(t *testing.T) {
		retriever := &fakeRetriever{
			articles: []model.RetrievedArticle{retrieved(1, "Tesla Q3 Results", "Reuters", 0.91)},
			graph:    []model.GraphResult{{Entity: "Tesla"}},
		}
		chatModel := &fakeModel{answer: "Answer."}
		o := newTestOrchestrator(retriever, chatModel)

		_, err := o.ProcessMessage(ctx, "c1", "Explain what Tesla is doing")
		require.NoError(t, err)
		require.Len(t, chatModel.options, 1)
		assert.Len(t, chatModel.options[0].SystemPrompts, 1)
	})

	t.Run("Prompt is limited to the first articles", func(t *testing.T) {
		var articles []model.RetrievedArticle
		for i := 1; i <= 8; i++ {
			articles = append(articles, retrieved(i, fmt.Sprintf("Article title %d", i), "Reuters", 0.9))
		}
		chatModel := &fakeModel{answer: "Answer."}
		o := newTestOrchestrator(&fakeRetriever{articles: articles}, chatModel)

		response, err := o.ProcessMessage(ctx, "c1", "Find news")
		require.NoError(t, err)
		assert.Len(t, response.Sources, MaxPromptArticles)
		assert.NotContains(t, chatModel.messages[0][0].Message, "Article title 6")
	})

	t.Run("Model error falls back", func(t *testing.T) {
		retriever := &fakeRetriever{articles: []model.RetrievedArticle{retrieved(1, "One", "Reuters", 0.9)}}
		o := newTestOrchestrator(retriever, &fakeModel{err: errors.New("connection refused")})

		response, err := o.ProcessMessage(ctx, "c1", "What happened?")
		require.NoError(t, err)
		assert.True(t, response.Fallback)
		assert.Equal(t, FallbackResponse, response.Response)
		assert.NotContains(t, response.Response, "connection refused")
		assert.Empty(t, response.Sources)
		assert.Equal(t, "c1", response.ConversationID)
	})

	t.Run("Empty model answer falls back", func(t *testing.T) {
		retriever := &fakeRetriever{articles: []model.RetrievedArticle{retrieved(1, "One", "Reuters", 0.9)}}
		o := newTestOrchestrator(retriever, &fakeModel{answer: "  "})

		response, err := o.ProcessMessage(ctx, "c1", "What happened?")
		require.NoError(t, err)
		assert.True(t, response.Fallback)
	})

	t.Run("Model panic falls back", func(t *testing.T) {
		retriever := &fakeRetriever{articles: []model.RetrievedArticle{retrieved(1, "One", "Reuters", 0.9)}}
		o := newTestOrchestrator(retriever, &fakeModel{panics: true})

		response, err := o.ProcessMessage(ctx, "c1", "Explain what happened")
		require.NoError(t, err)
		assert.True(t, response.Fallback)
		assert.Equal(t, model.IntentExplanation, response.Intent)
		assert.Len(t, o.History("c1"), 2)
	})

	t.Run("Missing model falls back", func(t *testing.T) {
		retriever := &fakeRetriever{articles: []model.RetrievedArticle{retrieved(1, "One", "Reuters", 0.9)}}
		o := NewOrchestrator(retriever, nil, nil, nil, model.DefaultRetrievalConfig(), nil)

		response, err := o.ProcessMessage(ctx, "c1", "What happened?")
		require.NoError(t, err)
		assert.True(t, response.Fallback)
	})

	t.Run("Small talk skips retrieval", func(t *testing.T) {
		retriever := &fakeRetriever{articles: []model.RetrievedArticle{retrieved(1, "One", "Reuters", 0.9)}}
		chatModel := &fakeModel{answer: "Hi"}
		o := newTestOrchestrator(retriever, chatModel)

		response, err := o.ProcessMessage(ctx, "c1", "Hello there")
		require.NoError(t, err)
		assert.Empty(t, retriever.calls)
		assert.Zero(t, chatModel.calls)
		assert.Equal(t, prompt.InsufficientInformation, response.Response)
	})

	t.Run("Empty conversation id starts a conversation", func(t *testing.T) {
		o := newTestOrchestrator(&fakeRetriever{}, &fakeModel{})

		response, err := o.ProcessMessage(ctx, "", "Hello")
		require.NoError(t, err)
		assert.NotEmpty(t, response.ConversationID)
		assert.Len(t, o.History(response.ConversationID), 2)
	})
}

func TestProcessMessageHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("Turns are recorded", func(t *testing.T) {
		retriever := &fakeRetriever{articles: []model.RetrievedArticle{retrieved(1, "One", "Reuters", 0.9)}}
		chatModel := &fakeModel{answer: "First answer."}
		o := newTestOrchestrator(retriever, chatModel)

		_, err := o.ProcessMessage(ctx, "c1", "What happened first?")
		require.NoError(t, err)
		_, err = o.ProcessMessage(ctx, "c1", "What happened next?")
		require.NoError(t, err)

		history := o.History("c1")
		require.Len(t, history, 4)
		assert.Equal(t, model.RoleUser, history[0].Role)
		assert.Equal(t, "What happened first?", history[0].Content)
		assert.Equal(t, model.RoleAssistant, history[1].Role)
		assert.True(t, history[1].RAGUsed)
		assert.Len(t, history[1].Sources, 1)

		require.Len(t, chatModel.messages, 2)
		second := chatModel.messages[1]
		require.Len(t, second, 3)
		assert.Equal(t, "What happened first?", second[0].Message)
		assert.Equal(t, "assistant", second[1].Role)
	})

	t.Run("History is capped", func(t *testing.T) {
		o := newTestOrchestrator(&fakeRetriever{}, &fakeModel{})
		for i := range 15 {
			_, err := o.ProcessMessage(ctx, "c1", fmt.Sprintf("message %d", i))
			require.NoError(t, err)
		}

		history := o.History("c1")
		require.Len(t, history, DefaultHistoryLimit)
		assert.Equal(t, "message 5", history[0].Content)
	})

	t.Run("Prompt history is limited", func(t *testing.T) {
		retriever := &fakeRetriever{articles: []model.RetrievedArticle{retrieved(1, "One", "Reuters", 0.9)}}
		chatModel := &fakeModel{answer: "Answer."}
		config := model.DefaultRetrievalConfig()
		config.PromptHistoryLimit = 2
		o := NewOrchestrator(retriever, chatModel, nil, nil, config, nil)

		for i := range 4 {
			_, err := o.ProcessMessage(ctx, "c1", fmt.Sprintf("What about %d?", i))
			require.NoError(t, err)
		}

		last := chatModel.messages[len(chatModel.messages)-1]
		assert.Len(t, last, 3)
	})

	t.Run("Clear history", func(t *testing.T) {
		o := newTestOrchestrator(&fakeRetriever{}, &fakeModel{})
		_, err := o.ProcessMessage(ctx, "c1", "Hello")
		require.NoError(t, err)

		o.ClearHistory("c1")
		assert.Empty(t, o.History("c1"))
	})

	t.Run("Concurrent conversations", func(t *testing.T) {
		retriever := &fakeRetriever{articles: []model.RetrievedArticle{retrieved(1, "One", "Reuters", 0.9)}}
		o := newTestOrchestrator(retriever, &fakeModel{answer: "Answer [Source: One]."})

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range 3 {
					_, err := o.ProcessMessage(ctx, fmt.Sprintf("c%d", i), fmt.Sprintf("What about %d?", j))
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		for i := range 8 {
			history := o.History(fmt.Sprintf("c%d", i))
			require.Len(t, history, 6)
			for _, message := range history {
				if message.Role == model.RoleUser {
					assert.True(t, strings.HasPrefix(message.Content, "What about"))
				}
			}
		}
	})
}
