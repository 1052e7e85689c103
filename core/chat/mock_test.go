package chat

import (
	"context"
	"sync"

	"github.com/siherrmann/newsgraph/ai"
	"github.com/siherrmann/newsgraph/core/retrieval"
	"github.com/siherrmann/newsgraph/model"
)

type searchCall struct {
	query      string
	searchType model.SearchType
	limit      int
}

type fakeRetriever struct {
	entities []string
	articles []model.RetrievedArticle
	graph    []model.GraphResult
	calls    []searchCall
	mu       sync.Mutex
}

func (f *fakeRetriever) ExtractEntities(text string) []string {
	return append([]string{}, f.entities...)
}

func (f *fakeRetriever) HybridSearch(ctx context.Context, query string, searchType model.SearchType, limit int, includeEntities bool) model.HybridResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, searchCall{query: query, searchType: searchType, limit: limit})
	return model.HybridResult{
		Articles:      append([]model.RetrievedArticle{}, f.articles...),
		QueryEntities: append([]string{}, f.entities...),
		GraphResults:  append([]model.GraphResult{}, f.graph...),
	}
}

func (f *fakeRetriever) SynthesizeContext(vectorResults []model.RetrievedArticle, graphResults []model.GraphResult) string {
	return retrieval.SynthesizeContext(vectorResults, graphResults, 5, 3, 200)
}

type fakeModel struct {
	answer   string
	err      error
	panics   bool
	calls    int
	messages [][]ai.ChatMessage
	options  []ai.GenerateOptions
	mu       sync.Mutex
}

func (f *fakeModel) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	if f.panics {
		panic("model exploded")
	}

	options := ai.GenerateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = append(f.messages, messages)
	f.options = append(f.options, options)
	return f.answer, f.err
}

func (f *fakeModel) ModelName() string {
	return "fake-model"
}

func retrieved(id int, title string, source string, score float64) model.RetrievedArticle {
	return model.RetrievedArticle{
		Article: model.Article{
			ID:      id,
			Title:   title,
			Content: "Content of " + title,
			Source:  &source,
		},
		SimilarityScore: &score,
	}
}
