package retrieval

import (
	"context"
	"sync"

	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T {
	return &v
}

type mockArticles struct {
	articles map[int]*model.Article
	err      error
}

func newMockArticles(articles ...*model.Article) *mockArticles {
	m := &mockArticles{articles: make(map[int]*model.Article)}
	for _, a := range articles {
		m.articles[a.ID] = a
	}
	return m
}

func (m *mockArticles) SelectArticle(ctx context.Context, id int) (*model.Article, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.articles[id]
	if !ok {
		return nil, assert.AnError
	}
	return a, nil
}

func (m *mockArticles) SelectArticlesByIDs(ctx context.Context, ids []int) ([]*model.Article, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*model.Article
	for _, id := range ids {
		if a, ok := m.articles[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockChunks struct {
	chunks        []*model.Chunk
	err           error
	lastLimit     int
	lastThreshold float64
}

func (m *mockChunks) SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Chunk, error) {
	m.lastLimit = limit
	m.lastThreshold = threshold
	if m.err != nil {
		return nil, m.err
	}
	var out []*model.Chunk
	for _, c := range m.chunks {
		if c.Similarity >= threshold && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockEntities struct {
	results []model.EntitySearchResult
	err     error
}

func (m *mockEntities) SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) ([]model.EntitySearchResult, error) {
	return m.results, m.err
}

type mockGraph struct {
	mu        sync.Mutex
	timelines map[string][]model.TimelineEvent
	related   map[string][]model.RelatedEntity
	search    []model.EntitySearchResult
	calls     []string
	onCall    func()
}

func newMockGraph() *mockGraph {
	return &mockGraph{
		timelines: make(map[string][]model.TimelineEvent),
		related:   make(map[string][]model.RelatedEntity),
	}
}

func (m *mockGraph) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	onCall := m.onCall
	m.mu.Unlock()
	if onCall != nil {
		onCall()
	}
}

func (m *mockGraph) EntityTimeline(ctx context.Context, name string, limit int) []model.TimelineEvent {
	m.record("timeline:" + name)
	events := m.timelines[name]
	if events == nil {
		return []model.TimelineEvent{}
	}
	return events
}

func (m *mockGraph) RelatedEntities(ctx context.Context, name string, maxDepth int, limit int) []model.RelatedEntity {
	m.record("related:" + name)
	related := m.related[name]
	if related == nil {
		return []model.RelatedEntity{}
	}
	return related
}

func (m *mockGraph) SearchEntitiesByName(ctx context.Context, query string, entityType *model.EntityType, limit int) []model.EntitySearchResult {
	m.record("search:" + query)
	if m.search == nil {
		return []model.EntitySearchResult{}
	}
	return m.search
}

func staticEmbed(vector []float32, err error) EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return vector, err
	}
}
