package graph

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
)

// MockGraphStore is an in-memory Store for testing
type MockGraphStore struct {
	mu            sync.Mutex
	entities      map[uuid.UUID]*model.Entity
	relationships []*model.Relationship
	articles      map[int]*model.ArticleNode
	mentions      map[int]map[uuid.UUID]float64
	relCalls      int
}

func NewMockGraphStore() *MockGraphStore {
	return &MockGraphStore{
		entities: make(map[uuid.UUID]*model.Entity),
		articles: make(map[int]*model.ArticleNode),
		mentions: make(map[int]map[uuid.UUID]float64),
	}
}

func (m *MockGraphStore) addEntity(name string, entityType model.EntityType) *model.Entity {
	e := &model.Entity{ID: uuid.New(), Name: name, Type: entityType, CreatedAt: time.Now()}
	m.entities[e.ID] = e
	return e
}

func (m *MockGraphStore) addRelationship(a *model.Entity, b *model.Entity, relationshipType string) {
	m.relationships = append(m.relationships, &model.Relationship{
		ID:             uuid.New(),
		SourceEntityID: a.ID,
		TargetEntityID: b.ID,
		Type:           relationshipType,
	})
}

func (m *MockGraphStore) addArticle(id int, title string, published *time.Time, mentions ...*model.Entity) {
	m.articles[id] = &model.ArticleNode{ArticleID: id, Title: title, PublishedAt: published}
	for _, e := range mentions {
		if m.mentions[id] == nil {
			m.mentions[id] = make(map[uuid.UUID]float64)
		}
		m.mentions[id][e.ID] = 1
	}
}

func (m *MockGraphStore) MergeEntity(ctx context.Context, name string, entityType model.EntityType) (*model.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entities {
		if e.Name == name && e.Type == entityType {
			return e, nil
		}
	}
	return m.addEntity(name, entityType), nil
}

func (m *MockGraphStore) MergeArticle(ctx context.Context, article *model.ArticleNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[article.ArticleID] = article
	return nil
}

func (m *MockGraphStore) DeleteArticle(ctx context.Context, articleID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.articles, articleID)
	delete(m.mentions, articleID)
	return nil
}

func (m *MockGraphStore) MergeMention(ctx context.Context, mention *model.Mention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mentions[mention.ArticleID] == nil {
		m.mentions[mention.ArticleID] = make(map[uuid.UUID]float64)
	}
	if mention.Confidence > m.mentions[mention.ArticleID][mention.EntityID] {
		m.mentions[mention.ArticleID][mention.EntityID] = mention.Confidence
	}
	return nil
}

func (m *MockGraphStore) MergeRelationship(ctx context.Context, relationship *model.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.relationships {
		forward := r.SourceEntityID == relationship.SourceEntityID && r.TargetEntityID == relationship.TargetEntityID
		backward := r.SourceEntityID == relationship.TargetEntityID && r.TargetEntityID == relationship.SourceEntityID
		if r.Type == relationship.Type && (forward || backward) {
			relationship.ID = r.ID
			return nil
		}
	}
	relationship.ID = uuid.New()
	m.relationships = append(m.relationships, relationship)
	return nil
}

func (m *MockGraphStore) SelectEntitiesByName(ctx context.Context, name string) ([]*model.Entity, error) {
	var out []*model.Entity
	for _, e := range m.entities {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockGraphStore) SelectEntitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Entity, error) {
	var out []*model.Entity
	for _, id := range ids {
		if e, ok := m.entities[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockGraphStore) SelectRelationships(ctx context.Context, entityIDs []uuid.UUID) ([]*model.Relationship, error) {
	m.relCalls++
	set := make(map[uuid.UUID]bool, len(entityIDs))
	for _, id := range entityIDs {
		set[id] = true
	}
	var out []*model.Relationship
	for _, r := range m.relationships {
		if set[r.SourceEntityID] || set[r.TargetEntityID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockGraphStore) SelectEntityTimeline(ctx context.Context, name string, limit int) ([]model.TimelineEvent, error) {
	var events []model.TimelineEvent
	for id, mentioned := range m.mentions {
		for entityID := range mentioned {
			if e, ok := m.entities[entityID]; ok && e.Name == name {
				a := m.articles[id]
				events = append(events, model.TimelineEvent{Title: a.Title, PublishedAt: a.PublishedAt, ArticleID: a.ArticleID, Source: a.Source})
				break
			}
		}
	}
	// Unordered on purpose, the layer sorts.
	return events, nil
}

func (m *MockGraphStore) SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) ([]model.EntitySearchResult, error) {
	var out []model.EntitySearchResult
	for _, e := range m.entities {
		if !strings.Contains(strings.ToLower(e.Name), strings.ToLower(query)) {
			continue
		}
		if entityType != nil && e.Type != *entityType {
			continue
		}
		count := 0
		for _, mentioned := range m.mentions {
			if _, ok := mentioned[e.ID]; ok {
				count++
			}
		}
		out = append(out, model.EntitySearchResult{Name: e.Name, Type: e.Type, MentionCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockGraphStore) SelectStatistics(ctx context.Context) (*model.GraphStatistics, error) {
	return &model.GraphStatistics{
		TotalEntities:          len(m.entities),
		TotalArticles:          len(m.articles),
		TotalRelationships:     len(m.relationships),
		EntityTypeDistribution: []model.TypeCount{},
	}, nil
}

// FailingGraphStore fails on every call
type FailingGraphStore struct{}

func (FailingGraphStore) MergeEntity(ctx context.Context, name string, entityType model.EntityType) (*model.Entity, error) {
	return nil, assert.AnError
}
func (FailingGraphStore) MergeArticle(ctx context.Context, article *model.ArticleNode) error {
	return assert.AnError
}
func (FailingGraphStore) DeleteArticle(ctx context.Context, articleID int) error {
	return assert.AnError
}
func (FailingGraphStore) MergeMention(ctx context.Context, mention *model.Mention) error {
	return assert.AnError
}
func (FailingGraphStore) MergeRelationship(ctx context.Context, relationship *model.Relationship) error {
	return assert.AnError
}
func (FailingGraphStore) SelectEntitiesByName(ctx context.Context, name string) ([]*model.Entity, error) {
	return nil, assert.AnError
}
func (FailingGraphStore) SelectEntitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Entity, error) {
	return nil, assert.AnError
}
func (FailingGraphStore) SelectRelationships(ctx context.Context, entityIDs []uuid.UUID) ([]*model.Relationship, error) {
	return nil, assert.AnError
}
func (FailingGraphStore) SelectEntityTimeline(ctx context.Context, name string, limit int) ([]model.TimelineEvent, error) {
	return nil, assert.AnError
}
func (FailingGraphStore) SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) ([]model.EntitySearchResult, error) {
	return nil, assert.AnError
}
func (FailingGraphStore) SelectStatistics(ctx context.Context) (*model.GraphStatistics, error) {
	return nil, assert.AnError
}
