package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// ErrStoreUnavailable is returned by write operations when no graph store is configured.
var ErrStoreUnavailable = errors.New("graph store unavailable")

// Store is the graph backend: entity and article nodes, mention edges and
// undirected entity relationships. Merges are keyed by (name, type) for
// entities and by article id for articles.
type Store interface {
	Traverser
	MergeEntity(ctx context.Context, name string, entityType model.EntityType) (*model.Entity, error)
	MergeArticle(ctx context.Context, article *model.ArticleNode) error
	DeleteArticle(ctx context.Context, articleID int) error
	MergeMention(ctx context.Context, mention *model.Mention) error
	MergeRelationship(ctx context.Context, relationship *model.Relationship) error
	SelectEntitiesByName(ctx context.Context, name string) ([]*model.Entity, error)
	SelectEntityTimeline(ctx context.Context, name string, limit int) ([]model.TimelineEvent, error)
	SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) ([]model.EntitySearchResult, error)
	SelectStatistics(ctx context.Context) (*model.GraphStatistics, error)
}

// Layer answers entity-centric questions against the graph store.
// Read operations never fail: a missing or failing store yields empty results.
// Write operations return their errors.
type Layer struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration
}

// NewLayer creates a graph query layer. store may be nil, in which case the
// layer behaves like an empty graph.
func NewLayer(store Store, logger *slog.Logger, timeout time.Duration) *Layer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = model.DefaultRetrievalConfig().StoreTimeout
	}
	return &Layer{
		store:   store,
		logger:  logger,
		timeout: timeout,
	}
}

// Available reports whether a graph store is configured.
func (l *Layer) Available() bool {
	return l.store != nil
}

// EntityTimeline returns the articles mentioning the entity,
// newest first with undated articles last, truncated to limit.
func (l *Layer) EntityTimeline(ctx context.Context, name string, limit int) []model.TimelineEvent {
	name = strings.TrimSpace(name)
	if l.store == nil || name == "" || limit <= 0 {
		return []model.TimelineEvent{}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	events, err := l.store.SelectEntityTimeline(ctx, name, limit)
	if err != nil {
		l.logger.Warn("Error getting entity timeline", slog.String("entity", name), slog.String("error", err.Error()))
		return []model.TimelineEvent{}
	}

	sortTimeline(events)
	if len(events) > limit {
		events = events[:limit]
	}

	return events
}

// RelatedEntities returns the entities reachable from the named entity within
// maxDepth hops (clamped to [1, 3]). The origin is excluded. Results are
// ranked by connection strength, then distance, then name.
func (l *Layer) RelatedEntities(ctx context.Context, name string, maxDepth int, limit int) []model.RelatedEntity {
	name = strings.TrimSpace(name)
	if l.store == nil || name == "" || limit <= 0 {
		return []model.RelatedEntity{}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	origins, err := l.store.SelectEntitiesByName(ctx, name)
	if err != nil {
		l.logger.Warn("Error getting entity", slog.String("entity", name), slog.String("error", err.Error()))
		return []model.RelatedEntity{}
	}
	if len(origins) == 0 {
		return []model.RelatedEntity{}
	}

	originIDs := make([]uuid.UUID, len(origins))
	for i, o := range origins {
		originIDs[i] = o.ID
	}

	results, err := BFS(ctx, l.store, originIDs, model.ClampDepth(maxDepth))
	if err != nil {
		l.logger.Warn("Error traversing related entities", slog.String("entity", name), slog.String("error", err.Error()))
		return []model.RelatedEntity{}
	}

	related := make([]model.RelatedEntity, 0, len(results))
	for _, r := range results {
		related = append(related, model.RelatedEntity{
			Name:               r.Entity.Name,
			Type:               r.Entity.Type,
			Distance:           r.Distance,
			ConnectionStrength: r.Strength,
		})
	}

	sort.SliceStable(related, func(i, j int) bool {
		a, b := related[i], related[j]
		if a.ConnectionStrength != b.ConnectionStrength {
			return a.ConnectionStrength > b.ConnectionStrength
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.Name < b.Name
	})

	if len(related) > limit {
		related = related[:limit]
	}

	return related
}

// SearchEntitiesByName finds entities whose name contains query, ignoring case.
// An invalid type filter yields no results.
func (l *Layer) SearchEntitiesByName(ctx context.Context, query string, entityType *model.EntityType, limit int) []model.EntitySearchResult {
	query = strings.TrimSpace(query)
	if l.store == nil || query == "" || limit <= 0 {
		return []model.EntitySearchResult{}
	}
	if entityType != nil && !entityType.Valid() {
		l.logger.Warn("Rejected entity search", slog.String("error", fmt.Errorf("%w: %q", model.ErrInvalidEntityType, *entityType).Error()))
		return []model.EntitySearchResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	results, err := l.store.SearchEntities(ctx, query, entityType, limit)
	if err != nil {
		l.logger.Warn("Error searching entities", slog.String("query", query), slog.String("error", err.Error()))
		return []model.EntitySearchResult{}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MentionCount > results[j].MentionCount
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results
}

// GraphStatistics returns whole-graph counts, or zero counts if unavailable.
func (l *Layer) GraphStatistics(ctx context.Context) model.GraphStatistics {
	empty := model.GraphStatistics{EntityTypeDistribution: []model.TypeCount{}}
	if l.store == nil {
		return empty
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	stats, err := l.store.SelectStatistics(ctx)
	if err != nil || stats == nil {
		if err != nil {
			l.logger.Warn("Error getting graph statistics", slog.String("error", err.Error()))
		}
		return empty
	}

	return *stats
}

// MergeArticle creates or updates the article node.
func (l *Layer) MergeArticle(ctx context.Context, article *model.Article) error {
	if l.store == nil {
		return helper.NewError("merge article", ErrStoreUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	err := l.store.MergeArticle(ctx, &model.ArticleNode{
		ArticleID:   article.ID,
		Title:       article.Title,
		PublishedAt: article.PublishedAt,
		Source:      article.Source,
	})
	if err != nil {
		return helper.NewError("merge article", err)
	}
	return nil
}

// DeleteArticle removes the article node and its mentions. Entity nodes and
// relationships are shared between articles and stay.
func (l *Layer) DeleteArticle(ctx context.Context, articleID int) error {
	if l.store == nil {
		return helper.NewError("delete article", ErrStoreUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	err := l.store.DeleteArticle(ctx, articleID)
	if err != nil {
		return helper.NewError("delete article", err)
	}
	return nil
}

// MergeEntity returns the entity node for (name, type), creating it if needed.
func (l *Layer) MergeEntity(ctx context.Context, name string, entityType model.EntityType) (*model.Entity, error) {
	if l.store == nil {
		return nil, helper.NewError("merge entity", ErrStoreUnavailable)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, helper.NewError("merge entity", fmt.Errorf("entity name is empty"))
	}
	if !entityType.Valid() {
		return nil, helper.NewError("merge entity", fmt.Errorf("%w: %q", model.ErrInvalidEntityType, entityType))
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	entity, err := l.store.MergeEntity(ctx, name, entityType)
	if err != nil {
		return nil, helper.NewError("merge entity", err)
	}
	return entity, nil
}

// MergeMention records that an article mentions an entity.
func (l *Layer) MergeMention(ctx context.Context, articleID int, entityID uuid.UUID, mentionContext string, confidence float64) error {
	if l.store == nil {
		return helper.NewError("merge mention", ErrStoreUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	err := l.store.MergeMention(ctx, &model.Mention{
		ArticleID:  articleID,
		EntityID:   entityID,
		Context:    mentionContext,
		Confidence: model.ClampConfidence(confidence),
	})
	if err != nil {
		return helper.NewError("merge mention", err)
	}
	return nil
}

// MergeRelationship creates an undirected relationship between two entities.
func (l *Layer) MergeRelationship(ctx context.Context, sourceID uuid.UUID, targetID uuid.UUID, relationshipType string) error {
	if l.store == nil {
		return helper.NewError("merge relationship", ErrStoreUnavailable)
	}
	relationshipType = strings.TrimSpace(relationshipType)
	if relationshipType == "" {
		return helper.NewError("merge relationship", fmt.Errorf("relationship type is empty"))
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	err := l.store.MergeRelationship(ctx, &model.Relationship{
		SourceEntityID: sourceID,
		TargetEntityID: targetID,
		Type:           relationshipType,
	})
	if err != nil {
		return helper.NewError("merge relationship", err)
	}
	return nil
}

// sortTimeline orders events newest first, undated last, then by article id descending.
func sortTimeline(events []model.TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].PublishedAt, events[j].PublishedAt
		switch {
		case a == nil && b == nil:
			return events[i].ArticleID > events[j].ArticleID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		}
		return events[i].ArticleID > events[j].ArticleID
	})
}
