package retrieval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/siherrmann/newsgraph/model"
	"golang.org/x/sync/errgroup"
)

// ArticleStore reads articles from the relational store.
type ArticleStore interface {
	SelectArticle(ctx context.Context, id int) (*model.Article, error)
	SelectArticlesByIDs(ctx context.Context, ids []int) ([]*model.Article, error)
}

// ChunkSearcher runs the chunk similarity search.
type ChunkSearcher interface {
	SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Chunk, error)
}

// EntitySearcher searches entities in the relational store.
type EntitySearcher interface {
	SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) ([]model.EntitySearchResult, error)
}

// GraphQuerier is the graph query layer. Its methods never fail.
type GraphQuerier interface {
	EntityTimeline(ctx context.Context, name string, limit int) []model.TimelineEvent
	RelatedEntities(ctx context.Context, name string, maxDepth int, limit int) []model.RelatedEntity
	SearchEntitiesByName(ctx context.Context, query string, entityType *model.EntityType, limit int) []model.EntitySearchResult
}

// EmbedFunc generates the embedding of a text. A nil vector without error
// means that no embedding backend is available.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Stores bundles the backends of a Retriever. Every field may be nil,
// the corresponding retrieval branch then yields nothing.
type Stores struct {
	Articles ArticleStore
	Chunks   ChunkSearcher
	Entities EntitySearcher
	Graph    GraphQuerier
}

// Retriever fuses vector similarity search and graph traversal.
// None of its search methods return errors: a failing backend degrades to
// an empty partial result, which is logged.
type Retriever struct {
	stores    Stores
	embed     EmbedFunc
	extractor Extractor
	config    model.RetrievalConfig
	logger    *slog.Logger
}

// NewRetriever creates a new hybrid retriever.
func NewRetriever(stores Stores, embed EmbedFunc, extractor Extractor, config model.RetrievalConfig, logger *slog.Logger) *Retriever {
	if extractor == nil {
		extractor = NewVocabularyExtractor(DefaultVocabulary)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Retriever{
		stores:    stores,
		embed:     embed,
		extractor: extractor,
		config:    config,
		logger:    logger,
	}
}

// ExtractEntities returns the query entities of text.
func (r *Retriever) ExtractEntities(text string) []string {
	return r.extractor.Extract(text)
}

// VectorSearch embeds query and searches chunks with a relaxed threshold.
// Each article appears once, carrying the similarity and content of its
// best chunk. Chunks of articles missing from the store are skipped.
func (r *Retriever) VectorSearch(ctx context.Context, query string, limit int, threshold float64) []model.RetrievedArticle {
	results := []model.RetrievedArticle{}
	if limit <= 0 || strings.TrimSpace(query) == "" || r.embed == nil || r.stores.Chunks == nil || r.stores.Articles == nil {
		return results
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.config.EmbedTimeout)
	embedding, err := r.embed(embedCtx, query)
	cancel()
	if err != nil {
		r.logger.Warn("Error generating query embedding", slog.String("error", err.Error()))
		return results
	}
	if len(embedding) == 0 {
		r.logger.Debug("No embedding available for vector search")
		return results
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.config.StoreTimeout)
	defer cancel()

	candidates := limit * max(r.config.ChunkCandidateRatio, 1)
	chunks, err := r.stores.Chunks.SelectChunksBySimilarity(storeCtx, embedding, candidates, r.config.ChunkThreshold(threshold))
	if err != nil {
		r.logger.Warn("Error searching chunks", slog.String("error", err.Error()))
		return results
	}

	var articleIDs []int
	best := make(map[int]*model.Chunk)
	for _, chunk := range chunks {
		if _, ok := best[chunk.ArticleID]; ok {
			continue
		}
		best[chunk.ArticleID] = chunk
		articleIDs = append(articleIDs, chunk.ArticleID)
	}

	articles, err := r.selectArticles(storeCtx, articleIDs)
	if err != nil {
		r.logger.Warn("Error getting articles for chunks", slog.String("error", err.Error()))
		return results
	}

	for _, id := range articleIDs {
		article, ok := articles[id]
		if !ok {
			continue
		}
		chunk := best[id]
		similarity := chunk.Similarity
		results = append(results, model.RetrievedArticle{
			Article:         *article,
			SimilarityScore: &similarity,
			Snippet:         chunk.Content,
		})
		if len(results) >= limit {
			break
		}
	}

	return results
}

// GraphSearch fetches timeline and related entities of every entity
// concurrently. Results keep the order of entities.
func (r *Retriever) GraphSearch(ctx context.Context, entities []string, maxDepth int) []model.GraphResult {
	results := make([]model.GraphResult, len(entities))
	if len(entities) == 0 || r.stores.Graph == nil {
		return []model.GraphResult{}
	}

	var g errgroup.Group
	for i, entity := range entities {
		results[i] = model.GraphResult{Entity: entity}
		g.Go(func() error {
			results[i].Timeline = r.stores.Graph.EntityTimeline(ctx, entity, r.config.TimelineLimit)
			return nil
		})
		g.Go(func() error {
			results[i].RelatedEntities = r.stores.Graph.RelatedEntities(ctx, entity, maxDepth, r.config.RelatedLimit)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// HybridSearch runs the vector and graph branches selected by searchType
// concurrently and fuses their articles. Vector results come first, graph
// timeline articles are appended marked FromGraph, and the first occurrence
// of an article wins.
func (r *Retriever) HybridSearch(ctx context.Context, query string, searchType model.SearchType, limit int, includeEntities bool) model.HybridResult {
	result := model.HybridResult{
		Articles:      []model.RetrievedArticle{},
		QueryEntities: []string{},
		GraphResults:  []model.GraphResult{},
	}
	if limit <= 0 {
		return result
	}

	if includeEntities {
		result.QueryEntities = r.ExtractEntities(query)
	}

	var vectorResults, graphArticles []model.RetrievedArticle
	var g errgroup.Group
	if searchType.IncludesVector() {
		g.Go(func() error {
			vectorResults = r.VectorSearch(ctx, query, limit, r.config.SimilarityThreshold)
			return nil
		})
	}
	if searchType.IncludesGraph() && len(result.QueryEntities) > 0 {
		g.Go(func() error {
			result.GraphResults = r.GraphSearch(ctx, result.QueryEntities, r.config.MaxDepth)
			graphArticles = r.timelineArticles(ctx, result.GraphResults)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[int]bool)
	for _, article := range append(vectorResults, graphArticles...) {
		if seen[article.ID] {
			continue
		}
		seen[article.ID] = true
		result.Articles = append(result.Articles, article)
		if len(result.Articles) >= limit {
			break
		}
	}

	r.logger.Debug(
		"Hybrid search done",
		slog.String("search_type", string(searchType)),
		slog.Int("vector", len(vectorResults)),
		slog.Int("graph", len(graphArticles)),
		slog.Int("articles", len(result.Articles)),
	)

	return result
}

// SearchEntities searches the relational and the graph store concurrently.
// Either failing counts as no results. Entities are deduplicated by name,
// relational results first.
func (r *Retriever) SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) []model.EntitySearchResult {
	results := []model.EntitySearchResult{}
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return results
	}
	if entityType != nil && !entityType.Valid() {
		r.logger.Warn("Rejected entity search", slog.String("error", fmt.Errorf("%w: %q", model.ErrInvalidEntityType, *entityType).Error()))
		return results
	}

	var relational, graph []model.EntitySearchResult
	var g errgroup.Group
	if r.stores.Entities != nil {
		g.Go(func() error {
			storeCtx, cancel := context.WithTimeout(ctx, r.config.StoreTimeout)
			defer cancel()

			found, err := r.stores.Entities.SearchEntities(storeCtx, query, entityType, limit)
			if err != nil {
				r.logger.Warn("Error searching entities", slog.String("query", query), slog.String("error", err.Error()))
				return nil
			}
			relational = found
			return nil
		})
	}
	if r.stores.Graph != nil {
		g.Go(func() error {
			graph = r.stores.Graph.SearchEntitiesByName(ctx, query, entityType, limit)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	for _, entity := range append(relational, graph...) {
		if entity.Name == "" || seen[entity.Name] {
			continue
		}
		seen[entity.Name] = true
		results = append(results, entity)
		if len(results) >= limit {
			break
		}
	}

	return results
}

// FindSimilarArticles returns articles similar to the article with id,
// never including the article itself.
func (r *Retriever) FindSimilarArticles(ctx context.Context, id int, limit int, threshold float64) []model.RetrievedArticle {
	results := []model.RetrievedArticle{}
	if limit <= 0 || r.stores.Articles == nil {
		return results
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.config.StoreTimeout)
	reference, err := r.stores.Articles.SelectArticle(storeCtx, id)
	cancel()
	if err != nil {
		r.logger.Debug("Reference article not available", slog.Int("article_id", id), slog.String("error", err.Error()))
		return results
	}

	// One extra candidate, the reference usually matches itself best.
	candidates := r.VectorSearch(ctx, reference.Title+" "+reference.Content, limit+1, threshold)
	for _, article := range candidates {
		if article.ID == id {
			continue
		}
		results = append(results, article)
		if len(results) >= limit {
			break
		}
	}

	return results
}

// RelatedEntities returns the entities related to name within maxDepth.
func (r *Retriever) RelatedEntities(ctx context.Context, name string, maxDepth int, limit int) []model.RelatedEntity {
	if r.stores.Graph == nil {
		return []model.RelatedEntity{}
	}
	return r.stores.Graph.RelatedEntities(ctx, name, maxDepth, limit)
}

// EntityTimeline returns the articles mentioning name, newest first.
func (r *Retriever) EntityTimeline(ctx context.Context, name string, limit int) []model.TimelineEvent {
	if r.stores.Graph == nil {
		return []model.TimelineEvent{}
	}
	return r.stores.Graph.EntityTimeline(ctx, name, limit)
}

// timelineArticles loads the articles referenced by timeline events.
// Events pointing to articles unknown to the relational store are skipped.
func (r *Retriever) timelineArticles(ctx context.Context, graphResults []model.GraphResult) []model.RetrievedArticle {
	var ids []int
	seen := make(map[int]bool)
	for _, result := range graphResults {
		for _, event := range result.Timeline {
			if event.ArticleID <= 0 || seen[event.ArticleID] {
				continue
			}
			seen[event.ArticleID] = true
			ids = append(ids, event.ArticleID)
		}
	}
	if len(ids) == 0 || r.stores.Articles == nil {
		return []model.RetrievedArticle{}
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.config.StoreTimeout)
	defer cancel()

	articles, err := r.selectArticles(storeCtx, ids)
	if err != nil {
		r.logger.Warn("Error getting timeline articles", slog.String("error", err.Error()))
		return []model.RetrievedArticle{}
	}

	results := make([]model.RetrievedArticle, 0, len(ids))
	for _, id := range ids {
		article, ok := articles[id]
		if !ok {
			r.logger.Debug("Skipping dangling timeline article", slog.Int("article_id", id))
			continue
		}
		results = append(results, model.RetrievedArticle{
			Article:   *article,
			FromGraph: true,
		})
	}

	return results
}

func (r *Retriever) selectArticles(ctx context.Context, ids []int) (map[int]*model.Article, error) {
	byID := make(map[int]*model.Article, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	articles, err := r.stores.Articles.SelectArticlesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, article := range articles {
		if article == nil {
			continue
		}
		a := *article
		a.Embedding = nil
		byID[a.ID] = &a
	}

	return byID, nil
}
