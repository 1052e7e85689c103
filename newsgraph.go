// Package newsgraph wires the news knowledge base: the relational and graph
// stores, the ingestion pipeline, the hybrid retriever and the conversational
// orchestrator.
package newsgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/newsgraph/ai"
	"github.com/siherrmann/newsgraph/core/chat"
	"github.com/siherrmann/newsgraph/core/digest"
	"github.com/siherrmann/newsgraph/core/graph"
	"github.com/siherrmann/newsgraph/core/pipeline"
	"github.com/siherrmann/newsgraph/core/retrieval"
	"github.com/siherrmann/newsgraph/database"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/metrics"
	"github.com/siherrmann/newsgraph/model"
	loadSql "github.com/siherrmann/newsgraph/sql"
)

// Newsgraph provides a unified interface to the stores and services.
type Newsgraph struct {
	DB        *helper.Database
	Articles  *database.ArticlesDBHandler
	Chunks    *database.ChunksDBHandler
	Entities  *database.EntitiesDBHandler
	GraphDB   *database.GraphDBHandler
	Graph     *graph.Layer
	Retriever *retrieval.Retriever
	Chat      *chat.Orchestrator
	Digest    *digest.Generator
	Pipeline  *pipeline.Pipeline // Optional ingestion pipeline
	Metrics   *metrics.Metrics
	Config    model.RetrievalConfig

	embedder  ai.Embedder
	chatModel ai.ChatModel
	extractor retrieval.Extractor
	history   chat.HistoryStore
	closers   []func() error
	log       *slog.Logger
}

// Option configures a Newsgraph.
type Option func(*Newsgraph)

// WithLogger sets the logger. The default logs pretty printed at info level to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Newsgraph) {
		n.log = logger
	}
}

// WithEmbedder sets the query embedder. It has to produce vectors of the
// embedding dimension of the stores.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(n *Newsgraph) {
		n.embedder = embedder
	}
}

// WithChatModel sets the language model answering chat messages.
func WithChatModel(chatModel ai.ChatModel) Option {
	return func(n *Newsgraph) {
		n.chatModel = chatModel
	}
}

// WithRetrievalConfig overrides DefaultRetrievalConfig.
func WithRetrievalConfig(config model.RetrievalConfig) Option {
	return func(n *Newsgraph) {
		n.Config = config
	}
}

// WithExtractor sets the query entity extractor.
func WithExtractor(extractor retrieval.Extractor) Option {
	return func(n *Newsgraph) {
		n.extractor = extractor
	}
}

// WithHistoryStore replaces the in-memory conversation history.
func WithHistoryStore(history chat.HistoryStore) Option {
	return func(n *Newsgraph) {
		n.history = history
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Newsgraph) {
		n.Metrics = m
	}
}

// NewNewsgraph connects to the database, creates all tables and functions
// and builds the services on top of them.
func NewNewsgraph(config *helper.DatabaseConfiguration, embeddingDim int, opts ...Option) (*Newsgraph, error) {
	n := &Newsgraph{
		Config: model.DefaultRetrievalConfig(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.log == nil {
		n.log = helper.NewLogger(os.Stdout, slog.LevelInfo)
	}
	if n.Metrics == nil {
		n.Metrics = metrics.New()
	}
	if n.history == nil {
		n.history = chat.NewMemoryHistory(n.Config.HistoryLimit)
	}

	db, err := helper.NewDatabase("newsgraph", config, n.log)
	if err != nil {
		return nil, err
	}
	n.DB = db

	err = loadSql.Init(db.Instance)
	if err != nil {
		_ = db.Close()
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Articles first, chunks and entity links reference them.
	// force=false to not reload if functions already exist
	n.Articles, err = database.NewArticlesDBHandler(db, embeddingDim, false)
	if err != nil {
		_ = db.Close()
		return nil, helper.NewError("create articles handler", err)
	}

	n.Chunks, err = database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		_ = db.Close()
		return nil, helper.NewError("create chunks handler", err)
	}

	n.Entities, err = database.NewEntitiesDBHandler(db, false)
	if err != nil {
		_ = db.Close()
		return nil, helper.NewError("create entities handler", err)
	}

	n.GraphDB, err = database.NewGraphDBHandler(db, false)
	if err != nil {
		_ = db.Close()
		return nil, helper.NewError("create graph handler", err)
	}

	n.Graph = graph.NewLayer(n.GraphDB, n.log, n.Config.StoreTimeout)
	n.wire()

	return n, nil
}

// wire builds the retriever, the orchestrator and the flashcard generator
// from the current embedder and chat model. The conversation history
// survives rewiring.
func (n *Newsgraph) wire() {
	var embed retrieval.EmbedFunc
	if n.embedder != nil {
		embed = n.embedder.GenerateEmbedding
	}

	n.Retriever = retrieval.NewRetriever(
		retrieval.Stores{
			Articles: n.Articles,
			Chunks:   n.Chunks,
			Entities: n.Entities,
			Graph:    n.Graph,
		},
		embed,
		n.extractor,
		n.Config,
		n.log,
	)
	n.Chat = chat.NewOrchestrator(n.Retriever, n.chatModel, n.history, n.Metrics, n.Config, n.log)
	n.Digest = digest.NewGenerator(n.Retriever, n.chatModel, n.log)
}

// Close closes the database connection and releases local models.
func (n *Newsgraph) Close() error {
	for _, closer := range n.closers {
		if err := closer(); err != nil {
			n.log.Warn("Error releasing resource", slog.String("error", err.Error()))
		}
	}
	n.closers = nil

	if n.DB != nil {
		return n.DB.Close()
	}
	return nil
}

// Logger returns the logger shared by all services.
func (n *Newsgraph) Logger() *slog.Logger {
	return n.log
}

// SetPipeline sets the ingestion pipeline.
func (n *Newsgraph) SetPipeline(p *pipeline.Pipeline) {
	n.Pipeline = p
}

// UseEmbedderPipeline ingests with paragraph chunks embedded by the query
// embedder, without entity extraction.
func (n *Newsgraph) UseEmbedderPipeline() error {
	if n.embedder == nil {
		return helper.NewError("create embedder pipeline", fmt.Errorf("no embedder configured"))
	}
	n.Pipeline = pipeline.NewPipeline(pipeline.ParagraphChunker(), n.embedder.GenerateEmbedding)
	return nil
}

// UseDefaultPipeline sets up local semantic chunking, embedding and entity
// extraction. The local sentence transformer also becomes the query
// embedder, so the stores must have pipeline.DefaultEmbeddingDim dimensions.
func (n *Newsgraph) UseDefaultPipeline() error {
	chunker, embedder, err := pipeline.DefaultChunker(500, 0.7)
	if err != nil {
		return helper.NewError("create default chunker", err)
	}
	n.closers = append(n.closers, embedder.Close)

	entityExtractor, err := pipeline.DefaultEntityExtractor()
	if err != nil {
		return helper.NewError("create default entity extractor", err)
	}

	n.Pipeline = pipeline.NewPipeline(chunker, embedder.GenerateEmbedding)
	n.Pipeline.SetEntityExtractor(entityExtractor)
	n.Pipeline.SetRelationExtractor(pipeline.CoOccurrenceRelationExtractor(pipeline.DefaultCoOccurrenceWindow))

	n.embedder = embedder
	n.wire()
	return nil
}

// IngestResult counts what ingesting one article wrote.
type IngestResult struct {
	ArticleID     int `json:"article_id"`
	Chunks        int `json:"chunks"`
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
}

// IngestArticle processes and stores an article:
//  1. chunking, embedding and extraction through the pipeline
//  2. inserting the article and its chunks
//  3. linking the extracted entities in the relational store
//  4. merging article, entity, mention and relationship nodes into the graph
//
// Any failure aborts ingestion and is returned. A failure after the article
// was inserted removes the article with its chunks and entity links and the
// graph article node with its mentions. Entity rows, entity nodes and
// relationships are shared between articles and are kept.
func (n *Newsgraph) IngestArticle(ctx context.Context, article *model.Article) (*IngestResult, error) {
	if n.Pipeline == nil {
		return nil, helper.NewError("ingest article", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}
	if article == nil || article.Content == "" {
		return nil, helper.NewError("ingest article", fmt.Errorf("article content is empty"))
	}

	processed, err := n.Pipeline.Process(ctx, article)
	if err != nil {
		return nil, helper.NewError("process article", err)
	}

	article.Embedding = processed.ArticleEmbedding
	if err := n.Articles.InsertArticle(ctx, article); err != nil {
		return nil, helper.NewError("insert article", err)
	}
	n.log.Info("Inserted article", slog.Int("article_id", article.ID), slog.String("title", article.Title))

	relationships, err := n.storeProcessed(ctx, article, processed)
	if err != nil {
		n.removeArticle(context.WithoutCancel(ctx), article.ID)
		return nil, err
	}

	n.log.Info(
		"Ingested article",
		slog.Int("article_id", article.ID),
		slog.Int("chunks", len(processed.Chunks)),
		slog.Int("entities", len(processed.Entities)),
		slog.Int("relationships", relationships),
	)

	return &IngestResult{
		ArticleID:     article.ID,
		Chunks:        len(processed.Chunks),
		Entities:      len(processed.Entities),
		Relationships: relationships,
	}, nil
}

// storeProcessed writes the chunks, entities and graph records of an inserted
// article and returns the number of merged relationships.
func (n *Newsgraph) storeProcessed(ctx context.Context, article *model.Article, processed *pipeline.ProcessingResult) (int, error) {
	for i, chunk := range processed.Chunks {
		chunk.ArticleID = article.ID
		if err := n.Chunks.InsertChunk(ctx, chunk); err != nil {
			return 0, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
	}

	if err := n.Graph.MergeArticle(ctx, article); err != nil {
		return 0, err
	}

	graphIDs := make(map[string]*model.Entity, len(processed.Entities))
	for _, extracted := range processed.Entities {
		entity := &model.Entity{
			Name:     extracted.Name,
			Type:     extracted.Type,
			Metadata: model.Metadata{"confidence": extracted.Confidence},
		}
		if err := n.Entities.InsertEntity(ctx, entity); err != nil {
			return 0, helper.NewError("insert entity", err)
		}
		if err := n.Entities.LinkArticleEntity(ctx, article.ID, entity.ID); err != nil {
			return 0, helper.NewError("link entity", err)
		}

		node, err := n.Graph.MergeEntity(ctx, extracted.Name, extracted.Type)
		if err != nil {
			return 0, err
		}
		if err := n.Graph.MergeMention(ctx, article.ID, node.ID, extracted.Context, extracted.Confidence); err != nil {
			return 0, err
		}
		graphIDs[extracted.Key()] = node
	}

	relationships := 0
	for _, relation := range processed.Relations {
		source, okSource := graphIDs[relation.Source.Key()]
		target, okTarget := graphIDs[relation.Target.Key()]
		if !okSource || !okTarget {
			continue
		}
		if err := n.Graph.MergeRelationship(ctx, source.ID, target.ID, relation.Type); err != nil {
			return 0, err
		}
		relationships++
	}

	return relationships, nil
}

// removeArticle undoes a partial ingestion. Errors are logged only.
func (n *Newsgraph) removeArticle(ctx context.Context, articleID int) {
	if err := n.Chunks.DeleteChunksByArticle(ctx, articleID); err != nil {
		n.log.Error("Error removing chunks of failed article", slog.Int("article_id", articleID), slog.String("error", err.Error()))
	}
	if err := n.Articles.DeleteArticle(ctx, articleID); err != nil {
		n.log.Error("Error removing failed article", slog.Int("article_id", articleID), slog.String("error", err.Error()))
	}
	if err := n.Graph.DeleteArticle(ctx, articleID); err != nil && !errors.Is(err, graph.ErrStoreUnavailable) {
		n.log.Error("Error removing graph node of failed article", slog.Int("article_id", articleID), slog.String("error", err.Error()))
	}
	n.log.Warn("Removed partially ingested article", slog.Int("article_id", articleID))
}

// Ask answers a message within a conversation.
func (n *Newsgraph) Ask(ctx context.Context, conversationID string, message string) (*model.ChatResponse, error) {
	return n.Chat.ProcessMessage(ctx, conversationID, message)
}

// ChangeIndexType rebuilds the vector indexes of articles and chunks.
func (n *Newsgraph) ChangeIndexType(ctx context.Context, index database.VectorIndex) error {
	if err := n.Articles.ChangeIndexType(ctx, index); err != nil {
		return err
	}
	return n.Chunks.ChangeIndexType(ctx, index)
}
