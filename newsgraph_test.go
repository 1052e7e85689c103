package newsgraph

import (
	"context"
	"io"
	"log"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/siherrmann/newsgraph/ai"
	"github.com/siherrmann/newsgraph/core/pipeline"
	"github.com/siherrmann/newsgraph/database"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

const testEmbeddingDim = 384

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

// keywordEmbedder puts every known keyword on its own axis, so texts sharing
// keywords are similar. The last axis keeps vectors of other texts non-zero.
type keywordEmbedder struct{}

var keywordAxes = map[string]int{"tesla": 0, "berlin": 1, "bank": 2, "rates": 3, "musk": 4}

func (keywordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embedding := make([]float32, testEmbeddingDim)
	embedding[testEmbeddingDim-1] = 0.1
	lower := strings.ToLower(text)
	for keyword, axis := range keywordAxes {
		if strings.Contains(lower, keyword) {
			embedding[axis] = 1
		}
	}
	return embedding, nil
}

func (e keywordEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.GenerateEmbedding(ctx, text)
	}
	return out, nil
}

// vocabularyEntities is an entity extractor over a fixed vocabulary.
func vocabularyEntities(text string) ([]pipeline.ExtractedEntity, error) {
	vocabulary := []struct {
		name       string
		entityType model.EntityType
	}{
		{"Tesla", model.EntityTypeOrganization},
		{"Elon Musk", model.EntityTypePerson},
		{"Berlin", model.EntityTypeLocation},
		{"ECB", model.EntityTypeOrganization},
	}
	var entities []pipeline.ExtractedEntity
	for _, v := range vocabulary {
		if i := strings.Index(text, v.name); i >= 0 {
			entities = append(entities, pipeline.ExtractedEntity{
				Name:       v.name,
				Type:       v.entityType,
				Confidence: 0.9,
				Start:      i,
				End:        i + len(v.name),
				Context:    text,
			})
		}
	}
	return entities, nil
}

type cannedModel struct {
	answer string
	mu     sync.Mutex
	prompt string
}

func (c *cannedModel) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = messages[len(messages)-1].Message
	return c.answer, nil
}

func (c *cannedModel) ModelName() string {
	return "canned"
}

func initNewsgraph(t *testing.T, opts ...Option) *Newsgraph {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithEmbedder(keywordEmbedder{}),
	}, opts...)
	n, err := NewNewsgraph(dbConfig, testEmbeddingDim, opts...)
	require.NoError(t, err, "failed to create newsgraph")

	_, err = n.DB.Instance.Exec(`TRUNCATE articles, chunks, entities, article_entities, graph_entities, graph_articles, graph_mentions, graph_relationships CASCADE`)
	require.NoError(t, err, "failed to reset tables")

	t.Cleanup(func() {
		n.Close()
	})

	return n
}

func initPipeline(n *Newsgraph) {
	p := pipeline.NewPipeline(pipeline.ParagraphChunker(), keywordEmbedder{}.GenerateEmbedding)
	p.SetEntityExtractor(vocabularyEntities)
	p.SetRelationExtractor(pipeline.CoOccurrenceRelationExtractor(pipeline.DefaultCoOccurrenceWindow))
	n.SetPipeline(p)
}

func ptr[T any](v T) *T {
	return &v
}

func TestNewNewsgraph(t *testing.T) {
	t.Run("Valid call NewNewsgraph", func(t *testing.T) {
		n := initNewsgraph(t)
		assert.NotNil(t, n.DB, "Expected newsgraph to have a database instance")
		assert.NotNil(t, n.Articles, "Expected newsgraph to have articles handler")
		assert.NotNil(t, n.Chunks, "Expected newsgraph to have chunks handler")
		assert.NotNil(t, n.Entities, "Expected newsgraph to have entities handler")
		assert.NotNil(t, n.GraphDB, "Expected newsgraph to have graph handler")
		assert.True(t, n.Graph.Available(), "Expected graph layer to be available")
		assert.NotNil(t, n.Retriever, "Expected newsgraph to have a retriever")
		assert.NotNil(t, n.Chat, "Expected newsgraph to have an orchestrator")
		assert.Nil(t, n.Pipeline, "Expected pipeline to be nil initially")
	})

	t.Run("Invalid configuration", func(t *testing.T) {
		_, err := NewNewsgraph(nil, testEmbeddingDim)
		assert.Error(t, err, "Expected error for nil configuration")
	})

	t.Run("Newsgraph with nil database handles Close gracefully", func(t *testing.T) {
		n := &Newsgraph{}
		assert.NoError(t, n.Close(), "Expected Close to handle nil DB gracefully")
	})
}

func TestSetPipeline(t *testing.T) {
	n := initNewsgraph(t)

	t.Run("Embedder pipeline", func(t *testing.T) {
		require.NoError(t, n.UseEmbedderPipeline())
		assert.NotNil(t, n.Pipeline)
		assert.Nil(t, n.Pipeline.EntityExtractor)
	})

	t.Run("Embedder pipeline without embedder", func(t *testing.T) {
		bare := &Newsgraph{}
		assert.Error(t, bare.UseEmbedderPipeline())
	})

	t.Run("Custom pipeline", func(t *testing.T) {
		initPipeline(n)
		assert.NotNil(t, n.Pipeline.EntityExtractor)
		assert.NotNil(t, n.Pipeline.RelationExtractor)
	})
}

func TestIngestArticle(t *testing.T) {
	ctx := context.Background()
	n := initNewsgraph(t)

	t.Run("Ingest without pipeline", func(t *testing.T) {
		_, err := n.IngestArticle(ctx, &model.Article{Title: "x", Content: "y"})
		assert.Error(t, err, "Expected error without pipeline")
	})

	initPipeline(n)

	t.Run("Ingest empty article", func(t *testing.T) {
		_, err := n.IngestArticle(ctx, &model.Article{Title: "Empty"})
		assert.Error(t, err, "Expected error for empty content")
	})

	t.Run("Ingest writes relational and graph records", func(t *testing.T) {
		published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		article := &model.Article{
			Title:       "Tesla expands Berlin factory",
			Content:     "Tesla will expand its factory near Berlin.\n\nElon Musk visited the site on Monday.",
			Source:      ptr("Reuters"),
			URL:         ptr("https://example.com/tesla-berlin"),
			PublishedAt: &published,
		}

		result, err := n.IngestArticle(ctx, article)
		require.NoError(t, err)
		assert.NotZero(t, article.ID, "Expected the article id to be assigned")
		assert.Equal(t, article.ID, result.ArticleID)
		assert.Equal(t, 2, result.Chunks)
		assert.Equal(t, 3, result.Entities)
		assert.Equal(t, 1, result.Relationships, "Expected Tesla and Berlin to co-occur")

		chunks, err := n.Chunks.SelectChunksByArticle(ctx, article.ID)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, 0, chunks[0].ChunkIndex)
		assert.Equal(t, 1, chunks[1].ChunkIndex)

		entity, err := n.Entities.SelectEntityByName(ctx, "Tesla", model.EntityTypeOrganization)
		require.NoError(t, err)
		assert.Equal(t, "Tesla", entity.Name)

		timeline := n.Graph.EntityTimeline(ctx, "Tesla", 10)
		require.NotEmpty(t, timeline)
		assert.Equal(t, "Tesla expands Berlin factory", timeline[0].Title)

		related := n.Graph.RelatedEntities(ctx, "Tesla", 2, 10)
		names := []string{}
		for _, r := range related {
			names = append(names, r.Name)
		}
		assert.Contains(t, names, "Berlin")
	})

	t.Run("Failed ingestion removes the partial article", func(t *testing.T) {
		p := pipeline.NewPipeline(pipeline.ParagraphChunker(), keywordEmbedder{}.GenerateEmbedding)
		p.SetEntityExtractor(vocabularyEntities)
		p.SetRelationExtractor(func(entities []pipeline.ExtractedEntity) []pipeline.ExtractedRelation {
			if len(entities) < 2 {
				return nil
			}
			return []pipeline.ExtractedRelation{{Source: entities[0], Target: entities[1], Type: " "}}
		})
		n.SetPipeline(p)
		defer initPipeline(n)

		article := &model.Article{
			Title:   "ECB meets in Berlin",
			Content: "The ECB met in Berlin on Thursday.",
		}
		_, err := n.IngestArticle(ctx, article)
		require.Error(t, err, "Expected the untyped relationship to fail")
		require.NotZero(t, article.ID, "Expected the article to have been inserted first")

		_, err = n.Articles.SelectArticle(ctx, article.ID)
		assert.ErrorIs(t, err, database.ErrNotFound)

		chunks, err := n.Chunks.SelectChunksByArticle(ctx, article.ID)
		require.NoError(t, err)
		assert.Empty(t, chunks)

		var links, nodes int
		err = n.DB.Instance.QueryRow(`SELECT COUNT(*) FROM article_entities WHERE article_id = $1`, article.ID).Scan(&links)
		require.NoError(t, err)
		err = n.DB.Instance.QueryRow(`SELECT COUNT(*) FROM graph_articles WHERE article_id = $1`, article.ID).Scan(&nodes)
		require.NoError(t, err)
		assert.Zero(t, links)
		assert.Zero(t, nodes)
		assert.Empty(t, n.Graph.EntityTimeline(ctx, "ECB", 10))
	})
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	chatModel := &cannedModel{answer: "Tesla is expanding its plant [Source: Tesla grows in Berlin]."}
	n := initNewsgraph(t, WithChatModel(chatModel))
	initPipeline(n)

	_, err := n.IngestArticle(ctx, &model.Article{
		Title:   "Tesla grows in Berlin",
		Content: "Tesla hires workers in Berlin for its new plant.",
		Source:  ptr("Handelsblatt"),
	})
	require.NoError(t, err)
	_, err = n.IngestArticle(ctx, &model.Article{
		Title:   "ECB holds rates",
		Content: "The ECB kept interest rates unchanged. The bank sees inflation easing.",
		Source:  ptr("FT"),
	})
	require.NoError(t, err)

	t.Run("Grounded answer", func(t *testing.T) {
		response, err := n.Ask(ctx, "", "What is Tesla doing in Berlin?")
		require.NoError(t, err)
		assert.NotEmpty(t, response.ConversationID)
		assert.False(t, response.Fallback)
		assert.Equal(t, "canned", response.ModelUsed)
		require.NotEmpty(t, response.Sources)
		assert.Equal(t, "Tesla grows in Berlin", response.Sources[0].Title)
		require.Len(t, response.Citations, 1)
		assert.Equal(t, "Handelsblatt", response.Citations[0].Publication)
		assert.Contains(t, chatModel.prompt, "Tesla grows in Berlin")
		assert.Len(t, n.Chat.History(response.ConversationID), 2)
	})

	t.Run("Hybrid search", func(t *testing.T) {
		result := n.Retriever.HybridSearch(ctx, "Tesla in Berlin", model.SearchTypeHybrid, 5, true)
		require.NotEmpty(t, result.Articles)
		assert.Equal(t, "Tesla grows in Berlin", result.Articles[0].Title)
		assert.Contains(t, result.QueryEntities, "Tesla")
	})

	t.Run("Graph statistics", func(t *testing.T) {
		stats := n.Graph.GraphStatistics(ctx)
		assert.GreaterOrEqual(t, stats.TotalArticles, 2)
		assert.GreaterOrEqual(t, stats.TotalEntities, 3)
	})
}

func TestChangeIndexType(t *testing.T) {
	n := initNewsgraph(t)
	err := n.ChangeIndexType(context.Background(), database.VectorIndex{Type: database.IndexTypeIVFFlat, Lists: 10})
	assert.NoError(t, err)
	err = n.ChangeIndexType(context.Background(), database.VectorIndex{Type: database.IndexTypeHNSW})
	assert.NoError(t, err)
}
