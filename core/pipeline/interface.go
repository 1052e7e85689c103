package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// ChunkFunc splits an article text into chunk contents, in text order.
type ChunkFunc func(text string) ([]string, error)

// EmbedFunc generates the embedding of a text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// EntityExtractFunc extracts the named entities of a text.
type EntityExtractFunc func(text string) ([]ExtractedEntity, error)

// RelationExtractFunc derives entity relationships from the entities of one chunk.
type RelationExtractFunc func(entities []ExtractedEntity) []ExtractedRelation

// ExtractedEntity is an entity found in a text. Start and End are byte
// offsets into the text it was extracted from.
type ExtractedEntity struct {
	Name       string
	Type       model.EntityType
	Confidence float64
	Start      int
	End        int
	Context    string
}

// Key identifies the entity independent of where it was found.
func (e ExtractedEntity) Key() string {
	return string(e.Type) + ":" + strings.ToLower(e.Name)
}

// ExtractedRelation is an undirected relationship between two extracted entities.
type ExtractedRelation struct {
	Source ExtractedEntity
	Target ExtractedEntity
	Type   string
	Weight float64
}

func (r ExtractedRelation) key() string {
	a, b := r.Source.Key(), r.Target.Key()
	if a > b {
		a, b = b, a
	}
	return r.Type + "|" + a + "|" + b
}

// Pipeline turns an article into chunks with embeddings and optionally
// entities and relations.
type Pipeline struct {
	Chunker           ChunkFunc
	Embedder          EmbedFunc
	EntityExtractor   EntityExtractFunc   // Optional
	RelationExtractor RelationExtractFunc // Optional
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// SetEntityExtractor sets the entity extraction function
func (p *Pipeline) SetEntityExtractor(extractor EntityExtractFunc) {
	p.EntityExtractor = extractor
}

// SetRelationExtractor sets the relation extraction function
func (p *Pipeline) SetRelationExtractor(extractor RelationExtractFunc) {
	p.RelationExtractor = extractor
}

// ProcessingResult contains the derived records of one article.
// Entities and Relations are deduplicated, entities keep their highest
// confidence and the context of their first mention.
type ProcessingResult struct {
	ArticleEmbedding []float32
	Chunks           []*model.Chunk
	Entities         []ExtractedEntity
	Relations        []ExtractedRelation
}

// Process chunks and embeds article. Chunk indices are contiguous from 0.
// Chunking and embedding errors abort processing, extraction errors only
// drop the entities of the affected chunk.
func (p *Pipeline) Process(ctx context.Context, article *model.Article) (*ProcessingResult, error) {
	if p.Chunker == nil || p.Embedder == nil {
		return nil, helper.NewError("process article", fmt.Errorf("chunker and embedder must be set"))
	}

	articleEmbedding, err := p.Embedder(ctx, articleText(article))
	if err != nil {
		return nil, helper.NewError("embed article", err)
	}

	contents, err := p.Chunker(article.Content)
	if err != nil {
		return nil, helper.NewError("chunk article", err)
	}

	result := &ProcessingResult{
		ArticleEmbedding: articleEmbedding,
		Chunks:           make([]*model.Chunk, 0, len(contents)),
	}
	entityIndex := map[string]int{}
	relationSeen := map[string]bool{}

	for _, content := range contents {
		if strings.TrimSpace(content) == "" {
			continue
		}

		embedding, err := p.Embedder(ctx, content)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("embed chunk %d", len(result.Chunks)), err)
		}
		result.Chunks = append(result.Chunks, &model.Chunk{
			ArticleID:  article.ID,
			ChunkIndex: len(result.Chunks),
			Content:    content,
			Embedding:  embedding,
		})

		if p.EntityExtractor == nil {
			continue
		}
		entities, err := p.EntityExtractor(content)
		if err != nil {
			continue
		}
		for _, entity := range entities {
			if i, ok := entityIndex[entity.Key()]; ok {
				result.Entities[i].Confidence = max(result.Entities[i].Confidence, entity.Confidence)
				continue
			}
			entityIndex[entity.Key()] = len(result.Entities)
			result.Entities = append(result.Entities, entity)
		}

		if p.RelationExtractor == nil {
			continue
		}
		for _, relation := range p.RelationExtractor(entities) {
			if !relationSeen[relation.key()] {
				relationSeen[relation.key()] = true
				result.Relations = append(result.Relations, relation)
			}
		}
	}

	return result, nil
}

// articleText is the text an article level embedding is computed from.
func articleText(article *model.Article) string {
	if article.Title == "" {
		return article.Content
	}
	return article.Title + "\n\n" + article.Content
}
