package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	loadSql "github.com/siherrmann/newsgraph/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(ctx context.Context, chunk *model.Chunk) error
	DeleteChunksByArticle(ctx context.Context, articleID int) error
	SelectChunksByArticle(ctx context.Context, articleID int) ([]*model.Chunk, error)
	SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Chunk, error)
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// The articles table must exist before, chunks reference it.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates the vector index.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a new chunk
func (h *ChunksDBHandler) InsertChunk(ctx context.Context, chunk *model.Chunk) error {
	if chunk.ChunkIndex < 0 {
		return helper.NewError("insert chunk", fmt.Errorf("chunk index must not be negative, got %d", chunk.ChunkIndex))
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_chunk($1, $2, $3, $4)`,
		chunk.ArticleID,
		chunk.ChunkIndex,
		chunk.Content,
		vectorArg(chunk.Embedding),
	)

	err := row.Scan(
		&chunk.ID,
		&chunk.ArticleID,
		&chunk.ChunkIndex,
		&chunk.Content,
		pq.Array(&chunk.Embedding),
		&chunk.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteChunksByArticle deletes all chunks of an article
func (h *ChunksDBHandler) DeleteChunksByArticle(ctx context.Context, articleID int) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_chunks_by_article($1)`, articleID)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectChunksByArticle retrieves all chunks for an article ordered by index
func (h *ChunksDBHandler) SelectChunksByArticle(ctx context.Context, articleID int) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_chunks_by_article($1)`, articleID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	chunks := []*model.Chunk{}
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.ArticleID,
			&chunk.ChunkIndex,
			&chunk.Content,
			pq.Array(&chunk.Embedding),
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksBySimilarity finds chunks at least threshold similar to embedding.
// Results are ordered by descending similarity and carry it in Similarity.
func (h *ChunksDBHandler) SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Chunk, error) {
	if len(embedding) == 0 {
		return nil, helper.NewError("similarity search", fmt.Errorf("embedding is empty"))
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3)`,
		vectorArg(embedding),
		threshold,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	chunks := []*model.Chunk{}
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.ArticleID,
			&chunk.ChunkIndex,
			&chunk.Content,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}
