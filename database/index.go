package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/newsgraph/helper"
)

type IndexType string

const (
	IndexTypeHNSW    IndexType = "hnsw"
	IndexTypeIVFFlat IndexType = "ivfflat"
)

// VectorIndex describes a cosine vector index.
// Zero values fall back to pgvector's defaults:
//   - HNSW: M 16, EfConstruction 64
//   - IVFFlat: Lists 100
type VectorIndex struct {
	Type           IndexType
	M              int
	EfConstruction int
	Lists          int
}

// ChangeIndexType rebuilds the chunk embedding index.
func (h *ChunksDBHandler) ChangeIndexType(ctx context.Context, index VectorIndex) error {
	return rebuildVectorIndex(ctx, h.db, "chunks", index)
}

// ChangeIndexType rebuilds the article embedding index.
func (h *ArticlesDBHandler) ChangeIndexType(ctx context.Context, index VectorIndex) error {
	return rebuildVectorIndex(ctx, h.db, "articles", index)
}

func (v VectorIndex) createStatement(table string) (string, error) {
	indexName := fmt.Sprintf("idx_%s_embedding", table)

	switch v.Type {
	case IndexTypeHNSW:
		m := 16
		efConstruction := 64
		if v.M > 0 {
			m = v.M
		}
		if v.EfConstruction > 0 {
			efConstruction = v.EfConstruction
		}
		return fmt.Sprintf(
			`CREATE INDEX %s ON %s USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			indexName, table, m, efConstruction,
		), nil
	case IndexTypeIVFFlat:
		lists := 100
		if v.Lists > 0 {
			lists = v.Lists
		}
		return fmt.Sprintf(
			`CREATE INDEX %s ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			indexName, table, lists,
		), nil
	}
	return "", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", v.Type)
}

func rebuildVectorIndex(ctx context.Context, db *helper.Database, table string, index VectorIndex) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	createIndexSQL, err := index.createStatement(table)
	if err != nil {
		return helper.NewError("change index type", err)
	}

	_, err = db.Instance.ExecContext(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS idx_%s_embedding;`, table))
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = db.Instance.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	db.Logger.Info("Rebuilt vector index", slog.String("table", table), slog.String("type", string(index.Type)))

	return nil
}
