package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	loadSql "github.com/siherrmann/newsgraph/sql"
)

// ArticlesDBHandlerFunctions defines the interface for Articles database operations.
type ArticlesDBHandlerFunctions interface {
	InsertArticle(ctx context.Context, article *model.Article) error
	DeleteArticle(ctx context.Context, id int) error
	SelectArticle(ctx context.Context, id int) (*model.Article, error)
	SelectArticlesByIDs(ctx context.Context, ids []int) ([]*model.Article, error)
	SelectArticlesBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.RetrievedArticle, error)
}

// ArticlesDBHandler handles article-related database operations
type ArticlesDBHandler struct {
	db *helper.Database
}

// NewArticlesDBHandler creates a new articles database handler.
// It loads the article SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewArticlesDBHandler(db *helper.Database, embeddingDim int, force bool) (*ArticlesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	articlesDbHandler := &ArticlesDBHandler{
		db: db,
	}

	err := loadSql.LoadArticlesSql(articlesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load articles sql", err)
	}

	err = articlesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ArticlesDBHandler")

	return articlesDbHandler, nil
}

// CreateTable creates the 'articles' table in the database.
// If the table already exists, it does not create it again.
func (h *ArticlesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_articles($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing articles table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table articles")

	return nil
}

// InsertArticle inserts a new article and fills its generated fields.
func (h *ArticlesDBHandler) InsertArticle(ctx context.Context, article *model.Article) error {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_article($1, $2, $3, $4, $5, $6)`,
		article.Title,
		article.Content,
		article.URL,
		article.PublishedAt,
		article.Source,
		vectorArg(article.Embedding),
	)

	err := scanArticle(row, article)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteArticle deletes an article by ID. Chunks and entity links cascade.
func (h *ArticlesDBHandler) DeleteArticle(ctx context.Context, id int) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_article($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectArticle retrieves an article by ID.
// It returns ErrNotFound if no article has that ID.
func (h *ArticlesDBHandler) SelectArticle(ctx context.Context, id int) (*model.Article, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_article($1)`, id)

	article := &model.Article{}
	err := scanArticle(row, article)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.NewError("select article", fmt.Errorf("article %d: %w", id, ErrNotFound))
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return article, nil
}

// SelectArticlesByIDs retrieves articles in the order of ids.
// Unknown IDs are skipped.
func (h *ArticlesDBHandler) SelectArticlesByIDs(ctx context.Context, ids []int) ([]*model.Article, error) {
	if len(ids) == 0 {
		return []*model.Article{}, nil
	}

	ids64 := make([]int64, len(ids))
	for i, id := range ids {
		ids64[i] = int64(id)
	}

	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_articles_by_ids($1)`, pq.Array(ids64))
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	articles := []*model.Article{}
	for rows.Next() {
		article := &model.Article{}
		err := scanArticle(rows, article)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		articles = append(articles, article)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return articles, nil
}

// SelectArticlesBySimilarity finds articles whose embedding is at least threshold similar.
// Results are ordered by descending similarity.
func (h *ArticlesDBHandler) SelectArticlesBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.RetrievedArticle, error) {
	if len(embedding) == 0 {
		return nil, helper.NewError("similarity search", fmt.Errorf("embedding is empty"))
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_articles_by_similarity($1, $2, $3)`,
		vectorArg(embedding),
		threshold,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	articles := []*model.RetrievedArticle{}
	for rows.Next() {
		article := &model.RetrievedArticle{}
		var similarity float64
		err := rows.Scan(
			&article.ID,
			&article.Title,
			&article.Content,
			&article.URL,
			&article.PublishedAt,
			&article.Source,
			&similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		article.SimilarityScore = &similarity
		articles = append(articles, article)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return articles, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner, article *model.Article) error {
	return row.Scan(
		&article.ID,
		&article.Title,
		&article.Content,
		&article.URL,
		&article.PublishedAt,
		&article.Source,
		pq.Array(&article.Embedding),
		&article.CreatedAt,
	)
}
