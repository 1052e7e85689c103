package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	loadSql "github.com/siherrmann/newsgraph/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(ctx context.Context, entity *model.Entity) error
	DeleteEntity(ctx context.Context, id uuid.UUID) error
	SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error)
	SelectEntityByName(ctx context.Context, name string, entityType model.EntityType) (*model.Entity, error)
	SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) ([]model.EntitySearchResult, error)
	LinkArticleEntity(ctx context.Context, articleID int, entityID uuid.UUID) error
}

// EntitiesDBHandler handles the relational entity table and its article links
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// The articles table must exist before, article links reference it.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' and 'article_entities' tables.
// If the tables already exist, it does not create them again.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts an entity or merges its metadata into the existing (name, type) row.
func (h *EntitiesDBHandler) InsertEntity(ctx context.Context, entity *model.Entity) error {
	if !entity.Type.Valid() {
		return helper.NewError("insert entity", fmt.Errorf("%w: %q", model.ErrInvalidEntityType, entity.Type))
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_entity($1, $2, $3)`,
		entity.Name,
		string(entity.Type),
		entity.Metadata,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteEntity deletes an entity by ID
func (h *EntitiesDBHandler) DeleteEntity(ctx context.Context, id uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_entity($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_entity($1)`, id)

	entity := &model.Entity{}
	err := scanEntity(row, entity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.NewError("select entity", fmt.Errorf("entity %s: %w", id, ErrNotFound))
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityByName retrieves the entity with the exact name and type
func (h *EntitiesDBHandler) SelectEntityByName(ctx context.Context, name string, entityType model.EntityType) (*model.Entity, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_entity_by_name($1, $2)`, name, string(entityType))

	entity := &model.Entity{}
	err := scanEntity(row, entity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.NewError("select entity", fmt.Errorf("entity %s/%s: %w", name, entityType, ErrNotFound))
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SearchEntities finds entities whose name contains query, case-insensitive.
// Results are ranked by the number of linked articles.
func (h *EntitiesDBHandler) SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) ([]model.EntitySearchResult, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_entities($1, $2, $3)`,
		query,
		entityTypeArg(entityType),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntitySearchResults(rows)
}

// LinkArticleEntity records that an article mentions an entity. Linking twice is a no-op.
func (h *EntitiesDBHandler) LinkArticleEntity(ctx context.Context, articleID int, entityID uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT link_article_entity($1, $2)`, articleID, entityID)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanEntity(row rowScanner, entity *model.Entity) error {
	var entityType string
	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entityType,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return err
	}
	entity.Type = model.EntityType(entityType)
	return nil
}

func scanEntitySearchResults(rows *sql.Rows) ([]model.EntitySearchResult, error) {
	results := []model.EntitySearchResult{}
	for rows.Next() {
		var result model.EntitySearchResult
		var entityType string
		err := rows.Scan(&result.Name, &entityType, &result.MentionCount)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		result.Type = model.EntityType(entityType)
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}
