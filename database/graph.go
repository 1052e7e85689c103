package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	loadSql "github.com/siherrmann/newsgraph/sql"
)

// GraphDBHandler is the graph store. It keeps entity nodes, article nodes,
// mention edges and entity relationships in their own tables, independent of
// the relational article store.
type GraphDBHandler struct {
	db *helper.Database
}

// NewGraphDBHandler creates a new graph database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewGraphDBHandler(db *helper.Database, force bool) (*GraphDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	graphDbHandler := &GraphDBHandler{
		db: db,
	}

	err := loadSql.LoadGraphSql(graphDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load graph sql", err)
	}

	err = graphDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized GraphDBHandler")

	return graphDbHandler, nil
}

// CreateTable creates the graph tables if they do not exist.
func (h *GraphDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_graph();`)
	if err != nil {
		log.Panicf("error initializing graph tables: %#v", err)
	}

	h.db.Logger.Info("Checked/created graph tables")

	return nil
}

// MergeEntity returns the entity node for (name, type), creating it if needed.
func (h *GraphDBHandler) MergeEntity(ctx context.Context, name string, entityType model.EntityType) (*model.Entity, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM merge_graph_entity($1, $2)`, name, string(entityType))

	entity := &model.Entity{}
	var t string
	err := row.Scan(&entity.ID, &entity.Name, &t, &entity.CreatedAt)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	entity.Type = model.EntityType(t)

	return entity, nil
}

// MergeArticle creates or updates the article node.
func (h *GraphDBHandler) MergeArticle(ctx context.Context, article *model.ArticleNode) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT merge_graph_article($1, $2, $3, $4)`,
		article.ArticleID,
		article.Title,
		article.PublishedAt,
		article.Source,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteArticle removes the article node and its mention edges.
func (h *GraphDBHandler) DeleteArticle(ctx context.Context, articleID int) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_graph_article($1)`, articleID)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// MergeMention creates the mention edge or keeps the higher confidence of both.
func (h *GraphDBHandler) MergeMention(ctx context.Context, mention *model.Mention) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT merge_graph_mention($1, $2, $3, $4)`,
		mention.ArticleID,
		mention.EntityID,
		mention.Context,
		model.ClampConfidence(mention.Confidence),
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// MergeRelationship creates the undirected relationship if it does not exist.
// The endpoints are stored in canonical order, so the relationship's
// SourceEntityID and TargetEntityID may be swapped after the call.
func (h *GraphDBHandler) MergeRelationship(ctx context.Context, relationship *model.Relationship) error {
	if relationship.SourceEntityID == relationship.TargetEntityID {
		return helper.NewError("merge relationship", fmt.Errorf("self relationship on %s", relationship.SourceEntityID))
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM merge_graph_relationship($1, $2, $3)`,
		relationship.SourceEntityID,
		relationship.TargetEntityID,
		relationship.Type,
	)

	err := row.Scan(
		&relationship.ID,
		&relationship.SourceEntityID,
		&relationship.TargetEntityID,
		&relationship.Type,
		&relationship.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntitiesByName returns all entity nodes with the exact name, one per type.
func (h *GraphDBHandler) SelectEntitiesByName(ctx context.Context, name string) ([]*model.Entity, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_graph_entities_by_name($1)`, name)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanGraphEntities(rows)
}

// SelectEntitiesByIDs returns the entity nodes for ids. Unknown IDs are skipped.
func (h *GraphDBHandler) SelectEntitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Entity, error) {
	if len(ids) == 0 {
		return []*model.Entity{}, nil
	}

	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_graph_entities_by_ids($1::uuid[])`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanGraphEntities(rows)
}

// SelectRelationships returns every relationship touching one of the entities.
func (h *GraphDBHandler) SelectRelationships(ctx context.Context, entityIDs []uuid.UUID) ([]*model.Relationship, error) {
	if len(entityIDs) == 0 {
		return []*model.Relationship{}, nil
	}

	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_graph_relationships($1::uuid[])`, pq.Array(uuidStrings(entityIDs)))
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	relationships := []*model.Relationship{}
	for rows.Next() {
		relationship := &model.Relationship{}
		err := rows.Scan(
			&relationship.ID,
			&relationship.SourceEntityID,
			&relationship.TargetEntityID,
			&relationship.Type,
			&relationship.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		relationships = append(relationships, relationship)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}

// SelectEntityTimeline returns the articles mentioning any entity named name,
// newest first with undated articles last.
func (h *GraphDBHandler) SelectEntityTimeline(ctx context.Context, name string, limit int) ([]model.TimelineEvent, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_entity_timeline($1, $2)`, name, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	events := []model.TimelineEvent{}
	for rows.Next() {
		var event model.TimelineEvent
		err := rows.Scan(&event.ArticleID, &event.Title, &event.PublishedAt, &event.Source)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return events, nil
}

// SearchEntities finds entity nodes whose name contains query, case-insensitive,
// ranked by mention count.
func (h *GraphDBHandler) SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) ([]model.EntitySearchResult, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_graph_entities($1, $2, $3)`,
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

// SelectStatistics returns whole-graph counts.
// Relationships include mention edges.
func (h *GraphDBHandler) SelectStatistics(ctx context.Context) (*model.GraphStatistics, error) {
	stats := &model.GraphStatistics{}
	err := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_graph_statistics()`).Scan(
		&stats.TotalEntities,
		&stats.TotalArticles,
		&stats.TotalRelationships,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_graph_entity_type_counts()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	stats.EntityTypeDistribution = []model.TypeCount{}
	for rows.Next() {
		var typeCount model.TypeCount
		var t string
		err := rows.Scan(&t, &typeCount.Count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		typeCount.Type = model.EntityType(t)
		stats.EntityTypeDistribution = append(stats.EntityTypeDistribution, typeCount)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return stats, nil
}

func scanGraphEntities(rows *sql.Rows) ([]*model.Entity, error) {
	entities := []*model.Entity{}
	for rows.Next() {
		entity := &model.Entity{}
		var t string
		err := rows.Scan(&entity.ID, &entity.Name, &t, &entity.CreatedAt)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entity.Type = model.EntityType(t)
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
