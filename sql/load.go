package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed articles.sql
var articlesSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed graph.sql
var graphSQL string

// Function lists for verification
var ArticlesFunctions = []string{
	"init_articles",
	"insert_article",
	"select_article",
	"select_articles_by_ids",
	"select_articles_by_similarity",
	"delete_article",
}

var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"select_chunks_by_article",
	"select_chunks_by_similarity",
	"delete_chunks_by_article",
}

var EntitiesFunctions = []string{
	"init_entities",
	"insert_entity",
	"select_entity",
	"select_entity_by_name",
	"search_entities",
	"link_article_entity",
	"delete_entity",
}

var GraphFunctions = []string{
	"init_graph",
	"merge_graph_entity",
	"merge_graph_article",
	"delete_graph_article",
	"merge_graph_mention",
	"merge_graph_relationship",
	"select_graph_entities_by_name",
	"select_graph_entities_by_ids",
	"select_graph_relationships",
	"select_entity_timeline",
	"search_graph_entities",
	"select_graph_statistics",
	"select_graph_entity_type_counts",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadArticlesSql loads article-related SQL functions
func LoadArticlesSql(db *sql.DB, force bool) error {
	return loadSql(db, "articles", articlesSQL, ArticlesFunctions, force)
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadSql(db, "chunks", chunksSQL, ChunksFunctions, force)
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSql(db, "entities", entitiesSQL, EntitiesFunctions, force)
}

// LoadGraphSql loads the graph store functions
func LoadGraphSql(db *sql.DB, force bool) error {
	return loadSql(db, "graph", graphSQL, GraphFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadArticlesSql(db, force); err != nil {
		return err
	}

	if err := LoadChunksSql(db, force); err != nil {
		return err
	}

	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadGraphSql(db, force); err != nil {
		return err
	}

	return nil
}

func loadSql(db *sql.DB, name string, sqlText string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(sqlText)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", name)
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
