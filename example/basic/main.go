package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/siherrmann/newsgraph"
	"github.com/siherrmann/newsgraph/ai/openai"
	"github.com/siherrmann/newsgraph/core/citation"
	"github.com/siherrmann/newsgraph/core/pipeline"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

var articles = []*model.Article{
	{
		Title:   "Tesla expands production in Berlin",
		Content: "Tesla announced a major expansion of its factory near Berlin. Elon Musk said the plant will double its output.\n\nThe state government of Brandenburg welcomed the investment.",
		Source:  ptr("Reuters"),
	},
	{
		Title:   "SpaceX prepares next Starship launch",
		Content: "SpaceX is preparing another Starship test flight from Texas. Elon Musk expects the launch within weeks.",
		Source:  ptr("Associated Press"),
	},
}

func ptr[T any](v T) *T {
	return &v
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "newsgraph",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Answers need a language model, everything else runs locally.
	client := openai.NewClient(openai.NewClientParams{
		ChatModel: helper.GetEnvString("NEWSGRAPH_CHAT_MODEL", "gpt-4o-mini"),
		ChatKey:   os.Getenv("OPENAI_API_KEY"),
		ChatURL:   os.Getenv("OPENAI_BASE_URL"),
	})

	n, err := newsgraph.NewNewsgraph(dbConfig, pipeline.DefaultEmbeddingDim, newsgraph.WithChatModel(client))
	if err != nil {
		log.Fatalf("Failed to create newsgraph: %v", err)
	}
	defer n.Close()

	// Local semantic chunking, embeddings and NER
	if err := n.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	for i, article := range articles {
		published := time.Now().AddDate(0, 0, -i)
		article.PublishedAt = &published

		result, err := n.IngestArticle(ctx, article)
		if err != nil {
			log.Fatalf("Failed to ingest article: %v", err)
		}
		fmt.Printf("Ingested %q: %d chunks, %d entities, %d relationships\n", article.Title, result.Chunks, result.Entities, result.Relationships)
	}

	fmt.Println("\nHybrid search: Elon Musk")
	result := n.Retriever.HybridSearch(ctx, "What is Elon Musk working on?", model.SearchTypeHybrid, 5, true)
	for _, article := range result.Articles {
		fmt.Printf("  - %s (graph: %v)\n", article.Title, article.FromGraph)
	}

	fmt.Println("\nTimeline: Tesla")
	for _, event := range n.Graph.EntityTimeline(ctx, "Tesla", 10) {
		fmt.Printf("  - %s\n", event.Title)
	}

	fmt.Println("\nRelated to Tesla")
	for _, related := range n.Graph.RelatedEntities(ctx, "Tesla", 2, 5) {
		fmt.Printf("  - %s (%s, distance %d, strength %d)\n", related.Name, related.Type, related.Distance, related.ConnectionStrength)
	}

	if !client.ChatAvailable() {
		fmt.Println("\nSet OPENAI_API_KEY to ask questions.")
		return
	}

	response, err := n.Ask(ctx, "", "What is Tesla doing in Berlin?")
	if err != nil {
		log.Fatalf("Failed to ask: %v", err)
	}
	fmt.Printf("\nAnswer (%s):\n%s\n", citation.QualityLabel(response.Quality.QualityScore), response.Response)
	for _, citation := range response.Citations {
		fmt.Printf("  [%s] %s - %s\n", citation.ID, citation.Title, citation.Publication)
	}
}
