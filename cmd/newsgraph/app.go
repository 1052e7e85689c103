package main

import (
	"log/slog"
	"os"

	"github.com/siherrmann/newsgraph"
	"github.com/siherrmann/newsgraph/ai/openai"
	"github.com/siherrmann/newsgraph/core/pipeline"
	"github.com/siherrmann/newsgraph/helper"
)

// appConfig is read from the environment, a .env file is loaded first.
type appConfig struct {
	LocalModels    bool
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int
	Temperature    float64
	MaxTokens      int
	APIKey         string
	BaseURL        string
	Port           string
	LogLevel       slog.Level
}

func loadAppConfig() appConfig {
	helper.LoadEnv(nil)

	config := appConfig{
		LocalModels:    helper.GetEnvBool("NEWSGRAPH_LOCAL_MODELS", true),
		ChatModel:      helper.GetEnvString("NEWSGRAPH_CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: helper.GetEnvString("NEWSGRAPH_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:   helper.GetEnvInt("NEWSGRAPH_EMBEDDING_DIM", pipeline.DefaultEmbeddingDim),
		Temperature:    helper.GetEnvFloat("NEWSGRAPH_TEMPERATURE", 0.3),
		MaxTokens:      helper.GetEnvInt("NEWSGRAPH_MAX_TOKENS", 1000),
		APIKey:         helper.GetEnv("OPENAI_API_KEY"),
		BaseURL:        helper.GetEnv("OPENAI_BASE_URL"),
		Port:           helper.GetEnvString("NEWSGRAPH_PORT", "8000"),
		LogLevel:       slog.LevelInfo,
	}
	if helper.GetEnvBool("NEWSGRAPH_DEBUG", false) {
		config.LogLevel = slog.LevelDebug
	}
	// The local sentence transformer has a fixed dimension.
	if config.LocalModels {
		config.EmbeddingDim = pipeline.DefaultEmbeddingDim
	}
	return config
}

// openApp connects to the database and sets up the ingestion pipeline.
// With local models embeddings and entities come from the bundled ONNX
// models, otherwise embeddings come from the OpenAI compatible endpoint.
func openApp(config appConfig) (*newsgraph.Newsgraph, *openai.Client, error) {
	logger := helper.NewLogger(os.Stderr, config.LogLevel)

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, nil, err
	}

	params := openai.NewClientParams{
		ChatModel:   config.ChatModel,
		Temperature: config.Temperature,
		MaxTokens:   config.MaxTokens,
		ChatURL:     config.BaseURL,
		ChatKey:     config.APIKey,
	}
	if !config.LocalModels {
		params.EmbeddingModel = config.EmbeddingModel
		params.EmbeddingDim = config.EmbeddingDim
		params.EmbeddingURL = config.BaseURL
		params.EmbeddingKey = config.APIKey
	}
	client := openai.NewClient(params)
	if !client.ChatAvailable() {
		logger.Warn("No chat endpoint configured, answers fall back to the default response")
	}

	opts := []newsgraph.Option{
		newsgraph.WithLogger(logger),
		newsgraph.WithChatModel(client),
	}
	if !config.LocalModels {
		opts = append(opts, newsgraph.WithEmbedder(client))
	}

	n, err := newsgraph.NewNewsgraph(dbConfig, config.EmbeddingDim, opts...)
	if err != nil {
		return nil, nil, err
	}

	if config.LocalModels {
		err = n.UseDefaultPipeline()
	} else {
		err = n.UseEmbedderPipeline()
	}
	if err != nil {
		_ = n.Close()
		return nil, nil, err
	}

	return n, client, nil
}
