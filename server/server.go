// Package server exposes the news knowledge base over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/siherrmann/newsgraph/metrics"
	"github.com/siherrmann/newsgraph/model"
)

// ChatService answers conversation turns.
type ChatService interface {
	ProcessMessage(ctx context.Context, conversationID string, message string) (*model.ChatResponse, error)
	History(conversationID string) []model.Message
	ClearHistory(conversationID string)
}

// SearchService runs searches against the knowledge base.
type SearchService interface {
	HybridSearch(ctx context.Context, query string, searchType model.SearchType, limit int, includeEntities bool) model.HybridResult
	SearchEntities(ctx context.Context, query string, entityType *model.EntityType, limit int) []model.EntitySearchResult
	FindSimilarArticles(ctx context.Context, id int, limit int, threshold float64) []model.RetrievedArticle
	EntityTimeline(ctx context.Context, name string, limit int) []model.TimelineEvent
	RelatedEntities(ctx context.Context, name string, maxDepth int, limit int) []model.RelatedEntity
}

// GraphService reports on the knowledge graph.
type GraphService interface {
	GraphStatistics(ctx context.Context) model.GraphStatistics
	TimelineSummary(ctx context.Context, name string, start time.Time, end time.Time) model.TimelineSummary
}

// FlashcardService condenses recent news into flashcards.
type FlashcardService interface {
	GenerateFlashcards(ctx context.Context, request model.FlashcardRequest) []model.Flashcard
}

// ArticleStore reads single articles.
type ArticleStore interface {
	SelectArticle(ctx context.Context, id int) (*model.Article, error)
}

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// Services bundles the backends of the HTTP handlers.
type Services struct {
	Chat       ChatService
	Search     SearchService
	Graph      GraphService
	Articles   ArticleStore
	Flashcards FlashcardService
	Metrics    *metrics.Metrics
}

// Server is the HTTP surface.
type Server struct {
	Echo     *echo.Echo
	services Services
	config   model.RetrievalConfig
	logger   *slog.Logger
}

// New creates the echo instance with middleware and routes registered.
func New(services Services, config model.RetrievalConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug(
				"Request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	s := &Server{
		Echo:     e,
		services: services,
		config:   config,
		logger:   logger,
	}
	s.registerRoutes()

	return s
}

// Run serves on addr until ctx is done and shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errs := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", slog.String("addr", addr))
		if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown server", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
}

func unavailable(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Service unavailable"})
}
