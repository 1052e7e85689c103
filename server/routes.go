package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) registerRoutes() {
	e := s.Echo

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	if s.services.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.services.Metrics.Handler()))
	}

	api := e.Group("/api/v1")

	// Chat routes
	api.POST("/chat", s.postChat)
	api.GET("/chat/:conversation_id", s.getConversation)
	api.DELETE("/chat/:conversation_id", s.deleteConversation)

	// Search routes
	api.POST("/search/hybrid", s.postHybridSearch)
	api.GET("/entities/search", s.getEntitySearch)
	api.GET("/entities/:name/timeline", s.getEntityTimeline)
	api.GET("/entities/:name/timeline/summary", s.getTimelineSummary)
	api.GET("/entities/:name/related", s.getRelatedEntities)
	api.GET("/articles/:id/similar", s.getSimilarArticles)

	// Citation and graph routes
	api.GET("/articles/:id/verify", s.getArticleVerification)
	api.GET("/graph/stats", s.getGraphStatistics)

	// Flashcard routes
	api.POST("/flashcards", s.postFlashcards)
	api.GET("/flashcards", s.getFlashcards)
}
