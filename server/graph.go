package server

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/siherrmann/newsgraph/core/citation"
	"github.com/siherrmann/newsgraph/core/graph"
	"github.com/siherrmann/newsgraph/core/retrieval"
	"github.com/siherrmann/newsgraph/database"
	"github.com/siherrmann/newsgraph/model"
)

func (s *Server) getArticleVerification(c echo.Context) error {
	type getArticleVerificationParams struct {
		ID         int    `param:"id" validate:"required,min=1"`
		CitationID string `query:"citation_id" validate:"max=64"`
	}

	type responseData struct {
		ArticleID int `json:"article_id"`
		citation.Verification
	}

	params := new(getArticleVerificationParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if s.services.Articles == nil {
		return unavailable(c)
	}

	article, err := s.services.Articles.SelectArticle(c.Request().Context(), params.ID)
	if errors.Is(err, database.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Article not found"})
	}
	if err != nil {
		s.logger.Error("Failed to get article", slog.Int("article_id", params.ID), slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	c.Response().Header().Set("Cache-Control", "max-age=300")
	return c.JSON(http.StatusOK, responseData{
		ArticleID:    article.ID,
		Verification: citation.VerificationData(articleCitation(params.CitationID, article)),
	})
}

// articleCitation describes a stored article the way a resolved citation does.
func articleCitation(citationID string, article *model.Article) model.Citation {
	c := model.Citation{
		ID:          citationID,
		SourceName:  article.Title,
		Title:       article.Title,
		URL:         article.URL,
		Publication: article.SourceName("Unknown"),
		PublishedAt: article.PublishedAt,
	}
	if article.Content != "" {
		snippet := retrieval.Truncate(article.Content, citation.SnippetLength)
		c.Snippet = &snippet
	}
	verificationURL := citation.VerificationURL(article.ID)
	c.VerificationURL = &verificationURL
	return c
}

func (s *Server) getGraphStatistics(c echo.Context) error {
	if s.services.Graph == nil {
		return unavailable(c)
	}
	return c.JSON(http.StatusOK, s.services.Graph.GraphStatistics(c.Request().Context()))
}

func (s *Server) getTimelineSummary(c echo.Context) error {
	type getTimelineSummaryParams struct {
		Name     string `param:"name" validate:"required,max=200"`
		DaysBack int    `query:"days_back" validate:"omitempty,min=1,max=365"`
	}

	params := new(getTimelineSummaryParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	name, err := url.PathUnescape(params.Name)
	if err != nil {
		return badRequest(c)
	}
	params.Name = name
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if s.services.Graph == nil {
		return unavailable(c)
	}

	days := params.DaysBack
	if days == 0 {
		days = graph.DefaultSummaryDays
	}
	end := time.Now().UTC()

	return c.JSON(http.StatusOK, s.services.Graph.TimelineSummary(c.Request().Context(), params.Name, end.AddDate(0, 0, -days), end))
}
