package server

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/siherrmann/newsgraph/model"
)

const (
	defaultSearchLimit       = 10
	defaultEntitySearchLimit = 20
	defaultSimilarLimit      = 5
)

func (s *Server) postHybridSearch(c echo.Context) error {
	type postHybridSearchParams struct {
		Query           string `json:"query" validate:"required,max=1000"`
		SearchType      string `json:"search_type" validate:"omitempty,oneof=vector graph hybrid"`
		Limit           int    `json:"limit" validate:"omitempty,min=1,max=50"`
		IncludeEntities *bool  `json:"include_entities"`
	}

	params := new(postHybridSearchParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if s.services.Search == nil {
		return unavailable(c)
	}

	searchType, err := model.ParseSearchType(params.SearchType)
	if err != nil {
		return badRequest(c)
	}
	limit := params.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	includeEntities := params.IncludeEntities == nil || *params.IncludeEntities

	result := s.services.Search.HybridSearch(c.Request().Context(), params.Query, searchType, limit, includeEntities)
	s.services.Metrics.ObserveRetrieval(searchType, len(result.Articles))

	return c.JSON(http.StatusOK, result)
}

func (s *Server) getEntitySearch(c echo.Context) error {
	type getEntitySearchParams struct {
		Query string `query:"q" validate:"required,max=200"`
		Type  string `query:"type"`
		Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
	}

	params := new(getEntitySearchParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if s.services.Search == nil {
		return unavailable(c)
	}

	var entityType *model.EntityType
	if params.Type != "" {
		parsed, err := model.ParseEntityType(params.Type)
		if err != nil {
			return badRequest(c)
		}
		entityType = &parsed
	}
	limit := params.Limit
	if limit == 0 {
		limit = defaultEntitySearchLimit
	}

	return c.JSON(http.StatusOK, s.services.Search.SearchEntities(c.Request().Context(), params.Query, entityType, limit))
}

func (s *Server) getEntityTimeline(c echo.Context) error {
	type getEntityTimelineParams struct {
		Name  string `param:"name" validate:"required,max=200"`
		Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
	}

	type responseData struct {
		Entity   string                `json:"entity"`
		Timeline []model.TimelineEvent `json:"timeline"`
	}

	params := new(getEntityTimelineParams)
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
	if s.services.Search == nil {
		return unavailable(c)
	}

	limit := params.Limit
	if limit == 0 {
		limit = s.config.TimelineLimit
	}

	return c.JSON(http.StatusOK, responseData{
		Entity:   params.Name,
		Timeline: s.services.Search.EntityTimeline(c.Request().Context(), params.Name, limit),
	})
}

func (s *Server) getRelatedEntities(c echo.Context) error {
	type getRelatedEntitiesParams struct {
		Name     string `param:"name" validate:"required,max=200"`
		MaxDepth int    `query:"max_depth" validate:"omitempty,min=1"`
		Limit    int    `query:"limit" validate:"omitempty,min=1,max=100"`
	}

	type responseData struct {
		Entity          string                `json:"entity"`
		RelatedEntities []model.RelatedEntity `json:"related_entities"`
	}

	params := new(getRelatedEntitiesParams)
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
	if s.services.Search == nil {
		return unavailable(c)
	}

	maxDepth := params.MaxDepth
	if maxDepth == 0 {
		maxDepth = s.config.MaxDepth
	}
	limit := params.Limit
	if limit == 0 {
		limit = s.config.RelatedLimit
	}

	return c.JSON(http.StatusOK, responseData{
		Entity:          params.Name,
		RelatedEntities: s.services.Search.RelatedEntities(c.Request().Context(), params.Name, model.ClampDepth(maxDepth), limit),
	})
}

func (s *Server) getSimilarArticles(c echo.Context) error {
	type getSimilarArticlesParams struct {
		ID        int    `param:"id" validate:"required,min=1"`
		Limit     int    `query:"limit" validate:"omitempty,min=1,max=50"`
		Threshold string `query:"threshold" validate:"omitempty,numeric"`
	}

	params := new(getSimilarArticlesParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if s.services.Search == nil {
		return unavailable(c)
	}

	limit := params.Limit
	if limit == 0 {
		limit = defaultSimilarLimit
	}
	threshold := s.config.SimilarityThreshold
	if params.Threshold != "" {
		parsed, err := strconv.ParseFloat(params.Threshold, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return badRequest(c)
		}
		threshold = parsed
	}

	return c.JSON(http.StatusOK, s.services.Search.FindSimilarArticles(c.Request().Context(), params.ID, limit, threshold))
}
