package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/siherrmann/newsgraph/model"
)

const defaultFlashcardDays = 7

type flashcardsResponse struct {
	Flashcards []model.Flashcard `json:"flashcards"`
	Total      int               `json:"total"`
}

func (s *Server) postFlashcards(c echo.Context) error {
	type dateRange struct {
		StartDate time.Time `json:"start_date" validate:"required"`
		EndDate   time.Time `json:"end_date" validate:"required"`
	}

	type postFlashcardsParams struct {
		Topics    []string   `json:"topics" validate:"max=10,dive,max=200"`
		DateRange *dateRange `json:"date_range" validate:"omitempty"`
		Limit     int        `json:"limit" validate:"omitempty,min=1,max=20"`
	}

	params := new(postFlashcardsParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if params.DateRange != nil && params.DateRange.EndDate.Before(params.DateRange.StartDate) {
		return badRequest(c)
	}
	if s.services.Flashcards == nil {
		return unavailable(c)
	}

	request := model.FlashcardRequest{Topics: params.Topics, Limit: params.Limit}
	if params.DateRange != nil {
		request.StartDate = &params.DateRange.StartDate
		request.EndDate = &params.DateRange.EndDate
	}

	return s.flashcards(c, request)
}

func (s *Server) getFlashcards(c echo.Context) error {
	type getFlashcardsParams struct {
		Limit    int    `query:"limit" validate:"omitempty,min=1,max=20"`
		Topics   string `query:"topics" validate:"max=2000"`
		DaysBack int    `query:"days_back" validate:"omitempty,min=1,max=30"`
	}

	params := new(getFlashcardsParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if s.services.Flashcards == nil {
		return unavailable(c)
	}

	days := params.DaysBack
	if days == 0 {
		days = defaultFlashcardDays
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	request := model.FlashcardRequest{Limit: params.Limit, StartDate: &start, EndDate: &end}
	for _, topic := range strings.Split(params.Topics, ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			request.Topics = append(request.Topics, topic)
		}
	}

	return s.flashcards(c, request)
}

func (s *Server) flashcards(c echo.Context, request model.FlashcardRequest) error {
	cards := s.services.Flashcards.GenerateFlashcards(c.Request().Context(), request)
	return c.JSON(http.StatusOK, flashcardsResponse{Flashcards: cards, Total: len(cards)})
}
