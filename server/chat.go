package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/siherrmann/newsgraph/core/chat"
	"github.com/siherrmann/newsgraph/model"
)

func (s *Server) postChat(c echo.Context) error {
	type postChatParams struct {
		Message        string `json:"message" validate:"required,max=4000"`
		ConversationID string `json:"conversation_id" validate:"max=128"`
	}

	params := new(postChatParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if s.services.Chat == nil {
		return unavailable(c)
	}

	response, err := s.services.Chat.ProcessMessage(c.Request().Context(), params.ConversationID, params.Message)
	if errors.Is(err, chat.ErrEmptyQuery) {
		return badRequest(c)
	}
	if err != nil {
		s.logger.Error("Failed to process chat message", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, response)
}

func (s *Server) getConversation(c echo.Context) error {
	type getConversationParams struct {
		ConversationID string `param:"conversation_id" validate:"required,max=128"`
	}

	type responseData struct {
		ConversationID string                     `json:"conversation_id"`
		Title          string                     `json:"title"`
		Messages       []model.Message            `json:"messages"`
		Insights       model.ConversationInsights `json:"insights"`
	}

	params := new(getConversationParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if s.services.Chat == nil {
		return unavailable(c)
	}

	messages := s.services.Chat.History(params.ConversationID)
	if len(messages) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Conversation not found"})
	}

	return c.JSON(http.StatusOK, responseData{
		ConversationID: params.ConversationID,
		Title:          chat.Title(messages),
		Messages:       messages,
		Insights:       chat.Insights(messages),
	})
}

func (s *Server) deleteConversation(c echo.Context) error {
	type deleteConversationParams struct {
		ConversationID string `param:"conversation_id" validate:"required,max=128"`
	}

	params := new(deleteConversationParams)
	if err := c.Bind(params); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(params); err != nil {
		return badRequest(c)
	}
	if s.services.Chat == nil {
		return unavailable(c)
	}

	s.services.Chat.ClearHistory(params.ConversationID)
	return c.NoContent(http.StatusNoContent)
}
