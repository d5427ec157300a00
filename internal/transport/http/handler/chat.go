package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"knowledge-base/internal/app"
	"knowledge-base/internal/model"
	"knowledge-base/internal/transport/http/response"
)

type ChatService interface {
	Query(ctx context.Context, input app.QueryInput) (*app.QueryResult, error)
	History(ctx context.Context, limit int) ([]model.HistoryEntry, error)
}

type ChatHandler struct {
	chat ChatService
}

type QueryRequest struct {
	Question   string `json:"question" binding:"required"`
	NumSources int    `json:"num_sources"`
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.chat.Query(c.Request.Context(), app.QueryInput{
		Question:   req.Question,
		NumSources: req.NumSources,
	})
	if err != nil {
		writeError(c, err, "Error processing query: ")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) History(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	entries, err := h.chat.History(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err, "Error loading history: ")
		return
	}
	response.OK(c, entries)
}
