package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lawrag/internal/app"
	"lawrag/internal/transport/http/response"
)

type SearchHandler struct {
	search *app.SearchService
}

type SearchRequest struct {
	Query      string `json:"query" binding:"required"`
	Limit      int    `json:"limit"`
	DocumentID int64  `json:"document_id"`
}

func NewSearchHandler(search *app.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	results, err := h.search.Search(c.Request.Context(), req.Query, req.Limit, req.DocumentID)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}
	response.OK(c, gin.H{"results": results, "count": len(results)})
}

func (h *SearchHandler) Stats(c *gin.Context) {
	stats, err := h.search.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch index stats failed")
		return
	}
	response.OK(c, stats)
}
