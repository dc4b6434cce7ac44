package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lawrag/internal/app"
	"lawrag/internal/transport/http/response"
)

type QAHandler struct {
	qa *app.QAService
}

type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id"`
	TopK      int    `json:"top_k"`
}

func NewQAHandler(qa *app.QAService) *QAHandler {
	return &QAHandler{qa: qa}
}

func (h *QAHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.qa.Ask(c.Request.Context(), req.SessionID, req.Question, req.TopK)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "answer question failed")
		}
		return
	}
	response.OK(c, answer)
}

func (h *QAHandler) ClearSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.qa.ClearSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "clear session failed")
		}
		return
	}
	response.OK(c, gin.H{"cleared_session_id": sessionID})
}
