package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"lawrag/internal/cache"
	"lawrag/internal/model"
	"lawrag/internal/rag"
)

// QAService runs grounded question answering, threading per-session
// chat history through the synthesizer.
type QAService struct {
	synthesizer *rag.Synthesizer
	history     *cache.HistoryCache
	logger      *zap.SugaredLogger
}

func NewQAService(synthesizer *rag.Synthesizer, history *cache.HistoryCache, logger *zap.SugaredLogger) *QAService {
	return &QAService{
		synthesizer: synthesizer,
		history:     history,
		logger:      logger,
	}
}

// Ask answers a question. A non-empty sessionID makes the exchange
// part of a multi-turn conversation: prior turns shape retrieval and
// the new turn is appended afterwards. History failures degrade to a
// single-turn answer rather than failing the question.
func (s *QAService) Ask(ctx context.Context, sessionID, question string, topK int) (rag.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return rag.Answer{}, ErrInvalidInput
	}

	var history []model.ChatMessage
	if sessionID != "" {
		var err error
		history, err = s.history.GetHistory(ctx, sessionID)
		if err != nil {
			s.logger.Warnw("load chat history failed", "session_id", sessionID, "error", err)
			history = nil
		}
	}

	answer, err := s.synthesizer.AskWithHistory(ctx, question, history, topK)
	if err != nil {
		return rag.Answer{}, err
	}

	if sessionID != "" {
		if err := s.history.AppendTurns(ctx, sessionID,
			model.ChatMessage{Role: model.RoleUser, Content: question},
			model.ChatMessage{Role: model.RoleAssistant, Content: answer.Answer},
		); err != nil {
			s.logger.Warnw("store chat history failed", "session_id", sessionID, "error", err)
		}
	}
	return answer, nil
}

// ClearSession drops the stored history of a conversation.
func (s *QAService) ClearSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidInput
	}
	return s.history.DeleteHistory(ctx, sessionID)
}
