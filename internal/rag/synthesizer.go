package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lawrag/internal/ai"
	"lawrag/internal/model"
	"lawrag/internal/retry"
	"lawrag/internal/vectorindex"
)

const systemPrompt = `你是一个专业的法律助手。你的任务是基于提供的法律文档内容回答用户的问题。

重要规则:
1. 只基于提供的文档内容回答问题
2. 如果文档中没有相关信息，明确告诉用户
3. 引用具体的法律条款（如"第X条"）来支持你的回答
4. 保持客观和专业的语气
5. 如果问题涉及法律建议，提醒用户咨询专业律师

请用清晰、准确的语言回答问题。`

const notFoundAnswer = "抱歉，我在知识库中没有找到与您问题相关的法律文档。请尝试换一个问法或上传相关的法律文档。"

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config tunes answer synthesis. The retry ceiling is tighter than the
// ingestion side because a user is waiting on the response.
type Config struct {
	TopK          int
	PreviewLimit  int
	HistoryWindow int
	MaxAttempts   int
	BaseDelay     time.Duration
	// Model names the generation model in responses.
	Model string
}

// Answer is a grounded response with the chunks it was built from.
type Answer struct {
	Answer     string            `json:"answer"`
	References []model.Reference `json:"references"`
	Model      string            `json:"model,omitempty"`
}

// Synthesizer retrieves relevant chunks and asks the model to answer
// strictly from them.
type Synthesizer struct {
	embedder  QueryEmbedder
	index     vectorindex.Index
	generator Generator
	cfg       Config
	policy    retry.Policy
	logger    *zap.SugaredLogger
}

func NewSynthesizer(embedder QueryEmbedder, index vectorindex.Index, generator Generator, cfg Config, logger *zap.SugaredLogger) *Synthesizer {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.PreviewLimit <= 0 {
		cfg.PreviewLimit = 200
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 10 * time.Second
	}
	return &Synthesizer{
		embedder:  embedder,
		index:     index,
		generator: generator,
		cfg:       cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseDelay,
			Retryable: func(err error) bool {
				if ai.IsQuota(err) {
					logger.Warnw("generation throttled, retrying", "error", err)
					return true
				}
				return false
			},
		},
		logger: logger,
	}
}

// Ask answers a question from the indexed documents. A question with
// no relevant chunks gets a fixed answer and no model call.
func (s *Synthesizer) Ask(ctx context.Context, question string, topK int) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, errors.New("question must not be empty")
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	vector, err := s.embedder.EmbedOne(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("embed question failed: %w", err)
	}

	results, err := s.index.Search(ctx, vector, topK, 0)
	if err != nil {
		return Answer{}, fmt.Errorf("search index failed: %w", err)
	}
	if len(results) == 0 {
		return Answer{Answer: notFoundAnswer, References: []model.Reference{}, Model: s.cfg.Model}, nil
	}

	prompt := buildPrompt(question, results)

	var answer string
	err = s.policy.Do(ctx, func() error {
		var genErr error
		answer, genErr = s.generator.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer failed: %w", err)
	}

	s.logger.Infow("answer generated", "question_prefix", truncateRunes(question, 50), "references", len(results))
	return Answer{Answer: answer, References: s.formatReferences(results), Model: s.cfg.Model}, nil
}

// AskWithHistory folds the recent conversation into the question so a
// follow-up like "那第二款呢" still retrieves the right chunks.
func (s *Synthesizer) AskWithHistory(ctx context.Context, question string, history []model.ChatMessage, topK int) (Answer, error) {
	if len(history) == 0 {
		return s.Ask(ctx, question, topK)
	}
	if len(history) > s.cfg.HistoryWindow {
		history = history[len(history)-s.cfg.HistoryWindow:]
	}

	lines := make([]string, 0, len(history))
	for _, msg := range history {
		label := "助手"
		if msg.Role == model.RoleUser {
			label = "用户"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, msg.Content))
	}
	enhanced := fmt.Sprintf("对话历史:\n%s\n\n当前问题: %s", strings.Join(lines, "\n"), question)
	return s.Ask(ctx, enhanced, topK)
}

func buildPrompt(question string, results []model.SearchResult) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		position := r.ChunkPosition
		if position == "" {
			position = "未知位置"
		}
		parts = append(parts, fmt.Sprintf("[文档%d] %s (相关度: %.2f)\n%s\n", i+1, position, r.SimilarityScore, r.ChunkText))
	}
	context := strings.Join(parts, "\n")

	return fmt.Sprintf("%s\n\n基于以下法律文档内容，回答用户的问题。\n\n法律文档内容:\n%s\n\n用户问题: %s\n\n请提供详细且准确的回答，并引用具体的法律条款。",
		systemPrompt, context, question)
}

func (s *Synthesizer) formatReferences(results []model.SearchResult) []model.Reference {
	refs := make([]model.Reference, 0, len(results))
	for _, r := range results {
		refs = append(refs, model.Reference{
			DocumentID:      r.DocumentID,
			ChunkText:       truncateRunes(r.ChunkText, s.cfg.PreviewLimit),
			ChunkPosition:   r.ChunkPosition,
			SimilarityScore: r.SimilarityScore,
			PageNumber:      r.PageNumber,
		})
	}
	return refs
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
