package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiConfig holds API settings for the Google Generative Language
// REST API.
type GeminiConfig struct {
	BaseURL        string
	APIKey         string
	ChatModel      string // e.g. "gemini-pro"
	EmbeddingModel string // e.g. "text-embedding-004"
	Dimension      int
}

type GeminiClient struct {
	cfg        GeminiConfig
	httpClient *http.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *GeminiClient) Name() string { return c.cfg.ChatModel }

func (c *GeminiClient) Dimension() int { return c.cfg.Dimension }

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

func (c *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := "models/" + strings.TrimPrefix(c.cfg.EmbeddingModel, "models/")
	type embedRequest struct {
		Model   string        `json:"model"`
		Content geminiContent `json:"content"`
	}
	requests := make([]embedRequest, len(texts))
	for i, text := range texts {
		requests[i] = embedRequest{
			Model:   model,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}
	}

	raw, err := c.postJSON(ctx, fmt.Sprintf("/%s:batchEmbedContents", model), map[string]interface{}{
		"requests": requests,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse gemini embedding json failed: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(parsed.Embeddings))
	}
	vectors := make([][]float32, len(parsed.Embeddings))
	for i := range parsed.Embeddings {
		vectors[i] = parsed.Embeddings[i].Values
	}
	return vectors, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	raw, err := c.postJSON(ctx, fmt.Sprintf("/models/%s:generateContent", c.cfg.ChatModel), map[string]interface{}{
		"contents": []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse gemini completion json failed: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty gemini candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (c *GeminiClient) postJSON(ctx context.Context, path string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?key=" + c.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build gemini request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
