// ABOUTME: Chain-of-thought reasoning over an OpenAI-compatible chat completions API
// ABOUTME: Sends context plus question, splits the reply into reasoning and answer

// Package reason produces grounded answers for user questions. The Engine
// talks to any OpenAI-compatible chat completions endpoint and asks the model
// to show its reasoning before the final answer, so both can be surfaced
// separately in the UI.
package reason

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	reasoningMarker = "추론:"
	answerMarker    = "답변:"

	systemPrompt = "당신은 사용자의 기억과 검색 결과를 참고하여 답변하는 비서입니다. " +
		"주어진 컨텍스트를 근거로 답하세요. 먼저 '추론:' 다음 줄에 단계별 추론 과정을 쓰고, " +
		"그 다음 '답변:' 다음 줄에 최종 답변을 쓰세요."
)

// Result is a single reasoning outcome.
type Result struct {
	Answer    string
	Reasoning string
}

// Engine calls a chat completions endpoint.
type Engine struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	logger      *slog.Logger
}

// Config holds the Engine's connection settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// New creates an Engine against the configured endpoint.
func New(cfg Config) *Engine {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return &Engine{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      slog.Default().With("component", "reason"),
	}
}

// Model returns the configured model identifier.
func (e *Engine) Model() string { return e.model }

// SetModel switches the model used for subsequent completions. Callers
// serialize this with Answer.
func (e *Engine) SetModel(model string) { e.model = model }

// Available reports whether the engine has an endpoint to talk to.
func (e *Engine) Available() bool { return e.baseURL != "" && e.apiKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Answer asks the model the question against the assembled context and
// splits the reply into reasoning and final answer.
func (e *Engine) Answer(ctx context.Context, contextText, question string) (Result, error) {
	if !e.Available() {
		return Result{}, fmt.Errorf("reasoning engine not configured")
	}

	user := question
	if strings.TrimSpace(contextText) != "" {
		user = fmt.Sprintf("컨텍스트:\n%s\n\n질문: %s", contextText, question)
	}

	body, err := json.Marshal(chatRequest{
		Model:       e.model,
		Messages:    []chatMessage{{Role: "system", Content: systemPrompt}, {Role: "user", Content: user}},
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling chat completions: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Result{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if parsed.Error != nil {
		return Result{}, fmt.Errorf("chat completions: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("chat completions: status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("chat completions: empty choices")
	}

	result := splitReply(parsed.Choices[0].Message.Content)
	e.logger.Debug("reasoning complete", "model", e.model, "answer_len", len(result.Answer))
	return result, nil
}

// splitReply separates the reasoning section from the final answer. Replies
// that skip the markers are treated as answer-only.
func splitReply(content string) Result {
	content = strings.TrimSpace(content)

	ri := strings.Index(content, reasoningMarker)
	ai := strings.Index(content, answerMarker)
	if ai < 0 {
		return Result{Answer: content}
	}

	answer := strings.TrimSpace(content[ai+len(answerMarker):])
	reasoning := ""
	if ri >= 0 && ri < ai {
		reasoning = strings.TrimSpace(content[ri+len(reasoningMarker) : ai])
	}
	return Result{Answer: answer, Reasoning: reasoning}
}
