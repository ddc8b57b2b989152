// Package llmgateway is the pipeline's only LLM-facing dependency: a
// thin contract for free-text and JSON-mode completions, backed by an
// OpenRouter-compatible client adapted from the teacher's
// internal/llm.OpenRouterClient. Retries and backoff are delegated to
// internal/retry instead of the teacher's hand-rolled loop, and JSON
// completions are validated against internal/contracts before being
// handed back to callers.
package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"convoassist/internal/contracts"
	"convoassist/internal/retry"
)

// ErrInvalidModel is returned when no model id is available.
var ErrInvalidModel = errors.New("llmgateway: model is required")

// Message is one entry of a completion request's message list.
type Message struct {
	Role    string
	Content string
}

// CompleteRequest carries the parameters of a free-text completion.
type CompleteRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
	RequestID   string
}

// Gateway is the contract every pipeline stage calls through; Planner
// and Resolvers never talk to an HTTP client directly.
type Gateway interface {
	// Complete returns the model's free-text response.
	Complete(ctx context.Context, req CompleteRequest) (string, error)
	// CompleteJSON additionally validates the raw completion against the
	// named contracts schema and returns the decoded document.
	CompleteJSON(ctx context.Context, req CompleteRequest, schema contracts.Name) (map[string]any, error)
}

// Client is an OpenRouter-compatible Gateway implementation.
type Client struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
	policy       retry.Policy
	logger       *slog.Logger
}

// Config carries the wiring needed to build a Client.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// New builds a Client. policy is the retry.Policy shared with the rest
// of the process; zero-value uses retry.DefaultPolicy().
func New(cfg Config, httpClient *http.Client, policy retry.Policy, logger *slog.Logger) *Client {
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		httpClient:   httpClient,
		policy:       policy,
		logger:       logger,
	}
}

var _ Gateway = (*Client)(nil)

func (c *Client) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return "", ErrInvalidModel
	}

	body := wireRequest{
		Model:       model,
		Messages:    toWireMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, respBody, err := retry.DoHTTP(ctx, c.policy, c.logger, func(ctx context.Context) (*http.Response, []byte, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(buf))
		if err != nil {
			return nil, nil, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		if req.RequestID != "" {
			httpReq.Header.Set("X-Request-Id", req.RequestID)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp, nil, fmt.Errorf("read response: %w", err)
		}
		return resp, respBody, nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return "", exhausted
		}
		return "", err
	}

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed wireResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.New("empty response from model")
	}
	return parsed.Choices[0].Message.Content, nil
}

// CompleteJSON appends a fixed JSON-only instruction as an extra system
// message (the schema itself is not put into the prompt), calls
// Complete, and validates the raw text against schema. Callers
// that get a validation error should fall back to a deterministic path
// rather than retrying the LLM.
func (c *Client) CompleteJSON(ctx context.Context, req CompleteRequest, schema contracts.Name) (map[string]any, error) {
	req.Messages = appendJSONModeInstruction(req.Messages)

	raw, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, err := contracts.Validate(schema, []byte(extractJSON(raw)))
	if err != nil {
		return nil, fmt.Errorf("llmgateway: %w", err)
	}
	return doc, nil
}

func appendJSONModeInstruction(messages []Message) []Message {
	suffix := Message{
		Role:    "system",
		Content: "Respond with a single JSON object only, no prose, no markdown code fences.",
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, messages...)
	out = append(out, suffix)
	return out
}

// extractJSON strips a ```json fenced block if the model ignored the
// plain-JSON instruction; otherwise returns raw unchanged.
func extractJSON(raw string) string {
	trimmed := raw
	const fenceOpen = "```json"
	const fenceOpenBare = "```"
	const fenceClose = "```"

	if idx := strings.Index(trimmed, fenceOpen); idx >= 0 {
		trimmed = trimmed[idx+len(fenceOpen):]
		if end := strings.Index(trimmed, fenceClose); end >= 0 {
			trimmed = trimmed[:end]
		}
		return trimmed
	}
	if idx := strings.Index(trimmed, fenceOpenBare); idx >= 0 {
		trimmed = trimmed[idx+len(fenceOpenBare):]
		if end := strings.Index(trimmed, fenceClose); end >= 0 {
			trimmed = trimmed[:end]
		}
		return trimmed
	}
	return raw
}

func toWireMessages(messages []Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, wireMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
}
