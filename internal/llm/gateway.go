// Package llm wraps the chat-completion endpoint behind a small gateway
// that measures latency, classifies failures and consults an error
// recovery collaborator before propagating anything to the caller.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrDisabled is returned when no API key is configured. Callers short
// circuit to their local fallback without attempting network I/O.
var ErrDisabled = errors.New("llm: completion endpoint disabled, no API key configured")

// Message is one turn of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries the recognized sampling parameters. Zero values fall
// back to the endpoint defaults except Temperature, which DefaultOptions
// pins at 0.6. Streaming is out of scope and always sent as false.
type Options struct {
	Model            string
	Temperature      float64
	TopP             float64
	MaxTokens        int
	FrequencyPenalty float64
	PresencePenalty  float64
}

// DefaultOptions returns the sampling defaults used for insight prompts.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.6,
		TopP:        0.9,
		MaxTokens:   600,
	}
}

// Failure is the structured context handed to the recovery collaborator.
type Failure struct {
	Err          string
	Elapsed      time.Duration
	MessageCount int
}

// Recovery is the collaborator's verdict: when Handled is true, Response
// holds degraded-service text to return in place of the model reply.
type Recovery struct {
	Handled  bool
	Type     string
	Response string
}

// ErrorRecovery decides whether a transport failure has a usable local
// fallback. Implementations live outside this subsystem.
type ErrorRecovery interface {
	HandleError(ctx context.Context, kind string, failure Failure) Recovery
}

// chat-completion wire shapes

type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p,omitempty"`
	FrequencyPenalty float64   `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64   `json:"presence_penalty,omitempty"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	Stream           bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Gateway performs the network round-trip to the completion endpoint.
// Safe for concurrent use.
type Gateway struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	recovery   ErrorRecovery
}

// Config holds explicit gateway configuration; see config.Load for the
// environment mapping.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewGateway builds a gateway. A nil recovery collaborator is allowed;
// failures then propagate directly.
func NewGateway(cfg Config, recovery ErrorRecovery) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gateway{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		recovery:   recovery,
	}
}

// Enabled reports whether the AI path is configured at all.
func (g *Gateway) Enabled() bool {
	return g != nil && g.apiKey != ""
}

// Complete sends the conversation and returns the model's text content.
// One attempt per call; fallback substitutes for retry at the caller.
func (g *Gateway) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}

	model := opts.Model
	if model == "" {
		model = g.model
	}
	payload := chatRequest{
		Model:            model,
		Messages:         messages,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,
		MaxTokens:        opts.MaxTokens,
		Stream:           false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	start := time.Now()
	content, err := g.send(ctx, body)
	elapsed := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "Completion request failed",
			"error", err,
			"model", model,
			"messages", len(messages),
			"duration_ms", elapsed.Milliseconds())
		if g.recovery != nil {
			rec := g.recovery.HandleError(ctx, "completion_failure", Failure{
				Err:          err.Error(),
				Elapsed:      elapsed,
				MessageCount: len(messages),
			})
			if rec.Handled {
				slog.InfoContext(ctx, "Recovery provided degraded response", "type", rec.Type)
				return rec.Response, nil
			}
		}
		return "", err
	}

	slog.InfoContext(ctx, "Completion request succeeded",
		"model", model,
		"messages", len(messages),
		"duration_ms", elapsed.Milliseconds(),
		"response_chars", len(content))
	return content, nil
}

func (g *Gateway) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("completion endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("completion endpoint returned no choices")
	}

	slog.DebugContext(ctx, "Completion usage", "total_tokens", parsed.Usage.TotalTokens)
	return parsed.Choices[0].Message.Content, nil
}
