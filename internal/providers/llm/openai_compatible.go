package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/pkg/log"
	"github.com/sandevgo/ivorybot/pkg/retry"
)

const requestTimeout = 120 * time.Second

// OpenAICompatible talks to any /chat/completions endpoint: OpenAI itself,
// OpenRouter, Ollama's compatibility layer, or a self-hosted gateway.
type OpenAICompatible struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	headers map[string]string
	client  *http.Client
	retrier *retry.Retrier
}

func NewOpenAICompatible(name, baseURL, apiKey, model string, headers map[string]string) *OpenAICompatible {
	return &OpenAICompatible{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		headers: headers,
		client:  &http.Client{Timeout: requestTimeout},
		retrier: retry.NewRetrier(retry.NewTransportConfig()),
	}
}

func (p *OpenAICompatible) Name() string  { return p.name }
func (p *OpenAICompatible) Model() string { return p.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// statusError carries the HTTP status so the retry classifier can tell
// transient upstream trouble from permanent failures.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Code, body)
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
			return true
		}
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Network-level failures (connection reset, EOF) are worth one more try;
	// anything the server answered but we could not make sense of is not.
	var ue *url.Error
	return errors.As(err, &ue)
}

func (p *OpenAICompatible) Chat(ctx context.Context, system string, msgs []core.Message) (string, error) {
	logger := log.FromCtx(ctx)

	payload := chatRequest{Model: p.model}
	if system != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: core.RoleSystem, Content: system})
	}
	for _, m := range msgs {
		payload.Messages = append(payload.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	var text string
	var permanent error
	err = p.retrier.Do(ctx, func() error {
		out, err := p.complete(ctx, body)
		if err == nil {
			text = out
			return nil
		}
		if isRetryable(err) {
			logger.Warn().Err(err).Str("provider", p.name).Msg("transient provider failure, retrying")
			return err
		}
		permanent = err
		return nil
	})
	if permanent != nil {
		return "", permanent
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

func (p *OpenAICompatible) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", core.IvoryUserAgent)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{Code: resp.StatusCode, Body: string(data)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
