package script

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/providers"
	"github.com/angelmondragon/personacast-backend/pkg/config"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
)

const providerName = "script"

// Generator produces a script for a persona and platform.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	http        *providers.Client
	model       string
	maxTokens   int
	temperature float64
}

// New builds a Client. A nil doer uses an http.Client with the configured timeout.
func New(cfg config.ScriptProviderConfig, doer providers.HTTPDoer) *Client {
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}
	return &Client{
		http: &providers.Client{
			Name:      providerName,
			BaseURL:   cfg.BaseURL,
			HTTP:      doer,
			Authorize: providers.Bearer(cfg.APIKey),
		},
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	system, user := BuildPrompt(req)
	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var resp chatCompletionResponse
	if err := c.http.DoJSON(ctx, "generate", http.MethodPost, "/chat/completions", payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &providers.Error{Provider: providerName, Operation: "generate", Err: errors.New("no choices returned")}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &providers.Error{Provider: providerName, Operation: "generate", Err: errors.New("empty completion")}
	}
	if req.Platform == enums.PlatformTwitter {
		text = truncateRunes(text, maxTweetRunes)
	}
	return text, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
