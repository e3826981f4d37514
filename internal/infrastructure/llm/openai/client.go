// Package openai talks to an OpenAI-compatible chat-completions
// service. It backs the delegated grading and classification paths.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/scholarworks/submission-pipeline/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

// WithExecutor runs requests under retries and a circuit breaker.
func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func New(baseURL, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends one user prompt and returns the model's reply text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	request := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   1000,
	}

	var response chatResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/chat/completions", request, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "llm.generate", call, classifyServiceError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generate: empty choices in response")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
