// Package openai talks to an OpenAI-compatible chat-completions endpoint for
// plain text generation and vision-assisted description.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/fetch"
	"github.com/twojabajka/server/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("openai: api key is required")

// Options configures the chat-completions client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *resty.Client
	Logger     *infra.Logger
}

// Client performs chat-completion calls against an OpenAI-compatible API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *resty.Client
	logger  *infra.Logger
}

// ChatRequest captures one completion call. ImageURL, when set, turns the
// message into a vision request with a text part and an image part.
type ChatRequest struct {
	Model       string
	Prompt      string
	ImageURL    string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = fetch.NewClient(fetch.Options{Timeout: 45 * time.Second, Logger: opts.Logger})
	}
	logger := opts.Logger
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		model:   model,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// Model returns the configured default model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete runs one chat completion and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("openai: prompt is required")
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	payload := chatPayload{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: messageContent(prompt, req.ImageURL)}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var decoded chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&decoded).
		Post(c.baseURL + "/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai: http request: %w", err)
	}
	if err := fetch.StatusError(resp); err != nil {
		return "", err
	}
	if decoded.Error.Message != "" {
		return "", fmt.Errorf("openai: %s (%s)", decoded.Error.Message, decoded.Error.Type)
	}
	text := firstContent(decoded)
	if text == "" {
		return "", errors.New("openai: empty completion")
	}
	c.logger.Debug().
		Str("model", model).
		Int("chars", len(text)).
		Msg("openai: completion received")
	return text, nil
}

func messageContent(prompt, imageURL string) any {
	if imageURL == "" {
		return prompt
	}
	return []contentPart{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
	}
}

func firstContent(resp chatResponse) string {
	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text
		}
	}
	return ""
}
