package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

var (
	ErrMissingAPIKey = errors.New("gemini API key is required")
	ErrEmptyResponse = errors.New("empty response from model")
)

type Request struct {
	SystemInstruction string
	Prompt            string
	// Schema constrains the response to JSON of this shape when set.
	Schema *genai.Schema
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	BaseURL string
}

type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, config Config) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   config.Model,
		timeout: config.Timeout,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: req.Prompt}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema
	}

	started := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	slog.Debug("Gemini generation completed",
		"model", c.model,
		"structured", req.Schema != nil,
		"duration", time.Since(started),
		"response_length", len(text))

	return text, nil
}

// StripCodeFence removes a Markdown code fence wrapping the whole response,
// which models sometimes add despite being told not to. Text holding more
// than one fenced block is returned as is.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}

	newline := strings.IndexByte(trimmed, '\n')
	if newline < 0 {
		return trimmed
	}
	body := strings.TrimSuffix(trimmed[newline+1:], "```")

	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			return trimmed
		}
	}
	return strings.TrimSpace(body)
}
