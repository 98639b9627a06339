package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lysyi3m/article-optimizer/app/article"
)

var ErrNotFound = errors.New("article not found")

// StatusError is returned when the store answers an update with a status
// other than 200 or 404.
type StatusError struct {
	Slug       string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store rejected update for article %s: status %d: %s", e.Slug, e.StatusCode, e.Detail)
}

// Permanent reports whether sending the same request again cannot succeed.
func (e *StatusError) Permanent() bool {
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type Config struct {
	BaseURL     string
	ArticlePath string
	IndexPath   string
	Timeout     time.Duration
}

// Client talks to the external article store over its REST endpoints.
type Client struct {
	baseURL     string
	articlePath string
	indexPath   string
	httpClient  *http.Client
}

func NewClient(config Config, httpClient *http.Client) *Client {
	client := &http.Client{}
	if httpClient != nil {
		copied := *httpClient
		client = &copied
	}
	if config.Timeout > 0 {
		client.Timeout = config.Timeout
	}

	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		articlePath: "/" + strings.Trim(config.ArticlePath, "/"),
		indexPath:   "/" + strings.Trim(config.IndexPath, "/"),
		httpClient:  client,
	}
}

func (c *Client) GetArticle(ctx context.Context, slug string) (*article.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.articleURL(slug), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article %s: %w", slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("store returned status %d for article %s", resp.StatusCode, slug)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// The store answers 200 with a JSON null for unknown slugs.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNotFound
	}

	var a article.Article
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return nil, fmt.Errorf("failed to decode article %s: %w", slug, err)
	}
	if a.Title == "" {
		return nil, ErrNotFound
	}
	if a.Slug == "" {
		a.Slug = slug
	}

	slog.Debug("Article fetched from store", "slug", slug, "content_length", len(a.Content))

	return &a, nil
}

func (c *Client) UpdateArticle(ctx context.Context, slug string, patch article.Patch) (*article.Article, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.articleURL(slug), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to update article %s: %w", slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{
			Slug:       slug,
			StatusCode: resp.StatusCode,
			Detail:     strings.TrimSpace(string(detail)),
		}
	}

	var envelope struct {
		Message string          `json:"message"`
		Data    article.Article `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode update response: %w", err)
	}

	slog.Debug("Article updated in store", "slug", slug, "message", envelope.Message)

	return &envelope.Data, nil
}

func (c *Client) ListArticles(ctx context.Context) ([]article.Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.indexPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("store returned status %d for article index", resp.StatusCode)
	}

	var summaries []article.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return nil, fmt.Errorf("failed to decode article index: %w", err)
	}

	return summaries, nil
}

func (c *Client) articleURL(slug string) string {
	return c.baseURL + c.articlePath + "/" + url.PathEscape(slug)
}
