package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultSerpAPIEndpoint = "https://serpapi.com/search.json"

type SerpAPIProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewSerpAPIProvider(apiKey, endpoint string, timeout time.Duration) (*SerpAPIProvider, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if endpoint == "" {
		endpoint = DefaultSerpAPIEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SerpAPIProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (s *SerpAPIProvider) GetName() string {
	return "SerpAPI"
}

func (s *SerpAPIProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	if opts.MaxResults > 0 {
		params.Set("num", strconv.Itoa(opts.MaxResults))
	}
	if opts.Language != "" {
		params.Set("hl", opts.Language)
	}
	if opts.Country != "" {
		params.Set("gl", opts.Country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create SerpAPI request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SerpAPI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SerpAPI request failed with status: %d", resp.StatusCode)
	}

	var apiResponse struct {
		OrganicResults []struct {
			Title    string `json:"title"`
			Link     string `json:"link"`
			Position int    `json:"position"`
		} `json:"organic_results"`
		Error string `json:"error,omitempty"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse SerpAPI response: %w", err)
	}

	// SerpAPI reports "no results" through the error field with a 200.
	if apiResponse.Error != "" && len(apiResponse.OrganicResults) == 0 {
		slog.Warn("SerpAPI returned an error message", "query", query, "error", apiResponse.Error)
		return []Result{}, nil
	}

	results := make([]Result, 0, len(apiResponse.OrganicResults))
	for i, item := range apiResponse.OrganicResults {
		if item.Link == "" {
			continue
		}
		rank := item.Position
		if rank == 0 {
			rank = i + 1
		}
		results = append(results, Result{URL: item.Link, Title: item.Title, Rank: rank})
		if opts.MaxResults > 0 && len(results) == opts.MaxResults {
			break
		}
	}

	slog.Info("SerpAPI search completed", "query", query, "results_found", len(results))

	return results, nil
}
