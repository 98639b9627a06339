package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxPageSize = 5 << 20

type HTTPFetcher struct {
	httpClient     *http.Client
	userAgent      string
	acceptLanguage string
	timeout        time.Duration
}

func NewHTTPFetcher(httpClient *http.Client, profile *Profile) *HTTPFetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPFetcher{
		httpClient:     httpClient,
		userAgent:      profile.Fetch.UserAgent,
		acceptLanguage: profile.Fetch.AcceptLanguage,
		timeout:        profile.FetchTimeout(),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", f.acceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Page{URL: url, StatusCode: resp.StatusCode, Body: data}, nil
}
