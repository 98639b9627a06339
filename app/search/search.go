package search

import (
	"context"
	"errors"
)

var ErrMissingAPIKey = errors.New("search API key is required")

// Provider returns organic results in rank order.
type Provider interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
	GetName() string
}

type Options struct {
	MaxResults int
	Language   string // hl, e.g. "en"
	Country    string // gl, e.g. "in"
}

type Result struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Rank  int    `json:"rank"`
}
