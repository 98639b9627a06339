package pipeline

import (
	"context"
	"time"

	"github.com/lysyi3m/article-optimizer/app/article"
)

// ArticleStore is the subset of the content store the pipeline needs.
type ArticleStore interface {
	GetArticle(ctx context.Context, slug string) (*article.Article, error)
	UpdateArticle(ctx context.Context, slug string, patch article.Patch) (*article.Article, error)
}

// Locker grants a per-slug lease. Acquire returns ok=false without error
// when another holder owns an unexpired lease.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// ArtifactStash keeps generated output whose store write failed, keyed by
// slug and stage, so the next run can retry the save without regenerating.
type ArtifactStash interface {
	SavePending(ctx context.Context, slug, stage string, payload []byte) error
	GetPending(ctx context.Context, slug, stage string) (payload []byte, attempts int, ok bool, err error)
	DeletePending(ctx context.Context, slug, stage string) error
}

type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// PageFetcher downloads a competitor page. Non-2xx responses are returned
// as pages, not errors, so the caller can classify them.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

const (
	StageTargeting = "targeting"
	StageOptimized = "optimized"
)
