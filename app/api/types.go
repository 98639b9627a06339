package api

import (
	"context"

	"github.com/lysyi3m/article-optimizer/app/article"
	"github.com/lysyi3m/article-optimizer/app/cache"
	"github.com/lysyi3m/article-optimizer/app/database"
	"github.com/lysyi3m/article-optimizer/app/pipeline"
	"github.com/lysyi3m/article-optimizer/app/store"
	"github.com/lysyi3m/article-optimizer/app/tasks"
)

type ArticleReader interface {
	GetArticle(ctx context.Context, slug string) (*article.Article, error)
	ListArticles(ctx context.Context) ([]article.Summary, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthChecker interface {
	Health(ctx context.Context) error
}

var (
	_ ArticleReader        = (*store.Client)(nil)
	_ tasks.PipelineRunner = (*pipeline.Orchestrator)(nil)
	_ Pinger               = (*database.DB)(nil)
	_ HealthChecker        = (*cache.RedisLocker)(nil)
)

type Handler struct {
	articles  ArticleReader
	runner    tasks.PipelineRunner
	runs      database.RunRepositoryInterface
	scheduler tasks.TaskSchedulerInterface
	db        Pinger
	leases    HealthChecker
}

type jobRequest struct {
	Mode string `json:"mode"`
}
