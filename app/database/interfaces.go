package database

import (
	"context"
	"time"

	"github.com/lysyi3m/article-optimizer/app/progress"
)

type RunRepositoryInterface interface {
	CreateRun(ctx context.Context, run *Run) error
	MarkRunning(ctx context.Context, id string) error
	FinishRun(ctx context.Context, id, status, errMsg, errKind string) error
	AppendEvent(ctx context.Context, runID string, seq int, event progress.Event) error

	GetRun(ctx context.Context, id string) (*Run, error)
	GetRunEvents(ctx context.Context, id string) ([]RunEvent, error)
	ListRuns(ctx context.Context, slug string, limit int) ([]Run, error)

	PruneRuns(ctx context.Context, before time.Time) (int64, error)
	FailStaleRuns(ctx context.Context) (int64, error)
}

type LeaseRepositoryInterface interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
	ReleaseExpired(ctx context.Context) (int64, error)
}

type ArtifactRepositoryInterface interface {
	SavePending(ctx context.Context, slug, stage string, payload []byte) error
	GetPending(ctx context.Context, slug, stage string) (payload []byte, attempts int, ok bool, err error)
	DeletePending(ctx context.Context, slug, stage string) error
}

var (
	_ RunRepositoryInterface      = (*RunRepository)(nil)
	_ LeaseRepositoryInterface    = (*LeaseRepository)(nil)
	_ ArtifactRepositoryInterface = (*ArtifactRepository)(nil)
)
