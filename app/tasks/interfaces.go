package tasks

import (
	"context"

	"github.com/lysyi3m/article-optimizer/app/database"
	"github.com/lysyi3m/article-optimizer/app/pipeline"
	"github.com/lysyi3m/article-optimizer/app/progress"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Pipeline jobs submitted over the API and periodic maintenance share one
// worker pool.
//
//	scheduler := NewScheduler(orchestrator, runRepo, leaseRepo, artifactRepo, config)
//	scheduler.Start()
//	defer scheduler.Stop()
//	run, err := scheduler.SubmitRun(ctx, "my-post", pipeline.ModeFull)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	SubmitRun(ctx context.Context, slug string, mode pipeline.Mode) (*database.Run, error)
	GetStats() Stats
}

// PipelineRunner starts a pipeline invocation and hands back its stream.
type PipelineRunner interface {
	Start(ctx context.Context, req pipeline.Request) *progress.Stream
}

type LeaseReaper interface {
	ReleaseExpired(ctx context.Context) (int64, error)
}

type PendingLister interface {
	ListPending(ctx context.Context) ([]database.PendingArtifact, error)
}
