package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/article-optimizer/app/database"
	"github.com/lysyi3m/article-optimizer/app/pipeline"
	"github.com/lysyi3m/article-optimizer/app/progress"
)

// RunPipelineTask runs one queued pipeline invocation and journals its
// events. It is not retried: a failed run leaves the article in a state the
// next invocation resumes from.
type RunPipelineTask struct {
	Task
	RunID  string
	Mode   pipeline.Mode
	runner PipelineRunner
	runs   database.RunRepositoryInterface
}

func NewRunPipelineTask(runID, slug string, mode pipeline.Mode, runner PipelineRunner, runs database.RunRepositoryInterface) *RunPipelineTask {
	task := NewTask(TaskTypeRunPipeline, slug)
	task.MaxRetries = 0

	return &RunPipelineTask{
		Task:   task,
		RunID:  runID,
		Mode:   mode,
		runner: runner,
		runs:   runs,
	}
}

func (t *RunPipelineTask) Execute(ctx context.Context) error {

	if err := t.runs.MarkRunning(ctx, t.RunID); err != nil {
		slog.Warn("Failed to mark run as running", "run_id", t.RunID, "error", err)
	}

	stream := t.runner.Start(ctx, pipeline.Request{Slug: t.Slug, Mode: t.Mode})
	terminal, err := progress.Relay(stream, database.NewJournal(t.runs, t.RunID))
	if err != nil {
		slog.Warn("Failed to journal run events", "run_id", t.RunID, "error", err)
	}

	if terminal.Type == progress.TypeError {
		return fmt.Errorf("pipeline run %s failed: %s", t.RunID, terminal.Message)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"slug", t.Slug,
		"mode", t.Mode,
		"run_id", t.RunID,
		"duration", t.GetDuration())

	return nil
}
