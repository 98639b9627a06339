package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/article-optimizer/app/database"
)

// MaintenanceTask prunes the run journal, clears expired leases and
// reports artifacts still waiting to be saved.
type MaintenanceTask struct {
	Task
	retention time.Duration
	runs      database.RunRepositoryInterface
	leases    LeaseReaper
	artifacts PendingLister
}

func NewMaintenanceTask(retention time.Duration, runs database.RunRepositoryInterface, leases LeaseReaper, artifacts PendingLister) *MaintenanceTask {
	return &MaintenanceTask{
		Task:      NewTask(TaskTypeMaintenance, ""),
		retention: retention,
		runs:      runs,
		leases:    leases,
		artifacts: artifacts,
	}
}

func (t *MaintenanceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var pruned, released int64
	var err error

	if t.retention > 0 {
		pruned, err = t.runs.PruneRuns(ctx, time.Now().Add(-t.retention))
		if err != nil {
			return fmt.Errorf("failed to prune runs: %w", err)
		}
	}

	if t.leases != nil {
		released, err = t.leases.ReleaseExpired(ctx)
		if err != nil {
			return fmt.Errorf("failed to release expired leases: %w", err)
		}
	}

	pending := 0
	if t.artifacts != nil {
		artifacts, err := t.artifacts.ListPending(ctx)
		if err != nil {
			return fmt.Errorf("failed to list pending artifacts: %w", err)
		}
		pending = len(artifacts)
		for _, a := range artifacts {
			slog.Warn("Artifact waiting to be saved", "slug", a.Slug, "stage", a.Stage, "attempts", a.Attempts, "since", a.CreatedAt)
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"pruned_runs", pruned,
		"expired_leases", released,
		"pending_artifacts", pending)

	return nil
}
