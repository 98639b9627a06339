package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/article-optimizer/app/database"
	"github.com/lysyi3m/article-optimizer/app/pipeline"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Config struct {
	WorkerCount int
	Interval    time.Duration
	Retention   time.Duration
	TaskTimeout time.Duration
	QueueSize   int
}

type Stats struct {
	Workers        int   `json:"workers"`
	QueueSize      int   `json:"queue_size"`
	TotalProcessed int64 `json:"total_processed"`
	TotalErrors    int64 `json:"total_errors"`
}

type Scheduler struct {
	runner      PipelineRunner
	runs        database.RunRepositoryInterface
	leases      LeaseReaper
	artifacts   PendingLister
	interval    time.Duration
	retention   time.Duration
	taskTimeout time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
	mu          sync.Mutex
	stats       Stats
}

func NewScheduler(runner PipelineRunner, runs database.RunRepositoryInterface, leases LeaseReaper,
	artifacts PendingLister, config Config) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 15 * time.Minute
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}

	return &Scheduler{
		runner:      runner,
		runs:        runs,
		leases:      leases,
		artifacts:   artifacts,
		interval:    config.Interval,
		retention:   config.Retention,
		taskTimeout: config.TaskTimeout,
		workerCount: config.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, config.QueueSize),
		stats:       Stats{Workers: config.WorkerCount},
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// SubmitRun journals a queued run and hands it to the worker pool.
func (s *Scheduler) SubmitRun(ctx context.Context, slug string, mode pipeline.Mode) (*database.Run, error) {
	run := &database.Run{
		Slug:    slug,
		Mode:    string(mode),
		Trigger: database.TriggerJob,
		Status:  database.RunStatusQueued,
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	task := NewRunPipelineTask(run.ID, slug, mode, s.runner, s.runs)
	if err := s.EnqueueTask(task); err != nil {
		if finishErr := s.runs.FinishRun(ctx, run.ID, database.RunStatusError, err.Error(), "busy"); finishErr != nil {
			slog.Error("Failed to close rejected run", "run_id", run.ID, "error", finishErr)
		}
		return nil, err
	}

	slog.Info("Pipeline run queued", "run_id", run.ID, "slug", slug, "mode", mode)
	return run, nil
}

func (s *Scheduler) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.QueueSize = len(s.taskQueue)
	return stats
}

func (s *Scheduler) enqueueStartupTasks() {
	stale, err := s.runs.FailStaleRuns(s.ctx)
	if err != nil {
		slog.Warn("Failed to close stale runs", "error", err)
	} else if stale > 0 {
		slog.Warn("Closed runs interrupted by restart", "count", stale)
	}

	s.enqueueTasks()
}

func (s *Scheduler) enqueueTasks() {
	task := NewMaintenanceTask(s.retention, s.runs, s.leases, s.artifacts)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue MaintenanceTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	s.mu.Lock()
	s.stats.TotalProcessed++
	if err != nil {
		s.stats.TotalErrors++
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "slug", task.GetSlug(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// Tracked by wg so Stop never closes the queue under a pending retry.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
