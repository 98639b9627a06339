package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/article-optimizer/app/progress"
)

// RunRepository handles the pipeline run journal
type RunRepository struct {
	db  *DB
	now func() time.Time
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db, now: time.Now}
}

// CreateRun inserts a run, assigning an ID and start time when missing
func (r *RunRepository) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = r.now().UTC()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, slug, mode, triggered_by, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Slug, run.Mode, run.Trigger, run.Status, run.StartedAt.UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// MarkRunning moves a queued run to running
func (r *RunRepository) MarkRunning(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pipeline_runs
		SET status = ?, started_at = ?
		WHERE id = ? AND status = ?
	`, RunStatusRunning, r.now().UTC().UnixMilli(), id, RunStatusQueued)

	if err != nil {
		return fmt.Errorf("failed to mark run as running: %w", err)
	}

	return nil
}

// FinishRun records the terminal status of a run
func (r *RunRepository) FinishRun(ctx context.Context, id, status, errMsg, errKind string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pipeline_runs
		SET status = ?, error = ?, error_kind = ?, finished_at = ?
		WHERE id = ?
	`, status, errMsg, errKind, r.now().UTC().UnixMilli(), id)

	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	return nil
}

// AppendEvent stores one relayed progress event
func (r *RunRepository) AppendEvent(ctx context.Context, runID string, seq int, event progress.Event) error {
	var data sql.NullString
	if event.Data != nil {
		encoded, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
		data = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO run_events (run_id, seq, type, message, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, seq, string(event.Type), event.Message, data, r.now().UTC().UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to append run event: %w", err)
	}

	return nil
}

// GetRun returns the run with the given ID or nil if it does not exist
func (r *RunRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, slug, mode, triggered_by, status, error, error_kind, started_at, finished_at
		FROM pipeline_runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// GetRunEvents returns the events of a run in emission order
func (r *RunRepository) GetRunEvents(ctx context.Context, id string) ([]RunEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, seq, type, message, data, created_at
		FROM run_events
		WHERE run_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run events: %w", err)
	}
	defer rows.Close()

	events := []RunEvent{}
	for rows.Next() {
		var event RunEvent
		var data sql.NullString
		var createdAt int64

		if err := rows.Scan(&event.RunID, &event.Seq, &event.Type, &event.Message, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run event row: %w", err)
		}
		if data.Valid {
			event.Data = json.RawMessage(data.String)
		}
		event.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run event rows: %w", err)
	}

	return events, nil
}

// ListRuns returns the most recent runs for a slug
func (r *RunRepository) ListRuns(ctx context.Context, slug string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, slug, mode, triggered_by, status, error, error_kind, started_at, finished_at
		FROM pipeline_runs
		WHERE slug = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, slug, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// PruneRuns deletes finished runs started before the cutoff, with their events
func (r *RunRepository) PruneRuns(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UTC().UnixMilli()

	_, err := r.db.ExecContext(ctx, `
		DELETE FROM run_events
		WHERE run_id IN (
			SELECT id FROM pipeline_runs WHERE started_at < ? AND finished_at IS NOT NULL
		)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune run events: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pipeline_runs
		WHERE started_at < ? AND finished_at IS NOT NULL
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	return result.RowsAffected()
}

// FailStaleRuns marks runs left unfinished by a previous process as failed
func (r *RunRepository) FailStaleRuns(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pipeline_runs
		SET status = ?, error = 'interrupted by restart', error_kind = 'internal', finished_at = ?
		WHERE finished_at IS NULL
	`, RunStatusError, r.now().UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale runs: %w", err)
	}

	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt int64
	var finishedAt sql.NullInt64

	err := row.Scan(&run.ID, &run.Slug, &run.Mode, &run.Trigger, &run.Status,
		&run.Error, &run.ErrorKind, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.StartedAt = time.UnixMilli(startedAt).UTC()
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64).UTC()
		run.FinishedAt = &t
	}

	return &run, nil
}
