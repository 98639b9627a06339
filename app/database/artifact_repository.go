package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ArtifactRepository stashes generated output that could not be saved to
// the article store
type ArtifactRepository struct {
	db  *DB
	now func() time.Time
}

// NewArtifactRepository creates a new artifact repository
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db, now: time.Now}
}

// SavePending stores or replaces the pending artifact for slug and stage.
// Replacing an artifact counts one more failed save attempt.
func (r *ArtifactRepository) SavePending(ctx context.Context, slug, stage string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_artifacts (slug, stage, payload, attempts, created_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (slug, stage) DO UPDATE SET
			payload = excluded.payload,
			attempts = pending_artifacts.attempts + 1
	`, slug, stage, string(payload), r.now().UTC().UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to save pending artifact: %w", err)
	}

	return nil
}

// GetPending returns the stashed payload and how many times it was stashed,
// ok is false when none exists
func (r *ArtifactRepository) GetPending(ctx context.Context, slug, stage string) ([]byte, int, bool, error) {
	var payload string
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		SELECT payload, attempts FROM pending_artifacts WHERE slug = ? AND stage = ?
	`, slug, stage).Scan(&payload, &attempts)

	if err == sql.ErrNoRows {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to get pending artifact: %w", err)
	}

	return []byte(payload), attempts, true, nil
}

// DeletePending removes the stashed payload for slug and stage
func (r *ArtifactRepository) DeletePending(ctx context.Context, slug, stage string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_artifacts WHERE slug = ? AND stage = ?`, slug, stage)
	if err != nil {
		return fmt.Errorf("failed to delete pending artifact: %w", err)
	}
	return nil
}

// ListPending returns all stashed artifacts, oldest first
func (r *ArtifactRepository) ListPending(ctx context.Context) ([]PendingArtifact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT slug, stage, payload, attempts, created_at
		FROM pending_artifacts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []PendingArtifact{}
	for rows.Next() {
		var a PendingArtifact
		var payload string
		var createdAt int64
		if err := rows.Scan(&a.Slug, &a.Stage, &payload, &a.Attempts, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending artifact row: %w", err)
		}
		a.Payload = []byte(payload)
		a.CreatedAt = time.UnixMilli(createdAt).UTC()
		artifacts = append(artifacts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending artifact rows: %w", err)
	}

	return artifacts, nil
}
