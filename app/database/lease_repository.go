package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeaseRepository grants per-key leases with an expiry, so a crashed
// holder never blocks a slug forever
type LeaseRepository struct {
	db  *DB
	now func() time.Time
}

// NewLeaseRepository creates a new lease repository
func NewLeaseRepository(db *DB) *LeaseRepository {
	return &LeaseRepository{db: db, now: time.Now}
}

// Acquire takes the lease when it is free or expired. ok is false when
// another holder owns it.
func (r *LeaseRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	now := r.now().UTC()

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO slug_leases (key, token, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			token = excluded.token,
			expires_at = excluded.expires_at
		WHERE slug_leases.expires_at <= ?
	`, key, token, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lease: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	if affected == 0 {
		return "", false, nil
	}

	return token, true, nil
}

// Release drops the lease if it is still held with token
func (r *LeaseRepository) Release(ctx context.Context, key, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM slug_leases WHERE key = ? AND token = ?`, key, token)
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

// ReleaseExpired removes leases whose holders never released them
func (r *LeaseRepository) ReleaseExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM slug_leases WHERE expires_at <= ?`, r.now().UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to release expired leases: %w", err)
	}
	return result.RowsAffected()
}
