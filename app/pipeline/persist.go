package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/article-optimizer/app/article"
	"github.com/lysyi3m/article-optimizer/app/store"
)

const (
	saveAttempts  = 3
	maxRetryDelay = 30 * time.Second
	// A stashed patch that failed this many save rounds is dropped and
	// the stage is generated again.
	maxStashAttempts = 3
)

// saver writes patches to the store with retries. When every attempt fails
// the patch is stashed so a later run can retry the write alone. Patches
// the store rejects outright are neither retried nor stashed.
type saver struct {
	store     ArticleStore
	stash     ArtifactStash
	baseDelay time.Duration
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	delay := base * time.Duration(1<<uint(attempt-1))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func (s *saver) save(ctx context.Context, slug, stage string, patch article.Patch) (*article.Article, error) {
	var lastErr error

	for attempt := 1; attempt <= saveAttempts; attempt++ {
		updated, err := s.store.UpdateArticle(ctx, slug, patch)
		if err == nil {
			s.clear(ctx, slug, stage)
			return updated, nil
		}
		lastErr = err

		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		var statusErr *store.StatusError
		if errors.As(err, &statusErr) && statusErr.Permanent() {
			slog.Warn("Article save rejected", "slug", slug, "stage", stage, "status", statusErr.StatusCode, "error", err)
			s.clear(ctx, slug, stage)
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if ctx.Err() != nil {
			break
		}

		if attempt < saveAttempts {
			delay := retryDelay(s.baseDelay, attempt)
			slog.Warn("Article save failed, retrying", "slug", slug, "stage", stage, "attempt", attempt, "delay", delay.String(), "error", err)

			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
	}

	s.keep(slug, stage, patch)

	return nil, fmt.Errorf("%w: %v", ErrPersistence, lastErr)
}

// pending returns a previously stashed patch for the stage, if any.
func (s *saver) pending(ctx context.Context, slug, stage string) (*article.Patch, bool) {
	if s.stash == nil {
		return nil, false
	}

	payload, attempts, ok, err := s.stash.GetPending(ctx, slug, stage)
	if err != nil {
		slog.Warn("Failed to read pending artifact", "slug", slug, "stage", stage, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if attempts >= maxStashAttempts {
		slog.Warn("Discarding pending artifact after repeated save failures", "slug", slug, "stage", stage, "attempts", attempts)
		s.clear(ctx, slug, stage)
		return nil, false
	}

	var patch article.Patch
	if err := json.Unmarshal(payload, &patch); err != nil {
		slog.Warn("Discarding unreadable pending artifact", "slug", slug, "stage", stage, "error", err)
		s.clear(ctx, slug, stage)
		return nil, false
	}
	return &patch, true
}

// keep runs detached from the request context so a cancelled run still
// leaves its artifact behind.
func (s *saver) keep(slug, stage string, patch article.Patch) {
	if s.stash == nil {
		return
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		slog.Error("Failed to encode pending artifact", "slug", slug, "stage", stage, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.stash.SavePending(ctx, slug, stage, payload); err != nil {
		slog.Error("Failed to stash pending artifact", "slug", slug, "stage", stage, "error", err)
		return
	}
	slog.Info("Pending artifact stashed", "slug", slug, "stage", stage)
}

func (s *saver) clear(ctx context.Context, slug, stage string) {
	if s.stash == nil {
		return
	}
	if err := s.stash.DeletePending(context.WithoutCancel(ctx), slug, stage); err != nil {
		slog.Warn("Failed to delete pending artifact", "slug", slug, "stage", stage, "error", err)
	}
}

// merge layers the patch over the article so callers see the new fields
// even when the store replies with a partial representation.
func merge(a *article.Article, updated *article.Article, patch article.Patch) *article.Article {
	var result article.Article
	if updated != nil && updated.Title != "" {
		result = *updated
	} else {
		result = *a
	}
	if result.Slug == "" {
		result.Slug = a.Slug
	}
	if patch.Targeting != nil {
		result.Targeting = patch.Targeting
	}
	if patch.UpdatedContent != "" {
		result.UpdatedContent = patch.UpdatedContent
		result.SourceReferences = patch.SourceReferences
	}
	return &result
}
