package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/article-optimizer/app/article"
	"github.com/lysyi3m/article-optimizer/app/llm"
	"github.com/lysyi3m/article-optimizer/app/progress"
)

type Optimizer struct {
	llm   llm.Generator
	saver *saver
}

func NewOptimizer(generator llm.Generator, saver *saver) *Optimizer {
	return &Optimizer{llm: generator, saver: saver}
}

// Optimize rewrites the article against its competitors and saves the
// result along with the competitor URLs in collection order.
func (o *Optimizer) Optimize(ctx context.Context, a *article.Article, competitors []Competitor, events progress.Emitter) (*article.Article, error) {
	if !a.Targeting.HasPrimarySearchTerm() {
		return nil, fmt.Errorf("%w: targeting not found", ErrValidation)
	}
	if len(competitors) != CompetitorQuota {
		return nil, fmt.Errorf("%w: expected %d competitors, got %d", ErrValidation, CompetitorQuota, len(competitors))
	}

	events.Emit(progress.Status("Optimizing content"))

	text, err := o.llm.Generate(ctx, llm.Request{
		SystemInstruction: optimizerSystemPrompt,
		Prompt:            buildOptimizerPrompt(a.Targeting.PrimarySearchTerm, a.Content, competitors),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	markdown := strings.TrimSpace(llm.StripCodeFence(text))
	if markdown == "" {
		return nil, fmt.Errorf("%w: optimized content is empty", ErrGeneration)
	}

	slog.Debug("Content optimized", "slug", a.Slug, "length", len(markdown))

	references := make([]string, len(competitors))
	for i, c := range competitors {
		references[i] = c.URL
	}

	return o.persist(ctx, a, article.Patch{UpdatedContent: markdown, SourceReferences: references}, events)
}

// Resume saves a previously stashed optimization result, if one exists.
func (o *Optimizer) Resume(ctx context.Context, a *article.Article, events progress.Emitter) (*article.Article, bool, error) {
	patch, ok := o.saver.pending(ctx, a.Slug, StageOptimized)
	if !ok || strings.TrimSpace(patch.UpdatedContent) == "" {
		return nil, false, nil
	}

	events.Emit(progress.Status("Resuming saved optimized content"))

	result, err := o.persist(ctx, a, *patch, events)
	return result, true, err
}

func (o *Optimizer) persist(ctx context.Context, a *article.Article, patch article.Patch, events progress.Emitter) (*article.Article, error) {
	events.Emit(progress.Status("Saving optimized content"))

	updated, err := o.saver.save(ctx, a.Slug, StageOptimized, patch)
	if err != nil {
		return nil, err
	}
	return merge(a, updated, patch), nil
}
