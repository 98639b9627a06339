package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/article-optimizer/app/article"
	"github.com/lysyi3m/article-optimizer/app/llm"
	"github.com/lysyi3m/article-optimizer/app/progress"
)

// TargetingPayload is the data of a targeting event.
type TargetingPayload struct {
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	CoverImage  string             `json:"cover_image,omitempty"`
	Targeting   *article.Targeting `json:"targeting"`
}

type TargetingGenerator struct {
	llm   llm.Generator
	saver *saver
}

func NewTargetingGenerator(generator llm.Generator, saver *saver) *TargetingGenerator {
	return &TargetingGenerator{llm: generator, saver: saver}
}

// Generate derives targeting from the article content and saves it. The
// returned article carries the new targeting.
func (g *TargetingGenerator) Generate(ctx context.Context, a *article.Article, events progress.Emitter) (*article.Article, error) {
	if strings.TrimSpace(a.Content) == "" {
		return nil, fmt.Errorf("%w: article content is empty", ErrValidation)
	}

	if patch, ok := g.saver.pending(ctx, a.Slug, StageTargeting); ok && patch.Targeting.HasPrimarySearchTerm() {
		events.Emit(progress.Status("Resuming saved targeting"))
		return g.persist(ctx, a, patch.Targeting, events)
	}

	events.Emit(progress.Status("Generating targeting"))
	events.Emit(progress.Status("Analyzing article content"))

	text, err := g.llm.Generate(ctx, llm.Request{
		SystemInstruction: targetingSystemPrompt,
		Prompt:            buildTargetingPrompt(a.Title, a.Content),
		Schema:            targetingSchema(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	events.Emit(progress.Status("Processing targeting result"))

	targeting, err := parseTargeting(text)
	if err != nil {
		return nil, err
	}

	slog.Debug("Targeting generated", "slug", a.Slug, "primary_search_term", targeting.PrimarySearchTerm)

	return g.persist(ctx, a, targeting, events)
}

func (g *TargetingGenerator) persist(ctx context.Context, a *article.Article, targeting *article.Targeting, events progress.Emitter) (*article.Article, error) {
	events.Emit(progress.Status("Saving targeting to article"))

	patch := article.Patch{Targeting: targeting}
	updated, err := g.saver.save(ctx, a.Slug, StageTargeting, patch)
	if err != nil {
		return nil, err
	}

	result := merge(a, updated, patch)
	events.Emit(targetingEvent(result))

	return result, nil
}

func targetingEvent(a *article.Article) progress.Event {
	return progress.Targeting(TargetingPayload{
		Slug:        a.Slug,
		Title:       a.Title,
		Description: a.Description,
		CoverImage:  a.CoverImage,
		Targeting:   a.Targeting,
	})
}

func parseTargeting(text string) (*article.Targeting, error) {
	raw := llm.StripCodeFence(text)

	var t article.Targeting
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("%w: malformed targeting JSON: %v", ErrGeneration, err)
	}

	t.PrimarySearchTerm = strings.TrimSpace(t.PrimarySearchTerm)
	t.ContentSummary = strings.TrimSpace(t.ContentSummary)
	t.IdealAudience = compact(t.IdealAudience)
	t.PainPoints = compact(t.PainPoints)
	t.SecondaryKeywords = compact(t.SecondaryKeywords)

	if t.PrimarySearchTerm == "" {
		return nil, fmt.Errorf("%w: primary search term is missing", ErrGeneration)
	}
	return &t, nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
