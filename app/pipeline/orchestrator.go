package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lysyi3m/article-optimizer/app/article"
	"github.com/lysyi3m/article-optimizer/app/llm"
	"github.com/lysyi3m/article-optimizer/app/progress"
	"github.com/lysyi3m/article-optimizer/app/store"
)

type Mode string

const (
	ModeTargeting Mode = "targeting"
	ModeOptimize  Mode = "optimize"
	ModeFull      Mode = "full"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeTargeting, ModeOptimize, ModeFull:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrValidation, s)
	}
}

type Request struct {
	Slug string
	Mode Mode
}

// Result is the data of a done event.
type Result struct {
	Slug             string             `json:"slug"`
	Stage            string             `json:"stage"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	CoverImage       string             `json:"cover_image,omitempty"`
	Author           string             `json:"author,omitempty"`
	PublishedAt      *time.Time         `json:"published_at,omitempty"`
	Targeting        *article.Targeting `json:"targeting,omitempty"`
	UpdatedContent   string             `json:"updated_content,omitempty"`
	SourceReferences []string           `json:"source_references,omitempty"`
}

func newResult(a *article.Article) Result {
	return Result{
		Slug:             a.Slug,
		Stage:            article.Classify(a).String(),
		Title:            a.Title,
		Description:      a.Description,
		CoverImage:       a.CoverImage,
		Author:           a.Author,
		PublishedAt:      a.PublishedAt,
		Targeting:        a.Targeting,
		UpdatedContent:   a.UpdatedContent,
		SourceReferences: a.SourceReferences,
	}
}

type Options struct {
	LeaseTTL time.Duration
	// SaveRetryDelay is the base delay between store write attempts.
	SaveRetryDelay time.Duration
	StreamBuffer   int
}

type Orchestrator struct {
	store     ArticleStore
	locker    Locker
	targeting *TargetingGenerator
	research  *Researcher
	optimizer *Optimizer
	options   Options
}

func NewOrchestrator(articleStore ArticleStore, generator llm.Generator, researcher *Researcher, locker Locker, stash ArtifactStash, options Options) *Orchestrator {
	if options.LeaseTTL <= 0 {
		options.LeaseTTL = 15 * time.Minute
	}
	if options.StreamBuffer <= 0 {
		options.StreamBuffer = 16
	}

	s := &saver{store: articleStore, stash: stash, baseDelay: options.SaveRetryDelay}

	return &Orchestrator{
		store:     articleStore,
		locker:    locker,
		targeting: NewTargetingGenerator(generator, s),
		research:  researcher,
		optimizer: NewOptimizer(generator, s),
		options:   options,
	}
}

// Start runs the pipeline in its own goroutine and returns the stream it
// writes to. The stream always ends with exactly one done or error event.
func (o *Orchestrator) Start(ctx context.Context, req Request) *progress.Stream {
	stream := progress.NewStream(o.options.StreamBuffer)
	go o.Run(ctx, req, stream)
	return stream
}

func (o *Orchestrator) Run(ctx context.Context, req Request, stream *progress.Stream) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline panicked", "slug", req.Slug, "mode", req.Mode, "panic", r, "stack", string(debug.Stack()))
			o.fail(stream, req, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err := o.execute(ctx, req, stream)
	if err != nil {
		o.fail(stream, req, err)
		return
	}

	slog.Info("Pipeline completed", "slug", req.Slug, "mode", req.Mode, "stage", result.Stage, "duration", time.Since(started))
	stream.Finish(progress.Done(result))
}

func (o *Orchestrator) fail(stream *progress.Stream, req Request, err error) {
	kind := KindOf(err)
	if kind == "internal" || kind == "upstream" || kind == "persistence" {
		slog.Error("Pipeline failed", "slug", req.Slug, "mode", req.Mode, "kind", kind, "error", err)
	} else {
		slog.Warn("Pipeline stopped", "slug", req.Slug, "mode", req.Mode, "kind", kind, "error", err)
	}
	stream.Finish(progress.Error(err.Error(), map[string]string{"kind": kind}))
}

func (o *Orchestrator) execute(ctx context.Context, req Request, stream progress.Emitter) (*Result, error) {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrValidation)
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}

	release, err := o.lease(ctx, slug)
	if err != nil {
		return nil, err
	}
	defer release()

	a, err := o.read(ctx, slug)
	if err != nil {
		return nil, err
	}

	stage := article.Classify(a)
	slog.Info("Pipeline started", "slug", slug, "mode", mode, "stage", stage)

	switch {
	case stage == article.StageOptimized:
		return ptr(newResult(a)), nil
	case stage == article.StageTargeted && mode == ModeTargeting:
		stream.Emit(targetingEvent(a))
		return ptr(newResult(a)), nil
	case stage == article.StageRaw && mode == ModeOptimize:
		return nil, fmt.Errorf("%w: targeting not found", ErrValidation)
	}

	if stage == article.StageRaw {
		a, err = o.targeting.Generate(ctx, a, stream)
		if err != nil {
			return nil, err
		}
		if mode == ModeTargeting {
			return ptr(newResult(a)), nil
		}
	}

	if resumed, ok, err := o.optimizer.Resume(ctx, a, stream); ok {
		if err != nil {
			return nil, err
		}
		return ptr(newResult(resumed)), nil
	}

	competitors, err := o.research.Collect(ctx, a.Targeting.PrimarySearchTerm, stream)
	if err != nil {
		return nil, err
	}

	a, err = o.optimizer.Optimize(ctx, a, competitors, stream)
	if err != nil {
		return nil, err
	}

	return ptr(newResult(a)), nil
}

func (o *Orchestrator) read(ctx context.Context, slug string) (*article.Article, error) {
	a, err := o.store.GetArticle(ctx, slug)
	if err == nil {
		if a.Slug == "" {
			a.Slug = slug
		}
		return a, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, fmt.Errorf("%w: failed to read article: %v", ErrUpstream, err)
}

// lease serializes runs per slug. The returned func releases the lease and
// is safe to call when no locker is configured.
func (o *Orchestrator) lease(ctx context.Context, slug string) (func(), error) {
	if o.locker == nil {
		return func() {}, nil
	}

	key := "article:" + slug
	token, ok, err := o.locker.Acquire(ctx, key, o.options.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to acquire lease: %v", ErrUpstream, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, slug)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := o.locker.Release(releaseCtx, key, token); err != nil {
			slog.Warn("Failed to release lease", "slug", slug, "error", err)
		}
	}, nil
}

func ptr[T any](v T) *T {
	return &v
}
