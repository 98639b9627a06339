package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/article-optimizer/app/content"
	"github.com/lysyi3m/article-optimizer/app/progress"
	"github.com/lysyi3m/article-optimizer/app/search"
)

// Competitor is a fetched, boilerplate-stripped competitor page.
type Competitor struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"-"`
}

type Researcher struct {
	search    search.Provider
	fetcher   PageFetcher
	detector  *content.BlockDetector
	extractor *content.Extractor
	profile   *Profile
}

func NewResearcher(provider search.Provider, fetcher PageFetcher, extractor *content.Extractor, profile *Profile) *Researcher {
	if profile == nil {
		profile = DefaultProfile()
	}
	return &Researcher{
		search:    provider,
		fetcher:   fetcher,
		detector:  content.NewBlockDetector(profile.Fetch.BlockedMarkers),
		extractor: extractor,
		profile:   profile,
	}
}

// Collect returns exactly CompetitorQuota documents in search-rank order.
// Candidates are fetched one at a time and collection stops as soon as the
// quota is met.
func (r *Researcher) Collect(ctx context.Context, term string, events progress.Emitter) ([]Competitor, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: primary search term is empty", ErrValidation)
	}

	events.Emit(progress.Status("Fetching top search results"))

	results, err := r.search.Search(ctx, r.profile.BuildQuery(term), search.Options{
		MaxResults: MaxCandidates,
		Language:   r.profile.Search.Language,
		Country:    r.profile.Search.Country,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s search: %v", ErrUpstream, r.search.GetName(), err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoSearchResults, term)
	}
	if len(results) > MaxCandidates {
		results = results[:MaxCandidates]
	}

	slog.Debug("Search results received", "term", term, "count", len(results))

	competitors := make([]Competitor, 0, CompetitorQuota)
	for i, result := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		events.Emit(progress.Status(fmt.Sprintf("Fetching competitor article %d of %d: %s", i+1, len(results), result.URL)))

		competitor, reason := r.collectOne(ctx, result)
		if reason != "" {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slog.Debug("Competitor skipped", "url", result.URL, "reason", reason)
			events.Emit(progress.Warning(fmt.Sprintf("Skipped article: %s (%s)", result.URL, reason)))
			continue
		}

		competitors = append(competitors, *competitor)
		if len(competitors) == CompetitorQuota {
			break
		}
	}

	if len(competitors) < CompetitorQuota {
		return nil, fmt.Errorf("%w: collected %d of %d from %d candidates", ErrInsufficientCompetitors, len(competitors), CompetitorQuota, len(results))
	}

	urls := make([]string, len(competitors))
	for i, c := range competitors {
		urls[i] = c.URL
	}

	events.Emit(progress.Status("Competitor articles collected"))
	events.Emit(progress.Data("Competitor sources", map[string][]string{"source_references": urls}))

	return competitors, nil
}

// collectOne returns a non-empty reason when the candidate is unusable.
func (r *Researcher) collectOne(ctx context.Context, result search.Result) (*Competitor, string) {
	if strings.TrimSpace(result.URL) == "" {
		return nil, "missing URL"
	}

	page, err := r.fetcher.Fetch(ctx, result.URL)
	if err != nil {
		return nil, err.Error()
	}

	if blocked, why := r.detector.Detect(page.StatusCode, page.Body); blocked {
		return nil, why
	}

	doc, err := r.extractor.Run(page.Body, result.URL)
	if err != nil {
		if errors.Is(err, content.ErrNoContent) {
			return nil, "no readable content"
		}
		return nil, err.Error()
	}
	if doc.TextLength < MinTextLength {
		return nil, fmt.Sprintf("only %d characters of text", doc.TextLength)
	}

	title := doc.Title
	if title == "" {
		title = result.Title
	}

	return &Competitor{URL: result.URL, Title: title, Markdown: doc.Markdown}, ""
}
