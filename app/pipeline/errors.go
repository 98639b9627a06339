package pipeline

import (
	"context"
	"errors"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrNotFound                = errors.New("article not found")
	ErrNoSearchResults         = errors.New("no search results")
	ErrInsufficientCompetitors = errors.New("not enough competitor articles")
	ErrGeneration              = errors.New("generation failed")
	ErrPersistence             = errors.New("failed to save article")
	ErrBusy                    = errors.New("article is already being processed")
	ErrUpstream                = errors.New("upstream request failed")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrNoSearchResults, "no_search_results"},
	{ErrInsufficientCompetitors, "insufficient_competitors"},
	{ErrGeneration, "generation"},
	{ErrPersistence, "persistence"},
	{ErrBusy, "busy"},
	{ErrUpstream, "upstream"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "timeout"},
}

// KindOf returns a stable machine-readable name for err, "internal" when it
// matches none of the known categories.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
