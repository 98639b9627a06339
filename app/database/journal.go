package database

import (
	"context"
	"errors"
	"time"

	"github.com/lysyi3m/article-optimizer/app/progress"
)

// Journal is a progress sink that records every event of one run and
// closes the run on the terminal event.
type Journal struct {
	repo  RunRepositoryInterface
	runID string
	seq   int
}

func NewJournal(repo RunRepositoryInterface, runID string) *Journal {
	return &Journal{repo: repo, runID: runID}
}

func (j *Journal) Write(event progress.Event) error {
	// The journal outlives client disconnects.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	j.seq++
	appendErr := j.repo.AppendEvent(ctx, j.runID, j.seq, event)

	// The run is closed even when its last event could not be stored.
	var finishErr error
	switch event.Type {
	case progress.TypeDone:
		finishErr = j.repo.FinishRun(ctx, j.runID, RunStatusDone, "", "")
	case progress.TypeError:
		finishErr = j.repo.FinishRun(ctx, j.runID, RunStatusError, event.Message, errorKind(event.Data))
	}

	return errors.Join(appendErr, finishErr)
}

func errorKind(data interface{}) string {
	switch d := data.(type) {
	case map[string]string:
		return d["kind"]
	case map[string]interface{}:
		if kind, ok := d["kind"].(string); ok {
			return kind
		}
	}
	return ""
}
