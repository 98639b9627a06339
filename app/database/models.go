package database

import (
	"encoding/json"
	"time"
)

const (
	RunStatusQueued  = "queued"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusError   = "error"
)

const (
	TriggerStream = "stream"
	TriggerJob    = "job"
)

// Run is one journaled pipeline invocation
type Run struct {
	ID         string     `json:"id"`
	Slug       string     `json:"slug"`
	Mode       string     `json:"mode"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunEvent is a progress event as it was relayed to the caller
type RunEvent struct {
	RunID     string          `json:"-"`
	Seq       int             `json:"seq"`
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PendingArtifact is generated output whose store write failed
type PendingArtifact struct {
	Slug      string
	Stage     string
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
}
