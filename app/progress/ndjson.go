package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

type flusher interface {
	Flush()
}

// NDJSONWriter writes one JSON object per line and flushes after each, so
// clients see events as they happen rather than at the end.
type NDJSONWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{w: w}
}

func (n *NDJSONWriter) Write(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	line = append(line, '\n')

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.w.Write(line); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if f, ok := n.w.(flusher); ok {
		f.Flush()
	}
	return nil
}

// Collector keeps events in memory. It is both an Emitter and a Sink.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Emit(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *Collector) Write(event Event) error {
	c.Emit(event)
	return nil
}

func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *Collector) Types() []Type {
	events := c.Events()
	types := make([]Type, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
