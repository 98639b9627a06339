package progress

import (
	"errors"
	"log/slog"
	"sync"
)

// Stream is an ordered, append-only event sequence for one invocation. The
// producer owns it: non-terminal events go through Emit, the single terminal
// event through Finish, which also closes the channel.
type Stream struct {
	events   chan Event
	mu       sync.Mutex
	finished bool
}

func NewStream(buffer int) *Stream {
	if buffer < 0 {
		buffer = 0
	}
	return &Stream{events: make(chan Event, buffer)}
}

func (s *Stream) Events() <-chan Event {
	return s.events
}

func (s *Stream) Emit(event Event) {
	if event.Type.Terminal() {
		s.Finish(event)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		slog.Warn("Dropping event emitted after terminal event", "type", event.Type, "message", event.Message)
		return
	}
	s.events <- event
}

// Finish appends the terminal event and closes the stream. Only the first
// call has an effect.
func (s *Stream) Finish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		slog.Warn("Dropping second terminal event", "type", event.Type, "message", event.Message)
		return
	}
	if !event.Type.Terminal() {
		event = Error("stream finished with non-terminal event", nil)
	}

	s.finished = true
	s.events <- event
	close(s.events)
}

func (s *Stream) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Sink receives relayed events, e.g. an HTTP response or the run journal.
type Sink interface {
	Write(event Event) error
}

// Relay drains the stream into the sinks in emission order and returns the
// terminal event. A failing sink is skipped for the rest of the stream but
// draining continues so the producer never blocks.
func Relay(stream *Stream, sinks ...Sink) (Event, error) {
	failed := make([]bool, len(sinks))
	var errs []error
	var last Event

	for event := range stream.Events() {
		last = event
		for i, sink := range sinks {
			if failed[i] {
				continue
			}
			if err := sink.Write(event); err != nil {
				slog.Warn("Progress sink failed, detaching", "sink_index", i, "error", err)
				failed[i] = true
				errs = append(errs, err)
			}
		}
	}

	return last, errors.Join(errs...)
}
