package progress

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestStream_OrderAndSingleTerminal(t *testing.T) {
	stream := NewStream(0)
	collector := &Collector{}

	done := make(chan Event)
	go func() {
		last, _ := Relay(stream, collector)
		done <- last
	}()

	stream.Emit(Status("one"))
	stream.Emit(Warning("two"))
	stream.Emit(Data("three", map[string]int{"n": 3}))
	stream.Finish(Done(nil))
	stream.Emit(Status("late"))
	stream.Finish(Error("second terminal", nil))

	last := <-done
	if last.Type != TypeDone {
		t.Errorf("Expected terminal done, got %s", last.Type)
	}

	types := collector.Types()
	expected := []Type{TypeStatus, TypeWarning, TypeData, TypeDone}
	if len(types) != len(expected) {
		t.Fatalf("Expected %d events, got %v", len(expected), types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("Event %d: expected %s, got %s", i, expected[i], types[i])
		}
	}
	if !stream.Finished() {
		t.Error("Expected stream to be finished")
	}
}

func TestStream_EmitTerminalFinishes(t *testing.T) {
	stream := NewStream(4)
	stream.Emit(Error("boom", nil))

	var events []Event
	for e := range stream.Events() {
		events = append(events, e)
	}
	if len(events) != 1 || events[0].Type != TypeError {
		t.Errorf("Expected single error event, got %+v", events)
	}
}

func TestStream_FinishWithNonTerminalBecomesError(t *testing.T) {
	stream := NewStream(1)
	stream.Finish(Status("not terminal"))

	e := <-stream.Events()
	if e.Type != TypeError {
		t.Errorf("Expected error event, got %s", e.Type)
	}
}

type failingSink struct{ writes int }

func (f *failingSink) Write(Event) error {
	f.writes++
	return errors.New("client went away")
}

func TestRelay_KeepsDrainingAfterSinkFailure(t *testing.T) {
	stream := NewStream(8)
	stream.Emit(Status("a"))
	stream.Emit(Status("b"))
	stream.Finish(Done(nil))

	bad := &failingSink{}
	good := &Collector{}

	last, err := Relay(stream, bad, good)
	if err == nil {
		t.Error("Expected sink error to be reported")
	}
	if last.Type != TypeDone {
		t.Errorf("Expected done, got %s", last.Type)
	}
	if bad.writes != 1 {
		t.Errorf("Expected failing sink to be detached after first write, got %d writes", bad.writes)
	}
	if len(good.Events()) != 3 {
		t.Errorf("Expected healthy sink to receive all events, got %d", len(good.Events()))
	}
}

func TestNDJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewNDJSONWriter(&buf)

	if err := w.Write(Status("Fetching article")); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Done(map[string]string{"slug": "test-post"})); err != nil {
		t.Fatal(err)
	}

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]interface{}
	for scanner.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}

	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0]["type"] != "status" || lines[0]["message"] != "Fetching article" {
		t.Errorf("Unexpected first line: %v", lines[0])
	}
	if _, ok := lines[0]["data"]; ok {
		t.Error("Expected data to be omitted when empty")
	}
	if _, ok := lines[1]["message"]; ok {
		t.Error("Expected message to be omitted when empty")
	}
}

func TestTypeTerminal(t *testing.T) {
	for _, typ := range []Type{TypeStatus, TypeWarning, TypeData, TypeTargeting} {
		if typ.Terminal() {
			t.Errorf("Expected %s to be non-terminal", typ)
		}
	}
	if !TypeDone.Terminal() || !TypeError.Terminal() {
		t.Error("Expected done and error to be terminal")
	}
}
