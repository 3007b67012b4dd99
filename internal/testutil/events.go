package testutil

import (
	"iter"
	"testing"

	"github.com/Iron-Ham/codepair/internal/event"
)

// CollectEvents drains seq.
func CollectEvents(seq iter.Seq[event.Event]) []event.Event {
	var events []event.Event
	for ev := range seq {
		events = append(events, ev)
	}
	return events
}

// Recorder is an event.Emitter that keeps every event.
type Recorder struct {
	Events []event.Event
}

// Emit implements event.Emitter.
func (r *Recorder) Emit(ev event.Event) {
	r.Events = append(r.Events, ev)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []event.Type {
	return EventTypes(r.Events)
}

// EventTypes maps events to their types.
func EventTypes(events []event.Event) []event.Type {
	types := make([]event.Type, len(events))
	for i, ev := range events {
		types[i] = ev.EventType()
	}
	return types
}

// Filter returns the events of concrete type T.
func Filter[T event.Event](events []event.Event) []T {
	var out []T
	for _, ev := range events {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Count returns how many events have type t.
func Count(events []event.Event, t event.Type) int {
	n := 0
	for _, ev := range events {
		if ev.EventType() == t {
			n++
		}
	}
	return n
}

// RequireLast fails the test unless the last event has type t.
func RequireLast(t *testing.T, events []event.Event, want event.Type) {
	t.Helper()

	if len(events) == 0 {
		t.Fatalf("no events, want last event %q", want)
	}
	if got := events[len(events)-1].EventType(); got != want {
		t.Fatalf("last event = %q, want %q (sequence %v)", got, want, EventTypes(events))
	}
}
