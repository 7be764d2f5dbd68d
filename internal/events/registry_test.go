package events

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	before := time.Now()
	event := New(WorkflowStarted, "wf-001", "planning")
	after := time.Now()

	if event.Type != WorkflowStarted {
		t.Errorf("expected type %s, got %s", WorkflowStarted, event.Type)
	}
	if event.WorkflowID != "wf-001" {
		t.Errorf("expected workflow ID wf-001, got %s", event.WorkflowID)
	}
	if event.Phase != "planning" {
		t.Errorf("expected phase planning, got %s", event.Phase)
	}
	if event.Time.Before(before) || event.Time.After(after) {
		t.Errorf("event time %v not between %v and %v", event.Time, before, after)
	}
}

func TestRegistry_EmitOrder(t *testing.T) {
	reg := NewRegistry()

	var order []string
	reg.On(func(e Event) { order = append(order, "first:"+string(e.Type)) })
	reg.On(func(e Event) { order = append(order, "second:"+string(e.Type)) })

	reg.Emit(New(WorkflowStarted, "wf-001", "planning"))
	reg.Emit(New(AgentStarted, "wf-001", "planning"))

	want := []string{
		"first:workflow:started",
		"second:workflow:started",
		"first:agent:started",
		"second:agent:started",
	}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestRegistry_Unsubscribe(t *testing.T) {
	reg := NewRegistry()

	var count int
	unsub := reg.On(func(Event) { count++ })

	reg.Emit(New(WorkflowStarted, "wf-001", "planning"))
	unsub()
	reg.Emit(New(WorkflowCompleted, "wf-001", "completed"))

	if count != 1 {
		t.Errorf("expected 1 delivery after unsubscribe, got %d", count)
	}
	if reg.Count() != 0 {
		t.Errorf("expected 0 listeners, got %d", reg.Count())
	}

	// Double unsubscribe is harmless.
	unsub()
}

func TestRegistry_PanicContained(t *testing.T) {
	reg := NewRegistry()

	var delivered bool
	reg.On(func(Event) { panic("listener bug") })
	reg.On(func(Event) { delivered = true })

	// Must not panic, and later listeners still run.
	reg.Emit(New(WorkflowStarted, "wf-001", "planning"))

	if !delivered {
		t.Error("expected second listener to run after first panicked")
	}
}

func TestRegistry_ListenerCanEmitSynchronously(t *testing.T) {
	reg := NewRegistry()

	var seen []Type
	reg.On(func(e Event) {
		seen = append(seen, e.Type)
	})

	// A listener reacting to one event by triggering engine work must
	// observe strictly ordered delivery.
	reg.Emit(New(ApprovalRequested, "wf-001", "awaiting_approval"))
	reg.Emit(New(ApprovalReceived, "wf-001", "awaiting_approval"))

	if len(seen) != 2 || seen[0] != ApprovalRequested || seen[1] != ApprovalReceived {
		t.Errorf("unexpected delivery order: %v", seen)
	}
}
