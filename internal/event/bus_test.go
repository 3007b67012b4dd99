package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/codepair/internal/logging"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe(TypeStageChange, func(e Event) {
		called = true
	})

	if id == 0 {
		t.Error("Subscribe should return a non-zero ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}
	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus(nil)

	var received Event
	bus.Subscribe(TypePromptRefined, func(e Event) {
		received = e
	})

	bus.Publish(NewPromptRefined("Build a todo app with filters"))

	if received == nil {
		t.Fatal("Handler should have received the event")
	}
	refined, ok := received.(PromptRefined)
	if !ok {
		t.Fatalf("Expected PromptRefined, got %T", received)
	}
	if refined.RefinedPrompt != "Build a todo app with filters" {
		t.Errorf("RefinedPrompt = %q", refined.RefinedPrompt)
	}
}

func TestBus_PublishMultipleHandlers(t *testing.T) {
	bus := NewBus(nil)

	callCount := 0
	bus.Subscribe(TypeAssistantDone, func(e Event) { callCount++ })
	bus.Subscribe(TypeAssistantDone, func(e Event) { callCount++ })

	bus.Publish(NewAssistantDone(WorkerCoder))

	if callCount != 2 {
		t.Errorf("Expected both handlers to be called, got %d calls", callCount)
	}
}

func TestBus_PublishNoMatchingHandlers(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(TypePipelineError, func(e Event) {
		t.Error("Handler should not be called for non-matching event type")
	})

	bus.Publish(NewStatusUpdate("working", WorkerNone))
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(nil)

	var types []Type
	bus.SubscribeAll(func(e Event) {
		types = append(types, e.EventType())
	})

	bus.Publish(NewPipelineStart("todo app", 6))
	bus.Publish(NewStageChange(StageRefiningPrompt, ""))
	bus.Publish(NewPipelineFinish(nil, nil))

	expected := []Type{TypePipelineStart, TypeStageChange, TypePipelineFinish}
	if len(types) != len(expected) {
		t.Fatalf("Expected %d events, got %d", len(expected), len(types))
	}
	for i, want := range expected {
		if types[i] != want {
			t.Errorf("event %d = %q, want %q", i, types[i], want)
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe(TypeFileUpdate, func(e Event) {
		called = true
	})

	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return true when subscription exists")
	}
	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions after unsubscribe, got %d", bus.SubscriptionCount())
	}

	bus.Publish(NewFileUpdate("src/App.tsx", "export default 1"))

	if called {
		t.Error("Handler should not be called after unsubscribing")
	}
}

func TestBus_UnsubscribeNonExistent(t *testing.T) {
	bus := NewBus(nil)

	if bus.Unsubscribe(42) {
		t.Error("Unsubscribe should return false for non-existent ID")
	}
}

func TestBus_UnsubscribeOne(t *testing.T) {
	bus := NewBus(nil)

	calls := make(map[string]int)
	id1 := bus.Subscribe(TypeAssistantChunk, func(e Event) { calls["handler1"]++ })
	bus.Subscribe(TypeAssistantChunk, func(e Event) { calls["handler2"]++ })

	bus.Unsubscribe(id1)
	bus.Publish(NewAssistantChunk(WorkerCoder, "const"))

	if calls["handler1"] != 0 {
		t.Error("handler1 should not be called after unsubscribing")
	}
	if calls["handler2"] != 1 {
		t.Error("handler2 should still be called")
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(TypeFolderCreate, func(e Event) {})
	bus.Subscribe(TypeFileCreate, func(e Event) {})
	bus.SubscribeAll(func(e Event) {})

	if bus.SubscriptionCount() != 3 {
		t.Errorf("Expected 3 subscriptions before clear, got %d", bus.SubscriptionCount())
	}

	bus.Clear()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions after clear, got %d", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(logging.NewWriterLogger(&buf, logging.LevelDebug))

	calls := 0
	bus.Subscribe(TypeStatusUpdate, func(e Event) {
		calls++
		panic("handler panic")
	})
	bus.Subscribe(TypeStatusUpdate, func(e Event) {
		calls++
	})

	bus.Publish(NewStatusUpdate("installing", WorkerNone))

	if calls != 2 {
		t.Errorf("Expected both handlers to be called despite panic, got %d calls", calls)
	}
	if !strings.Contains(buf.String(), "event handler panicked") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(TypeAssistantChunk, func(e Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			bus.Publish(NewAssistantChunk(WorkerReviewer, "x"))
		})
	}
	wg.Wait()

	if calls != 100 {
		t.Errorf("Expected 100 calls, got %d", calls)
	}
}

func TestBus_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			id := bus.Subscribe(TypeStageChange, func(e Event) {})
			bus.Unsubscribe(id)
		})
	}
	wg.Wait()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions after concurrent add/remove, got %d", bus.SubscriptionCount())
	}
}

func TestBus_MixedSubscriptionsOrder(t *testing.T) {
	bus := NewBus(nil)

	var calls []string
	bus.SubscribeAll(func(e Event) {
		calls = append(calls, "wildcard:"+string(e.EventType()))
	})
	bus.Subscribe(TypeInstallCommand, func(e Event) {
		calls = append(calls, "specific:"+string(e.EventType()))
	})

	bus.Publish(NewInstallCommand("npm install zustand"))

	want := []string{"specific:install_command", "wildcard:install_command"}
	if len(calls) != len(want) {
		t.Fatalf("Expected %d handler calls, got %d", len(want), len(calls))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus(nil)

	ids := make(map[uint64]bool)
	for range 100 {
		id := bus.Subscribe(TypeStageChange, func(e Event) {})
		if ids[id] {
			t.Errorf("Duplicate subscription ID: %d", id)
		}
		ids[id] = true
	}
}

func TestBus_Emitter(t *testing.T) {
	bus := NewBus(nil)

	var got []Type
	bus.SubscribeAll(func(e Event) { got = append(got, e.EventType()) })

	emit := bus.Emitter()
	emit(NewInstallNoActionsNeeded())

	if len(got) != 1 || got[0] != TypeInstallNoActionsNeeded {
		t.Errorf("Emitter did not publish: %v", got)
	}
}
