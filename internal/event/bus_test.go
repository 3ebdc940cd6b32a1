package event

import (
	"log/slog"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(testLogger())

	var received []Event
	bus.Subscribe(ScanCompleted, func(e Event) {
		received = append(received, e)
	})

	bus.Publish(Event{
		Type: ScanCompleted,
		Data: map[string]any{"metadata_files": 42},
	})

	if len(received) != 1 {
		t.Fatalf("got %d events, want 1", len(received))
	}
	if received[0].Data["metadata_files"] != 42 {
		t.Errorf("data[metadata_files] = %v, want 42", received[0].Data["metadata_files"])
	}
	if received[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus(testLogger())

	count := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(FileUpdated, func(_ Event) {
			count++
		})
	}

	bus.Publish(Event{Type: FileUpdated})

	if count != 3 {
		t.Errorf("got %d handler calls, want 3", count)
	}
}

func TestNoSubscribers(t *testing.T) {
	bus := NewBus(testLogger())

	// Should not panic
	bus.Publish(Event{Type: MediaOrphaned})
}

func TestDispatchOrderMatchesPublishOrder(t *testing.T) {
	bus := NewBus(testLogger())

	var order []string
	bus.Subscribe(FileUpdated, func(e Event) {
		order = append(order, e.Data["path"].(string))
	})

	for _, p := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		bus.Publish(Event{Type: FileUpdated, Data: map[string]any{"path": p}})
	}

	want := []string{"a.jpg", "b.jpg", "c.jpg"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestHandlerPanicRecovery(t *testing.T) {
	bus := NewBus(testLogger())

	secondCalled := false
	bus.Subscribe(FileFailed, func(_ Event) {
		panic("test panic")
	})
	bus.Subscribe(FileFailed, func(_ Event) {
		secondCalled = true
	})

	bus.Publish(Event{Type: FileFailed})

	if !secondCalled {
		t.Error("second handler should still be called after first panics")
	}
}
