package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	types []EventType
	texts []string
}

func (h *recordingHandler) CanHandle(t EventType) bool { return t == EventLogLine }

func (h *recordingHandler) Handle(e Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.types = append(h.types, e.Type)
	h.texts = append(h.texts, e.Text)
	return nil
}

func (h *recordingHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.texts...)
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	bus := NewBus(64)
	handler := &recordingHandler{}
	bus.Subscribe(handler)
	bus.Start()

	lines := []string{"one", "two", "three", "four", "five"}
	for _, l := range lines {
		require.NoError(t, bus.Publish(Event{Type: EventLogLine, Text: l}))
	}

	require.NoError(t, bus.Stop())
	assert.Equal(t, lines, handler.snapshot())
}

func TestBus_FiltersByCanHandle(t *testing.T) {
	bus := NewBus(16)
	handler := &recordingHandler{}
	bus.Subscribe(handler)
	bus.Start()

	require.NoError(t, bus.Publish(Event{Type: EventPullProgress, Text: "ignored"}))
	require.NoError(t, bus.Publish(Event{Type: EventLogLine, Text: "kept"}))

	require.NoError(t, bus.Stop())
	assert.Equal(t, []string{"kept"}, handler.snapshot())
}

func TestBus_PublishAfterStopFails(t *testing.T) {
	bus := NewBus(16)
	bus.Start()
	require.NoError(t, bus.Stop())

	err := bus.Publish(Event{Type: EventLogLine, Text: "late"})
	assert.Error(t, err)
}

func TestBus_PublishFillsIdentity(t *testing.T) {
	bus := NewBus(16)
	var got Event
	done := make(chan struct{})
	bus.Subscribe(handlerFunc(func(e Event) error {
		got = e
		close(done)
		return nil
	}))
	bus.Start()
	defer bus.Stop()

	require.NoError(t, bus.Publish(Event{Type: EventLogLine, Text: "x"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
}

type handlerFunc func(Event) error

func (handlerFunc) CanHandle(EventType) bool { return true }
func (f handlerFunc) Handle(e Event) error   { return f(e) }
