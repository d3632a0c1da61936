package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Bus fans events out to subscribed handlers from a single dispatch
// goroutine, preserving the order events were published in. Publish never
// blocks the producer: when the buffer is full the event is dropped, which
// is acceptable for progress/log notifications.
type Bus struct {
	handlers   []Handler
	eventChan  chan Event
	done       chan struct{}
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	bufferSize int
}

func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bus{
		handlers:   make([]Handler, 0),
		eventChan:  make(chan Event, bufferSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		bufferSize: bufferSize,
	}
}

func (bus *Bus) Publish(event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-bus.ctx.Done():
		return fmt.Errorf("event bus is stopped")
	default:
	}

	select {
	case bus.eventChan <- event:
		return nil
	default:
		return fmt.Errorf("event channel is full, dropping event %s", event.ID)
	}
}

func (bus *Bus) Subscribe(handler Handler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers = append(bus.handlers, handler)
	log.Debug("Event handler subscribed",
		"handler_type", fmt.Sprintf("%T", handler),
		"total_handlers", len(bus.handlers))
}

func (bus *Bus) Unsubscribe(handler Handler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for i, h := range bus.handlers {
		if h == handler {
			bus.handlers = append(bus.handlers[:i], bus.handlers[i+1:]...)
			return
		}
	}
}

func (bus *Bus) Start() {
	log.Debug("Starting event bus", "buffer_size", bus.bufferSize)
	go bus.processEvents()
}

func (bus *Bus) Stop() error {
	bus.cancel()

	select {
	case <-bus.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for event bus to stop")
	}
}

func (bus *Bus) processEvents() {
	defer close(bus.done)

	for {
		select {
		case event := <-bus.eventChan:
			bus.handleEvent(event)
		case <-bus.ctx.Done():
			// Drain what is already queued so shutdown does not lose
			// the tail of a subprocess's output.
			for {
				select {
				case event := <-bus.eventChan:
					bus.handleEvent(event)
				default:
					return
				}
			}
		}
	}
}

// handleEvent runs handlers synchronously on the dispatch goroutine so log
// lines reach the sink in the order the subprocess produced them.
func (bus *Bus) handleEvent(event Event) {
	bus.mu.RLock()
	handlers := make([]Handler, len(bus.handlers))
	copy(handlers, bus.handlers)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		if !handler.CanHandle(event.Type) {
			continue
		}
		if err := handler.Handle(event); err != nil {
			log.Error("Error handling event",
				"error", err,
				"event_id", event.ID,
				"event_type", string(event.Type),
				"handler_type", fmt.Sprintf("%T", handler))
		}
	}
}
