package events

import (
	"time"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

type EventType string

const (
	// EventLogLine is one raw output line from a gateway subprocess.
	EventLogLine EventType = "log.line"
	// EventPullProgress is a per-service image pull status line.
	EventPullProgress EventType = "pull.progress"
	// EventInstallProgress is a dependency install step marker.
	EventInstallProgress EventType = "install.progress"
	// EventStepChanged fires on every pipeline step transition.
	EventStepChanged EventType = "step.changed"
)

// Event is a transient notification; delivery is at-most-once per emitted
// line with no buffering guarantee beyond stream order.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Source    string
	Text      string
	Step      domain.Step
	Percent   float64
}

// Handler consumes events it declares interest in.
type Handler interface {
	CanHandle(eventType EventType) bool
	Handle(event Event) error
}
