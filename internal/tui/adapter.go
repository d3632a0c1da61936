package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
	"github.com/tokamak-network/trh-platform-desktop/internal/events"
)

// Adapter bridges the orchestrator's Presenter calls into bubbletea
// messages. All methods are safe to call from the run goroutine.
type Adapter struct {
	program *tea.Program
	confirm chan bool
	uiDone  chan struct{}
}

// NewAdapter builds the adapter and its program. Run blocks until the UI
// exits.
func NewAdapter(initial []domain.Step) *Adapter {
	confirm := make(chan bool, 1)
	model := newModel(initial, confirm)
	return &Adapter{
		program: tea.NewProgram(model),
		confirm: confirm,
		uiDone:  make(chan struct{}),
	}
}

// Run starts the UI loop on the calling goroutine.
func (a *Adapter) Run() error {
	defer close(a.uiDone)
	_, err := a.program.Run()
	return err
}

func (a *Adapter) StepChanged(step domain.Step) {
	a.program.Send(stepMsg(step))
}

func (a *Adapter) PullProgress(percent float64, detail string) {
	a.program.Send(pullMsg{percent: percent, detail: detail})
}

// ConfirmFreePorts blocks the run goroutine until the user answers in the
// UI. This is the pipeline's only user-interaction point. A dismissed UI
// counts as a decline.
func (a *Adapter) ConfirmFreePorts(conflicts []domain.PortConflict) bool {
	a.program.Send(confirmRequestMsg{conflicts: conflicts})
	select {
	case ok := <-a.confirm:
		return ok
	case <-a.uiDone:
		return false
	}
}

func (a *Adapter) SetupDone() {
	a.program.Send(doneMsg{})
}

func (a *Adapter) SetupFailed(err error) {
	a.program.Send(failedMsg{err: err})
}

// CanHandle subscribes the adapter to gateway output and install progress
// on the event bus.
func (a *Adapter) CanHandle(t events.EventType) bool {
	return t == events.EventLogLine || t == events.EventInstallProgress
}

func (a *Adapter) Handle(e events.Event) error {
	text := e.Text
	if e.Source != "" {
		text = e.Source + ": " + e.Text
	}
	a.program.Send(logMsg(text))
	return nil
}
