package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
	"github.com/tokamak-network/trh-platform-desktop/internal/events"
)

// consolePresenter is the plain (non-TUI) presentation adapter: one line
// per step transition, survey prompt for the port-conflict confirmation.
type consolePresenter struct {
	lastPullBucket int
}

func newConsolePresenter() *consolePresenter {
	return &consolePresenter{lastPullBucket: -1}
}

func (p *consolePresenter) StepChanged(step domain.Step) {
	switch step.Status {
	case domain.StepRunning:
		fmt.Printf("→ %s: %s\n", step.ID, step.Detail)
	case domain.StepSucceeded:
		color.Green("✓ %s: %s", step.ID, step.Detail)
	case domain.StepFailed:
		color.Red("✗ %s: %s", step.ID, step.Detail)
	}
}

// PullProgress prints at 10%% buckets so a pull does not flood the console.
func (p *consolePresenter) PullProgress(percent float64, detail string) {
	bucket := int(percent) / 10
	if bucket == p.lastPullBucket {
		return
	}
	p.lastPullBucket = bucket
	fmt.Printf("  pulling images… %d%% (%s)\n", int(percent), detail)
}

func (p *consolePresenter) ConfirmFreePorts(conflicts []domain.PortConflict) bool {
	color.Yellow("Required ports are in use:")
	for _, c := range conflicts {
		fmt.Printf("  port %d — %s (pid %d)\n", c.Port, c.ProcessName, c.PID)
	}
	confirmed := false
	prompt := &survey.Confirm{Message: "Stop these processes and free the ports?"}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false
	}
	return confirmed
}

func (p *consolePresenter) SetupDone() {
	color.Green("\nStack is up and healthy.")
	color.Blue("Web UI:      http://localhost:3000")
	color.Blue("Backend API: http://localhost:8000")
}

func (p *consolePresenter) SetupFailed(err error) {
	color.Red("\nSetup failed: %v", err)
}

// The console presenter also consumes install progress from the bus.
func (p *consolePresenter) CanHandle(t events.EventType) bool {
	return t == events.EventInstallProgress
}

func (p *consolePresenter) Handle(e events.Event) error {
	fmt.Printf("  %s\n", e.Text)
	return nil
}
