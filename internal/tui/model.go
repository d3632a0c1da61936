// Package tui renders the setup pipeline in the terminal and relays the
// port-conflict confirmation back into the orchestrator.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

const maxLogLines = 6

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#54baff"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	logStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

type stepMsg domain.Step

type pullMsg struct {
	percent float64
	detail  string
}

type confirmRequestMsg struct {
	conflicts []domain.PortConflict
}

type logMsg string

type doneMsg struct{}

type failedMsg struct{ err error }

// Model is the bubbletea model for one setup run.
type Model struct {
	steps    []domain.Step
	spinner  spinner.Model
	progress progress.Model

	pullPercent float64
	pullDetail  string

	conflicts  []domain.PortConflict
	confirming bool
	confirmCh  chan<- bool

	logLines []string

	done   bool
	failed error
}

func newModel(initial []domain.Step, confirmCh chan<- bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#54baff"))

	p := progress.New(progress.WithGradient("#007BC0", "#011E5C"))
	p.Width = 50

	return Model{
		steps:     initial,
		spinner:   s,
		progress:  p,
		confirmCh: confirmCh,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.confirming {
			switch strings.ToLower(msg.String()) {
			case "y":
				m.confirming = false
				m.confirmCh <- true
				return m, nil
			case "n", "esc":
				m.confirming = false
				m.confirmCh <- false
				return m, nil
			}
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stepMsg:
		for i := range m.steps {
			if m.steps[i].ID == msg.ID {
				m.steps[i] = domain.Step(msg)
			}
		}
		return m, nil

	case pullMsg:
		m.pullPercent = msg.percent
		m.pullDetail = msg.detail
		return m, nil

	case confirmRequestMsg:
		m.conflicts = msg.conflicts
		m.confirming = true
		return m, nil

	case logMsg:
		m.logLines = append(m.logLines, string(msg))
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		return m, nil

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case failedMsg:
		m.failed = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TRH Platform setup"))
	b.WriteString("\n\n")

	for _, step := range m.steps {
		b.WriteString(m.renderStep(step))
		b.WriteString("\n")
		if step.ID == domain.StepImagePull && step.Status == domain.StepRunning {
			b.WriteString("    " + m.progress.ViewAs(m.pullPercent/100) + "\n")
			if m.pullDetail != "" {
				b.WriteString(detailStyle.Render("    "+m.pullDetail) + "\n")
			}
		}
	}

	if m.confirming {
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("Required ports are in use:"))
		b.WriteString("\n")
		for _, c := range m.conflicts {
			b.WriteString(fmt.Sprintf("  port %d — %s (pid %d)\n", c.Port, c.ProcessName, c.PID))
		}
		b.WriteString(promptStyle.Render("Stop these processes? [y/n] "))
		b.WriteString("\n")
	}

	if len(m.logLines) > 0 {
		b.WriteString("\n")
		for _, line := range m.logLines {
			b.WriteString(logStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}

	switch {
	case m.done:
		b.WriteString("\n" + okStyle.Render("✓ Stack is up and healthy") + "\n")
	case m.failed != nil:
		b.WriteString("\n" + failStyle.Render("✗ "+m.failed.Error()) + "\n")
	}

	return b.String()
}

func (m Model) renderStep(step domain.Step) string {
	var icon string
	var style lipgloss.Style

	switch step.Status {
	case domain.StepSucceeded:
		icon, style = "✓", okStyle
	case domain.StepFailed:
		icon, style = "✗", failStyle
	case domain.StepRunning:
		icon, style = m.spinner.View(), lipgloss.NewStyle()
	default:
		icon, style = "·", pendingStyle
	}

	line := fmt.Sprintf("  %s %s", icon, style.Render(step.ID.String()))
	if step.Detail != "" && step.Status != domain.StepPending {
		line += detailStyle.Render(" — " + step.Detail)
	}
	return line
}
