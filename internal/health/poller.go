// Package health polls the runtime gateway until the stack reports healthy
// or a deadline passes.
package health

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

// pollInterval is the fixed delay between status queries.
const pollInterval = 3 * time.Second

// StatusFunc queries the current stack status.
type StatusFunc func(ctx context.Context) domain.StackStatus

// Poller is a synchronous polling loop, deliberately not event-driven: the
// compose status query is cheap and a fixed cadence keeps behavior
// predictable across runtimes.
type Poller struct {
	status   StatusFunc
	interval time.Duration
}

func NewPoller(status StatusFunc) *Poller {
	return &Poller{status: status, interval: pollInterval}
}

// WaitHealthy polls until AllHealthy or the timeout elapses. Before each
// poll it reports a coarse phase label through onPhase so callers can show
// progress without the raw status shape. Returns false on timeout, never an
// error.
func (p *Poller) WaitHealthy(ctx context.Context, timeout time.Duration, onPhase func(phase string)) bool {
	deadline := time.Now().Add(timeout)

	for {
		status := p.status(ctx)
		if onPhase != nil {
			onPhase(status.Phase())
		}
		if status.AllHealthy {
			return true
		}
		if status.LastError != "" {
			log.Debug("Stack not healthy yet", "phase", status.Phase(), "detail", status.LastError)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Warn("Timed out waiting for stack health", "timeout", timeout)
			return false
		}
		wait := p.interval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false
		}
	}
}
