package setup

import (
	"context"
	"time"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

// RuntimeGateway is what the orchestrator needs from the docker layer.
type RuntimeGateway interface {
	VersionCheck(ctx context.Context) bool
	DaemonCheck(ctx context.Context) bool
	Status(ctx context.Context) domain.StackStatus
	Pull(ctx context.Context, onProgress func(service, statusText string)) error
	Up(ctx context.Context, env map[string]string) error
	Down(ctx context.Context) error
}

// PortProber checks and remediates required local ports.
type PortProber interface {
	CheckRequired(reqs []domain.PortRequirement) (bool, []int)
	FindConflicts(reqs []domain.PortRequirement) (bool, []domain.PortConflict)
	FreePorts(ports []int) error
}

// HealthWaiter blocks until the stack is healthy or the timeout passes.
type HealthWaiter interface {
	WaitHealthy(ctx context.Context, timeout time.Duration, onPhase func(phase string)) bool
}

// DependencyManager probes and installs the backend container's tools.
type DependencyManager interface {
	Check(ctx context.Context) domain.DependencySet
	Install(ctx context.Context, onProgress func(line string)) error
}

// Presenter is the presentation boundary. The orchestrator pushes state
// through it and blocks on exactly one interaction point, the port-conflict
// confirmation. Implementations must tolerate being called from the run
// goroutine.
type Presenter interface {
	StepChanged(step domain.Step)
	PullProgress(percent float64, detail string)
	ConfirmFreePorts(conflicts []domain.PortConflict) bool
	SetupDone()
	SetupFailed(err error)
}
